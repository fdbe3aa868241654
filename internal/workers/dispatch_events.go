package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/go-comment-service/domain"
	"github.com/Guyuepp/go-comment-service/internal/metrics"
)

const (
	DefaultEventBufferSize = 1024
	defaultPublishTimeout  = 3 * time.Second
)

type eventDispatchWorker struct {
	sink           domain.EventSink
	metrics        *metrics.Metrics
	ch             chan domain.CommentEvent
	publishTimeout time.Duration
}

var _ domain.EventDispatchWorker = (*eventDispatchWorker)(nil)

// NewEventDispatchWorker 创建事件分发 worker，bufferSize <= 0 时使用默认值
func NewEventDispatchWorker(sink domain.EventSink, bufferSize int, m *metrics.Metrics) *eventDispatchWorker {
	if bufferSize <= 0 {
		bufferSize = DefaultEventBufferSize
	}
	return &eventDispatchWorker{
		sink:           sink,
		metrics:        m,
		ch:             make(chan domain.CommentEvent, bufferSize),
		publishTimeout: defaultPublishTimeout,
	}
}

// Notify never blocks; the event is dropped when the buffer is full
func (w *eventDispatchWorker) Notify(ev domain.CommentEvent) {
	select {
	case w.ch <- ev:
	default:
		w.metrics.IncEventDropped()
		logrus.Warnf("EventDispatchWorker's channel is full, %s event of comment %s dropped", ev.Name, ev.CommentID)
	}
}

func (w *eventDispatchWorker) Start(ctx context.Context) {
	for {
		select {
		case ev := <-w.ch:
			w.publish(ev)
		case <-ctx.Done():
			logrus.Info("shutting down EventDispatchWorker, flushing remain events...")
			for {
				select {
				case ev := <-w.ch:
					w.publish(ev)
				default:
					return
				}
			}
		}
	}
}

// publish 使用独立的 context，关闭阶段也能把剩余事件发出去
func (w *eventDispatchWorker) publish(ev domain.CommentEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), w.publishTimeout)
	defer cancel()

	err := w.sink.Publish(ctx, ev)
	w.metrics.RecordEventPublished(string(ev.Name), err)
	if err != nil {
		logrus.Errorf("failed to publish %s event of comment %s: %v", ev.Name, ev.CommentID, err)
	}
}
