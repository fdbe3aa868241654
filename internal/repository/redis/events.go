package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/Guyuepp/go-comment-service/domain"
)

const (
	DefaultEventChannel = "comment:events"
)

// EventMessage is the wire format of a comment event on the pub/sub channel
type EventMessage struct {
	Event      domain.EventName `json:"event"`
	PostID     string           `json:"postId"`
	CommentID  string           `json:"id"`
	Comment    *domain.Comment  `json:"comment,omitempty"`
	OccurredAt time.Time        `json:"occurredAt"`
}

func NewEventMessage(ev domain.CommentEvent) EventMessage {
	return EventMessage{
		Event:      ev.Name,
		PostID:     ev.PostID,
		CommentID:  ev.CommentID,
		Comment:    ev.Comment,
		OccurredAt: ev.OccurredAt,
	}
}

// eventPublisher 通过 Redis Pub/Sub 广播评论事件，所有实例都会收到
type eventPublisher struct {
	client  redis.Cmdable
	channel string
}

var _ domain.EventSink = (*eventPublisher)(nil)

func NewEventPublisher(client redis.Cmdable, channel string) *eventPublisher {
	if channel == "" {
		channel = DefaultEventChannel
	}
	return &eventPublisher{
		client:  client,
		channel: channel,
	}
}

func (p *eventPublisher) Publish(ctx context.Context, ev domain.CommentEvent) error {
	data, err := json.Marshal(NewEventMessage(ev))
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.channel, data).Err()
}

// Subscribe forwards every message on channel to handle until ctx is done.
// Malformed payloads are logged and skipped.
func Subscribe(ctx context.Context, client *redis.Client, channel string, handle func(EventMessage)) error {
	if channel == "" {
		channel = DefaultEventChannel
	}
	sub := client.Subscribe(ctx, channel)
	defer sub.Close()

	// 等待订阅确认
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var em EventMessage
			if err := json.Unmarshal([]byte(msg.Payload), &em); err != nil {
				logrus.Warnf("dropping malformed comment event: %v", err)
				continue
			}
			handle(em)
		}
	}
}
