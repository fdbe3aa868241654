package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// BloomSeeder rebuilds the comment id bloom filter from the store
type BloomSeeder interface {
	InitBloomFilter(ctx context.Context) error
}

// bloomReseedWorker 定时重建布隆过滤器，Redis 被清空后避免误判为不存在
type bloomReseedWorker struct {
	seeder BloomSeeder
	cron   *cron.Cron

	mu      sync.Mutex
	running bool
	ctx     context.Context
}

// NewBloomReseedWorker schedules a reseed on the cron spec, e.g. "@every 1h"
func NewBloomReseedWorker(seeder BloomSeeder, spec string) (*bloomReseedWorker, error) {
	w := &bloomReseedWorker{
		seeder: seeder,
		cron:   cron.New(),
		ctx:    context.Background(),
	}
	if _, err := w.cron.AddFunc(spec, w.Run); err != nil {
		return nil, fmt.Errorf("invalid bloom reseed schedule %q: %w", spec, err)
	}
	return w, nil
}

// Start blocks until ctx is done, then waits for a running reseed
func (w *bloomReseedWorker) Start(ctx context.Context) {
	w.mu.Lock()
	w.ctx = ctx
	w.mu.Unlock()

	w.cron.Start()
	<-ctx.Done()
	logrus.Info("shutting down BloomReseedWorker...")
	<-w.cron.Stop().Done()
}

// Run reseeds once. Overlapping runs are skipped.
func (w *bloomReseedWorker) Run() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		logrus.Warn("bloom reseed still running, skip")
		return
	}
	w.running = true
	ctx := w.ctx
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	if err := w.seeder.InitBloomFilter(ctx); err != nil {
		logrus.Errorf("bloom reseed failed: %v", err)
	}
}
