package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// FlushFunc delivers one drained queue. The hub's implementation sends a
// batch envelope to the channel's subscribers, or drops the messages when
// no subscribers remain.
type FlushFunc func(channel string, messages []json.RawMessage)

// Batcher accumulates broadcast messages per channel and flushes them on a
// size trigger or a periodic tick, whichever comes first.
type Batcher struct {
	maxBatch int
	interval time.Duration
	flush    FlushFunc
	logger   *slog.Logger

	mu     sync.Mutex
	queues map[string][]json.RawMessage

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBatcher creates a batcher. flush is called outside the queue lock.
func NewBatcher(maxBatch int, interval time.Duration, flush FlushFunc, logger *slog.Logger) *Batcher {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBatch < 1 {
		maxBatch = 1
	}
	return &Batcher{
		maxBatch: maxBatch,
		interval: interval,
		flush:    flush,
		logger:   logger,
		queues:   make(map[string][]json.RawMessage),
	}
}

// Start begins the periodic flush loop.
func (b *Batcher) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	b.wg.Add(1)
	go b.flushLoop()

	b.logger.Debug("batcher started",
		"max_batch", b.maxBatch,
		"interval", b.interval,
	)
	return nil
}

// Stop halts the flush loop and drains remaining queues.
func (b *Batcher) Stop(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("batcher stop timed out")
	}

	b.flushAll()
	return nil
}

// Enqueue appends a message to the channel's queue. Reaching maxBatch
// flushes the queue immediately without waiting for the tick.
func (b *Batcher) Enqueue(channel string, msg json.RawMessage) {
	b.mu.Lock()
	b.queues[channel] = append(b.queues[channel], msg)
	var full []json.RawMessage
	if len(b.queues[channel]) >= b.maxBatch {
		full = b.queues[channel]
		delete(b.queues, channel)
	}
	b.mu.Unlock()

	if full != nil {
		b.flush(channel, full)
	}
}

// Pending returns the queued message count for a channel.
func (b *Batcher) Pending(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues[channel])
}

func (b *Batcher) flushLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.ctx.Done():
			return
		case <-ticker.C:
			b.flushAll()
		}
	}
}

// flushAll drains every queue. Queues are swapped out under the lock and
// delivered after it is released.
func (b *Batcher) flushAll() {
	b.mu.Lock()
	if len(b.queues) == 0 {
		b.mu.Unlock()
		return
	}
	drained := b.queues
	b.queues = make(map[string][]json.RawMessage)
	b.mu.Unlock()

	for channel, msgs := range drained {
		b.flush(channel, msgs)
	}
}
