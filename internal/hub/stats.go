package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is one stats collection window.
type Snapshot struct {
	ActiveConnections int
	Subscriptions     int
	Channels          int

	// Window totals, reset each tick.
	MessagesIn  int64
	MessagesOut int64
	BytesIn     int64
	BytesOut    int64
	Errors      int64

	// Derived per-second rates over the window.
	MessagesInPerSec  float64
	MessagesOutPerSec float64
	BytesOutPerSec    float64

	Elapsed time.Duration
}

// StatsObserver receives each window snapshot.
type StatsObserver func(Snapshot)

// Stats tracks windowed throughput counters. Counters are atomics so the
// hot path never takes a lock; the ticker swaps them to zero each window.
type Stats struct {
	interval time.Duration
	logger   *slog.Logger

	connections   func() int
	subscriptions func() int
	channels      func() int
	observer      StatsObserver

	messagesIn  atomic.Int64
	messagesOut atomic.Int64
	bytesIn     atomic.Int64
	bytesOut    atomic.Int64
	errors      atomic.Int64

	windowMu    sync.Mutex
	windowStart time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStats creates a collector. The funcs supply gauge values at snapshot
// time; observer may be nil.
func NewStats(interval time.Duration, connections, subscriptions, channels func() int, logger *slog.Logger) *Stats {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stats{
		interval:      interval,
		logger:        logger,
		connections:   connections,
		subscriptions: subscriptions,
		channels:      channels,
		windowStart:   time.Now(),
	}
}

// SetObserver installs the snapshot callback. Must be called before Start.
func (s *Stats) SetObserver(fn StatsObserver) {
	s.observer = fn
}

// CountIn records one inbound message.
func (s *Stats) CountIn(bytes int) {
	s.messagesIn.Add(1)
	s.bytesIn.Add(int64(bytes))
}

// CountOut records one outbound message.
func (s *Stats) CountOut(bytes int) {
	s.messagesOut.Add(1)
	s.bytesOut.Add(int64(bytes))
}

// CountError records one per-connection error.
func (s *Stats) CountError() {
	s.errors.Add(1)
}

// Start begins the collection loop.
func (s *Stats) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.windowMu.Lock()
	s.windowStart = time.Now()
	s.windowMu.Unlock()

	s.wg.Add(1)
	go s.collectLoop()
	return nil
}

// Stop halts the collection loop.
func (s *Stats) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("stats stop timed out")
	}
	return nil
}

func (s *Stats) collectLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			snap := s.snapshot()
			s.logger.Info("hub stats",
				"connections", snap.ActiveConnections,
				"subscriptions", snap.Subscriptions,
				"channels", snap.Channels,
				"msgs_in_per_sec", snap.MessagesInPerSec,
				"msgs_out_per_sec", snap.MessagesOutPerSec,
				"errors", snap.Errors,
			)
			if s.observer != nil {
				s.observer(snap)
			}
		}
	}
}

// snapshot drains the window counters and computes rates.
func (s *Stats) snapshot() Snapshot {
	s.windowMu.Lock()
	now := time.Now()
	elapsed := now.Sub(s.windowStart)
	s.windowStart = now
	s.windowMu.Unlock()

	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	elapsedMs := float64(elapsed.Milliseconds())
	if elapsedMs < 1 {
		elapsedMs = 1
	}

	snap := Snapshot{
		ActiveConnections: s.connections(),
		Subscriptions:     s.subscriptions(),
		Channels:          s.channels(),
		MessagesIn:        s.messagesIn.Swap(0),
		MessagesOut:       s.messagesOut.Swap(0),
		BytesIn:           s.bytesIn.Swap(0),
		BytesOut:          s.bytesOut.Swap(0),
		Errors:            s.errors.Swap(0),
		Elapsed:           elapsed,
	}
	snap.MessagesInPerSec = float64(snap.MessagesIn) / elapsedMs * 1000
	snap.MessagesOutPerSec = float64(snap.MessagesOut) / elapsedMs * 1000
	snap.BytesOutPerSec = float64(snap.BytesOut) / elapsedMs * 1000

	return snap
}
