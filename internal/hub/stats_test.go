package hub

import (
	"testing"
	"time"
)

func newTestStats() *Stats {
	return NewStats(time.Minute,
		func() int { return 7 },
		func() int { return 3 },
		func() int { return 2 },
		nil,
	)
}

func TestStatsSnapshotDrainsCounters(t *testing.T) {
	s := newTestStats()

	s.CountIn(100)
	s.CountIn(50)
	s.CountOut(200)
	s.CountError()

	snap := s.snapshot()

	if snap.ActiveConnections != 7 || snap.Subscriptions != 3 || snap.Channels != 2 {
		t.Errorf("gauges = %d/%d/%d, want 7/3/2",
			snap.ActiveConnections, snap.Subscriptions, snap.Channels)
	}
	if snap.MessagesIn != 2 || snap.BytesIn != 150 {
		t.Errorf("in = %d msgs / %d bytes, want 2/150", snap.MessagesIn, snap.BytesIn)
	}
	if snap.MessagesOut != 1 || snap.BytesOut != 200 {
		t.Errorf("out = %d msgs / %d bytes, want 1/200", snap.MessagesOut, snap.BytesOut)
	}
	if snap.Errors != 1 {
		t.Errorf("errors = %d, want 1", snap.Errors)
	}

	// The swap resets the window.
	second := s.snapshot()
	if second.MessagesIn != 0 || second.MessagesOut != 0 || second.Errors != 0 {
		t.Errorf("second window not empty: %+v", second)
	}
}

func TestStatsRatesArePerSecond(t *testing.T) {
	s := newTestStats()

	for i := 0; i < 10; i++ {
		s.CountIn(10)
	}

	snap := s.snapshot()
	if snap.MessagesInPerSec <= 0 {
		t.Errorf("MessagesInPerSec = %f, want > 0", snap.MessagesInPerSec)
	}
	if snap.Elapsed <= 0 {
		t.Errorf("Elapsed = %v, want > 0", snap.Elapsed)
	}
}
