package hub

import (
	"sync"
	"time"
)

// Verdict is the outcome of a rate-limit check.
type Verdict int

const (
	// Allowed admits the message.
	Allowed Verdict = iota

	// Limited rejects the message; the client should retry after the window.
	Limited

	// Banned means the client kept sending through repeated rejections and
	// must be disconnected.
	Banned
)

// maxViolations is the number of Limited verdicts tolerated before a ban.
const maxViolations = 5

type rateState struct {
	windowStart time.Time
	requests    int
	violations  int
}

// RateLimiter is a per-client fixed window counter. The counter resets
// exactly once when a full window has elapsed; violations accumulate across
// windows until the client disconnects.
type RateLimiter struct {
	window time.Duration
	max    int

	mu     sync.Mutex
	states map[string]*rateState

	now func() time.Time // swapped in tests
}

// NewRateLimiter creates a limiter admitting max requests per window.
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	return &RateLimiter{
		window: window,
		max:    max,
		states: make(map[string]*rateState),
		now:    time.Now,
	}
}

// Allow records one inbound message for id and returns the verdict.
func (l *RateLimiter) Allow(id string) Verdict {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.states[id]
	if !ok {
		st = &rateState{windowStart: now}
		l.states[id] = st
	}

	if now.Sub(st.windowStart) >= l.window {
		st.requests = 0
		st.windowStart = now
	}

	if st.requests >= l.max {
		st.violations++
		if st.violations > maxViolations {
			return Banned
		}
		return Limited
	}

	st.requests++
	return Allowed
}

// Forget drops all state for id. Called on disconnect.
func (l *RateLimiter) Forget(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, id)
}

// RetryAfter returns the hint sent with Limited rejections.
func (l *RateLimiter) RetryAfter() time.Duration {
	return l.window
}

// Tracked returns the number of clients with rate-limit state.
func (l *RateLimiter) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.states)
}
