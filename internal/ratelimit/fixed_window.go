package ratelimit

import (
	"context"
	"sync"
	"time"
)

// FixedWindowLimiter counts requests per key within epoch-aligned fixed
// windows. State is process-local; counters for stale windows are reaped
// by Cleanup.
type FixedWindowLimiter struct {
	max    int
	window time.Duration

	counters sync.Map

	// now is swappable for tests.
	now func() time.Time
}

// windowCounter is the per-key counter for the current window.
type windowCounter struct {
	mu          sync.Mutex
	count       int
	windowStart time.Time
}

// NewFixedWindowLimiter creates a fixed window limiter allowing max
// requests per window.
func NewFixedWindowLimiter(max int, window time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// windowStart returns the start of the window containing t.
func (l *FixedWindowLimiter) windowStart(t time.Time) time.Time {
	windowNanos := l.window.Nanoseconds()
	return time.Unix(0, (t.UnixNano()/windowNanos)*windowNanos)
}

// Allow implements Limiter.
func (l *FixedWindowLimiter) Allow(_ context.Context, key string) (*Result, error) {
	now := l.now()
	windowStart := l.windowStart(now)

	value, _ := l.counters.LoadOrStore(key, &windowCounter{windowStart: windowStart})
	wc := value.(*windowCounter)

	wc.mu.Lock()
	defer wc.mu.Unlock()

	if !wc.windowStart.Equal(windowStart) {
		wc.count = 0
		wc.windowStart = windowStart
	}

	allowed := wc.count+1 <= l.max
	if allowed {
		wc.count++
	}

	remaining := l.max - wc.count
	if remaining < 0 {
		remaining = 0
	}

	resetAfter := windowStart.Add(l.window).Sub(now)
	if resetAfter < 0 {
		resetAfter = 0
	}

	var retryAfter time.Duration
	if !allowed {
		retryAfter = resetAfter
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.max,
		Remaining:  remaining,
		ResetAfter: resetAfter,
		RetryAfter: retryAfter,
	}, nil
}

// Limit implements Limiter.
func (l *FixedWindowLimiter) Limit() Limit {
	return Limit{Max: l.max, Window: l.window}
}

// Reset implements Limiter.
func (l *FixedWindowLimiter) Reset(_ context.Context, key string) error {
	l.counters.Delete(key)
	return nil
}

// Cleanup removes counters from past windows to bound memory.
func (l *FixedWindowLimiter) Cleanup() {
	current := l.windowStart(l.now())

	l.counters.Range(func(key, value interface{}) bool {
		wc := value.(*windowCounter)
		wc.mu.Lock()
		stale := wc.windowStart.Before(current)
		wc.mu.Unlock()

		if stale {
			l.counters.Delete(key)
		}
		return true
	})
}
