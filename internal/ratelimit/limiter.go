// Package ratelimit provides per-identity, per-service admission control
// using fixed-window counting.
package ratelimit

import (
	"context"
	"time"
)

// Limiter is the interface for rate limiting.
type Limiter interface {
	// Allow checks if a single request is allowed for the given key.
	Allow(ctx context.Context, key string) (*Result, error)

	// Limit returns the limiter's configuration.
	Limit() Limit

	// Reset clears the rate limit state for the given key.
	Reset(ctx context.Context, key string) error
}

// Limit represents rate limit configuration.
type Limit struct {
	// Max is the number of requests allowed per window.
	Max int

	// Window is the fixed window duration.
	Window time.Duration
}

// Result represents the outcome of a rate limit check.
type Result struct {
	// Allowed indicates whether the request is admitted.
	Allowed bool

	// Limit is the maximum number of requests allowed per window.
	Limit int

	// Remaining is the number of requests left in the current window.
	Remaining int

	// ResetAfter is the time until the current window ends.
	ResetAfter time.Duration

	// RetryAfter is the wait before retrying; zero when allowed.
	RetryAfter time.Duration
}

// RetryAfterSeconds reports RetryAfter in whole seconds, rounded up, for
// the Retry-After header and rejection body.
func (r *Result) RetryAfterSeconds() int {
	if r.RetryAfter <= 0 {
		return 0
	}
	secs := int((r.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}
