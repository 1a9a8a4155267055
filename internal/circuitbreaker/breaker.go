package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/util"
)

// State represents the state of a circuit breaker.
type State int

const (
	// StateClosed indicates calls pass through.
	StateClosed State = iota

	// StateOpen indicates calls are rejected without reaching upstream.
	StateOpen

	// StateHalfOpen indicates a bounded number of probes is admitted.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call.
var ErrCircuitOpen = util.ErrCircuitOpen

// cbTracer records span events for breaker state transitions.
var cbTracer = otel.Tracer("gateway/circuitbreaker")

// CallFunc is the wrapped upstream call. It reports the HTTP status it
// produced; a status >= 500 counts as a failure even with a nil error.
type CallFunc func(ctx context.Context) (int, error)

// Breaker is a circuit breaker bound to one service key. The zero value
// is not usable; create instances with New.
type Breaker struct {
	name   string
	config *Config
	logger observability.Logger

	mu    sync.Mutex
	state State

	// Window counters, cleared on every transition.
	requests  int
	failures  int
	successes int
	timeouts  int

	// Lifetime reject count; rejected calls never enter the window
	// because they never reached the upstream.
	rejects int64

	halfOpenCalls  int
	openedAt       time.Time
	lastTransition time.Time
}

// transition describes a completed state change for post-lock dispatch.
type transition struct {
	from, to State
}

// New creates a circuit breaker for the named service.
func New(name string, config *Config, logger observability.Logger) *Breaker {
	if config == nil {
		config = DefaultConfig()
	}
	config.Validate()

	if logger == nil {
		logger = observability.NopLogger()
	}

	now := time.Now()
	b := &Breaker{
		name:           name,
		config:         config,
		logger:         logger,
		state:          StateClosed,
		lastTransition: now,
	}
	recordState(name, StateClosed)
	return b
}

// Execute runs fn under breaker protection with the configured call
// timeout. When the breaker is open it returns ErrCircuitOpen without
// invoking fn. The returned status is fn's reported status, or 0 when
// fn never ran.
func (b *Breaker) Execute(ctx context.Context, fn CallFunc) (int, error) {
	tr, allowed := b.allow()
	if tr != nil {
		b.notify(*tr)
	}
	if !allowed {
		b.mu.Lock()
		b.rejects++
		b.mu.Unlock()
		recordReject(b.name)
		return 0, ErrCircuitOpen
	}

	callCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	start := time.Now()
	status, err := fn(callCtx)
	elapsed := time.Since(start)

	// The deadline firing mid-call abandons the upstream response: the
	// transport sees the cancellation, and whatever arrives later cannot
	// re-enter this window because the outcome is classified exactly once
	// here.
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		elapsed >= b.config.Timeout

	success := !timedOut && err == nil && status < 500

	if tr := b.record(success, timedOut); tr != nil {
		b.notify(*tr)
	}

	if timedOut {
		return status, util.ErrUpstreamTimeout
	}
	return status, err
}

// allow decides admission and performs the open-to-half-open transition
// when the reset timeout has elapsed. The returned transition, if any,
// must be dispatched by the caller after the lock is released.
func (b *Breaker) allow() (*transition, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil, true

	case StateOpen:
		if time.Since(b.openedAt) >= b.config.ResetTimeout {
			tr := b.transitionTo(StateHalfOpen)
			b.halfOpenCalls = 1
			return &tr, true
		}
		return nil, false

	case StateHalfOpen:
		if b.halfOpenCalls < b.config.HalfOpenMax {
			b.halfOpenCalls++
			return nil, true
		}
		return nil, false

	default:
		return nil, false
	}
}

// record folds one outcome into the window and applies the transition
// rules for the current state.
func (b *Breaker) record(success, timedOut bool) *transition {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.requests++
	if success {
		b.successes++
		recordSuccess(b.name)
	} else {
		b.failures++
		if timedOut {
			b.timeouts++
		}
		recordFailure(b.name, timedOut)
	}

	switch b.state {
	case StateClosed:
		if !success && b.shouldTrip() {
			tr := b.transitionTo(StateOpen)
			return &tr
		}

	case StateHalfOpen:
		if success {
			tr := b.transitionTo(StateClosed)
			return &tr
		}
		// A failed probe reopens and restarts the reset timer.
		tr := b.transitionTo(StateOpen)
		return &tr
	}

	return nil
}

// shouldTrip reports whether the window has both enough volume and a
// failure percentage at or over the threshold. Callers hold b.mu.
func (b *Breaker) shouldTrip() bool {
	if b.requests < b.config.VolumeThreshold {
		return false
	}
	pct := float64(b.failures) / float64(b.requests) * 100
	return pct >= b.config.ErrorThresholdPercentage
}

// transitionTo switches state and clears the window. Callers hold b.mu
// and must dispatch the returned transition after unlocking.
func (b *Breaker) transitionTo(newState State) transition {
	old := b.state
	b.state = newState
	b.lastTransition = time.Now()
	if newState == StateOpen {
		b.openedAt = b.lastTransition
	}

	b.requests = 0
	b.failures = 0
	b.successes = 0
	b.timeouts = 0
	b.halfOpenCalls = 0

	return transition{from: old, to: newState}
}

// notify publishes a transition: log line, metrics, span event, and the
// registered callback. Runs without holding b.mu so the callback may call
// back into the breaker or the registry freely.
func (b *Breaker) notify(tr transition) {
	recordStateChange(b.name, tr.from, tr.to)

	b.logger.Info("circuit breaker state changed",
		observability.String("service", b.name),
		observability.String("from", tr.from.String()),
		observability.String("to", tr.to.String()),
	)

	_, span := cbTracer.Start(context.Background(),
		"circuitbreaker.state_change",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.AddEvent("state_change", trace.WithAttributes(
		attribute.String("circuitbreaker.service", b.name),
		attribute.String("circuitbreaker.from", tr.from.String()),
		attribute.String("circuitbreaker.to", tr.to.String()),
	))
	span.End()

	if b.config.OnStateChange != nil {
		b.config.OnStateChange(b.name, tr.from, tr.to)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Name returns the service key this breaker protects.
func (b *Breaker) Name() string {
	return b.name
}

// Reset forces the breaker closed and clears the window.
func (b *Breaker) Reset() {
	b.mu.Lock()
	tr := b.transitionTo(StateClosed)
	b.mu.Unlock()

	if tr.from != tr.to {
		b.notify(tr)
	}
}

// Stats is a point-in-time snapshot of breaker counters.
type Stats struct {
	State          State     `json:"-"`
	StateName      string    `json:"state"`
	Requests       int       `json:"requests"`
	Successes      int       `json:"successes"`
	Failures       int       `json:"failures"`
	Timeouts       int       `json:"timeouts"`
	Rejects        int64     `json:"rejects"`
	OpenedAt       time.Time `json:"openedAt,omitempty"`
	LastTransition time.Time `json:"lastTransition"`
}

// FailurePercentage returns the window failure rate, 0 with no requests.
func (s Stats) FailurePercentage() float64 {
	if s.Requests == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Requests) * 100
}

// Stats returns the current statistics.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		State:          b.state,
		StateName:      b.state.String(),
		Requests:       b.requests,
		Successes:      b.successes,
		Failures:       b.failures,
		Timeouts:       b.timeouts,
		Rejects:        b.rejects,
		OpenedAt:       b.openedAt,
		LastTransition: b.lastTransition,
	}
}
