package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
)

// ServiceLimit pairs a service key with its fixed-window limit.
type ServiceLimit struct {
	Key    string
	Max    int
	Window time.Duration
}

// Decision is the combined admission verdict for one request.
type Decision struct {
	// Allowed is true when both the service and global checks passed.
	Allowed bool

	// Scope names the limiter that rejected: "service" or "global".
	Scope string

	// RetryAfter is the wait before retrying, zero when allowed.
	RetryAfter time.Duration
}

// RetryAfterSeconds reports RetryAfter in whole seconds, rounded up.
func (d *Decision) RetryAfterSeconds() int {
	r := Result{RetryAfter: d.RetryAfter}
	return r.RetryAfterSeconds()
}

// Manager owns the per-service limiters and the global limiter. All
// limiters are built at startup from static configuration; limits can be
// swapped atomically on config reload.
type Manager struct {
	mu         sync.RWMutex
	perService map[string]*FixedWindowLimiter
	global     *FixedWindowLimiter
	logger     observability.Logger
}

// NewManager builds limiters for every configured service plus the
// global cap.
func NewManager(services []ServiceLimit, globalMax int, globalWindow time.Duration, logger observability.Logger) *Manager {
	if logger == nil {
		logger = observability.NopLogger()
	}

	m := &Manager{
		perService: make(map[string]*FixedWindowLimiter, len(services)),
		global:     NewFixedWindowLimiter(globalMax, globalWindow),
		logger:     logger,
	}
	for _, s := range services {
		m.perService[s.Key] = NewFixedWindowLimiter(s.Max, s.Window)
	}
	return m
}

// Check admits or rejects a request for a service. The request must pass
// both the per-service limiter and the global limiter; the first
// rejection wins. Unknown service keys skip the per-service check.
func (m *Manager) Check(r *http.Request, serviceKey string) *Decision {
	ctx := r.Context()

	m.mu.RLock()
	svc := m.perService[serviceKey]
	global := m.global
	m.mu.RUnlock()

	if svc != nil {
		res, err := svc.Allow(ctx, KeyForService(r, serviceKey))
		if err != nil {
			// Limiter errors must not take down the request path.
			m.logger.Warn("service rate limit check failed",
				observability.String("service", serviceKey),
				observability.Error(err),
			)
		} else if !res.Allowed {
			recordRateLimitHit(serviceKey)
			return &Decision{Scope: "service", RetryAfter: res.RetryAfter}
		}
	}

	res, err := global.Allow(ctx, GlobalKey(r))
	if err != nil {
		m.logger.Warn("global rate limit check failed", observability.Error(err))
		return &Decision{Allowed: true}
	}
	if !res.Allowed {
		recordRateLimitHit(GlobalScope)
		return &Decision{Scope: "global", RetryAfter: res.RetryAfter}
	}

	return &Decision{Allowed: true}
}

// UpdateLimits swaps the limiter set on config reload. Existing window
// counters restart; a reload is rare enough that the brief reset is
// acceptable.
func (m *Manager) UpdateLimits(services []ServiceLimit, globalMax int, globalWindow time.Duration) {
	perService := make(map[string]*FixedWindowLimiter, len(services))
	for _, s := range services {
		perService[s.Key] = NewFixedWindowLimiter(s.Max, s.Window)
	}

	m.mu.Lock()
	m.perService = perService
	m.global = NewFixedWindowLimiter(globalMax, globalWindow)
	m.mu.Unlock()

	m.logger.Info("rate limits updated",
		observability.Int("services", len(services)),
		observability.Int("globalMax", globalMax),
	)
}

// StartCleanup reaps stale window counters until ctx is cancelled.
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				m.mu.RLock()
				limiters := make([]*FixedWindowLimiter, 0, len(m.perService)+1)
				for _, l := range m.perService {
					limiters = append(limiters, l)
				}
				limiters = append(limiters, m.global)
				m.mu.RUnlock()

				for _, l := range limiters {
					l.Cleanup()
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
