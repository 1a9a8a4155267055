package registry

import (
	"strings"
	"sync"
	"time"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/observability"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/util"
)

// ServiceInfo is the static configuration used to register a service.
type ServiceInfo struct {
	Name string
	URL  string
}

// HealthUpdate is the input to UpdateHealth: one observed health outcome.
type HealthUpdate struct {
	Status       string
	HTTPStatus   int
	ResponseTime float64
	Error        string
}

// HealthResult reports the effect of a health update.
type HealthResult struct {
	Service       ServiceRecord
	StatusChanged bool

	// Recovered is set on a was-down to not-down transition.
	Recovered bool

	// WentDown is set on a was-not-down to down transition.
	WentDown bool
}

// RequestOutcome is the input to RecordRequest: one proxied call result.
type RequestOutcome struct {
	Success      bool
	ResponseTime float64
}

// SystemHealth aggregates the registry into one overall view.
type SystemHealth struct {
	OverallStatus Status          `json:"overallStatus"`
	Services      []ServiceRecord `json:"services"`
	Timestamp     time.Time       `json:"timestamp"`
}

// entry pairs a ServiceRecord with its advisory lock and health log.
// The per-key mutex serializes read-modify-write sequences for one
// service without blocking updates to other keys.
type entry struct {
	mu     sync.Mutex
	record ServiceRecord
	log    *healthLog
}

// Registry is the concurrency-safe single source of truth for service
// identity, health, and metrics. The top-level lock guards only the map;
// each entry carries its own mutex.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*entry
	logSize  int
	logger   observability.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger observability.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithHealthLogSize bounds the per-service health log.
func WithHealthLogSize(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.logSize = n
		}
	}
}

// DefaultHealthLogSize bounds the per-service health log ring buffer.
const DefaultHealthLogSize = 100

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		services: make(map[string]*entry),
		logSize:  DefaultHealthLogSize,
		logger:   observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizeKey trims and lowercases a service key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Register adds a service to the registry. The key is normalized to
// trimmed lowercase. Re-registering an existing key keeps its accumulated
// metrics and health log; identity fields are overwritten.
func (r *Registry) Register(key string, info ServiceInfo) (ServiceRecord, error) {
	key = NormalizeKey(key)
	if key == "" {
		return ServiceRecord{}, util.ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.services[key]; ok {
		existing.mu.Lock()
		existing.record.Name = info.Name
		existing.record.URL = info.URL
		rec := existing.record
		existing.mu.Unlock()

		r.logger.Debug("service re-registered",
			observability.String("service", key),
		)
		return rec, nil
	}

	e := &entry{
		record: ServiceRecord{
			Key:          key,
			Name:         info.Name,
			URL:          info.URL,
			Status:       StatusUnknown,
			CircuitState: CircuitClosed,
			RegisteredAt: time.Now(),
		},
		log: newHealthLog(r.logSize),
	}
	r.services[key] = e

	r.logger.Info("service registered",
		observability.String("service", key),
		observability.String("url", info.URL),
	)
	return e.record, nil
}

// Unregister removes a service. Unknown keys are ignored.
func (r *Registry) Unregister(key string) {
	key = NormalizeKey(key)

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.services, key)
}

// lookup returns the entry for a key, or nil.
func (r *Registry) lookup(key string) *entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.services[NormalizeKey(key)]
}

// Get returns a snapshot of the service record.
func (r *Registry) Get(key string) (ServiceRecord, bool) {
	e := r.lookup(key)
	if e == nil {
		return ServiceRecord{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record, true
}

// Keys returns the registered service keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.services))
	for k := range r.services {
		keys = append(keys, k)
	}
	return keys
}

// WithLock runs fn while holding the advisory per-key lock, giving fn
// exclusive access to the record for a multi-step update. It returns
// false for an unknown key without invoking fn.
func (r *Registry) WithLock(key string, fn func(rec *ServiceRecord)) bool {
	e := r.lookup(key)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.record)
	return true
}

// UpdateHealth applies a health probe outcome to a service and appends a
// health log entry. It returns nil for an unknown key: a late probe for
// a removed service must not crash the caller.
func (r *Registry) UpdateHealth(key string, u HealthUpdate) *HealthResult {
	e := r.lookup(key)
	if e == nil {
		r.logger.Debug("health update for unknown service",
			observability.String("service", NormalizeKey(key)),
		)
		return nil
	}

	newStatus := ParseStatus(u.Status)
	responseTime := sanitizeResponseTime(u.ResponseTime)
	now := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	oldStatus := e.record.Status
	wasDown := oldStatus == StatusDown
	isDown := newStatus == StatusDown

	e.record.Status = newStatus
	e.record.LastHealthCheck = now

	if isDown {
		e.record.ConsecutiveFailures++
	} else {
		e.record.ConsecutiveFailures = 0
	}

	e.record.Metrics.observe(!isDown, responseTime)

	e.log.append(HealthLogEntry{
		At:           now,
		Status:       newStatus,
		HTTPStatus:   u.HTTPStatus,
		ResponseTime: responseTime,
		Error:        u.Error,
	})

	recordHealthMetrics(e.record)

	res := &HealthResult{
		Service:       e.record,
		StatusChanged: oldStatus != newStatus,
		Recovered:     wasDown && !isDown,
		WentDown:      !wasDown && isDown,
	}

	if res.WentDown {
		r.logger.Warn("service went down",
			observability.String("service", e.record.Key),
			observability.String("error", u.Error),
		)
	} else if res.Recovered {
		r.logger.Info("service recovered",
			observability.String("service", e.record.Key),
		)
	}

	return res
}

// RecordRequest applies a proxied request outcome. It is the hot-path
// variant of UpdateHealth: totals, mean, and consecutive failures update
// identically, but status and the health log are untouched. Returns
// false for an unknown key.
func (r *Registry) RecordRequest(key string, o RequestOutcome) bool {
	e := r.lookup(key)
	if e == nil {
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if o.Success {
		e.record.ConsecutiveFailures = 0
	} else {
		e.record.ConsecutiveFailures++
	}
	e.record.Metrics.observe(o.Success, o.ResponseTime)

	recordHealthMetrics(e.record)
	return true
}

// UpdateCircuitState mirrors a breaker-reported state for display.
// Invalid states coerce to closed. Unknown keys are ignored.
func (r *Registry) UpdateCircuitState(key string, state string) {
	e := r.lookup(key)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.record.CircuitState = normalizeCircuitState(state)
}

// ErrorRate returns the lifetime error percentage for a service, 0 for
// unknown keys or services with no traffic.
func (r *Registry) ErrorRate(key string) float64 {
	e := r.lookup(key)
	if e == nil {
		return 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.Metrics.ErrorRate()
}

// SystemHealth aggregates all services. Overall status priority: down
// beats degraded beats unknown beats operational.
func (r *Registry) SystemHealth() SystemHealth {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.services))
	for _, e := range r.services {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	overall := StatusOperational
	services := make([]ServiceRecord, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		rec := e.record
		e.mu.Unlock()

		services = append(services, rec)
		if rec.Status.severity() > overall.severity() {
			overall = rec.Status
		}
	}

	return SystemHealth{
		OverallStatus: overall,
		Services:      services,
		Timestamp:     time.Now(),
	}
}

// HealthLog returns the recent health outcomes for a service,
// oldest-first. Unknown keys return nil.
func (r *Registry) HealthLog(key string) []HealthLogEntry {
	e := r.lookup(key)
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.snapshot()
}

// ResetMetrics zeroes the request counters for a service.
func (r *Registry) ResetMetrics(key string) {
	e := r.lookup(key)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.record.Metrics = RequestMetrics{}
	e.record.ConsecutiveFailures = 0
}

// ClearHealthLog drops the recorded health outcomes for a service.
func (r *Registry) ClearHealthLog(key string) {
	e := r.lookup(key)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.log.clear()
}
