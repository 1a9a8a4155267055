// Package metrics aggregates registry and breaker state into reporting
// views for the observability endpoints.
package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/circuitbreaker"
	"github.com/simanto848/student-portal-backend-microservice-sub002/internal/registry"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total proxied requests",
		},
		[]string{"service", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Proxied request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service"},
	)
)

// counters is a per-service request tally.
type counters struct {
	Total   int64 `json:"total"`
	Success int64 `json:"success"`
	Failed  int64 `json:"failed"`
}

// successRate returns success/total as a percentage, 100 with no traffic.
func (c counters) successRate() float64 {
	if c.Total == 0 {
		return 100
	}
	return float64(c.Success) / float64(c.Total) * 100
}

// Service is the read-only aggregator over the registry and breaker
// collection, plus the process-wide request counters fed by the proxy
// entry point.
type Service struct {
	startTime time.Time
	registry  *registry.Registry
	breakers  *circuitbreaker.Collection

	mu         sync.Mutex
	global     counters
	perService map[string]*counters
}

// New creates a metrics service over the given registry and breakers.
func New(reg *registry.Registry, breakers *circuitbreaker.Collection) *Service {
	return &Service{
		startTime:  time.Now(),
		registry:   reg,
		breakers:   breakers,
		perService: make(map[string]*counters),
	}
}

// RecordRequest tallies one completed proxied request.
func (s *Service) RecordRequest(serviceKey string, success bool, duration time.Duration) {
	outcome := "success"
	if !success {
		outcome = "failed"
	}
	requestsTotal.WithLabelValues(serviceKey, outcome).Inc()
	requestDuration.WithLabelValues(serviceKey).Observe(duration.Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.global.Total++
	c, ok := s.perService[serviceKey]
	if !ok {
		c = &counters{}
		s.perService[serviceKey] = c
	}
	c.Total++

	if success {
		s.global.Success++
		c.Success++
	} else {
		s.global.Failed++
		c.Failed++
	}
}

// MemoryStats is the process memory view in the snapshot.
type MemoryStats struct {
	AllocBytes      uint64 `json:"allocBytes"`
	TotalAllocBytes uint64 `json:"totalAllocBytes"`
	SysBytes        uint64 `json:"sysBytes"`
	NumGC           uint32 `json:"numGC"`
	Goroutines      int    `json:"goroutines"`
}

// ServiceSnapshot merges one service's registry record with its breaker
// state and request tallies.
type ServiceSnapshot struct {
	registry.ServiceRecord
	ErrorRate float64              `json:"errorRate"`
	Requests  counters             `json:"requests"`
	Breaker   circuitbreaker.Stats `json:"breaker"`
}

// Snapshot is the full metrics view.
type Snapshot struct {
	Timestamp     time.Time                  `json:"timestamp"`
	UptimeSeconds float64                    `json:"uptimeSeconds"`
	Memory        MemoryStats                `json:"memory"`
	Requests      counters                   `json:"requests"`
	SuccessRate   float64                    `json:"successRate"`
	Services      map[string]ServiceSnapshot `json:"services"`
}

// Summary is the compact dashboard view.
type Summary struct {
	Timestamp     time.Time       `json:"timestamp"`
	UptimeSeconds float64         `json:"uptimeSeconds"`
	OverallStatus registry.Status `json:"overallStatus"`
	TotalRequests int64           `json:"totalRequests"`
	SuccessRate   float64         `json:"successRate"`
	ServicesUp    int             `json:"servicesUp"`
	ServicesTotal int             `json:"servicesTotal"`
}

// GetMetrics builds the full snapshot. Computed fresh on every call; no
// caching, no side effects.
func (s *Service) GetMetrics() Snapshot {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	breakerStats := s.breakers.Stats()
	health := s.registry.SystemHealth()

	s.mu.Lock()
	global := s.global
	per := make(map[string]counters, len(s.perService))
	for k, c := range s.perService {
		per[k] = *c
	}
	s.mu.Unlock()

	services := make(map[string]ServiceSnapshot, len(health.Services))
	for _, rec := range health.Services {
		services[rec.Key] = ServiceSnapshot{
			ServiceRecord: rec,
			ErrorRate:     rec.Metrics.ErrorRate(),
			Requests:      per[rec.Key],
			Breaker:       breakerStats[rec.Key],
		}
	}

	return Snapshot{
		Timestamp:     time.Now(),
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		Memory: MemoryStats{
			AllocBytes:      mem.Alloc,
			TotalAllocBytes: mem.TotalAlloc,
			SysBytes:        mem.Sys,
			NumGC:           mem.NumGC,
			Goroutines:      runtime.NumGoroutine(),
		},
		Requests:    global,
		SuccessRate: global.successRate(),
		Services:    services,
	}
}

// GetSummary builds the compact view.
func (s *Service) GetSummary() Summary {
	health := s.registry.SystemHealth()

	up := 0
	for _, rec := range health.Services {
		if rec.Status == registry.StatusOperational {
			up++
		}
	}

	s.mu.Lock()
	global := s.global
	s.mu.Unlock()

	return Summary{
		Timestamp:     time.Now(),
		UptimeSeconds: time.Since(s.startTime).Seconds(),
		OverallStatus: health.OverallStatus,
		TotalRequests: global.Total,
		SuccessRate:   global.successRate(),
		ServicesUp:    up,
		ServicesTotal: len(health.Services),
	}
}
