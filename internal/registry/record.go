// Package registry is the authoritative in-memory record of every
// configured backend service: identity, health status, circuit state,
// and rolling request metrics.
package registry

import (
	"math"
	"strings"
	"time"
)

// Status represents the health status of a backend service.
type Status string

const (
	// StatusOperational indicates the service responds normally.
	StatusOperational Status = "operational"

	// StatusDegraded indicates the service responds but is impaired.
	StatusDegraded Status = "degraded"

	// StatusDown indicates the service is unreachable or failing.
	StatusDown Status = "down"

	// StatusUnknown indicates no health information is available yet.
	StatusUnknown Status = "unknown"
)

// ParseStatus normalizes a status string to one of the known values.
// Anything unrecognized coerces to StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case StatusOperational:
		return StatusOperational
	case StatusDegraded:
		return StatusDegraded
	case StatusDown:
		return StatusDown
	default:
		return StatusUnknown
	}
}

// severity orders statuses for aggregation: down beats degraded beats
// unknown beats operational.
func (s Status) severity() int {
	switch s {
	case StatusDown:
		return 3
	case StatusDegraded:
		return 2
	case StatusUnknown:
		return 1
	default:
		return 0
	}
}

// Circuit state mirror values. The registry holds only a read-only copy
// of the breaker state for reporting; the breaker itself stays
// authoritative for admission decisions.
const (
	CircuitClosed   = "closed"
	CircuitOpen     = "open"
	CircuitHalfOpen = "half-open"
)

// normalizeCircuitState coerces invalid states to closed.
func normalizeCircuitState(s string) string {
	switch s {
	case CircuitClosed, CircuitOpen, CircuitHalfOpen:
		return s
	default:
		return CircuitClosed
	}
}

// RequestMetrics holds cumulative request counters for one service.
// AvgResponseTime is an incremental mean over TotalRequests samples,
// not a sliding window.
type RequestMetrics struct {
	TotalRequests      int64   `json:"totalRequests"`
	SuccessfulRequests int64   `json:"successfulRequests"`
	FailedRequests     int64   `json:"failedRequests"`
	AvgResponseTime    float64 `json:"avgResponseTimeMs"`
	LastResponseTime   float64 `json:"lastResponseTimeMs"`
}

// ServiceRecord is the registry's view of one backend service. Values
// returned from the registry are copies; mutating them has no effect on
// the registry's state.
type ServiceRecord struct {
	Key                 string         `json:"key"`
	Name                string         `json:"name"`
	URL                 string         `json:"url"`
	Status              Status         `json:"status"`
	CircuitState        string         `json:"circuitState"`
	ConsecutiveFailures int            `json:"consecutiveFailures"`
	Metrics             RequestMetrics `json:"metrics"`
	LastHealthCheck     time.Time      `json:"lastHealthCheck"`
	RegisteredAt        time.Time      `json:"registeredAt"`
}

// sanitizeResponseTime coerces negative and non-finite sample values to 0.
func sanitizeResponseTime(ms float64) float64 {
	if ms < 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		return 0
	}
	return ms
}

// observe folds one response-time sample into the cumulative counters.
// Callers must hold the owning entry's lock.
func (m *RequestMetrics) observe(success bool, responseTimeMs float64) {
	responseTimeMs = sanitizeResponseTime(responseTimeMs)

	m.TotalRequests++
	if success {
		m.SuccessfulRequests++
	} else {
		m.FailedRequests++
	}

	// Incremental mean: avg += (sample - avg) / n.
	m.AvgResponseTime += (responseTimeMs - m.AvgResponseTime) / float64(m.TotalRequests)
	m.LastResponseTime = responseTimeMs
}

// ErrorRate returns failed/total as a percentage, 0 with no requests.
func (m RequestMetrics) ErrorRate() float64 {
	if m.TotalRequests == 0 {
		return 0
	}
	return float64(m.FailedRequests) / float64(m.TotalRequests) * 100
}
