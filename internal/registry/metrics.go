package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ServiceStatusGauge exposes the health status of each service.
	ServiceStatusGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_service_status",
			Help: "Service health status (0=operational, 1=unknown, 2=degraded, 3=down)",
		},
		[]string{"service"},
	)

	// ServiceConsecutiveFailures exposes the consecutive failure count.
	ServiceConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_service_consecutive_failures",
			Help: "Consecutive failures observed for the service",
		},
		[]string{"service"},
	)

	// ServiceErrorRate exposes the lifetime error rate percentage.
	ServiceErrorRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_service_error_rate",
			Help: "Lifetime error rate percentage for the service",
		},
		[]string{"service"},
	)
)

// recordHealthMetrics publishes the record's current health to Prometheus.
// Callers hold the entry lock; the gauge operations themselves are atomic.
func recordHealthMetrics(rec ServiceRecord) {
	ServiceStatusGauge.WithLabelValues(rec.Key).Set(float64(rec.Status.severity()))
	ServiceConsecutiveFailures.WithLabelValues(rec.Key).Set(float64(rec.ConsecutiveFailures))
	ServiceErrorRate.WithLabelValues(rec.Key).Set(rec.Metrics.ErrorRate())
}
