package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// alertsTotal counts dispatched alerts by type and severity.
var alertsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_alerts_total",
		Help: "Total alerts dispatched",
	},
	[]string{"type", "severity"},
)

func recordAlert(alertType, severity string) {
	alertsTotal.WithLabelValues(alertType, severity).Inc()
}
