package ratelimit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// rateLimitHitsTotal counts rejected requests per scope. The "global"
// label value covers the identity-wide cap.
var rateLimitHitsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateway_rate_limit_hits_total",
		Help: "Total requests rejected by the rate limiter",
	},
	[]string{"scope"},
)

func recordRateLimitHit(scope string) {
	rateLimitHitsTotal.WithLabelValues(scope).Inc()
}
