package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// stateGauge shows the current state of each breaker.
	stateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service"},
	)

	// successesTotal counts successes recorded by breakers.
	successesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_circuit_breaker_successes_total",
			Help: "Total successes recorded by circuit breakers",
		},
		[]string{"service"},
	)

	// failuresTotal counts failures recorded by breakers.
	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_circuit_breaker_failures_total",
			Help: "Total failures recorded by circuit breakers",
		},
		[]string{"service", "reason"},
	)

	// rejectedTotal counts calls short-circuited by an open breaker.
	rejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_circuit_breaker_rejected_total",
			Help: "Total calls rejected by an open circuit breaker",
		},
		[]string{"service"},
	)

	// stateChangesTotal counts state transitions.
	stateChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_circuit_breaker_state_changes_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"service", "from", "to"},
	)
)

func recordState(name string, state State) {
	stateGauge.WithLabelValues(name).Set(float64(state))
}

func recordSuccess(name string) {
	successesTotal.WithLabelValues(name).Inc()
}

func recordFailure(name string, timedOut bool) {
	reason := "error"
	if timedOut {
		reason = "timeout"
	}
	failuresTotal.WithLabelValues(name, reason).Inc()
}

func recordReject(name string) {
	rejectedTotal.WithLabelValues(name).Inc()
}

func recordStateChange(name string, from, to State) {
	stateChangesTotal.WithLabelValues(name, from.String(), to.String()).Inc()
	recordState(name, to)
}
