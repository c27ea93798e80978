package resilience

import "github.com/prometheus/client_golang/prometheus"

// Upstream metrics are labelled by target, the concern a breaker guards (pricing_api or
// accounts_api).
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "jwfoods",
		Subsystem: "upstream",
		Name:      "breaker_state",
		Help:      "Breaker state per upstream concern: 0 closed, 1 open, 2 half-open.",
	}, []string{"target"})

	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jwfoods",
		Subsystem: "upstream",
		Name:      "breaker_transitions_total",
		Help:      "Breaker state transitions per upstream concern.",
	}, []string{"target", "from", "to"})

	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jwfoods",
		Subsystem: "upstream",
		Name:      "breaker_opened_total",
		Help:      "Times a breaker opened and started refusing calls.",
	}, []string{"target"})

	HTTPAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jwfoods",
		Subsystem: "upstream",
		Name:      "http_attempts_total",
		Help:      "Outbound attempts to the external service by concern and outcome (ok, error, server_error, open_circuit).",
	}, []string{"target", "outcome"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, HTTPAttempts)
}
