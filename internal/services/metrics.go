// Package services – pipeline metrics
//
// A small set of Prometheus counters for the response pipeline. HTTP-level
// metrics (latency, status codes) live in the middleware package; these
// cover outcomes the transport layer cannot see.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// crisisShortCircuits counts replies served by the crisis path.
	crisisShortCircuits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "support_crisis_short_circuits_total",
		Help: "Total number of replies served by the crisis short-circuit.",
	})

	// completionFailures counts upstream completion calls that degraded
	// to the apology fallback.
	completionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "support_completion_failures_total",
		Help: "Total number of upstream completion failures absorbed into the fallback reply.",
	})
)

func init() {
	prometheus.MustRegister(crisisShortCircuits, completionFailures)
}
