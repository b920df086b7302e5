package store

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Store-level Prometheus metrics. The "handle" label distinguishes the ops
// and metrics connections; "op" names the degraded command.
var (
	// SwallowedErrorsTotal counts store failures converted into benign
	// defaults by the safe invocation wrapper.
	SwallowedErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_swallowed_errors_total",
			Help: "Total number of store failures degraded to no-ops.",
		},
		[]string{"handle", "op"},
	)
)

func init() {
	prometheus.MustRegister(
		SwallowedErrorsTotal,
	)
}
