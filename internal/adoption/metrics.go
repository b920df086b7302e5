package adoption

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// OperationsTotal counts adoption-counter operations that reached the
	// store, labeled by operation.
	OperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adoption_operations_total",
			Help: "Total number of adoption metric operations issued.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		OperationsTotal,
	)
}
