package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cache-level Prometheus metrics. Malformed payloads count as misses, matching
// what the caller observes.
var (
	// HitsTotal counts successful cache lookups.
	HitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_hits_total",
			Help: "Total number of response cache hits.",
		},
	)

	// MissesTotal counts lookups that returned nothing, including store
	// failures degraded to misses.
	MissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_misses_total",
			Help: "Total number of response cache misses.",
		},
	)

	// SetsTotal counts cache write attempts.
	SetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_sets_total",
			Help: "Total number of response cache writes.",
		},
	)

	// InvalidationsTotal counts whole-scope invalidations.
	InvalidationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "response_cache_invalidations_total",
			Help: "Total number of response cache invalidations.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HitsTotal,
		MissesTotal,
		SetsTotal,
		InvalidationsTotal,
	)
}
