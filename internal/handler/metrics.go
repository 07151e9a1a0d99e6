package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// queryDuration tracks server-side benchmark query durations.
	queryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "edgebench_query_duration_seconds",
			Help: "Duration of benchmark queries, by binding and outcome.",
		},
		[]string{"binding", "outcome"},
	)

	// cacheHits counts cacheable requests served from the response cache.
	cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edgebench_cache_hits_total",
			Help: "Cacheable requests served without touching the database.",
		},
		[]string{"binding"},
	)
)
