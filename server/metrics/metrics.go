// Package metrics holds the Prometheus collectors for observer runs. They
// register on the default registry and are served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoundsTotal counts played rounds by phase (warmup, identifying).
	RoundsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rps_observer_rounds_total",
		Help: "Rounds played by observer runs, by phase",
	}, []string{"phase"})

	// IdentifyDuration tracks identifier latency.
	IdentifyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rps_identify_duration_seconds",
		Help:    "Identifier call duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10), // 0.5ms to ~2min
	}, []string{"identifier"})

	// IdentifierFailures counts rounds degraded to a null guess.
	IdentifierFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rps_identifier_failures_total",
		Help: "Identification rounds that produced no usable guess",
	}, []string{"identifier"})

	// RunsTotal counts finished runs by how they ended.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rps_observer_runs_total",
		Help: "Observer runs by result (completed, early_stop, cancelled)",
	}, []string{"result"})

	UnionLoss = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rps_union_loss",
		Help:    "Union loss of successful identifications",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	// ArchiveErrors counts failed writes to the run archive.
	ArchiveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rps_archive_errors_total",
		Help: "Run archive writes that failed",
	})
)
