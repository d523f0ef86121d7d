// Package metrics provides Prometheus metrics for the sermon import service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sermonimport"

var (
	// RowsTotal tracks result rows by pipeline operation and final status
	RowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "rows_total",
			Help:      "Total number of rows processed by operation and resulting status",
		},
		[]string{"operation", "status"},
	)

	// RunDuration tracks how long a check or import run takes
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Duration of check and import runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// StorageReadFailures counts matcher reads that failed and were ignored
	StorageReadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "storage_read_failures_total",
			Help:      "Number of existing-record lookups that failed open",
		},
	)

	// MatchCollisions counts persisted sermons sharing a start time
	MatchCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "matcher",
			Name:      "match_collisions_total",
			Help:      "Number of persisted sermons that replaced another sermon at the same start time in the match index",
		},
	)

	// CollectionMutations tracks collection sync writes by kind
	CollectionMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collections",
			Name:      "mutations_total",
			Help:      "Total number of collection inserts, updates and deletes issued by sync",
		},
		[]string{"kind"},
	)

	// ImportsInFlight tracks import runs currently executing
	ImportsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "imports_in_flight",
			Help:      "Number of import runs currently executing",
		},
	)

	// HTTPRequestsTotal tracks inbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of inbound HTTP requests",
		},
		[]string{"method", "route", "status_code"},
	)

	// HTTPRequestDuration tracks inbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of inbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)
)
