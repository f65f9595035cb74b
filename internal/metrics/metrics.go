// Package metrics declares the Prometheus collectors shared by the store,
// services, router and HTTP API.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HistoryAddedTotal counts history entries written, by tool.
	HistoryAddedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devtools",
			Subsystem: "history",
			Name:      "added_total",
			Help:      "Total history entries added",
		},
		[]string{"tool"},
	)

	// HistoryEvictedTotal counts entries removed by the retention cap.
	HistoryEvictedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devtools",
			Subsystem: "history",
			Name:      "evicted_total",
			Help:      "Total history entries evicted by the retention cap",
		},
		[]string{"tool"},
	)

	// HistoryDeletedTotal counts explicit deletes ("one" or "all").
	HistoryDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devtools",
			Subsystem: "history",
			Name:      "deleted_total",
			Help:      "Total explicit history deletions",
		},
		[]string{"scope"},
	)

	// PreferenceWritesTotal counts preference upserts and deletes.
	PreferenceWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devtools",
			Subsystem: "preferences",
			Name:      "writes_total",
			Help:      "Total preference writes",
		},
		[]string{"operation"},
	)

	// StoreErrorsTotal counts failed store operations.
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devtools",
			Subsystem: "store",
			Name:      "errors_total",
			Help:      "Total failed local store operations",
		},
		[]string{"operation", "kind"},
	)

	// NavigationsTotal counts committed query navigations, by update mode.
	NavigationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devtools",
			Subsystem: "query",
			Name:      "navigations_total",
			Help:      "Total committed query-string navigations",
		},
		[]string{"mode"},
	)

	// RequestsTotal counts HTTP API requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devtools",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// RequestDuration observes HTTP API latency.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "devtools",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"method", "route"},
	)
)
