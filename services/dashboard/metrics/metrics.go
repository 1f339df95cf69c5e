package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// OutcomeSuccess -
	OutcomeSuccess = "success"
	// OutcomeNoData -
	OutcomeNoData = "no_data"
	// OutcomeError -
	OutcomeError = "error"
)

var (
	// Query fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_metrics_fetches_total",
			Help: "Total number of Prometheus queries by metric kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	FetchDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_metrics_fetch_duration_seconds",
			Help:    "Duration of a single Prometheus query",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	// Refresh cycle metrics
	CycleDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_metrics_cycle_duration_seconds",
			Help:    "Duration of a fetch-normalize cycle by chart",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"chart"},
	)

	StaleResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_metrics_stale_results_total",
			Help: "Total number of cycle results discarded because their generation was superseded",
		},
		[]string{"chart"},
	)

	ActiveSchedulers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_metrics_active_schedulers",
			Help: "Number of refresh schedulers currently polling",
		},
	)

	// Query cache metrics
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_metrics_cache_lookups_total",
			Help: "Total number of query cache lookups by result (hit, miss, shared)",
		},
		[]string{"result"},
	)

	// Inventory metrics
	InventoryTargets = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "console_metrics_inventory_targets",
			Help: "Number of nodes in the current inventory",
		},
	)
)

// RecordFetch records the outcome and duration of a query
func RecordFetch(kind string, outcome string, duration time.Duration) {
	FetchesTotal.WithLabelValues(kind, outcome).Inc()
	FetchDurationSeconds.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordCycle records the duration of a refresh cycle
func RecordCycle(chart string, duration time.Duration) {
	CycleDurationSeconds.WithLabelValues(chart).Observe(duration.Seconds())
}

// RecordStaleResult records a discarded cycle result
func RecordStaleResult(chart string) {
	StaleResultsTotal.WithLabelValues(chart).Inc()
}

// RecordCacheLookup records a cache lookup result
func RecordCacheLookup(result string) {
	CacheLookupsTotal.WithLabelValues(result).Inc()
}
