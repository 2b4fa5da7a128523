package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingest, search and expansion Prometheus metrics.
var (
	IngestRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "ingest_rows_total",
			Help:      "Rows sent through the bulk loader",
		},
		[]string{"result"}, // "ok" / "error"
	)

	IngestJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "ingest_jobs_total",
			Help:      "Finished ingestion jobs",
		},
		[]string{"status"},
	)

	IngestFileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docdex",
			Name:      "ingest_file_duration_seconds",
			Help:      "Time to ingest one file",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "search_requests_total",
			Help:      "Search requests by outcome",
		},
		[]string{"result"}, // "ok" / "empty" / "error"
	)

	ExpansionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "expansion_total",
			Help:      "Relationship expansions by outcome",
		},
		[]string{"result"}, // "ok" / "skipped" / "error"
	)
)

var registerOnce sync.Once

// RegisterDomainMetrics registers ingest and search metrics. Safe to call more than once.
func RegisterDomainMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(IngestRowsTotal)
		prometheus.MustRegister(IngestJobsTotal)
		prometheus.MustRegister(IngestFileDuration)
		prometheus.MustRegister(SearchRequestsTotal)
		prometheus.MustRegister(ExpansionTotal)
	})
}
