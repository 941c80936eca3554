package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	translationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesql_translations_total",
			Help: "Total number of translated questions by matched rule.",
		},
		[]string{"rule", "shape"},
	)
	translationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesql_translation_duration_seconds",
			Help:    "Time spent translating a question into SQL.",
			Buckets: []float64{0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		},
	)
	queryExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salesql_query_executions_total",
			Help: "Total number of executed queries by engine and outcome.",
		},
		[]string{"engine", "status"},
	)
	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "salesql_query_duration_seconds",
			Help:    "Query execution latency including partition loading.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"engine"},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "salesql_query_rows_returned",
			Help:    "Rows returned per executed query.",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 500, 1000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		translationsTotal,
		translationDurationSeconds,
		queryExecutionsTotal,
		queryDurationSeconds,
		queryRowsReturned,
	)
}

func ObserveTranslation(rule, shape string, elapsed time.Duration) {
	translationsTotal.WithLabelValues(rule, shape).Inc()
	translationDurationSeconds.Observe(elapsed.Seconds())
}

// QueryMetrics records query executions. It satisfies query.Observer.
type QueryMetrics struct{}

func (QueryMetrics) ObserveQuery(engine, status string, rows int, elapsed time.Duration) {
	queryExecutionsTotal.WithLabelValues(engine, status).Inc()
	queryDurationSeconds.WithLabelValues(engine).Observe(elapsed.Seconds())
	if status == "ok" {
		queryRowsReturned.Observe(float64(rows))
	}
}
