package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ImportMetrics records bulk ingestion throughput and failures.
type ImportMetrics struct {
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewImportMetrics registers import metrics on the provided registerer.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	if reg == nil {
		return &ImportMetrics{}
	}
	rows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Import rows by kind and outcome.",
	}, []string{"kind", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "import_duration_seconds",
		Help:    "Duration of import batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	reg.MustRegister(rows, duration)
	return &ImportMetrics{rows: rows, duration: duration}
}

// AddRows counts processed rows for the given kind (orders, inventory) and outcome.
func (i *ImportMetrics) AddRows(kind, outcome string, n int) {
	if i == nil || i.rows == nil || n <= 0 {
		return
	}
	i.rows.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Add(float64(n))
}

// ObserveDuration records how long a batch took.
func (i *ImportMetrics) ObserveDuration(kind string, duration time.Duration) {
	if i == nil || i.duration == nil {
		return
	}
	i.duration.WithLabelValues(normalizeLabel(kind)).Observe(duration.Seconds())
}
