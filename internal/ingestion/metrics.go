package ingestion

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK     = "ok"
	resultFailed = "failed"
)

type Metrics struct {
	files    *prometheus.CounterVec
	rows     *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the ingestion collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "files_total",
			Help:      "Uploaded files processed, by record kind and result.",
		}, []string{"kind", "result"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ingest",
			Name:      "rows_total",
			Help:      "Rows seen per pipeline stage: read, kept, inserted (attempted) and stored (confirmed).",
		}, []string{"kind", "stage"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ingest",
			Name:      "file_duration_seconds",
			Help:      "Time spent ingesting one file, archival excluded.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}, []string{"kind"}),
	}
}

func (m *Metrics) observeFile(kind string, o fileResult, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := resultOK
	if err != nil {
		result = resultFailed
	}
	m.files.WithLabelValues(kind, result).Inc()
	m.rows.WithLabelValues(kind, "read").Add(float64(o.read))
	m.rows.WithLabelValues(kind, "kept").Add(float64(o.kept))
	m.rows.WithLabelValues(kind, "inserted").Add(float64(o.inserted))
	m.rows.WithLabelValues(kind, "stored").Add(float64(o.stored))
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
