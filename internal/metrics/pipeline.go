package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	DocumentsIndexedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "documents_indexed_total",
			Help:      "Total documents indexed, by format and outcome",
		},
		[]string{"format", "status"},
	)

	IndexBuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "index_build_duration_seconds",
			Help:      "End-to-end document index build duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"format"},
	)

	ChunksPerDocument = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "chunks_per_document",
			Help:      "Number of chunks produced per indexed document",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	QuestionsAnsweredTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "questions_answered_total",
			Help:      "Total questions processed, by outcome",
		},
		[]string{"status"}, // "success" / "refused" / "error"
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(DocumentsIndexedTotal)
	prometheus.MustRegister(IndexBuildDuration)
	prometheus.MustRegister(ChunksPerDocument)
	prometheus.MustRegister(QuestionsAnsweredTotal)
	pipelineMetricsRegistered = true
}
