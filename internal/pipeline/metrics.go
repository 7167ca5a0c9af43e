package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invopipe_files_processed_total",
			Help: "Total number of files processed",
		},
		[]string{"status", "kind"}, // status: ok, error; kind: error kind or document type
	)

	acquisitionMethodTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invopipe_acquisition_method_total",
			Help: "Text acquisitions by method",
		},
		[]string{"method"}, // native-text, pdf-ocr-fallback, direct-image-ocr
	)

	batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "invopipe_batch_duration_seconds",
			Help:    "Wall-clock duration of batch processing",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
		},
	)

	batchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "invopipe_batch_size_files",
			Help:    "Number of files per batch",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
		},
	)

	acquiredTextLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "invopipe_acquired_text_length",
			Help:    "Length of acquired text in characters",
			Buckets: []float64{0, 50, 100, 500, 1000, 5000, 10000, 50000},
		},
	)
)
