package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	extractionOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kycstack",
			Subsystem: "aadhaar",
			Name:      "extraction_ops_total",
			Help:      "The total number of pipeline invocations by outcome.",
		},
		[]string{"outcome"},
	)
	stageFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kycstack",
			Subsystem: "aadhaar",
			Name:      "stage_failures_total",
			Help:      "The total number of hard pipeline failures by stage.",
		},
		[]string{"stage", "code"},
	)
	fieldsFound = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kycstack",
			Subsystem: "aadhaar",
			Name:      "fields_found_total",
			Help:      "The total number of fields extracted by field kind and strategy.",
		},
		[]string{"field", "strategy"},
	)
	recognitionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kycstack",
			Subsystem: "aadhaar",
			Name:      "recognition_duration_seconds",
			Help:      "Time spent in OCR recognition.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"language"},
	)
)

func init() {
	prometheus.MustRegister(extractionOps)
	prometheus.MustRegister(stageFailures)
	prometheus.MustRegister(fieldsFound)
	prometheus.MustRegister(recognitionDuration)
}

// RecordExtraction counts a completed pipeline invocation
func RecordExtraction(outcome string) {
	extractionOps.WithLabelValues(outcome).Inc()
}

// RecordStageFailure counts a hard pipeline failure
func RecordStageFailure(stage, code string) {
	stageFailures.WithLabelValues(stage, code).Inc()
}

// RecordFieldFound counts an extracted field by strategy
func RecordFieldFound(field, strategy string) {
	fieldsFound.WithLabelValues(field, strategy).Inc()
}

// RecordRecognitionDuration records how long OCR recognition took
func RecordRecognitionDuration(language string, seconds float64) {
	recognitionDuration.WithLabelValues(language).Observe(seconds)
}
