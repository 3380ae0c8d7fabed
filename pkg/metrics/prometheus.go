package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	validationFailures *prometheus.CounterVec
	assessments        *prometheus.CounterVec
	riskScores         prometheus.Histogram
	alerts             prometheus.Counter
	resultsSent        *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec
	latency            *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		validationFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sepsiswatch_validation_failures_total",
				Help: "Rejected observation events by error code",
			},
			[]string{"code"},
		),
		assessments: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sepsiswatch_assessments_total",
				Help: "Completed risk assessments by risk level",
			},
			[]string{"level"},
		),
		riskScores: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sepsiswatch_risk_score",
				Help:    "Distribution of computed risk scores",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		alerts: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sepsiswatch_alerts_total",
				Help: "Assessments that triggered an alert",
			},
		),
		resultsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sepsiswatch_results_sent_total",
				Help: "Risk results delivered to a backend",
			},
			[]string{"backend"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sepsiswatch_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sepsiswatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordValidationFailure records one rejected-event error code.
func (r *Recorder) RecordValidationFailure(code string) {
	r.validationFailures.WithLabelValues(code).Inc()
}

// RecordAssessment records a completed assessment and its score.
func (r *Recorder) RecordAssessment(level string, score float64) {
	r.assessments.WithLabelValues(level).Inc()
	r.riskScores.Observe(score)
}

// RecordAlert records an alerting assessment.
func (r *Recorder) RecordAlert() {
	r.alerts.Inc()
}

// RecordResultSent records a result delivered to a backend.
func (r *Recorder) RecordResultSent(backend string) {
	r.resultsSent.WithLabelValues(backend).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
