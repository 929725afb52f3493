/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package docclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crptkit/docsubmit/internal/libinfo"
)

// Submission outcomes used as metric label values.
const (
	OutcomeAccepted       = "accepted"
	OutcomeRejected       = "rejected"
	OutcomeTransportError = "transport_error"
	OutcomeEncodeError    = "encode_error"
	OutcomeCancelled      = "cancelled"
)

// MetricsCollector collects metrics of document submissions.
type MetricsCollector interface {
	// SubmissionDone is called once per Submit call that passed argument validation.
	SubmissionDone(outcome string, duration time.Duration)
}

type disabledMetrics struct{}

func (disabledMetrics) SubmissionDone(string, time.Duration) {}

// PrometheusMetricsCollector is a Prometheus implementation of MetricsCollector.
type PrometheusMetricsCollector struct {
	Submissions *prometheus.CounterVec
	Durations   *prometheus.HistogramVec
}

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	constLabels := libinfo.AddPrometheusVersionLabel(nil)
	return &PrometheusMetricsCollector{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "document_submissions_total",
			Help:        "Number of document submissions by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "document_submission_duration_seconds",
			Help:        "A histogram of document submission durations including the wait for a rate limiter permit.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 150},
			ConstLabels: constLabels,
		}, []string{"outcome"}),
	}
}

// MustRegister registers the Prometheus metrics.
func (c *PrometheusMetricsCollector) MustRegister() {
	prometheus.MustRegister(c.Submissions, c.Durations)
}

// Unregister the Prometheus metrics.
func (c *PrometheusMetricsCollector) Unregister() {
	prometheus.Unregister(c.Submissions)
	prometheus.Unregister(c.Durations)
}

// SubmissionDone implements MetricsCollector.
func (c *PrometheusMetricsCollector) SubmissionDone(outcome string, duration time.Duration) {
	c.Submissions.WithLabelValues(outcome).Inc()
	c.Durations.WithLabelValues(outcome).Observe(duration.Seconds())
}
