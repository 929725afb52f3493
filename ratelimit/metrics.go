/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/crptkit/docsubmit/internal/libinfo"
)

// MetricsCollector collects metrics of FixedWindowLimiter.
type MetricsCollector interface {
	// SetAvailable reports the current number of available permits.
	SetAvailable(available int)
	// IncAdmissions is called when a permit is granted.
	IncAdmissions()
	// IncCancelled is called when Acquire gives up because its context is done.
	IncCancelled()
	// ObserveWait observes how long Acquire waited before it returned.
	ObserveWait(d time.Duration)
	// IncReplenishments is called at the start of every window.
	IncReplenishments()
}

type disabledMetrics struct{}

func (disabledMetrics) SetAvailable(int)          {}
func (disabledMetrics) IncAdmissions()            {}
func (disabledMetrics) IncCancelled()             {}
func (disabledMetrics) ObserveWait(time.Duration) {}
func (disabledMetrics) IncReplenishments()        {}

// PrometheusMetricsCollector is a Prometheus implementation of MetricsCollector.
type PrometheusMetricsCollector struct {
	Available      prometheus.Gauge
	Admissions     prometheus.Counter
	Cancelled      prometheus.Counter
	WaitDurations  prometheus.Histogram
	Replenishments prometheus.Counter
}

// NewPrometheusMetricsCollector creates a new Prometheus collector for the limiter.
// The name distinguishes limiters of the same process and becomes the "limiter" const label.
func NewPrometheusMetricsCollector(namespace, name string) *PrometheusMetricsCollector {
	constLabels := libinfo.AddPrometheusVersionLabel(prometheus.Labels{"limiter": name})
	return &PrometheusMetricsCollector{
		Available: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "rate_limiter_available_permits",
			Help:        "Number of permits available in the current window.",
			ConstLabels: constLabels,
		}),
		Admissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rate_limiter_admissions_total",
			Help:        "Number of granted permits.",
			ConstLabels: constLabels,
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rate_limiter_cancelled_acquires_total",
			Help:        "Number of acquires abandoned because their context was done.",
			ConstLabels: constLabels,
		}),
		WaitDurations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "rate_limiter_wait_duration_seconds",
			Help:        "A histogram of time spent waiting for a permit.",
			Buckets:     []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			ConstLabels: constLabels,
		}),
		Replenishments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rate_limiter_replenishments_total",
			Help:        "Number of window resets.",
			ConstLabels: constLabels,
		}),
	}
}

func (c *PrometheusMetricsCollector) collectors() []prometheus.Collector {
	return []prometheus.Collector{c.Available, c.Admissions, c.Cancelled, c.WaitDurations, c.Replenishments}
}

// MustRegister registers the Prometheus metrics.
func (c *PrometheusMetricsCollector) MustRegister() {
	prometheus.MustRegister(c.collectors()...)
}

// Unregister the Prometheus metrics.
func (c *PrometheusMetricsCollector) Unregister() {
	for _, collector := range c.collectors() {
		prometheus.Unregister(collector)
	}
}

// SetAvailable implements MetricsCollector.
func (c *PrometheusMetricsCollector) SetAvailable(available int) {
	c.Available.Set(float64(available))
}

// IncAdmissions implements MetricsCollector.
func (c *PrometheusMetricsCollector) IncAdmissions() {
	c.Admissions.Inc()
}

// IncCancelled implements MetricsCollector.
func (c *PrometheusMetricsCollector) IncCancelled() {
	c.Cancelled.Inc()
}

// ObserveWait implements MetricsCollector.
func (c *PrometheusMetricsCollector) ObserveWait(d time.Duration) {
	c.WaitDurations.Observe(d.Seconds())
}

// IncReplenishments implements MetricsCollector.
func (c *PrometheusMetricsCollector) IncReplenishments() {
	c.Replenishments.Inc()
}
