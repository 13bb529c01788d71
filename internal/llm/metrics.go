package llm

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// InvocationMetricsRecorder records per-provider invocation metrics. The
// interface abstracts the recording implementation so tests can inject a
// mock instead of Prometheus.
type InvocationMetricsRecorder interface {
	// RecordInvocation counts a completed invocation, labeled by provider
	// and outcome.
	RecordInvocation(provider string, success bool)

	// RecordDuration records the wall-clock time of an invocation
	// including retries.
	RecordDuration(provider string, duration time.Duration)
}

// PrometheusInvocationMetrics implements InvocationMetricsRecorder using
// Prometheus metrics.
type PrometheusInvocationMetrics struct {
	invocationCounter *prometheus.CounterVec
	durationHistogram *prometheus.HistogramVec
}

var (
	invocationMetricsInstance *PrometheusInvocationMetrics
	invocationMetricsOnce     sync.Once
)

// getOrCreateCounterVec gets an existing counter vector or creates a new one
// if it doesn't exist.
func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// getOrCreateHistogramVec gets an existing histogram vector or creates a new
// one if it doesn't exist.
func getOrCreateHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		return promauto.NewHistogramVec(opts, labels)
	}
	return h
}

// NewPrometheusInvocationMetrics creates a Prometheus-based invocation
// metrics recorder. Uses singleton pattern to avoid duplicate metric
// registration in tests.
func NewPrometheusInvocationMetrics() *PrometheusInvocationMetrics {
	invocationMetricsOnce.Do(func() {
		invocationMetricsInstance = &PrometheusInvocationMetrics{
			invocationCounter: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "llm_invocations_total",
				Help: "Total LLM invocations by provider and outcome",
			}, []string{"provider", "outcome"}),
			durationHistogram: getOrCreateHistogramVec(prometheus.HistogramOpts{
				Name:    "llm_invocation_duration_seconds",
				Help:    "Wall-clock duration of LLM invocations including retries",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}, []string{"provider"}),
		}
	})
	return invocationMetricsInstance
}

// RecordInvocation implements InvocationMetricsRecorder.RecordInvocation
func (p *PrometheusInvocationMetrics) RecordInvocation(provider string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	p.invocationCounter.WithLabelValues(provider, outcome).Inc()
}

// RecordDuration implements InvocationMetricsRecorder.RecordDuration
func (p *PrometheusInvocationMetrics) RecordDuration(provider string, duration time.Duration) {
	p.durationHistogram.WithLabelValues(provider).Observe(duration.Seconds())
}
