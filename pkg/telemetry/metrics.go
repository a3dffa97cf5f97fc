package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for incus-composer.
type Metrics struct {
	config MetricsConfig

	// Validation metrics
	documentsValidated *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec

	// Violation metrics
	violations       *prometheus.CounterVec
	policyViolations *prometheus.CounterVec

	// Watch metrics
	watchReloads prometheus.Counter

	// System metrics
	containersResolved prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	// Create a new registry
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		// Validation metrics
		documentsValidated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "documents_validated_total",
				Help:      "Total number of documents validated",
			},
			[]string{"outcome"},
		),
		validationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Duration of validation runs in seconds",
				Buckets:   buckets,
			},
			[]string{"outcome"},
		),

		// Violation metrics
		violations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "violations_total",
				Help:      "Total number of semantic violations found",
			},
			[]string{"kind"},
		),
		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of policy violations found",
			},
			[]string{"policy", "severity"},
		),

		// Watch metrics
		watchReloads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "watch_reloads_total",
				Help:      "Total number of watch-triggered revalidations",
			},
		),

		// System metrics
		containersResolved: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "containers_resolved",
				Help:      "Number of containers in the last resolved model",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.documentsValidated,
		m.validationDuration,
		m.violations,
		m.policyViolations,
		m.watchReloads,
		m.containersResolved,
	)

	return m, nil
}

// Validation Metrics

// RecordValidation records a completed validation run with its outcome and duration.
func (m *Metrics) RecordValidation(outcome string, duration time.Duration) {
	if m.documentsValidated == nil {
		return
	}
	m.documentsValidated.WithLabelValues(outcome).Inc()
	m.validationDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// Violation Metrics

// RecordViolation increments the counter for a semantic violation kind.
func (m *Metrics) RecordViolation(kind string) {
	if m.violations == nil {
		return
	}
	m.violations.WithLabelValues(kind).Inc()
}

// RecordPolicyViolation increments the counter for a policy violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if m.policyViolations == nil {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// Watch Metrics

// RecordWatchReload increments the counter for watch-triggered reloads.
func (m *Metrics) RecordWatchReload() {
	if m.watchReloads == nil {
		return
	}
	m.watchReloads.Inc()
}

// System Metrics

// SetContainersResolved sets the container count of the last resolved model.
func (m *Metrics) SetContainersResolved(count float64) {
	if m.containersResolved == nil {
		return
	}
	m.containersResolved.Set(count)
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
