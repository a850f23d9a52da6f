package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the knowledge base and workflow
// engine. A disabled configuration yields a no-op instance; every recording
// method is safe to call on it.
type Metrics struct {
	config MetricsConfig

	// Schema metrics
	classesDefined prometheus.Counter

	// Instance metrics
	instancesCreated   *prometheus.CounterVec
	instancesDeleted   *prometheus.CounterVec
	validationFailures *prometheus.CounterVec

	// Workflow metrics
	executions        *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	stepDuration      *prometheus.HistogramVec

	// Introspection metrics
	searches *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		classesDefined: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "classes_defined_total",
				Help:      "Total number of class definitions (including merges)",
			},
		),
		instancesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instances_created_total",
				Help:      "Total number of instances created",
			},
			[]string{"class"},
		),
		instancesDeleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "instances_deleted_total",
				Help:      "Total number of instances deleted",
			},
			[]string{"class"},
		),
		validationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Total number of schema or validation failures by code",
			},
			[]string{"code"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Total number of workflow executions",
			},
			[]string{"handler", "status"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Duration of workflow executions in seconds",
				Buckets:   buckets,
			},
			[]string{"handler", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Duration of workflow steps in seconds",
				Buckets:   buckets,
			},
			[]string{"action"},
		),
		searches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "searches_total",
				Help:      "Total number of semantic searches",
			},
			[]string{"type"},
		),
	}

	registry.MustRegister(
		m.classesDefined,
		m.instancesCreated,
		m.instancesDeleted,
		m.validationFailures,
		m.executions,
		m.executionDuration,
		m.stepDuration,
		m.searches,
	)

	return m, nil
}

// RecordClassDefined increments the class definition counter.
func (m *Metrics) RecordClassDefined() {
	if m.classesDefined == nil {
		return
	}
	m.classesDefined.Inc()
}

// RecordInstanceCreated records a created instance.
func (m *Metrics) RecordInstanceCreated(class string) {
	if m.instancesCreated == nil {
		return
	}
	m.instancesCreated.WithLabelValues(class).Inc()
}

// RecordInstanceDeleted records a deleted instance.
func (m *Metrics) RecordInstanceDeleted(class string) {
	if m.instancesDeleted == nil {
		return
	}
	m.instancesDeleted.WithLabelValues(class).Inc()
}

// RecordValidationFailure records a schema or validation failure by code.
func (m *Metrics) RecordValidationFailure(code string) {
	if m.validationFailures == nil {
		return
	}
	m.validationFailures.WithLabelValues(code).Inc()
}

// RecordExecution records a completed workflow execution.
func (m *Metrics) RecordExecution(handler string, success bool, duration time.Duration) {
	if m.executions == nil {
		return
	}
	status := "failed"
	if success {
		status = "succeeded"
	}
	m.executions.WithLabelValues(handler, status).Inc()
	m.executionDuration.WithLabelValues(handler, status).Observe(duration.Seconds())
}

// RecordStep records the duration of one workflow step.
func (m *Metrics) RecordStep(action string, duration time.Duration) {
	if m.stepDuration == nil {
		return
	}
	m.stepDuration.WithLabelValues(action).Observe(duration.Seconds())
}

// RecordSearch records a semantic search by type.
func (m *Metrics) RecordSearch(searchType string) {
	if m.searches == nil {
		return
	}
	m.searches.WithLabelValues(searchType).Inc()
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
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
