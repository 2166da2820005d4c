// Package observability provides the Prometheus metrics and OpenTelemetry
// tracing providers the connection manager reports into. Both are optional:
// the manager treats a nil provider as "don't record".
package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsConfig configures the metrics provider
type MetricsConfig struct {
	// Service identification
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Prometheus configuration
	MetricsPath string // HTTP path for metrics endpoint (default: /metrics)
	MetricsPort int    // Port for metrics server (default: 9090)

	// Metric options
	Namespace        string    // Prometheus namespace (default: mcp)
	Subsystem        string    // Prometheus subsystem
	HistogramBuckets []float64 // Custom histogram buckets for connect latency

	// Labels to add to all metrics
	ConstLabels prometheus.Labels
}

// MetricsProvider records connection lifecycle metrics
type MetricsProvider interface {
	// Connection lifecycle
	RecordConnectAttempt(ctx context.Context, serverID, transport string, success bool, duration time.Duration)
	RecordConnectError(ctx context.Context, serverID, category string)
	RecordTransportFallback(ctx context.Context, serverID string)
	RecordCircuitBreakerTrip(ctx context.Context, serverID string)
	RecordToolsDiscovered(ctx context.Context, serverID string, count int)
	RecordConnectionStates(ctx context.Context, byState map[string]int)

	// Custom metrics
	RecordGauge(name string, value float64, labels prometheus.Labels)
	RecordCounter(name string, labels prometheus.Labels)
	RecordHistogram(name string, value float64, labels prometheus.Labels)

	// Management
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// PrometheusMetricsProvider implements MetricsProvider using Prometheus
type PrometheusMetricsProvider struct {
	config MetricsConfig
	server *http.Server

	// Connection metrics
	connectAttempts *prometheus.CounterVec
	connectDuration *prometheus.HistogramVec
	connectErrors   *prometheus.CounterVec

	// Registry-level metrics
	connectionsActive *prometheus.GaugeVec
	toolsDiscovered   *prometheus.GaugeVec

	// Negotiation and breaker metrics
	transportFallbacks *prometheus.CounterVec
	breakerTrips       *prometheus.CounterVec

	// Custom metrics registry
	customMetrics map[string]prometheus.Collector
	mu            sync.RWMutex
}

// NewMetricsProvider creates a new Prometheus metrics provider
func NewMetricsProvider(config MetricsConfig) (MetricsProvider, error) {
	// Set defaults
	if config.Namespace == "" {
		config.Namespace = "mcp"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if config.MetricsPort == 0 {
		config.MetricsPort = 9090
	}
	if config.HistogramBuckets == nil {
		config.HistogramBuckets = prometheus.DefBuckets
	}

	// Add service labels to const labels
	if config.ConstLabels == nil {
		config.ConstLabels = prometheus.Labels{}
	}
	config.ConstLabels["service"] = config.ServiceName
	config.ConstLabels["version"] = config.ServiceVersion
	config.ConstLabels["environment"] = config.Environment

	provider := &PrometheusMetricsProvider{
		config:        config,
		customMetrics: make(map[string]prometheus.Collector),
	}

	// Initialize metrics
	provider.initializeMetrics()

	// Register metrics
	if err := provider.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return provider, nil
}

// initializeMetrics creates all metric collectors
func (p *PrometheusMetricsProvider) initializeMetrics() {
	p.connectAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "connect_attempts_total",
			Help:        "Total number of connection attempts",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"server", "result"},
	)

	p.connectDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "connect_duration_seconds",
			Help:        "Duration of connection attempts in seconds",
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"server", "transport"},
	)

	p.connectErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "connect_errors_total",
			Help:        "Total number of connection failures by error category",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"server", "category"},
	)

	p.connectionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "connections_active",
			Help:        "Number of registered connections by state",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"state"},
	)

	p.toolsDiscovered = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "tools_discovered",
			Help:        "Number of tools cached for each connected server",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"server"},
	)

	p.transportFallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "transport_fallbacks_total",
			Help:        "Total number of streamable-to-SSE transport fallbacks",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"server"},
	)

	p.breakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   p.config.Subsystem,
			Name:        "circuit_breaker_trips_total",
			Help:        "Total number of connects rejected by the failure-count breaker",
			ConstLabels: p.config.ConstLabels,
		},
		[]string{"server"},
	)
}

// registerMetrics registers all metrics with Prometheus
func (p *PrometheusMetricsProvider) registerMetrics() error {
	collectors := []prometheus.Collector{
		p.connectAttempts,
		p.connectDuration,
		p.connectErrors,
		p.connectionsActive,
		p.toolsDiscovered,
		p.transportFallbacks,
		p.breakerTrips,
	}

	for _, collector := range collectors {
		if err := prometheus.Register(collector); err != nil {
			// Check if already registered
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}

	return nil
}

// RecordConnectAttempt records one finished connection attempt
func (p *PrometheusMetricsProvider) RecordConnectAttempt(ctx context.Context, serverID, transport string, success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	p.connectAttempts.WithLabelValues(serverID, result).Inc()
	p.connectDuration.WithLabelValues(serverID, transport).Observe(duration.Seconds())
}

// RecordConnectError records a classified connection failure
func (p *PrometheusMetricsProvider) RecordConnectError(ctx context.Context, serverID, category string) {
	p.connectErrors.WithLabelValues(serverID, category).Inc()
}

// RecordTransportFallback records a streamable-to-SSE fallback
func (p *PrometheusMetricsProvider) RecordTransportFallback(ctx context.Context, serverID string) {
	p.transportFallbacks.WithLabelValues(serverID).Inc()
}

// RecordCircuitBreakerTrip records a connect rejected by the failure breaker
func (p *PrometheusMetricsProvider) RecordCircuitBreakerTrip(ctx context.Context, serverID string) {
	p.breakerTrips.WithLabelValues(serverID).Inc()
}

// RecordToolsDiscovered records the size of a server's cached tool list
func (p *PrometheusMetricsProvider) RecordToolsDiscovered(ctx context.Context, serverID string, count int) {
	p.toolsDiscovered.WithLabelValues(serverID).Set(float64(count))
}

// RecordConnectionStates publishes the per-state connection counts. States
// absent from the snapshot reset to zero so stale gauges do not linger.
func (p *PrometheusMetricsProvider) RecordConnectionStates(ctx context.Context, byState map[string]int) {
	for _, state := range []string{"disconnected", "connecting", "connected", "failed", "closing"} {
		p.connectionsActive.WithLabelValues(state).Set(float64(byState[state]))
	}
}

// RecordGauge records a custom gauge metric
func (p *PrometheusMetricsProvider) RecordGauge(name string, value float64, labels prometheus.Labels) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := name + fmt.Sprint(labels)
	if gauge, exists := p.customMetrics[key]; exists {
		if g, ok := gauge.(*prometheus.GaugeVec); ok {
			g.With(labels).Set(value)
			return
		}
	}

	// Create new gauge if it doesn't exist
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   "custom",
			Name:        name,
			Help:        fmt.Sprintf("Custom gauge metric: %s", name),
			ConstLabels: p.config.ConstLabels,
		},
		getLabelsKeys(labels),
	)

	prometheus.MustRegister(gauge)
	p.customMetrics[key] = gauge
	gauge.With(labels).Set(value)
}

// RecordCounter records a custom counter metric
func (p *PrometheusMetricsProvider) RecordCounter(name string, labels prometheus.Labels) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := name + fmt.Sprint(labels)
	if counter, exists := p.customMetrics[key]; exists {
		if c, ok := counter.(*prometheus.CounterVec); ok {
			c.With(labels).Inc()
			return
		}
	}

	// Create new counter if it doesn't exist
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   "custom",
			Name:        name,
			Help:        fmt.Sprintf("Custom counter metric: %s", name),
			ConstLabels: p.config.ConstLabels,
		},
		getLabelsKeys(labels),
	)

	prometheus.MustRegister(counter)
	p.customMetrics[key] = counter
	counter.With(labels).Inc()
}

// RecordHistogram records a custom histogram metric
func (p *PrometheusMetricsProvider) RecordHistogram(name string, value float64, labels prometheus.Labels) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := name + fmt.Sprint(labels)
	if histogram, exists := p.customMetrics[key]; exists {
		if h, ok := histogram.(*prometheus.HistogramVec); ok {
			h.With(labels).Observe(value)
			return
		}
	}

	// Create new histogram if it doesn't exist
	histogram := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   p.config.Namespace,
			Subsystem:   "custom",
			Name:        name,
			Help:        fmt.Sprintf("Custom histogram metric: %s", name),
			Buckets:     p.config.HistogramBuckets,
			ConstLabels: p.config.ConstLabels,
		},
		getLabelsKeys(labels),
	)

	prometheus.MustRegister(histogram)
	p.customMetrics[key] = histogram
	histogram.With(labels).Observe(value)
}

// Start starts the metrics HTTP server
func (p *PrometheusMetricsProvider) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle(p.config.MetricsPath, promhttp.Handler())

	p.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", p.config.MetricsPort),
		Handler: mux,
	}

	go func() {
		_ = p.server.ListenAndServe()
	}()

	return nil
}

// Shutdown gracefully shuts down the metrics server
func (p *PrometheusMetricsProvider) Shutdown(ctx context.Context) error {
	if p.server != nil {
		return p.server.Shutdown(ctx)
	}
	return nil
}

// Helper function to extract label keys from a map
func getLabelsKeys(labels prometheus.Labels) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	return keys
}
