package observability

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatherFamily fetches one metric family from the default registry.
func gatherFamily(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

// findMetric returns the metric whose labels include every want pair.
// Const labels (service, version, environment) are ignored by matching
// on a subset.
func findMetric(mf *dto.MetricFamily, want map[string]string) *dto.Metric {
	if mf == nil {
		return nil
	}
	for _, m := range mf.GetMetric() {
		labels := make(map[string]string)
		for _, lp := range m.GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
		matched := true
		for k, v := range want {
			if labels[k] != v {
				matched = false
				break
			}
		}
		if matched {
			return m
		}
	}
	return nil
}

func TestNewMetricsProviderDefaults(t *testing.T) {
	config := MetricsConfig{
		ServiceName:    "test-service",
		ServiceVersion: "0.0.1",
		Environment:    "test",
	}

	provider, err := NewMetricsProvider(config)
	require.NoError(t, err)
	require.NotNil(t, provider)

	// Registering the same collectors again must be tolerated.
	again, err := NewMetricsProvider(config)
	require.NoError(t, err)
	require.NotNil(t, again)
}

func TestRecordConnectionMetrics(t *testing.T) {
	ctx := context.Background()

	// A unique namespace keeps this test's collectors isolated from the
	// ones other tests register in the shared default registry.
	provider, err := NewMetricsProvider(MetricsConfig{
		ServiceName: "test-service",
		Namespace:   "mcptest",
	})
	require.NoError(t, err)

	provider.RecordConnectAttempt(ctx, "fs", "stdio", true, 120*time.Millisecond)
	provider.RecordConnectAttempt(ctx, "fs", "stdio", false, 30*time.Millisecond)
	provider.RecordConnectError(ctx, "fs", "transport")
	provider.RecordTransportFallback(ctx, "web")
	provider.RecordCircuitBreakerTrip(ctx, "fs")
	provider.RecordToolsDiscovered(ctx, "fs", 3)

	attempts := gatherFamily(t, "mcptest_connect_attempts_total")
	require.NotNil(t, attempts)
	success := findMetric(attempts, map[string]string{"server": "fs", "result": "success"})
	require.NotNil(t, success)
	assert.Equal(t, float64(1), success.GetCounter().GetValue())
	failure := findMetric(attempts, map[string]string{"server": "fs", "result": "failure"})
	require.NotNil(t, failure)
	assert.Equal(t, float64(1), failure.GetCounter().GetValue())

	duration := gatherFamily(t, "mcptest_connect_duration_seconds")
	observed := findMetric(duration, map[string]string{"server": "fs", "transport": "stdio"})
	require.NotNil(t, observed)
	assert.Equal(t, uint64(2), observed.GetHistogram().GetSampleCount())

	errors := gatherFamily(t, "mcptest_connect_errors_total")
	transportErrs := findMetric(errors, map[string]string{"server": "fs", "category": "transport"})
	require.NotNil(t, transportErrs)
	assert.Equal(t, float64(1), transportErrs.GetCounter().GetValue())

	fallbacks := gatherFamily(t, "mcptest_transport_fallbacks_total")
	fell := findMetric(fallbacks, map[string]string{"server": "web"})
	require.NotNil(t, fell)
	assert.Equal(t, float64(1), fell.GetCounter().GetValue())

	trips := gatherFamily(t, "mcptest_circuit_breaker_trips_total")
	tripped := findMetric(trips, map[string]string{"server": "fs"})
	require.NotNil(t, tripped)
	assert.Equal(t, float64(1), tripped.GetCounter().GetValue())

	tools := gatherFamily(t, "mcptest_tools_discovered")
	discovered := findMetric(tools, map[string]string{"server": "fs"})
	require.NotNil(t, discovered)
	assert.Equal(t, float64(3), discovered.GetGauge().GetValue())
}

func TestRecordConnectionStatesResetsStaleStates(t *testing.T) {
	ctx := context.Background()

	provider, err := NewMetricsProvider(MetricsConfig{
		ServiceName: "test-service",
		Namespace:   "mcpstates",
	})
	require.NoError(t, err)

	provider.RecordConnectionStates(ctx, map[string]int{"connected": 2, "connecting": 1})

	active := gatherFamily(t, "mcpstates_connections_active")
	connected := findMetric(active, map[string]string{"state": "connected"})
	require.NotNil(t, connected)
	assert.Equal(t, float64(2), connected.GetGauge().GetValue())
	failed := findMetric(active, map[string]string{"state": "failed"})
	require.NotNil(t, failed)
	assert.Equal(t, float64(0), failed.GetGauge().GetValue())

	// A later snapshot without "connecting" must zero that gauge.
	provider.RecordConnectionStates(ctx, map[string]int{"connected": 1})

	active = gatherFamily(t, "mcpstates_connections_active")
	connected = findMetric(active, map[string]string{"state": "connected"})
	require.NotNil(t, connected)
	assert.Equal(t, float64(1), connected.GetGauge().GetValue())
	connecting := findMetric(active, map[string]string{"state": "connecting"})
	require.NotNil(t, connecting)
	assert.Equal(t, float64(0), connecting.GetGauge().GetValue())
}

func TestCustomMetrics(t *testing.T) {
	provider, err := NewMetricsProvider(MetricsConfig{
		ServiceName: "test-service",
		Namespace:   "mcpcustom",
	})
	require.NoError(t, err)

	labels := prometheus.Labels{"kind": "stdio"}

	provider.RecordGauge("queue_depth", 4, labels)
	provider.RecordGauge("queue_depth", 7, labels)

	gauge := gatherFamily(t, "mcpcustom_custom_queue_depth")
	m := findMetric(gauge, map[string]string{"kind": "stdio"})
	require.NotNil(t, m)
	assert.Equal(t, float64(7), m.GetGauge().GetValue())

	provider.RecordCounter("reconnects", labels)
	provider.RecordCounter("reconnects", labels)

	counter := gatherFamily(t, "mcpcustom_custom_reconnects")
	m = findMetric(counter, map[string]string{"kind": "stdio"})
	require.NotNil(t, m)
	assert.Equal(t, float64(2), m.GetCounter().GetValue())

	provider.RecordHistogram("ping_seconds", 0.02, labels)
	provider.RecordHistogram("ping_seconds", 0.04, labels)

	histogram := gatherFamily(t, "mcpcustom_custom_ping_seconds")
	m = findMetric(histogram, map[string]string{"kind": "stdio"})
	require.NotNil(t, m)
	assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
}
