package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestMetricsInitialization tests meter provider and Prometheus endpoint setup
func TestMetricsInitialization(t *testing.T) {
	providers, err := InitializeMetrics(context.Background(), discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)
	require.NotNil(t, providers.Metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

// TestPrometheusEndpoint tests that recorded bootstrap metrics are exposed
func TestPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeMetrics(context.Background(), discardLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx := context.Background()
	providers.Metrics.RecordHealthCheck(ctx, "/health/")
	providers.Metrics.RecordWarmup(ctx, "/graphql/", 20*time.Millisecond, true)
	providers.Metrics.RecordWorkerStart(ctx, 0, time.Millisecond, true)
	providers.Metrics.RecordRequest(ctx, http.MethodGet, "/graphql/", http.StatusOK, time.Millisecond)

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "health_checks_total")
	assert.Contains(t, string(body), "warmup_requests_total")
	assert.Contains(t, string(body), "worker_starts_total")
	assert.Contains(t, string(body), "http_requests_total")
}

// TestNilMetricsAreIgnored tests that recording on a nil recorder is a no-op
func TestNilMetricsAreIgnored(t *testing.T) {
	var m *BootstrapMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordHealthCheck(ctx, "/health/")
		m.RecordWarmup(ctx, "/graphql/", time.Second, false)
		m.RecordWorkerStart(ctx, 1, time.Second, false)
		m.RecordRequest(ctx, http.MethodGet, "/", 200, time.Second)
	})
}

func TestSeparateRegistries(t *testing.T) {
	first, err := InitializeMetrics(context.Background(), discardLogger())
	require.NoError(t, err)
	defer first.Shutdown(context.Background())

	second, err := InitializeMetrics(context.Background(), discardLogger())
	require.NoError(t, err)
	defer second.Shutdown(context.Background())

	assert.NotSame(t, first.Registry, second.Registry)
}
