package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
)

const MeterName = "storefront"

// MetricsProviders holds the meter pipeline and its Prometheus endpoint
type MetricsProviders struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	Registry       *prometheus.Registry
	PrometheusHTTP http.Handler
	Metrics        *BootstrapMetrics
	Logger         *slog.Logger
}

// InitializeMetrics creates a meter provider exporting to a dedicated
// Prometheus registry, together with the bootstrap instruments.
func InitializeMetrics(ctx context.Context, logger *slog.Logger) (*MetricsProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	meter := mp.Meter(MeterName, metric.WithInstrumentationVersion(ServiceVersion))

	metrics, err := CreateBootstrapMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create bootstrap metrics: %w", err)
	}

	logger.InfoContext(ctx, "Metrics initialized", slog.String("exporter", "prometheus"))

	return &MetricsProviders{
		MeterProvider:  mp,
		Meter:          meter,
		Registry:       registry,
		PrometheusHTTP: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Metrics:        metrics,
		Logger:         logger,
	}, nil
}

// Shutdown flushes and stops the meter provider
func (p *MetricsProviders) Shutdown(ctx context.Context) error {
	if p.MeterProvider == nil {
		return nil
	}
	if err := p.MeterProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("meter provider shutdown: %w", err)
	}
	return nil
}

// BootstrapMetrics holds the instruments recorded by the process bootstrap
type BootstrapMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	HealthChecksTotal metric.Int64Counter

	WarmupsTotal   metric.Int64Counter
	WarmupDuration metric.Float64Histogram

	WorkerStartsTotal   metric.Int64Counter
	WorkerStartDuration metric.Float64Histogram
}

// CreateBootstrapMetrics creates the bootstrap instruments on meter
func CreateBootstrapMetrics(meter metric.Meter) (*BootstrapMetrics, error) {
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	healthChecksTotal, err := meter.Int64Counter(
		"health_checks_total",
		metric.WithDescription("Total number of requests answered by the health responder"),
	)
	if err != nil {
		return nil, err
	}

	warmupsTotal, err := meter.Int64Counter(
		"warmup_requests_total",
		metric.WithDescription("Total number of startup warm-up requests"),
	)
	if err != nil {
		return nil, err
	}

	warmupDuration, err := meter.Float64Histogram(
		"warmup_duration_seconds",
		metric.WithDescription("Startup warm-up request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	workerStartsTotal, err := meter.Int64Counter(
		"worker_starts_total",
		metric.WithDescription("Total number of worker start hook runs"),
	)
	if err != nil {
		return nil, err
	}

	workerStartDuration, err := meter.Float64Histogram(
		"worker_start_duration_seconds",
		metric.WithDescription("Time spent in worker start hooks in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &BootstrapMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,
		HealthChecksTotal:   healthChecksTotal,
		WarmupsTotal:        warmupsTotal,
		WarmupDuration:      warmupDuration,
		WorkerStartsTotal:   workerStartsTotal,
		WorkerStartDuration: workerStartDuration,
	}, nil
}

func statusAttr(success bool) attribute.KeyValue {
	if success {
		return attribute.String("status", "success")
	}
	return attribute.String("status", "failure")
}

// RecordHealthCheck counts one health responder hit
func (m *BootstrapMetrics) RecordHealthCheck(ctx context.Context, path string) {
	if m == nil {
		return
	}
	m.HealthChecksTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// RecordWarmup records the outcome of a warm-up request
func (m *BootstrapMetrics) RecordWarmup(ctx context.Context, path string, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("path", path), statusAttr(success))
	m.WarmupsTotal.Add(ctx, 1, attrs)
	m.WarmupDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordWorkerStart records the outcome of a worker's start hooks
func (m *BootstrapMetrics) RecordWorkerStart(ctx context.Context, workerID int, duration time.Duration, success bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Int("worker_id", workerID), statusAttr(success))
	m.WorkerStartsTotal.Add(ctx, 1, attrs)
	m.WorkerStartDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRequest records a served HTTP request
func (m *BootstrapMetrics) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status_code", status),
	)
	m.HTTPRequestsTotal.Add(ctx, 1, attrs)
	m.HTTPRequestDuration.Record(ctx, duration.Seconds(), attrs)
}
