package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/config"
)

const (
	ServiceName    = "storefront"
	ServiceVersion = "1.0.0"
	TracerName     = "storefront"
)

// TracingConfig holds the tracer configuration resolved from the environment
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	AgentHost      string // collector host; empty disables export
	AgentPort      string
	Logging        bool // write finished spans to the span log
	SampleRatio    float64
}

// Endpoint returns host:port of the trace collector
func (c TracingConfig) Endpoint() string {
	return net.JoinHostPort(c.AgentHost, c.AgentPort)
}

// TracingConfigFromEnv reads JAEGER_AGENT_HOST, JAEGER_AGENT_PORT and the
// boolean logging flag named by loggingEnv.
func TracingConfigFromEnv(loggingEnv string, loggingDefault bool) (TracingConfig, error) {
	logging, err := config.BoolFromEnv(loggingEnv, loggingDefault)
	if err != nil {
		return TracingConfig{}, err
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return TracingConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		AgentHost:      os.Getenv(config.JaegerAgentHostEnv),
		AgentPort:      config.StringFromEnv(config.JaegerAgentPortEnv, config.DefaultReportingPort),
		Logging:        logging,
		SampleRatio:    1.0,
	}, nil
}

// TracerProvider owns a tracer pipeline for one worker process. It is handed
// to the components that need it rather than installed globally.
type TracerProvider struct {
	provider   *sdktrace.TracerProvider
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	config     TracingConfig
	logger     *slog.Logger
}

// TracerOption customises NewTracerProvider
type TracerOption func(*tracerOptions)

type tracerOptions struct {
	exporters []sdktrace.SpanExporter
	spanLog   io.Writer
}

// WithSpanExporter adds a synchronous exporter, typically an in-memory one in tests.
func WithSpanExporter(exp sdktrace.SpanExporter) TracerOption {
	return func(o *tracerOptions) {
		o.exporters = append(o.exporters, exp)
	}
}

// WithSpanLog sets where finished spans are written when logging is enabled.
func WithSpanLog(w io.Writer) TracerOption {
	return func(o *tracerOptions) {
		o.spanLog = w
	}
}

// NewTracerProvider builds the tracer pipeline: an OTLP/HTTP exporter to the
// collector when a host is configured, and a stdout span log when logging is
// enabled.
func NewTracerProvider(ctx context.Context, cfg TracingConfig, logger *slog.Logger, opts ...TracerOption) (*TracerProvider, error) {
	if logger == nil {
		logger = GetLogger()
	}
	o := tracerOptions{spanLog: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	}

	if cfg.AgentHost != "" {
		exporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(cfg.Endpoint()),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create collector exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}

	if cfg.Logging {
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(o.spanLog))
		if err != nil {
			return nil, fmt.Errorf("failed to create span log exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithSyncer(exporter))
	}

	for _, exp := range o.exporters {
		tpOpts = append(tpOpts, sdktrace.WithSyncer(exp))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)

	logger.InfoContext(ctx, "tracer provider created",
		slog.String("service", cfg.ServiceName),
		slog.String("collector", collectorLabel(cfg)),
		slog.Bool("span_logging", cfg.Logging),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return &TracerProvider{
		provider: tp,
		tracer:   tp.Tracer(TracerName, trace.WithInstrumentationVersion(cfg.ServiceVersion)),
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		config: cfg,
		logger: logger,
	}, nil
}

func collectorLabel(cfg TracingConfig) string {
	if cfg.AgentHost == "" {
		return "disabled"
	}
	return cfg.Endpoint()
}

// Tracer returns the provider's tracer
func (p *TracerProvider) Tracer() trace.Tracer {
	return p.tracer
}

// Propagator returns the text map propagator used for incoming requests
func (p *TracerProvider) Propagator() propagation.TextMapPropagator {
	return p.propagator
}

// Config returns the configuration the provider was built from
func (p *TracerProvider) Config() TracingConfig {
	return p.config
}

// ForceFlush exports all ended spans that have not been exported yet
func (p *TracerProvider) ForceFlush(ctx context.Context) error {
	return p.provider.ForceFlush(ctx)
}

// Shutdown flushes and stops the tracer pipeline
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if err := p.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("tracer provider shutdown: %w", err)
	}
	p.logger.InfoContext(ctx, "tracer provider shut down")
	return nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg TracingConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		semconv.ProcessPID(os.Getpid()),
		attribute.String("service.instance.id", uuid.NewString()),
	), nil
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}
