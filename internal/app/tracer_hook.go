package app

import (
	"context"
	"path/filepath"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/config"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure"
	"storefront/internal/middleware"
	"storefront/internal/settings"
)

// WorkerStartSpan is the name of the diagnostic span emitted by TracerHook
const WorkerStartSpan = "Storefront.WorkerStart"

// Diagnostic span tag keys
const (
	TagSourceFile    = "source_file"
	TagJaegerPort    = "jaeger_port"
	TagJaegerHost    = "jaeger_host"
	TagJaegerLogging = "jaeger_logging"
)

// sourceFile is this file relative to its package directory's parent
var sourceFile = func() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "app/tracer_hook.go"
	}
	return filepath.ToSlash(filepath.Join(filepath.Base(filepath.Dir(file)), filepath.Base(file)))
}()

// TracerHook builds the worker's tracer provider through s.InitTracer and
// installs it into that worker only: requests are traced by middleware
// holding the provider, and the provider is flushed on shutdown. It then
// emits one Storefront.WorkerStart span.
func TracerHook(s *settings.Settings) Hook {
	return Hook{
		Name: "tracer",
		Run: func(ctx context.Context, w *Worker) error {
			return initWorkerTracer(ctx, w, s)
		},
	}
}

func initWorkerTracer(ctx context.Context, w *Worker, s *settings.Settings) error {
	log := w.Logger
	log.InfoContext(ctx, "worker tracer init started")

	if s == nil || s.InitTracer == nil {
		return apperrors.NewSettingsError("INIT_TRACER is not set", nil)
	}

	tp, err := s.InitTracer(ctx, config.JaegerLoggingEnv, false)
	if err != nil {
		return apperrors.NewTracingError("tracer factory failed", err)
	}

	var bm *infrastructure.BootstrapMetrics
	if w.App.Metrics != nil {
		bm = w.App.Metrics.Metrics
	}
	w.Use(middleware.NewTracing(tp, bm, log).Handler)
	w.OnShutdown(tp.Shutdown)
	log.InfoContext(ctx, "worker tracer installed",
		"service", tp.Config().ServiceName,
		"collector_host", tp.Config().AgentHost)

	attrs, err := diagnosticTags()
	if err != nil {
		return apperrors.NewConfigError("invalid tracing environment", err)
	}
	delay, err := config.DurationFromEnv(config.StartupSpanDelayEnv, config.DefaultStartupSpanDelay)
	if err != nil {
		return apperrors.NewConfigError("invalid startup span delay", err)
	}

	spanCtx, span := tp.Tracer().Start(ctx, WorkerStartSpan,
		trace.WithAttributes(attrs...),
		trace.WithAttributes(attribute.Int("worker_id", w.ID), attribute.Int("pid", w.PID)))
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-spanCtx.Done():
			timer.Stop()
		}
	}
	span.End()
	log.InfoContext(ctx, "worker diagnostic span finished",
		"span", WorkerStartSpan,
		"trace_id", span.SpanContext().TraceID().String())

	log.InfoContext(ctx, "worker tracer init finished")
	return nil
}

// diagnosticTags reads the tracing environment the same way the tracer
// factory does, so the span records what the worker was configured with.
func diagnosticTags() ([]attribute.KeyValue, error) {
	logging, err := config.BoolFromEnv(config.JaegerLoggingEnv, false)
	if err != nil {
		return nil, err
	}
	return []attribute.KeyValue{
		attribute.String(TagSourceFile, sourceFile),
		attribute.String(TagJaegerPort, config.StringFromEnv(config.JaegerAgentPortEnv, config.DefaultReportingPort)),
		attribute.String(TagJaegerHost, config.StringFromEnv(config.JaegerAgentHostEnv, "")),
		attribute.Bool(TagJaegerLogging, logging),
	}, nil
}

// WorkerHooks returns the hooks every worker runs before serving
func WorkerHooks(a *Application) []Hook {
	return []Hook{TracerHook(a.Settings)}
}
