package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"storefront/internal/config"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure"
	"storefront/internal/middleware"
	"storefront/internal/settings"
	"storefront/internal/storefront"
	"storefront/internal/warmup"
)

// Version is reported in startup logs
const Version = infrastructure.ServiceVersion

// Options configures NewApplication
type Options struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *infrastructure.MetricsProviders
}

// Application is the composed and warmed-up handler of one process
type Application struct {
	Config   *config.Config
	Settings *settings.Settings
	Base     *storefront.App
	Handler  http.Handler
	Logger   *slog.Logger
	Metrics  *infrastructure.MetricsProviders
	Warmup   *warmup.Result
}

// Compose wraps base with the health-check responder bound to healthPath
func Compose(base http.Handler, healthPath string, metrics *infrastructure.BootstrapMetrics) http.Handler {
	return middleware.HealthCheck(healthPath, metrics)(base)
}

// NewApplication loads settings, composes the handler and warms it up
func NewApplication(ctx context.Context, opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, apperrors.NewConfigError("configuration is required", nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	if set, err := config.SetDefaultEnv(config.SettingsModuleEnv, cfg.Settings.Module); err != nil {
		return nil, apperrors.NewConfigError("failed to default settings module", err)
	} else if set {
		logger.DebugContext(ctx, "settings module defaulted",
			slog.String("env", config.SettingsModuleEnv),
			slog.String("module", cfg.Settings.Module))
	}

	s, err := settings.Load(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.InfoContext(ctx, "application starting",
		slog.String("version", Version),
		slog.String("settings_module", s.Module),
		slog.Any("allowed_hosts", s.AllowedHosts))

	base := storefront.New(storefront.Options{
		AllowedHosts: s.AllowedHosts,
		Logger:       logger,
	})

	var bootstrapMetrics *infrastructure.BootstrapMetrics
	if opts.Metrics != nil {
		bootstrapMetrics = opts.Metrics.Metrics
	}

	a := &Application{
		Config:   cfg,
		Settings: s,
		Base:     base,
		Handler:  Compose(base, cfg.Bootstrap.HealthPath, bootstrapMetrics),
		Logger:   logger,
		Metrics:  opts.Metrics,
	}

	if !cfg.Bootstrap.WarmupEnabled {
		logger.WarnContext(ctx, "warm-up disabled; lazy state will load on first request")
		return a, nil
	}

	res, err := warmup.Run(ctx, a.Handler, warmup.Request{
		Method:     http.MethodGet,
		Path:       cfg.Bootstrap.WarmupPath,
		RemoteAddr: cfg.Bootstrap.WarmupRemoteAddr,
		ServerPort: cfg.Bootstrap.WarmupServerPort,
		ServerName: s.ServerName().Get,
	}, warmup.Options{Logger: logger, Metrics: bootstrapMetrics})
	if err != nil {
		return nil, fmt.Errorf("startup warm-up: %w", err)
	}
	a.Warmup = &res

	return a, nil
}
