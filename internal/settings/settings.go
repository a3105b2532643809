package settings

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"storefront/internal/config"
	apperrors "storefront/internal/errors"
	"storefront/internal/infrastructure"
)

// TracerFactory builds a worker's tracer provider. loggingEnv names the
// boolean environment variable that enables span logging, loggingDefault is
// used when it is unset.
type TracerFactory func(ctx context.Context, loggingEnv string, loggingDefault bool) (*infrastructure.TracerProvider, error)

// Settings is the settings object handed to the bootstrap
type Settings struct {
	Module       string
	AllowedHosts []string
	InitTracer   TracerFactory
}

// AllowedHost returns the first allowed host
func (s *Settings) AllowedHost() (string, error) {
	if len(s.AllowedHosts) == 0 || strings.TrimSpace(s.AllowedHosts[0]) == "" {
		return "", apperrors.NewSettingsError("ALLOWED_HOSTS is empty", nil).
			WithContext("module", s.Module)
	}
	return s.AllowedHosts[0], nil
}

// ServerName returns the first allowed host as a lazily resolved value
func (s *Settings) ServerName() *Lazy[string] {
	return NewLazy(s.AllowedHost)
}

// Validate checks the values the bootstrap depends on
func (s *Settings) Validate() error {
	if s.InitTracer == nil {
		return apperrors.NewSettingsError("INIT_TRACER is not set", nil).
			WithContext("module", s.Module)
	}
	return nil
}

// DefaultTracerFactory builds providers from the tracing environment
func DefaultTracerFactory(logger *slog.Logger, opts ...infrastructure.TracerOption) TracerFactory {
	return func(ctx context.Context, loggingEnv string, loggingDefault bool) (*infrastructure.TracerProvider, error) {
		cfg, err := infrastructure.TracingConfigFromEnv(loggingEnv, loggingDefault)
		if err != nil {
			return nil, apperrors.NewConfigError("invalid tracing configuration", err)
		}
		tp, err := infrastructure.NewTracerProvider(ctx, cfg, logger, opts...)
		if err != nil {
			return nil, apperrors.NewTracingError("failed to build tracer provider", err)
		}
		return tp, nil
	}
}

// Constructor builds a settings module from the loaded configuration
type Constructor func(cfg *config.Config, logger *slog.Logger) (*Settings, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{}
)

// Register makes a settings module available by name. It panics if the name
// is registered twice.
func Register(module string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[module]; dup {
		panic(fmt.Sprintf("settings: module %q registered twice", module))
	}
	registry[module] = ctor
}

// Modules lists the registered module names
func Modules() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load builds the module named by STOREFRONT_SETTINGS_MODULE, falling back to
// cfg.Settings.Module when the variable is unset.
func Load(cfg *config.Config, logger *slog.Logger) (*Settings, error) {
	module := os.Getenv(config.SettingsModuleEnv)
	if module == "" {
		module = cfg.Settings.Module
	}

	registryMu.RLock()
	ctor, ok := registry[module]
	registryMu.RUnlock()
	if !ok {
		return nil, apperrors.NewSettingsError(fmt.Sprintf("unknown settings module %q", module), nil).
			WithContext("registered", Modules())
	}

	s, err := ctor(cfg, logger)
	if err != nil {
		return nil, apperrors.NewSettingsError(fmt.Sprintf("failed to load settings module %q", module), err)
	}
	if s.Module == "" {
		s.Module = module
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromConfig is the default settings module
func FromConfig(cfg *config.Config, logger *slog.Logger) (*Settings, error) {
	hosts := make([]string, 0, len(cfg.Settings.AllowedHosts))
	for _, h := range cfg.Settings.AllowedHosts {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}

	return &Settings{
		Module:       config.DefaultSettingsModule,
		AllowedHosts: hosts,
		InitTracer:   DefaultTracerFactory(logger),
	}, nil
}

func init() {
	Register(config.DefaultSettingsModule, FromConfig)
}
