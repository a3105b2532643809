package config

import "time"

// Process constants for the storefront bootstrap
const (
	AppName = "storefront"

	// EnvPrefix namespaces every envconfig-managed variable
	EnvPrefix = "STOREFRONT"

	// SettingsModuleEnv selects the application settings; it is defaulted,
	// never overwritten, at process start.
	SettingsModuleEnv     = "STOREFRONT_SETTINGS_MODULE"
	DefaultSettingsModule = "storefront.settings"

	// Bootstrap defaults
	DefaultHealthPath       = "/health/"
	DefaultWarmupPath       = "/graphql/"
	DefaultWarmupRemoteAddr = "127.0.0.1"
	DefaultWarmupServerPort = 80
	DefaultMetricsPath      = "/metrics"

	// Supervisor modes
	ModeSingle  = "single"
	ModePrefork = "prefork"

	// WorkerIDEnv carries the worker index into pre-forked worker processes
	WorkerIDEnv = "STOREFRONT_WORKER_ID"
)

// Tracing environment. These names are part of the deployment contract and
// are read outside the STOREFRONT_ prefix.
const (
	JaegerAgentHostEnv = "JAEGER_AGENT_HOST"
	JaegerAgentPortEnv = "JAEGER_AGENT_PORT"
	JaegerLoggingEnv   = "JAEGER_LOGGING"

	// StartupSpanDelayEnv holds the worker diagnostic span open for the given
	// duration. Zero by default.
	StartupSpanDelayEnv = "TRACING_STARTUP_SPAN_DELAY"

	// DefaultReportingPort is the collector's OTLP/HTTP port
	DefaultReportingPort = "4318"

	DefaultStartupSpanDelay = 0 * time.Second
)
