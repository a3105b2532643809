// Package config provides configuration loading for the storefront process.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. A YAML configuration file (config.yaml, configs/config.yaml or STOREFRONT_CONFIG_FILE)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// Variables managed by envconfig follow the pattern STOREFRONT_*:
//
//	STOREFRONT_SERVER_PORT=8000
//	STOREFRONT_SUPERVISOR_MODE=prefork
//	STOREFRONT_SUPERVISOR_WORKERS=4
//	STOREFRONT_SETTINGS_ALLOWED_HOSTS=shop.example.com,localhost
//
// The tracing variables keep their deployment names and are read directly:
//
//	JAEGER_AGENT_HOST=jaeger
//	JAEGER_AGENT_PORT=4318
//	JAEGER_LOGGING=True
//
// # Literal Values
//
// Boolean flags such as JAEGER_LOGGING are parsed as literals (True, False,
// 1, 0, None, quoted strings) by ParseLiteral. A value that is not a literal
// is reported with both the value and the variable name:
//
//	maybe is an invalid value for JAEGER_LOGGING: malformed literal: "maybe"
package config
