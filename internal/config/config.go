package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete process configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Bootstrap  BootstrapConfig  `yaml:"bootstrap"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit" split_words:"true"`
	Settings   SettingsConfig   `yaml:"settings"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host" default:""`
	Port            int           `yaml:"port" default:"8000" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true" default:"15s" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true" default:"30s" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" split_words:"true" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true" default:"30s" validate:"gt=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	Format   string `yaml:"format" default:"json" validate:"oneof=json text"`
	Output   string `yaml:"output" default:"console" validate:"oneof=console file both discard"`
	FilePath string `yaml:"file_path" split_words:"true" default:"logs/storefront.log"`
}

// BootstrapConfig controls the health responder and the startup warm-up request
type BootstrapConfig struct {
	HealthPath       string `yaml:"health_path" split_words:"true" default:"/health/" validate:"startswith=/"`
	WarmupEnabled    bool   `yaml:"warmup_enabled" split_words:"true" default:"true"`
	WarmupPath       string `yaml:"warmup_path" split_words:"true" default:"/graphql/" validate:"startswith=/"`
	WarmupRemoteAddr string `yaml:"warmup_remote_addr" split_words:"true" default:"127.0.0.1" validate:"ip"`
	WarmupServerPort int    `yaml:"warmup_server_port" split_words:"true" default:"80" validate:"min=1,max=65535"`
}

// SupervisorConfig controls how many worker processes serve traffic
type SupervisorConfig struct {
	Mode    string `yaml:"mode" default:"single" validate:"oneof=single prefork"`
	Workers int    `yaml:"workers" default:"1" validate:"min=1,max=256"`
}

// MetricsConfig contains Prometheus exposition configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics" validate:"startswith=/"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" default:"false"`
	RPS     float64 `yaml:"rps" default:"100" validate:"gte=0"`
	Burst   int     `yaml:"burst" default:"50" validate:"gte=0"`
}

// SettingsConfig holds the application settings the web application exposes
// to the bootstrap: the ordered allowed hosts list.
type SettingsConfig struct {
	Module       string   `yaml:"module" default:"storefront.settings"`
	AllowedHosts []string `yaml:"allowed_hosts" split_words:"true" default:"localhost"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration from environment variables, overlaid on the
// given YAML file when it exists. Environment values take precedence.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			fileConfig, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config. A value explicitly set in
// the environment wins; otherwise a non-zero file value replaces the default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	overlay := func(envName string, apply func()) {
		if _, ok := os.LookupEnv(EnvPrefix + "_" + envName); !ok {
			apply()
		}
	}

	if fileConfig.Server.Host != "" {
		overlay("SERVER_HOST", func() { envConfig.Server.Host = fileConfig.Server.Host })
	}
	if fileConfig.Server.Port != 0 {
		overlay("SERVER_PORT", func() { envConfig.Server.Port = fileConfig.Server.Port })
	}
	if fileConfig.Server.ReadTimeout != 0 {
		overlay("SERVER_READ_TIMEOUT", func() { envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout })
	}
	if fileConfig.Server.WriteTimeout != 0 {
		overlay("SERVER_WRITE_TIMEOUT", func() { envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout })
	}
	if fileConfig.Server.ShutdownTimeout != 0 {
		overlay("SERVER_SHUTDOWN_TIMEOUT", func() { envConfig.Server.ShutdownTimeout = fileConfig.Server.ShutdownTimeout })
	}
	if fileConfig.Logging.Level != "" {
		overlay("LOGGING_LEVEL", func() { envConfig.Logging.Level = fileConfig.Logging.Level })
	}
	if fileConfig.Logging.Output != "" {
		overlay("LOGGING_OUTPUT", func() { envConfig.Logging.Output = fileConfig.Logging.Output })
	}
	if fileConfig.Logging.FilePath != "" {
		overlay("LOGGING_FILE_PATH", func() { envConfig.Logging.FilePath = fileConfig.Logging.FilePath })
	}
	if fileConfig.Bootstrap.HealthPath != "" {
		overlay("BOOTSTRAP_HEALTH_PATH", func() { envConfig.Bootstrap.HealthPath = fileConfig.Bootstrap.HealthPath })
	}
	if fileConfig.Bootstrap.WarmupPath != "" {
		overlay("BOOTSTRAP_WARMUP_PATH", func() { envConfig.Bootstrap.WarmupPath = fileConfig.Bootstrap.WarmupPath })
	}
	if fileConfig.Supervisor.Mode != "" {
		overlay("SUPERVISOR_MODE", func() { envConfig.Supervisor.Mode = fileConfig.Supervisor.Mode })
	}
	if fileConfig.Supervisor.Workers != 0 {
		overlay("SUPERVISOR_WORKERS", func() { envConfig.Supervisor.Workers = fileConfig.Supervisor.Workers })
	}
	if len(fileConfig.Settings.AllowedHosts) > 0 {
		overlay("SETTINGS_ALLOWED_HOSTS", func() { envConfig.Settings.AllowedHosts = fileConfig.Settings.AllowedHosts })
	}

	return envConfig
}

var validate = validator.New()

// validate validates the configuration
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Bootstrap.HealthPath == c.Bootstrap.WarmupPath {
		return fmt.Errorf("health path and warm-up path must differ: %s", c.Bootstrap.HealthPath)
	}

	if c.Supervisor.Mode == ModeSingle && c.Supervisor.Workers != 1 {
		return fmt.Errorf("single mode runs exactly one worker, got %d", c.Supervisor.Workers)
	}

	if c.Logging.Output == "file" || c.Logging.Output == "both" {
		if c.Logging.FilePath == "" {
			return fmt.Errorf("log file path is required for output %q", c.Logging.Output)
		}
	}

	return nil
}

// Addr returns the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if path := os.Getenv(EnvPrefix + "_CONFIG_FILE"); path != "" {
		return path
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/storefront.log",
		},
		Bootstrap: BootstrapConfig{
			HealthPath:       DefaultHealthPath,
			WarmupEnabled:    true,
			WarmupPath:       DefaultWarmupPath,
			WarmupRemoteAddr: DefaultWarmupRemoteAddr,
			WarmupServerPort: DefaultWarmupServerPort,
		},
		Supervisor: SupervisorConfig{
			Mode:    ModeSingle,
			Workers: 1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		RateLimit: RateLimitConfig{
			RPS:   100,
			Burst: 50,
		},
		Settings: SettingsConfig{
			Module:       DefaultSettingsModule,
			AllowedHosts: []string{"localhost"},
		},
	}
}
