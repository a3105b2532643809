package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		fileContent string
		wantErr     bool
		validateCfg func(*testing.T, *Config)
	}{
		{
			name: "default configuration with no env vars",
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8000, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)

				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "console", cfg.Logging.Output)

				assert.Equal(t, "/health/", cfg.Bootstrap.HealthPath)
				assert.Equal(t, "/graphql/", cfg.Bootstrap.WarmupPath)
				assert.Equal(t, "127.0.0.1", cfg.Bootstrap.WarmupRemoteAddr)
				assert.Equal(t, 80, cfg.Bootstrap.WarmupServerPort)
				assert.True(t, cfg.Bootstrap.WarmupEnabled)

				assert.Equal(t, ModeSingle, cfg.Supervisor.Mode)
				assert.Equal(t, 1, cfg.Supervisor.Workers)

				assert.True(t, cfg.Metrics.Enabled)
				assert.Equal(t, "/metrics", cfg.Metrics.Path)

				assert.Equal(t, []string{"localhost"}, cfg.Settings.AllowedHosts)
				assert.Equal(t, DefaultSettingsModule, cfg.Settings.Module)
			},
		},
		{
			name: "unprefixed process variables are ignored",
			env: map[string]string{
				"PATH":    "/usr/bin:/bin",
				"HOST":    "build-host",
				"PORT":    "9999",
				"LEVEL":   "error",
				"MODE":    "prefork",
				"MODULE":  "other.settings",
				"WORKERS": "8",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/metrics", cfg.Metrics.Path)
				assert.Empty(t, cfg.Server.Host)
				assert.Equal(t, 8000, cfg.Server.Port)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, ModeSingle, cfg.Supervisor.Mode)
				assert.Equal(t, 1, cfg.Supervisor.Workers)
				assert.Equal(t, DefaultSettingsModule, cfg.Settings.Module)
			},
		},
		{
			name: "environment overrides",
			env: map[string]string{
				"STOREFRONT_SERVER_PORT":            "9000",
				"STOREFRONT_SUPERVISOR_MODE":        "prefork",
				"STOREFRONT_SUPERVISOR_WORKERS":     "4",
				"STOREFRONT_SETTINGS_ALLOWED_HOSTS": "shop.example.com,localhost",
				"STOREFRONT_BOOTSTRAP_HEALTH_PATH":  "/healthz/",
			},
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, ModePrefork, cfg.Supervisor.Mode)
				assert.Equal(t, 4, cfg.Supervisor.Workers)
				assert.Equal(t, []string{"shop.example.com", "localhost"}, cfg.Settings.AllowedHosts)
				assert.Equal(t, "/healthz/", cfg.Bootstrap.HealthPath)
				assert.Equal(t, ":9000", cfg.Addr())
			},
		},
		{
			name: "yaml file overlays defaults",
			fileContent: `
server:
  port: 8100
supervisor:
  mode: prefork
  workers: 3
settings:
  allowed_hosts: ["api.example.com"]
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8100, cfg.Server.Port)
				assert.Equal(t, ModePrefork, cfg.Supervisor.Mode)
				assert.Equal(t, 3, cfg.Supervisor.Workers)
				assert.Equal(t, []string{"api.example.com"}, cfg.Settings.AllowedHosts)
			},
		},
		{
			name: "environment wins over yaml file",
			env: map[string]string{
				"STOREFRONT_SERVER_PORT": "9100",
			},
			fileContent: `
server:
  port: 8100
`,
			validateCfg: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9100, cfg.Server.Port)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"STOREFRONT_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "invalid supervisor mode",
			env:     map[string]string{"STOREFRONT_SUPERVISOR_MODE": "threads"},
			wantErr: true,
		},
		{
			name:    "single mode with several workers",
			env:     map[string]string{"STOREFRONT_SUPERVISOR_WORKERS": "2"},
			wantErr: true,
		},
		{
			name: "health path equal to warm-up path",
			env: map[string]string{
				"STOREFRONT_BOOTSTRAP_HEALTH_PATH": "/graphql/",
			},
			wantErr: true,
		},
		{
			name:    "warm-up remote address must be an IP",
			env:     map[string]string{"STOREFRONT_BOOTSTRAP_WARMUP_REMOTE_ADDR": "not-an-ip"},
			wantErr: true,
		},
		{
			name:    "malformed env value",
			env:     map[string]string{"STOREFRONT_SERVER_READ_TIMEOUT": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			configFile := ""
			if tt.fileContent != "" {
				configFile = filepath.Join(t.TempDir(), "config.yaml")
				require.NoError(t, os.WriteFile(configFile, []byte(tt.fileContent), 0o644))
			}

			cfg, err := LoadFrom(configFile)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, cfg)
			if tt.validateCfg != nil {
				tt.validateCfg(t, cfg)
			}
		})
	}
}

func TestLoadFrom_MissingFileIsIgnored(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("server: [unterminated"), 0o644))

	_, err := LoadFrom(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())

	loaded, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, cfg.Server.Port, loaded.Server.Port)
	assert.Equal(t, cfg.Bootstrap, loaded.Bootstrap)
	assert.Equal(t, cfg.Supervisor, loaded.Supervisor)
	assert.Equal(t, cfg.Settings, loaded.Settings)
}
