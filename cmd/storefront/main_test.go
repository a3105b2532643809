package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"storefront/internal/config"
	"storefront/internal/infrastructure"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STOREFRONT_LOGGING_OUTPUT", "discard")
	t.Setenv(config.SettingsModuleEnv, config.DefaultSettingsModule)

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestEnvCommand(t *testing.T) {
	t.Setenv(config.JaegerAgentHostEnv, "collector")
	t.Setenv(config.JaegerAgentPortEnv, "")
	require.NoError(t, os.Unsetenv(config.JaegerAgentPortEnv))
	t.Setenv(config.JaegerLoggingEnv, "True")
	t.Setenv(config.StartupSpanDelayEnv, "5s")

	out, err := runCommand(t, "env")
	require.NoError(t, err)

	var report envReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, config.DefaultSettingsModule, report.SettingsModule)
	assert.Equal(t, "collector", report.CollectorHost)
	assert.Equal(t, config.DefaultReportingPort, report.CollectorPort)
	assert.True(t, report.SpanLogging)
	assert.Equal(t, "5s", report.StartupSpanDelay)
	assert.Equal(t, config.DefaultHealthPath, report.HealthPath)
}

func TestEnvCommand_InvalidLogging(t *testing.T) {
	t.Setenv(config.JaegerLoggingEnv, "perhaps")

	_, err := runCommand(t, "env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "perhaps is an invalid value for JAEGER_LOGGING")
}

func TestWarmupCommand(t *testing.T) {
	t.Setenv("STOREFRONT_SETTINGS_ALLOWED_HOSTS", "shop.example.com,localhost")

	out, err := runCommand(t, "warmup")
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(out), &result))
	assert.Equal(t, "shop.example.com", result["host"])
	assert.Equal(t, 200, result["status"])
	assert.Equal(t, true, result["schema_loaded"])
}

func TestServeCommand_RejectsUnknownMode(t *testing.T) {
	_, err := runCommand(t, "serve", "--mode", "threads")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestWorkerCommandIsHidden(t *testing.T) {
	cmd := newRootCmd()
	worker, _, err := cmd.Find([]string{"worker"})
	require.NoError(t, err)
	assert.True(t, worker.Hidden)
}

func TestRun_ClosesLogFile(t *testing.T) {
	infrastructure.ResetLoggerForTesting()
	defer infrastructure.ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "storefront.log")
	t.Setenv("STOREFRONT_LOGGING_OUTPUT", "file")
	t.Setenv("STOREFRONT_LOGGING_FILE_PATH", logFile)
	t.Setenv(config.SettingsModuleEnv, config.DefaultSettingsModule)
	t.Setenv(config.JaegerLoggingEnv, "perhaps")

	assert.Equal(t, 1, run([]string{"env"}))

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "storefront failed")

	// Writes after run are dropped because the file is closed
	infrastructure.GetLogger().Info("written after close")
	content, err = os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "written after close")
}
