package config

import (
	"errors"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiteral(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{"True", true},
		{"False", false},
		{"None", nil},
		{" True ", true},
		{"1", int64(1)},
		{"0", int64(0)},
		{"-42", int64(-42)},
		{"+7", int64(7)},
		{"1_000", int64(1000)},
		{"0x1F", int64(31)},
		{"0o17", int64(15)},
		{"0b101", int64(5)},
		{"00", int64(0)},
		{"1.5", 1.5},
		{"-0.25", -0.25},
		{"1e3", 1000.0},
		{".5", 0.5},
		{`"hello"`, "hello"},
		{`'hello'`, "hello"},
		{`''`, ""},
		{`'say "hi"'`, `say "hi"`},
		{`"tab\there"`, "tab\there"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLiteral(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLiteral_BigInteger(t *testing.T) {
	got, err := ParseLiteral("123456789012345678901234567890")
	require.NoError(t, err)

	n, ok := got.(*big.Int)
	require.True(t, ok, "expected *big.Int, got %T", got)
	assert.Equal(t, "123456789012345678901234567890", n.String())
}

func TestParseLiteral_Invalid(t *testing.T) {
	for _, input := range []string{
		"maybe", "true", "false", "yes", "", "   ", "01", "1__0", "_1", "1_",
		"0x", "inf", "nan", `"open`, `'mixed"`, "1.2.3", "True False",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseLiteral(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidLiteral))
		})
	}
}

func TestLiteralFromEnv(t *testing.T) {
	const name = "STOREFRONT_TEST_LITERAL"

	t.Run("unset returns default unchanged", func(t *testing.T) {
		require.NoError(t, os.Unsetenv(name))
		def := map[string]int{"a": 1}
		got, err := LiteralFromEnv(name, def)
		require.NoError(t, err)
		assert.Equal(t, def, got)
	})

	t.Run("valid literal", func(t *testing.T) {
		t.Setenv(name, "False")
		got, err := LiteralFromEnv(name, true)
		require.NoError(t, err)
		assert.Equal(t, false, got)
	})

	t.Run("invalid literal names value and variable", func(t *testing.T) {
		t.Setenv(name, "maybe")
		_, err := LiteralFromEnv(name, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maybe")
		assert.Contains(t, err.Error(), name)
		assert.Contains(t, err.Error(), "maybe is an invalid value for "+name)
		assert.True(t, errors.Is(err, ErrInvalidLiteral))
	})
}

func TestBoolFromEnv(t *testing.T) {
	const name = "JAEGER_LOGGING"

	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"True", false, true},
		{"False", true, false},
		{"1", false, true},
		{"0", true, false},
		{"None", true, false},
		{"''", true, false},
		{"'on'", false, true},
		{"2.5", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv(name, tt.value)
			got, err := BoolFromEnv(name, tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unset", func(t *testing.T) {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
		got, err := BoolFromEnv(name, true)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("invalid", func(t *testing.T) {
		t.Setenv(name, "maybe")
		_, err := BoolFromEnv(name, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maybe is an invalid value for JAEGER_LOGGING")
	})
}

func TestSetDefaultEnv(t *testing.T) {
	t.Setenv(SettingsModuleEnv, "")
	require.NoError(t, os.Unsetenv(SettingsModuleEnv))

	set, err := SetDefaultEnv(SettingsModuleEnv, DefaultSettingsModule)
	require.NoError(t, err)
	assert.True(t, set)
	assert.Equal(t, DefaultSettingsModule, os.Getenv(SettingsModuleEnv))

	set, err = SetDefaultEnv(SettingsModuleEnv, "other.settings")
	require.NoError(t, err)
	assert.False(t, set)
	assert.Equal(t, DefaultSettingsModule, os.Getenv(SettingsModuleEnv))
}

func TestDurationFromEnv(t *testing.T) {
	t.Setenv(StartupSpanDelayEnv, "5s")
	d, err := DurationFromEnv(StartupSpanDelayEnv, 0)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, d)

	t.Setenv(StartupSpanDelayEnv, "later")
	_, err = DurationFromEnv(StartupSpanDelayEnv, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), StartupSpanDelayEnv)
}

func TestStringFromEnv(t *testing.T) {
	t.Setenv(JaegerAgentPortEnv, "6832")
	assert.Equal(t, "6832", StringFromEnv(JaegerAgentPortEnv, DefaultReportingPort))

	require.NoError(t, os.Unsetenv(JaegerAgentPortEnv))
	assert.Equal(t, DefaultReportingPort, StringFromEnv(JaegerAgentPortEnv, DefaultReportingPort))
}
