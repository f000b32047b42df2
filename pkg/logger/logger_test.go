package logger

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(level LogLevel, json bool) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(&Config{
		Level:      level,
		Output:     &buf,
		JSON:       json,
		TimeFormat: "15:04:05",
	}), &buf
}

func TestFromContext(t *testing.T) {
	t.Run("Should return logger from context when present", func(t *testing.T) {
		expected := NewLogger(TestConfig())
		ctx := ContextWithLogger(t.Context(), expected)
		assert.Equal(t, expected, FromContext(ctx))
	})

	t.Run("Should return default logger when no logger in context", func(t *testing.T) {
		l := FromContext(t.Context())
		require.NotNil(t, l)
		assert.Equal(t, GetDefault(), l)
	})

	t.Run("Should return default logger when wrong type in context", func(t *testing.T) {
		ctx := context.WithValue(t.Context(), LoggerCtxKey, "not a logger")
		assert.Equal(t, GetDefault(), FromContext(ctx))
	})
}

func TestLogLevel_ToCharmlogLevel(t *testing.T) {
	t.Run("Should convert all log levels to charm log levels correctly", func(t *testing.T) {
		testCases := []struct {
			level    LogLevel
			expected int
		}{
			{DebugLevel, -4},
			{InfoLevel, 0},
			{WarnLevel, 4},
			{ErrorLevel, 8},
			{DisabledLevel, 1000},
			{LogLevel("unknown"), 0},
		}
		for _, tc := range testCases {
			assert.Equal(t, tc.expected, int(tc.level.ToCharmlogLevel()), "level %s", tc.level)
		}
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should write text output", func(t *testing.T) {
		l, buf := bufferLogger(InfoLevel, false)
		l.Info("model loaded", "columns", 19)
		assert.Contains(t, buf.String(), "model loaded")
		assert.Contains(t, buf.String(), "columns")
	})

	t.Run("Should write JSON output when enabled", func(t *testing.T) {
		l, buf := bufferLogger(InfoLevel, true)
		l.Info("model loaded", "columns", 19)
		assert.Contains(t, buf.String(), `"msg":"model loaded"`)
		assert.Contains(t, buf.String(), `"columns":19`)
	})

	t.Run("Should carry fields added with With", func(t *testing.T) {
		l, buf := bufferLogger(InfoLevel, false)
		l.With("component", "trainer").Info("fit done")
		assert.Contains(t, buf.String(), "component")
		assert.Contains(t, buf.String(), "trainer")
	})

	t.Run("Should respect log level filtering", func(t *testing.T) {
		l, buf := bufferLogger(WarnLevel, false)
		l.Debug("debug message")
		l.Info("info message")
		l.Warn("warn message")
		l.Error("error message")
		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("Should disable all logging when DisabledLevel is used", func(t *testing.T) {
		l, buf := bufferLogger(DisabledLevel, false)
		l.Error("error message")
		assert.Empty(t, buf.String())
	})
}

func TestConfigDefaults(t *testing.T) {
	t.Run("Should provide correct default configuration", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, InfoLevel, cfg.Level)
		assert.Equal(t, os.Stdout, cfg.Output)
		assert.False(t, cfg.JSON)
	})

	t.Run("Should provide correct test configuration", func(t *testing.T) {
		cfg := TestConfig()
		assert.Equal(t, DisabledLevel, cfg.Level)
		assert.Equal(t, io.Discard, cfg.Output)
	})

	t.Run("Should detect the test environment", func(t *testing.T) {
		assert.True(t, IsTestEnvironment())
	})
}

func TestGetLoggerConfig(t *testing.T) {
	t.Run("Should read the persistent flags", func(t *testing.T) {
		cmd := &cobra.Command{Use: "x"}
		AddFlags(cmd)
		require.NoError(t, cmd.ParseFlags([]string{"--log-level", "debug", "--log-json"}))
		level, json, source, err := GetLoggerConfig(cmd)
		require.NoError(t, err)
		assert.Equal(t, "debug", level)
		assert.True(t, json)
		assert.False(t, source)
	})

	t.Run("Should fail when the flags were never registered", func(t *testing.T) {
		_, _, _, err := GetLoggerConfig(&cobra.Command{Use: "x"})
		assert.Error(t, err)
	})
}
