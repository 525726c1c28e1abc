package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restoreDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestInitCreatesLogFile(t *testing.T) {
	restoreDefault(t)
	path := filepath.Join(t.TempDir(), "logs", "jdcompare.log")

	logger, err := Init(Config{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("hello", slog.String("component", "test"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Same(t, logger, slog.Default())
}

func TestInitFiltersByLevel(t *testing.T) {
	restoreDefault(t)
	path := filepath.Join(t.TempDir(), "jdcompare.log")

	logger, err := Init(Config{Level: "warn", File: path})
	require.NoError(t, err)

	logger.Info("quiet")
	logger.Warn("loud")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "quiet")
	assert.Contains(t, string(data), "msg=loud")
}

func TestInitDirectoryFailureFallsBack(t *testing.T) {
	restoreDefault(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	logger, err := Init(Config{File: filepath.Join(blocker, "sub", "x.log")})
	assert.Error(t, err)
	assert.NotNil(t, logger)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewHandlerFormats(t *testing.T) {
	var buf bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	slog.New(newHandler("json", &buf, opts)).Info("x")
	assert.Contains(t, buf.String(), `"msg":"x"`)

	buf.Reset()
	slog.New(newHandler("", &buf, opts)).Info("y")
	assert.Contains(t, buf.String(), "msg=y")

	assert.False(t, newHandler("text", &buf, opts).Enabled(context.Background(), slog.LevelDebug))
}
