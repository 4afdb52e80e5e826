package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mj1618/desktop-automation/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")
	logger := New(config.LogConfig{Level: "info", Format: "json", OutputPaths: []string{path}})

	logger.Debug("hidden")
	logger.Info("shown", zap.String("k", "v"))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"shown"`)
	assert.Contains(t, string(data), `"k":"v"`)
	assert.NotContains(t, string(data), "hidden")
}

func TestComponent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	Component(zap.New(core), "resolver").Info("walk")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "resolver", entries[0].ContextMap()["component"])

	assert.NotPanics(t, func() { Component(nil, "x").Info("dropped") })
}
