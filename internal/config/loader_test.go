package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30*time.Second, cfg.Resolver.DefaultTimeout)
	assert.Equal(t, 50, cfg.Resolver.MaxDepth)
	assert.Equal(t, 50*time.Millisecond, cfg.Resolver.PollInitial)
	assert.Equal(t, 500*time.Millisecond, cfg.Resolver.PollMax)

	assert.Equal(t, 3, cfg.Actions.ScrollAttempts)
	assert.Equal(t, 200*time.Millisecond, cfg.Actions.ScrollSettle)
	assert.Equal(t, 80*time.Millisecond, cfg.Actions.StabilityGap)
	assert.Equal(t, 800*time.Millisecond, cfg.Actions.StabilityBudget)
	assert.False(t, cfg.Actions.PageDownFallback)

	assert.Equal(t, "127.0.0.1:17373", cfg.Browser.BridgeAddr)
	assert.Equal(t, 15*time.Second, cfg.Browser.HeartbeatInterval)

	require.NoError(t, cfg.Validate())
}

func TestLoader_LoadDefaults(t *testing.T) {
	cfg, err := NewLoader().WithEnvLookup(envMap(nil)).Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Headless)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend: virtual
devtools_url: http://127.0.0.1:9333
resolver:
  default_timeout: 5s
  max_depth: 20
actions:
  page_down_fallback: true
  stability_gap: 40ms
log:
  level: info
  format: json
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).WithEnvLookup(envMap(nil)).Load()
	require.NoError(t, err)

	assert.Equal(t, "virtual", cfg.Backend)
	assert.Equal(t, "http://127.0.0.1:9333", cfg.DevtoolsURL)
	assert.Equal(t, 5*time.Second, cfg.Resolver.DefaultTimeout)
	assert.Equal(t, 20, cfg.Resolver.MaxDepth)
	assert.True(t, cfg.Actions.PageDownFallback)
	assert.Equal(t, 40*time.Millisecond, cfg.Actions.StabilityGap)
	// Untouched keys keep their defaults.
	assert.Equal(t, 800*time.Millisecond, cfg.Actions.StabilityBudget)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("devtools_url: http://from-file:1\n"), 0o644))

	cfg, err := NewLoader().
		WithConfigPath(path).
		WithEnvLookup(envMap(map[string]string{
			"DESKTOP_AUTOMATION_HEADLESS":                "true",
			"DESKTOP_AUTOMATION_DEVTOOLS_URL":            "http://from-env:2",
			"DESKTOP_AUTOMATION_RESOLVER_POLL_MAX":       "1s",
			"DESKTOP_AUTOMATION_ACTIONS_INPUT_RATE":      "50.5",
			"DESKTOP_AUTOMATION_LOG_OUTPUT_PATHS":        "stderr, /tmp/da.log",
			"DESKTOP_AUTOMATION_BROWSER_CONSOLE_FALLBACK": "false",
		})).
		Load()
	require.NoError(t, err)

	assert.True(t, cfg.Headless)
	assert.Equal(t, "http://from-env:2", cfg.DevtoolsURL)
	assert.Equal(t, time.Second, cfg.Resolver.PollMax)
	assert.Equal(t, 50.5, cfg.Actions.InputRate)
	assert.Equal(t, []string{"stderr", "/tmp/da.log"}, cfg.Log.OutputPaths)
	assert.False(t, cfg.Browser.ConsoleFallback)
}

func TestLoader_TraceForcesDebug(t *testing.T) {
	cfg, err := NewLoader().WithEnvLookup(envMap(map[string]string{
		"DESKTOP_AUTOMATION_TRACE": "1",
	})).Load()
	require.NoError(t, err)
	assert.True(t, cfg.Trace)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	cfg, err := NewLoader().
		WithEnvPrefix("DA").
		WithEnvLookup(envMap(map[string]string{"DA_BACKEND": "virtual"})).
		Load()
	require.NoError(t, err)
	assert.Equal(t, "virtual", cfg.Backend)
}

func TestLoader_BadEnvValue(t *testing.T) {
	_, err := NewLoader().WithEnvLookup(envMap(map[string]string{
		"DESKTOP_AUTOMATION_RESOLVER_DEFAULT_TIMEOUT": "soon",
	})).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DESKTOP_AUTOMATION_RESOLVER_DEFAULT_TIMEOUT")
}

func TestLoader_WithValidator(t *testing.T) {
	_, err := NewLoader().
		WithEnvLookup(envMap(nil)).
		WithValidator(func(c *Config) error {
			if c.Backend == "" {
				return errors.New("backend required")
			}
			return nil
		}).
		Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend required")
}

func TestLoader_NonExistentFile(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath("/nonexistent/config.yaml").WithEnvLookup(envMap(nil)).Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Resolver.MaxDepth)
}

func TestLoader_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resolver: [unclosed"), 0o644))
	_, err := NewLoader().WithConfigPath(path).WithEnvLookup(envMap(nil)).Load()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"depth", func(c *Config) { c.Resolver.MaxDepth = 0 }, "max_depth"},
		{"poll", func(c *Config) { c.Resolver.PollMax = time.Millisecond }, "poll_initial"},
		{"stability", func(c *Config) { c.Actions.StabilityBudget = time.Millisecond }, "stability_gap"},
		{"rate", func(c *Config) { c.Actions.InputRate = 0 }, "input_rate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
