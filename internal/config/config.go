// Package config loads desktop-automation settings: defaults, then an
// optional YAML file, then DESKTOP_AUTOMATION_* environment variables.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("desktop-automation.yaml").
//	    Load()
//
// The environment is read once, when Load runs.
package config

import (
	"fmt"
	"strings"
	"time"
)

// DefaultEnvPrefix prefixes every environment variable the loader reads.
const DefaultEnvPrefix = "DESKTOP_AUTOMATION"

// Config is the complete configuration.
type Config struct {
	// Backend names the platform backend; empty selects the current OS.
	Backend string `yaml:"backend" env:"BACKEND"`
	// Headless targets a virtual display where the backend supports one.
	Headless bool `yaml:"headless" env:"HEADLESS"`
	// Display is the X display used in headless mode.
	Display string `yaml:"display" env:"DISPLAY"`
	// DevtoolsURL forces the browser devtools endpoint, e.g. http://127.0.0.1:9222.
	DevtoolsURL string `yaml:"devtools_url" env:"DEVTOOLS_URL"`
	// Trace enables verbose logging of every platform call.
	Trace bool `yaml:"trace" env:"TRACE"`

	Log      LogConfig      `yaml:"log" env:"LOG"`
	Resolver ResolverConfig `yaml:"resolver" env:"RESOLVER"`
	Actions  ActionsConfig  `yaml:"actions" env:"ACTIONS"`
	Browser  BrowserConfig  `yaml:"browser" env:"BROWSER"`
	OCR      OCRConfig      `yaml:"ocr" env:"OCR"`
	Metrics  MetricsConfig  `yaml:"metrics" env:"METRICS"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// json or console
	Format           string   `yaml:"format" env:"FORMAT"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	EnableCaller     bool     `yaml:"enable_caller" env:"ENABLE_CALLER"`
	EnableStacktrace bool     `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// ResolverConfig tunes selector resolution.
type ResolverConfig struct {
	DefaultTimeout time.Duration `yaml:"default_timeout" env:"DEFAULT_TIMEOUT"`
	MaxDepth       int           `yaml:"max_depth" env:"MAX_DEPTH"`
	PollInitial    time.Duration `yaml:"poll_initial" env:"POLL_INITIAL"`
	PollMax        time.Duration `yaml:"poll_max" env:"POLL_MAX"`

	// Property cache, used when the engine is built with UseCache.
	PropertyCacheTTL  time.Duration `yaml:"property_cache_ttl" env:"PROPERTY_CACHE_TTL"`
	PropertyCacheSize int           `yaml:"property_cache_size" env:"PROPERTY_CACHE_SIZE"`
	// Native-id index, used when the engine is built with UseCache.
	NativeIDCacheTTL  time.Duration `yaml:"native_id_cache_ttl" env:"NATIVE_ID_CACHE_TTL"`
	NativeIDCacheSize int           `yaml:"native_id_cache_size" env:"NATIVE_ID_CACHE_SIZE"`
	// Window-tree snapshots.
	TreeCacheTTL time.Duration `yaml:"tree_cache_ttl" env:"TREE_CACHE_TTL"`
}

// ActionsConfig tunes the actionability gates and synthetic input.
type ActionsConfig struct {
	ScrollAttempts   int           `yaml:"scroll_attempts" env:"SCROLL_ATTEMPTS"`
	ScrollSettle     time.Duration `yaml:"scroll_settle" env:"SCROLL_SETTLE"`
	PageDownFallback bool          `yaml:"page_down_fallback" env:"PAGE_DOWN_FALLBACK"`
	StabilityGap     time.Duration `yaml:"stability_gap" env:"STABILITY_GAP"`
	StabilityBudget  time.Duration `yaml:"stability_budget" env:"STABILITY_BUDGET"`
	// InputRate caps synthetic input events per second; InputBurst is the bucket size.
	InputRate   float64 `yaml:"input_rate" env:"INPUT_RATE"`
	InputBurst  int     `yaml:"input_burst" env:"INPUT_BURST"`
	TypeDelayMs int     `yaml:"type_delay_ms" env:"TYPE_DELAY_MS"`
	// OpenTimeout bounds the wait for a launched application's first window.
	OpenTimeout time.Duration `yaml:"open_timeout" env:"OPEN_TIMEOUT"`
	// HighlightColor is the default overlay border colour, #RRGGBB.
	HighlightColor string `yaml:"highlight_color" env:"HIGHLIGHT_COLOR"`
}

// BrowserConfig configures script evaluation in browsers.
type BrowserConfig struct {
	BridgeAddr        string        `yaml:"bridge_addr" env:"BRIDGE_ADDR"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval" env:"HEARTBEAT_INTERVAL"`
	EvalTimeout       time.Duration `yaml:"eval_timeout" env:"EVAL_TIMEOUT"`
	// ConsoleFallback allows the keyboard-driven devtools console path when
	// neither the devtools endpoint nor the bridge is reachable.
	ConsoleFallback bool `yaml:"console_fallback" env:"CONSOLE_FALLBACK"`
}

// OCRConfig names the external recognizer. It receives a PNG on stdin and
// prints text on stdout.
type OCRConfig struct {
	Command string   `yaml:"command" env:"COMMAND"`
	Args    []string `yaml:"args" env:"ARGS"`
}

// MetricsConfig configures the prometheus collector.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED"`
	Namespace  string `yaml:"namespace" env:"NAMESPACE"`
	ListenAddr string `yaml:"listen_addr" env:"LISTEN_ADDR"`
}

// Validate checks values the loader cannot type-check.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}
	if c.Resolver.DefaultTimeout < 0 {
		errs = append(errs, "resolver.default_timeout must not be negative")
	}
	if c.Resolver.MaxDepth <= 0 {
		errs = append(errs, "resolver.max_depth must be positive")
	}
	if c.Resolver.PollInitial <= 0 || c.Resolver.PollMax < c.Resolver.PollInitial {
		errs = append(errs, "resolver.poll_initial must be positive and not above poll_max")
	}
	if c.Actions.ScrollAttempts < 0 {
		errs = append(errs, "actions.scroll_attempts must not be negative")
	}
	if c.Actions.StabilityGap <= 0 || c.Actions.StabilityBudget < c.Actions.StabilityGap {
		errs = append(errs, "actions.stability_gap must be positive and not above stability_budget")
	}
	if c.Actions.InputRate <= 0 || c.Actions.InputBurst <= 0 {
		errs = append(errs, "actions.input_rate and input_burst must be positive")
	}
	if c.Browser.HeartbeatInterval <= 0 {
		errs = append(errs, "browser.heartbeat_interval must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
