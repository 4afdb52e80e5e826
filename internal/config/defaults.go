package config

import "time"

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Display:  ":99",
		Log:      DefaultLogConfig(),
		Resolver: DefaultResolverConfig(),
		Actions:  DefaultActionsConfig(),
		Browser:  DefaultBrowserConfig(),
		OCR:      DefaultOCRConfig(),
		Metrics:  DefaultMetricsConfig(),
	}
}

// DefaultLogConfig logs warnings and above to stderr, since stdout carries
// command output.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       "warn",
		Format:      "console",
		OutputPaths: []string{"stderr"},
	}
}

// DefaultResolverConfig returns the resolver defaults.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		DefaultTimeout:    30 * time.Second,
		MaxDepth:          50,
		PollInitial:       50 * time.Millisecond,
		PollMax:           500 * time.Millisecond,
		PropertyCacheTTL:  500 * time.Millisecond,
		PropertyCacheSize: 4096,
		NativeIDCacheTTL:  30 * time.Second,
		NativeIDCacheSize: 1024,
		TreeCacheTTL:      2 * time.Second,
	}
}

// DefaultActionsConfig returns the gate timings and input pacing defaults.
func DefaultActionsConfig() ActionsConfig {
	return ActionsConfig{
		ScrollAttempts:  3,
		ScrollSettle:    200 * time.Millisecond,
		StabilityGap:    80 * time.Millisecond,
		StabilityBudget: 800 * time.Millisecond,
		InputRate:       200,
		InputBurst:      20,
		OpenTimeout:     10 * time.Second,
		HighlightColor:  "#FF0000",
	}
}

// DefaultBrowserConfig returns the browser collaborator defaults.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BridgeAddr:        "127.0.0.1:17373",
		HeartbeatInterval: 15 * time.Second,
		EvalTimeout:       2 * time.Minute,
		ConsoleFallback:   true,
	}
}

// DefaultOCRConfig runs tesseract reading stdin and writing stdout.
func DefaultOCRConfig() OCRConfig {
	return OCRConfig{
		Command: "tesseract",
		Args:    []string{"stdin", "stdout"},
	}
}

// DefaultMetricsConfig returns the metrics defaults.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:    true,
		Namespace:  "desktop_automation",
		ListenAddr: "127.0.0.1:9464",
	}
}
