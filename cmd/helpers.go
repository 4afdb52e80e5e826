package cmd

import (
	"context"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/browser"
	"github.com/mj1618/desktop-automation/internal/config"
	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/logging"
	"github.com/mj1618/desktop-automation/internal/metrics"
	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/selector"
)

// sessionOptions selects the optional collaborators of a session.
type sessionOptions struct {
	// scripts wires the browser script evaluator (devtools, bridge, console).
	scripts bool
	// registry receives the engine metrics; nil disables them.
	registry     prometheus.Registerer
	useCache     bool
	recordEvents bool
}

// session is one engine built from the persistent flags and the
// configuration file.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	engine  *engine.Engine
	metrics *metrics.Collector
}

func loadConfig() (*config.Config, error) {
	pf := rootCmd.PersistentFlags()
	path, _ := pf.GetString("config")
	cfg, err := config.NewLoader().
		WithConfigPath(path).
		WithEnvPrefix(config.DefaultEnvPrefix).
		Load()
	if err != nil {
		return nil, err
	}
	if backend, _ := pf.GetString("backend"); backend != "" {
		cfg.Backend = backend
	}
	if fixture, _ := pf.GetString("fixture"); fixture != "" && cfg.Backend == "" {
		cfg.Backend = "virtual"
	}
	return cfg, nil
}

func openSession(opts sessionOptions) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(cfg.Log)
	fixture, _ := rootCmd.PersistentFlags().GetString("fixture")

	if cfg.Backend != "virtual" && platform.RequestPermissionsFunc != nil {
		platform.RequestPermissionsFunc()
	}
	provider, err := platform.NewProvider(cfg.Backend, providerOptions(cfg, fixture, logger))
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger}
	if cfg.Metrics.Enabled && opts.registry != nil {
		s.metrics = metrics.NewCollector(cfg.Metrics.Namespace, opts.registry, logger)
	}
	eopts := []engine.Option{
		engine.WithConfig(cfg),
		engine.WithLogger(logger),
		engine.WithProvider(provider),
		engine.WithMetrics(s.metrics),
	}
	if cfg.OCR.Command != "" {
		eopts = append(eopts, engine.WithOCR(engine.CommandOCR(cfg.OCR.Command, cfg.OCR.Args...)))
	}
	if opts.scripts {
		eopts = append(eopts, engine.WithEvaluator(browser.FromConfig(cfg, runtime.GOOS == "darwin", logger)))
	}
	e, err := engine.New(engine.Options{UseCache: opts.useCache, RecordEvents: opts.recordEvents}, eopts...)
	if err != nil {
		if provider.Close != nil {
			_ = provider.Close()
		}
		return nil, err
	}
	s.engine = e
	return s, nil
}

// Close releases the engine and flushes the logger.
func (s *session) Close() {
	if err := s.engine.Close(); err != nil {
		s.logger.Warn("closing engine", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// addLookupFlags registers the flags shared by every verb that resolves a
// selector.
func addLookupFlags(c *cobra.Command) {
	c.Flags().String("app", "", "Scope the lookup to an application (fuzzy name match)")
	c.Flags().Duration("timeout", 0, "How long to poll for the element (default: resolver.default_timeout)")
}

// scope returns the application named by --app, or nil for the desktop.
func (s *session) scope(ctx context.Context, cmd *cobra.Command) (*engine.Element, error) {
	app, _ := cmd.Flags().GetString("app")
	if app == "" {
		return nil, nil
	}
	return s.engine.Application(ctx, app)
}

// find resolves expr to exactly one element.
func (s *session) find(ctx context.Context, cmd *cobra.Command, expr string) (*engine.Element, error) {
	root, err := s.scope(ctx, cmd)
	if err != nil {
		return nil, err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return s.engine.FindElement(ctx, selector.Parse(expr), root, timeout)
}

// target resolves expr, or returns the focused element when expr is empty.
func (s *session) target(ctx context.Context, cmd *cobra.Command, expr string) (*engine.Element, error) {
	if expr == "" {
		return s.engine.FocusedElement(ctx)
	}
	return s.find(ctx, cmd, expr)
}

// ElementInfo is the printed form of one element.
type ElementInfo struct {
	Key       string               `yaml:"key"                  json:"key"`
	Role      string               `yaml:"role"                 json:"role"`
	RawRole   string               `yaml:"raw_role,omitempty"   json:"raw_role,omitempty"`
	Name      string               `yaml:"name,omitempty"       json:"name,omitempty"`
	ID        string               `yaml:"id,omitempty"         json:"id,omitempty"`
	NativeID  string               `yaml:"native_id,omitempty"  json:"native_id,omitempty"`
	ClassName string               `yaml:"class_name,omitempty" json:"class_name,omitempty"`
	PID       int                  `yaml:"pid,omitempty"        json:"pid,omitempty"`
	Bounds    platform.Bounds      `yaml:"bounds"               json:"bounds"`
	Value     string               `yaml:"value,omitempty"      json:"value,omitempty"`
	Enabled   bool                 `yaml:"enabled"              json:"enabled"`
	Visible   bool                 `yaml:"visible"              json:"visible"`
	Focused   bool                 `yaml:"focused,omitempty"    json:"focused,omitempty"`
	Selected  bool                 `yaml:"selected,omitempty"   json:"selected,omitempty"`
	Toggled   string               `yaml:"toggled,omitempty"    json:"toggled,omitempty"`
	Range     *platform.RangeValue `yaml:"range,omitempty"      json:"range,omitempty"`
	Actions   []string             `yaml:"actions,omitempty"    json:"actions,omitempty"`
}

// elementInfo reads el's properties into an ElementInfo.
func elementInfo(el *engine.Element) (*ElementInfo, error) {
	p, err := el.Properties()
	if err != nil {
		return nil, err
	}
	info := &ElementInfo{
		Key:       el.Key(),
		Role:      p.Role,
		RawRole:   p.RawRole,
		Name:      p.Name,
		ID:        p.ID,
		NativeID:  p.NativeID,
		ClassName: p.ClassName,
		PID:       p.PID,
		Bounds:    p.Bounds,
		Value:     p.Value,
		Enabled:   p.Enabled,
		Visible:   p.Visible && !p.Offscreen,
		Focused:   p.Focused,
		Selected:  p.Selected,
		Range:     p.Range,
		Actions:   p.Actions,
	}
	if p.Toggled != nil {
		info.Toggled = p.Toggled.String()
	}
	return info, nil
}

// ActionResult is the output of a verb that acts on one element.
type ActionResult struct {
	OK        bool          `yaml:"ok"                  json:"ok"`
	Action    string        `yaml:"action"              json:"action"`
	Target    *ElementInfo  `yaml:"target,omitempty"    json:"target,omitempty"`
	Validated *bool         `yaml:"validated,omitempty" json:"validated,omitempty"`
	Point     *engine.Point `yaml:"point,omitempty"     json:"point,omitempty"`
}

// actionResult describes el after action; a vanished element leaves Target
// empty rather than failing the verb.
func actionResult(action string, el *engine.Element) ActionResult {
	res := ActionResult{OK: true, Action: action}
	if el != nil {
		if info, err := elementInfo(el); err == nil {
			res.Target = info
		}
	}
	return res
}

// withPointer adds how a pointer action was delivered.
func (r ActionResult) withPointer(ar engine.ActionResult) ActionResult {
	v, pt := ar.Validated, ar.Point
	r.Validated = &v
	r.Point = &pt
	return r
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func providerOptions(cfg *config.Config, fixture string, logger *zap.Logger) platform.ProviderOptions {
	return platform.ProviderOptions{
		Headless: cfg.Headless,
		Display:  cfg.Display,
		Fixture:  fixture,
		Trace:    cfg.Trace,
		Logger:   logger,
	}
}
