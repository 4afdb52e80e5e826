// Package engine is the element-location runtime: it resolves selectors
// against a platform provider, hands out Element handles and performs
// validated interactions on them.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mj1618/desktop-automation/internal/config"
	"github.com/mj1618/desktop-automation/internal/metrics"
	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/worker"
)

// Options are the two construction flags of an engine.
type Options struct {
	// UseCache enables the property, native-id and window-tree caches.
	UseCache bool
	// RecordEvents keeps a log of every action, readable through Events.
	RecordEvents bool
}

// Option customizes an engine.
type Option func(*Engine)

// WithConfig replaces the default configuration.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.cfg = cfg
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProvider uses an already constructed provider instead of looking one
// up by the configured backend name.
func WithProvider(p *platform.Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithMetrics records lookups, actions and gate failures.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// WithOCR installs the text-recognition collaborator used by Element.OCR.
func WithOCR(fn OCRFunc) Option {
	return func(e *Engine) { e.ocr = fn }
}

// WithEvaluator installs the browser script collaborator used by
// Element.ExecuteScript.
func WithEvaluator(ev ScriptEvaluator) Option {
	return func(e *Engine) { e.evaluator = ev }
}

// Engine is bound to one accessibility subsystem. It is safe for concurrent
// use; Elements and Locators keep a pointer to it.
type Engine struct {
	opts     Options
	cfg      *config.Config
	provider *platform.Provider
	logger   *zap.Logger
	metrics  *metrics.Collector

	apartment *worker.Apartment
	limiter   *rate.Limiter
	caches    *caches

	ocr       OCRFunc
	evaluator ScriptEvaluator

	eventsMu sync.Mutex
	events   []Event

	closeOnce sync.Once
}

// New builds an engine. Without WithProvider the backend named by the
// configuration (or the current OS) is constructed.
func New(opts Options, options ...Option) (*Engine, error) {
	e := &Engine{
		opts:   opts,
		cfg:    config.DefaultConfig(),
		logger: zap.NewNop(),
	}
	for _, o := range options {
		o(e)
	}
	e.logger = e.logger.With(zap.String("component", "engine"))

	if e.provider == nil {
		p, err := platform.NewProvider(e.cfg.Backend, platform.ProviderOptions{
			Headless: e.cfg.Headless,
			Display:  e.cfg.Display,
			Logger:   e.logger,
		})
		if err != nil {
			return nil, err
		}
		e.provider = p
	}

	if e.provider.RequiresApartment {
		apt, err := worker.New(nil, worker.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.apartment = apt
	}

	ac := e.cfg.Actions
	e.limiter = rate.NewLimiter(rate.Limit(ac.InputRate), ac.InputBurst)
	if opts.UseCache {
		e.caches = newCaches(e.cfg.Resolver, e.metrics)
	}

	e.logger.Debug("engine ready",
		zap.String("backend", e.provider.Name),
		zap.Bool("cache", opts.UseCache),
		zap.Bool("record_events", opts.RecordEvents),
		zap.Bool("apartment", e.apartment != nil))
	return e, nil
}

// Close stops the apartment thread and releases the provider.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		if e.apartment != nil {
			e.apartment.Close()
		}
		if closer, ok := e.evaluator.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				err = cerr
			}
		}
		if e.provider.Close != nil {
			if cerr := e.provider.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}
	})
	return err
}

// Provider returns the backend the engine drives.
func (e *Engine) Provider() *platform.Provider { return e.provider }

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.cfg }

// run executes fn on the apartment thread when the backend requires one.
// fn must not call run again.
func (e *Engine) run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return platform.NewError(platform.CodeTimeout, "operation cancelled").WithCause(err)
	}
	if e.apartment == nil {
		return fn()
	}
	e.metrics.SetApartmentQueue(e.apartment.Stats().Queued)
	err := e.apartment.Do(ctx, fn)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return platform.NewError(platform.CodeTimeout, "operation cancelled").WithCause(err)
	}
	return err
}

// pace blocks until the input limiter admits n synthetic events.
func (e *Engine) pace(ctx context.Context, n int) error {
	if n > e.limiter.Burst() {
		n = e.limiter.Burst()
	}
	if err := e.limiter.WaitN(ctx, n); err != nil {
		return platform.NewError(platform.CodeTimeout, "input pacing interrupted").WithCause(err)
	}
	return nil
}

func (e *Engine) reader() (platform.Reader, error) {
	if e.provider.Reader == nil {
		return nil, platform.Unsupported("accessibility tree reading")
	}
	return e.provider.Reader, nil
}

func (e *Engine) inputter() (platform.Inputter, error) {
	if e.provider.Inputter == nil {
		return nil, platform.Unsupported("synthetic input")
	}
	return e.provider.Inputter, nil
}

func (e *Engine) windowManager() (platform.WindowManager, error) {
	if e.provider.WindowManager == nil {
		return nil, platform.Unsupported("window management")
	}
	return e.provider.WindowManager, nil
}

func (e *Engine) screenshotter() (platform.Screenshotter, error) {
	if e.provider.Screenshotter == nil {
		return nil, platform.Unsupported("screen capture")
	}
	return e.provider.Screenshotter, nil
}

// invalidate drops cached state after anything that may change the UI.
func (e *Engine) invalidate() {
	if e.caches != nil {
		e.caches.purge()
	}
}

// Root returns the desktop root.
func (e *Engine) Root(ctx context.Context) (*Element, error) {
	r, err := e.reader()
	if err != nil {
		return nil, err
	}
	var n platform.Node
	err = e.run(ctx, func() error {
		var rerr error
		n, rerr = r.Root()
		return rerr
	})
	if err != nil {
		return nil, err
	}
	return e.wrap(n), nil
}

// FocusedElement returns the element with keyboard focus. It fails
// ELEMENT_NOT_FOUND when nothing has focus.
func (e *Engine) FocusedElement(ctx context.Context) (*Element, error) {
	r, err := e.reader()
	if err != nil {
		return nil, err
	}
	var n platform.Node
	err = e.run(ctx, func() error {
		var rerr error
		n, rerr = r.FocusedNode()
		return rerr
	})
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, platform.NewError(platform.CodeElementNotFound, "no element has keyboard focus")
	}
	return e.wrap(n), nil
}

func (e *Engine) wrap(n platform.Node) *Element {
	return &Element{node: n, engine: e}
}

// observe records a finished operation in metrics.
func (e *Engine) observeAction(action string, start time.Time, err error) {
	e.metrics.RecordAction(action, metrics.Outcome(err, codeLabel), time.Since(start))
}

func codeLabel(err error) string {
	return string(platform.CodeOf(err))
}
