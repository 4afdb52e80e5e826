package engine

import (
	"context"
	"fmt"
	"image/color"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// HighlightState is the lifecycle state of an overlay.
type HighlightState int32

const (
	HighlightArmed HighlightState = iota
	HighlightVisible
	HighlightClosing
	HighlightClosed
)

func (s HighlightState) String() string {
	switch s {
	case HighlightArmed:
		return "armed"
	case HighlightVisible:
		return "visible"
	case HighlightClosing:
		return "closing"
	default:
		return "closed"
	}
}

// HighlightOptions describes an overlay drawn over an element. A zero Color
// uses the configured default; a zero Duration keeps the overlay until the
// handle is closed.
type HighlightOptions struct {
	Color    color.RGBA
	Duration time.Duration
	Text     string
	Position platform.TextPosition
	Font     platform.FontStyle
}

// HighlightHandle owns one overlay. Close removes it and waits for the
// overlay goroutine to exit; an unreachable handle is closed by its
// finalizer.
type HighlightHandle struct {
	run *overlayRun
}

// overlayRun is the state shared with the overlay goroutine. It never
// points back at the handle.
type overlayRun struct {
	logger *zap.Logger
	stop   chan struct{}
	done   chan struct{}
	once   sync.Once

	mu    sync.Mutex
	state HighlightState
}

func (r *overlayRun) set(s HighlightState) {
	r.mu.Lock()
	from := r.state
	r.state = s
	r.mu.Unlock()
	r.logger.Debug("highlight transition", zap.Stringer("from", from), zap.Stringer("to", s))
}

func (r *overlayRun) close() {
	r.once.Do(func() { close(r.stop) })
	<-r.done
}

// Close removes the overlay. It is safe to call more than once.
func (h *HighlightHandle) Close() error {
	h.run.close()
	return nil
}

// State reports where the overlay is in its lifecycle.
func (h *HighlightHandle) State() HighlightState {
	h.run.mu.Lock()
	defer h.run.mu.Unlock()
	return h.run.state
}

// Done is closed once the overlay has been removed, by Close or by its
// duration running out.
func (h *HighlightHandle) Done() <-chan struct{} { return h.run.done }

// Highlight draws an overlay over the element's bounds and returns once it
// is visible.
func (el *Element) Highlight(ctx context.Context, opts HighlightOptions) (*HighlightHandle, error) {
	start := time.Now()
	h, err := el.highlight(ctx, opts)
	el.engine.observeAction("highlight", start, err)
	return h, err
}

func (el *Element) highlight(ctx context.Context, opts HighlightOptions) (*HighlightHandle, error) {
	e := el.engine
	hl := e.provider.Highlighter
	if hl == nil {
		return nil, platform.Unsupported("highlight overlays")
	}
	p, err := el.checkDetached(ctx)
	if err != nil {
		return nil, err
	}
	if p.Bounds.Empty() {
		return nil, platform.Errorf(platform.CodeElementNotVisible, "%s has no area to highlight", describe(p))
	}
	if opts.Color == (color.RGBA{}) {
		if opts.Color, err = ParseColor(e.cfg.Actions.HighlightColor); err != nil {
			return nil, err
		}
	}
	if opts.Position == "" {
		opts.Position = platform.TextTop
	}

	run := &overlayRun{
		logger: e.logger.With(zap.String("overlay", el.Key())),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	ready := make(chan error, 1)
	go func() {
		defer close(run.done)
		var ov platform.Overlay
		err := e.run(context.Background(), func() error {
			var rerr error
			ov, rerr = hl.Highlight(platform.HighlightOptions{
				Bounds:   p.Bounds,
				Color:    opts.Color,
				Text:     opts.Text,
				Position: opts.Position,
				Font:     opts.Font,
			})
			return rerr
		})
		if err != nil {
			run.set(HighlightClosed)
			ready <- err
			return
		}
		run.set(HighlightVisible)
		ready <- nil

		var timer <-chan time.Time
		if opts.Duration > 0 {
			t := time.NewTimer(opts.Duration)
			defer t.Stop()
			timer = t.C
		}
		select {
		case <-timer:
		case <-run.stop:
		}
		run.set(HighlightClosing)
		if err := e.run(context.Background(), ov.Close); err != nil {
			run.logger.Warn("failed to remove overlay", zap.Error(err))
		}
		run.set(HighlightClosed)
	}()

	select {
	case err := <-ready:
		if err != nil {
			<-run.done
			return nil, err
		}
	case <-ctx.Done():
		run.close()
		return nil, platform.NewError(platform.CodeTimeout, "highlight cancelled").WithCause(ctx.Err())
	}

	h := &HighlightHandle{run: run}
	runtime.SetFinalizer(h, func(h *HighlightHandle) { go h.run.close() })
	return h, nil
}

// ParseColor parses #RRGGBB or #RRGGBBAA.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	c := color.RGBA{A: 0xff}
	var err error
	switch len(s) {
	case 6:
		_, err = fmt.Sscanf(s, "%02x%02x%02x", &c.R, &c.G, &c.B)
	case 8:
		_, err = fmt.Sscanf(s, "%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	default:
		err = fmt.Errorf("want 6 or 8 hex digits")
	}
	if err != nil {
		return color.RGBA{}, platform.Errorf(platform.CodeInvalidArgument, "invalid colour %q", s).WithCause(err)
	}
	return c, nil
}
