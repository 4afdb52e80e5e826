package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// gates selects the actionability checks an action runs. The detached
// check always runs.
type gates uint8

const (
	gateVisible gates = 1 << iota
	gateViewport
	gateEnabled
	gateStable
	gateObscured

	allGates = gateVisible | gateViewport | gateEnabled | gateStable | gateObscured
)

// actionable runs the selected gates in order and returns a fresh read of
// the element. When hover is set the pointer is moved onto the element
// before the stability sample, so layout shifts triggered by hovering
// settle before the action point is chosen.
func (el *Element) actionable(ctx context.Context, g gates, hover bool) (platform.Properties, error) {
	e := el.engine
	p, err := el.checkDetached(ctx)
	if err != nil {
		return p, err
	}

	if g&gateVisible != 0 {
		if err := el.checkVisible(ctx, p); err != nil {
			return p, err
		}
	}
	if g&gateViewport != 0 {
		if p, err = el.checkViewport(ctx, p); err != nil {
			return p, err
		}
		if g&gateVisible != 0 {
			if err := el.checkVisible(ctx, p); err != nil {
				return p, err
			}
		}
	}
	if g&gateEnabled != 0 && !p.Enabled {
		return p, e.gateFailed("enabled", platform.Errorf(platform.CodeElementNotEnabled, "%s is disabled", describe(p)))
	}
	if hover {
		if err := el.moveTo(ctx, p.Bounds); err != nil {
			return p, err
		}
	}
	if g&gateStable != 0 {
		if p, err = el.checkStable(ctx, p); err != nil {
			return p, err
		}
	}
	if g&gateObscured != 0 {
		if err := el.checkObscured(ctx, p); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (e *Engine) gateFailed(gate string, err *platform.Error) error {
	e.metrics.RecordGateFailure(gate)
	e.logger.Debug("actionability gate failed", zap.String("gate", gate), zap.Error(err))
	return err
}

func (el *Element) checkDetached(ctx context.Context) (platform.Properties, error) {
	if !el.node.Alive() {
		return platform.Properties{}, el.engine.gateFailed("detached",
			platform.Errorf(platform.CodeElementDetached, "element %s no longer exists", el.node.Key()))
	}
	p, err := el.fresh(ctx)
	if platform.Is(err, platform.CodeElementDetached) {
		el.engine.metrics.RecordGateFailure("detached")
	}
	return p, err
}

// checkVisible requires a non-empty rectangle, the visible flag and, for
// elements inside their viewport, a centre on some monitor.
func (el *Element) checkVisible(ctx context.Context, p platform.Properties) error {
	e := el.engine
	if p.Bounds.Empty() || !p.Visible {
		return e.gateFailed("visible", platform.Errorf(platform.CodeElementNotVisible, "%s is not visible", describe(p)))
	}
	if p.Offscreen {
		return nil
	}
	mons, err := e.monitors(ctx)
	if err != nil {
		if platform.Is(err, platform.CodeUnsupportedOperation) {
			return nil
		}
		return err
	}
	cx, cy := p.Bounds.Center()
	for _, m := range mons {
		if m.ContainsPoint(cx, cy) {
			return nil
		}
	}
	return e.gateFailed("visible", platform.Errorf(platform.CodeElementNotVisible,
		"%s is centred at (%d,%d), outside every monitor", describe(p), cx, cy))
}

// inViewport reports whether the element is on screen inside its window.
// Only a cancelled or expired ctx is an error; a window that cannot be read
// counts as in view.
func (el *Element) inViewport(ctx context.Context, p platform.Properties) (bool, error) {
	if p.Offscreen {
		return false, nil
	}
	win, err := el.window(ctx)
	if err != nil {
		return true, contextError(ctx, err)
	}
	if win.Equal(el) {
		return true, nil
	}
	wp, err := win.fresh(ctx)
	if err != nil {
		return true, contextError(ctx, err)
	}
	if wp.Bounds.Empty() {
		return true, nil
	}
	return wp.Bounds.Contains(p.Bounds.Center()), nil
}

func contextError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return err
	}
	return nil
}

// checkViewport scrolls the element into view when it lies outside its
// window, settling between attempts.
func (el *Element) checkViewport(ctx context.Context, p platform.Properties) (platform.Properties, error) {
	e := el.engine
	in, err := el.inViewport(ctx, p)
	if err != nil {
		return p, err
	}
	if in {
		return p, nil
	}
	ac := e.cfg.Actions
	var lastErr error
	for attempt := 1; attempt <= ac.ScrollAttempts; attempt++ {
		lastErr = el.scrollStep(ctx)
		if err := sleep(ctx, ac.ScrollSettle); err != nil {
			return p, err
		}
		np, err := el.fresh(ctx)
		if err != nil {
			return p, err
		}
		p = np
		in, err := el.inViewport(ctx, p)
		if err != nil {
			return p, err
		}
		if in {
			e.logger.Debug("scrolled into view", zap.String("element", describe(p)), zap.Int("attempt", attempt))
			return p, nil
		}
	}
	perr := platform.Errorf(platform.CodeScrollFailed, "%s is still outside its viewport after %d scroll attempts", describe(p), ac.ScrollAttempts)
	if lastErr != nil {
		perr = perr.WithCause(lastErr)
	}
	return p, e.gateFailed("viewport", perr)
}

// scrollStep asks the platform to scroll the element into view, optionally
// falling back to PageDown.
func (el *Element) scrollStep(ctx context.Context) error {
	e := el.engine
	var err error
	if ap := e.provider.ActionPerformer; ap != nil {
		err = e.run(ctx, func() error { return ap.PerformAction(el.node, platform.ActionScrollIntoView) })
	} else {
		err = platform.Unsupported("scroll into view")
	}
	if err == nil || !e.cfg.Actions.PageDownFallback {
		return err
	}
	in, ierr := e.inputter()
	if ierr != nil {
		return err
	}
	if perr := e.pace(ctx, 1); perr != nil {
		return perr
	}
	return e.run(ctx, func() error { return in.KeyCombo([]string{"pagedown"}) })
}

// checkStable samples the bounds StabilityGap apart until two samples agree
// or StabilityBudget runs out.
func (el *Element) checkStable(ctx context.Context, p platform.Properties) (platform.Properties, error) {
	e := el.engine
	ac := e.cfg.Actions
	deadline := time.Now().Add(ac.StabilityBudget)
	prev := p
	for {
		if err := sleep(ctx, ac.StabilityGap); err != nil {
			return prev, err
		}
		cur, err := el.fresh(ctx)
		if err != nil {
			return prev, err
		}
		if cur.Bounds == prev.Bounds {
			return cur, nil
		}
		e.logger.Debug("bounds moved",
			zap.String("element", describe(cur)),
			zap.Any("from", prev.Bounds),
			zap.Any("to", cur.Bounds))
		prev = cur
		if time.Now().After(deadline) {
			return cur, e.gateFailed("stable", platform.Errorf(platform.CodeElementNotStable,
				"%s kept moving for %s", describe(cur), ac.StabilityBudget))
		}
	}
}

// checkObscured hit-tests the action point. The element itself, one of its
// descendants or one of its ancestors may answer; anything else obscures
// it. Backends without hit testing skip the check.
func (el *Element) checkObscured(ctx context.Context, p platform.Properties) error {
	e := el.engine
	rd, err := e.reader()
	if err != nil {
		return nil
	}
	x, y := p.Bounds.Center()
	var hit platform.Node
	err = e.run(ctx, func() error {
		var rerr error
		hit, rerr = rd.NodeAt(x, y)
		return rerr
	})
	if platform.Is(err, platform.CodeUnsupportedOperation) {
		return nil
	}
	if err != nil {
		return err
	}
	if hit == nil || hit.Key() == el.node.Key() {
		return nil
	}
	self, err := e.ancestry(ctx, el.node)
	if err != nil {
		return err
	}
	other, err := e.ancestry(ctx, hit)
	if err != nil {
		if platform.Is(err, platform.CodeElementDetached) {
			return nil
		}
		return err
	}
	if n := commonPrefixLen(self, other); n == len(self) || n == len(other) {
		return nil
	}
	hp, _ := e.props(ctx, hit, true)
	return e.gateFailed("obscured", platform.Errorf(platform.CodeElementObscured,
		"%s is covered by %s at (%d,%d)", describe(p), describe(hp), x, y))
}

// moveTo puts the pointer at the centre of b.
func (el *Element) moveTo(ctx context.Context, b platform.Bounds) error {
	in, err := el.engine.inputter()
	if err != nil {
		return err
	}
	if err := el.engine.pace(ctx, 1); err != nil {
		return err
	}
	x, y := b.Center()
	return el.engine.run(ctx, func() error { return in.MoveMouse(x, y) })
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return platform.NewError(platform.CodeTimeout, "interrupted while waiting").WithCause(ctx.Err())
	case <-t.C:
		return nil
	}
}
