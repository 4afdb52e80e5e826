package engine

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/keys"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// defaultScrollAmount is the number of wheel notches Scroll sends when the
// caller gives none.
const defaultScrollAmount = 3

// finish is the common tail of every action: caches are dropped, the event
// is recorded and the outcome reaches metrics.
func (el *Element) finish(action string, start time.Time, pt *Point, validated bool, err error) {
	e := el.engine
	e.invalidate()
	e.record(Event{Action: action, Element: el.Key(), Point: pt, Validated: validated, Error: errString(err)})
	e.observeAction(action, start, err)
}

// pointer runs every gate, hovering first, and delivers fn at the centre of
// the settled bounds.
func (el *Element) pointer(ctx context.Context, action string, fn func(in platform.Inputter, x, y int) error) (ActionResult, error) {
	start := time.Now()
	res, err := el.pointerAt(ctx, fn)
	var pt *Point
	if err == nil {
		pt = &res.Point
	}
	el.finish(action, start, pt, res.Validated, err)
	return res, err
}

func (el *Element) pointerAt(ctx context.Context, fn func(in platform.Inputter, x, y int) error) (ActionResult, error) {
	e := el.engine
	in, err := e.inputter()
	if err != nil {
		return ActionResult{}, err
	}
	p, err := el.actionable(ctx, allGates, true)
	if err != nil {
		return ActionResult{}, err
	}
	x, y := p.Bounds.Center()
	if err := e.pace(ctx, 1); err != nil {
		return ActionResult{}, err
	}
	if err := e.run(ctx, func() error { return fn(in, x, y) }); err != nil {
		return ActionResult{}, err
	}
	return ActionResult{Validated: true, Point: Point{X: x, Y: y}}, nil
}

// Click left-clicks the centre of the element after every gate passed.
func (el *Element) Click(ctx context.Context) (ActionResult, error) {
	return el.pointer(ctx, "click", func(in platform.Inputter, x, y int) error {
		return in.Click(x, y, platform.MouseLeft, 1)
	})
}

// DoubleClick double-clicks the centre of the element.
func (el *Element) DoubleClick(ctx context.Context) (ActionResult, error) {
	return el.pointer(ctx, "double_click", func(in platform.Inputter, x, y int) error {
		return in.Click(x, y, platform.MouseLeft, 2)
	})
}

// RightClick right-clicks the centre of the element.
func (el *Element) RightClick(ctx context.Context) (ActionResult, error) {
	return el.pointer(ctx, "right_click", func(in platform.Inputter, x, y int) error {
		return in.Click(x, y, platform.MouseRight, 1)
	})
}

// Hover moves the pointer over the element. Disabled elements can be
// hovered.
func (el *Element) Hover(ctx context.Context) (ActionResult, error) {
	start := time.Now()
	e := el.engine
	res, err := func() (ActionResult, error) {
		in, err := e.inputter()
		if err != nil {
			return ActionResult{}, err
		}
		p, err := el.actionable(ctx, allGates&^gateEnabled, true)
		if err != nil {
			return ActionResult{}, err
		}
		x, y := p.Bounds.Center()
		if err := e.pace(ctx, 1); err != nil {
			return ActionResult{}, err
		}
		if err := e.run(ctx, func() error { return in.MoveMouse(x, y) }); err != nil {
			return ActionResult{}, err
		}
		return ActionResult{Validated: true, Point: Point{X: x, Y: y}}, nil
	}()
	var pt *Point
	if err == nil {
		pt = &res.Point
	}
	el.finish("hover", start, pt, res.Validated, err)
	return res, err
}

// Invoke fires the element's default accessibility action. Only the
// detached check runs, so it works on elements that are scrolled away or
// still moving.
func (el *Element) Invoke(ctx context.Context) (ActionResult, error) {
	start := time.Now()
	err := el.invoke(ctx)
	el.finish("invoke", start, nil, false, err)
	return ActionResult{}, err
}

func (el *Element) invoke(ctx context.Context) error {
	e := el.engine
	if _, err := el.checkDetached(ctx); err != nil {
		return err
	}
	ap := e.provider.ActionPerformer
	if ap == nil {
		return platform.Unsupported("accessibility actions")
	}
	return e.run(ctx, func() error { return ap.PerformAction(el.node, platform.ActionInvoke) })
}

// Focus gives the element keyboard focus.
func (el *Element) Focus(ctx context.Context) error {
	start := time.Now()
	err := el.focus(ctx)
	el.finish("focus", start, nil, false, err)
	return err
}

func (el *Element) focus(ctx context.Context) error {
	e := el.engine
	p, err := el.actionable(ctx, gateEnabled, false)
	if err != nil {
		return err
	}
	if p.Focused {
		return nil
	}
	if p.Focusable && e.provider.ActionPerformer != nil {
		ap := e.provider.ActionPerformer
		err := e.run(ctx, func() error { return ap.PerformAction(el.node, platform.ActionFocus) })
		if !platform.Is(err, platform.CodeUnsupportedOperation) {
			return err
		}
	}
	// Windows and other non-focusable containers are brought forward instead.
	if p.PID > 0 && e.provider.WindowManager != nil {
		wm := e.provider.WindowManager
		return e.run(ctx, func() error { return wm.Activate(p.PID) })
	}
	return platform.Errorf(platform.CodeUnsupportedOperation, "%s cannot take keyboard focus", describe(p))
}

// selectAllChord is the select-all shortcut of the backend's OS.
func (e *Engine) selectAllChord() []string {
	if e.provider.Name == "darwin" {
		return []string{"cmd", "a"}
	}
	return []string{"ctrl", "a"}
}

// TypeText focuses the element and types s. With clear set the existing
// content is selected and deleted first.
func (el *Element) TypeText(ctx context.Context, s string, clear bool) error {
	start := time.Now()
	e := el.engine
	err := func() error {
		in, err := e.inputter()
		if err != nil {
			return err
		}
		if err := el.focus(ctx); err != nil {
			return err
		}
		if clear {
			if err := e.pace(ctx, 2); err != nil {
				return err
			}
			if err := e.run(ctx, func() error {
				if err := in.KeyCombo(e.selectAllChord()); err != nil {
					return err
				}
				return in.KeyCombo([]string{"backspace"})
			}); err != nil {
				return err
			}
		}
		if s == "" {
			return nil
		}
		if err := e.pace(ctx, len(s)); err != nil {
			return err
		}
		return e.run(ctx, func() error { return in.TypeText(s, e.cfg.Actions.TypeDelayMs) })
	}()
	el.finish("type_text", start, nil, false, err)
	return err
}

// PressKey focuses the element and sends a key-literal pattern such as
// "{Ctrl}{Shift}J" or "{Tab 3}".
func (el *Element) PressKey(ctx context.Context, pattern string) error {
	start := time.Now()
	err := el.pressKey(ctx, pattern)
	el.finish("press_key", start, nil, false, err)
	return err
}

func (el *Element) pressKey(ctx context.Context, pattern string) error {
	e := el.engine
	steps, err := keys.Parse(pattern)
	if err != nil {
		return err
	}
	in, err := e.inputter()
	if err != nil {
		return err
	}
	if err := el.focus(ctx); err != nil {
		return err
	}
	for _, st := range steps {
		n := 1
		if st.Text != "" {
			n = len(st.Text)
		}
		if err := e.pace(ctx, n); err != nil {
			return err
		}
		st := st
		err := e.run(ctx, func() error {
			if st.Text != "" {
				return in.TypeText(st.Text, e.cfg.Actions.TypeDelayMs)
			}
			return in.KeyCombo(st.Combo)
		})
		if err != nil {
			return err
		}
	}
	e.logger.Debug("pressed keys", zap.String("pattern", pattern), zap.Int("steps", len(steps)))
	return nil
}

func (e *Engine) valueSetter() (platform.ValueSetter, error) {
	if e.provider.ValueSetter == nil {
		return nil, platform.Unsupported("pattern state writes")
	}
	return e.provider.ValueSetter, nil
}

// SetToggled drives a toggleable element to on. Nothing is sent when it is
// already in that state; an indeterminate element is neither on nor off.
func (el *Element) SetToggled(ctx context.Context, on bool) error {
	start := time.Now()
	e := el.engine
	err := func() error {
		p, err := el.actionable(ctx, gateEnabled, false)
		if err != nil {
			return err
		}
		if p.Toggled == nil {
			return platform.Unsupported("toggle state of " + describe(p))
		}
		want := platform.ToggleOff
		if on {
			want = platform.ToggleOn
		}
		if *p.Toggled == want {
			return nil
		}
		vs, err := e.valueSetter()
		if err == nil {
			err = e.run(ctx, func() error { return vs.SetToggled(el.node, on) })
		}
		if !platform.Is(err, platform.CodeUnsupportedOperation) {
			return err
		}
		// Tri-state controls may need a second press to leave indeterminate.
		for i := 0; i < 2; i++ {
			if err := el.invoke(ctx); err != nil {
				return err
			}
			p, err := el.fresh(ctx)
			if err != nil {
				return err
			}
			if p.Toggled == nil || *p.Toggled == want {
				return nil
			}
		}
		return nil
	}()
	el.finish("set_toggled", start, nil, false, err)
	return err
}

// SetSelected selects or deselects the element. Nothing is sent when it is
// already in that state.
func (el *Element) SetSelected(ctx context.Context, selected bool) error {
	start := time.Now()
	e := el.engine
	err := func() error {
		p, err := el.actionable(ctx, gateEnabled, false)
		if err != nil {
			return err
		}
		if p.Selected == selected {
			return nil
		}
		vs, err := e.valueSetter()
		if err != nil {
			return err
		}
		return e.run(ctx, func() error { return vs.SetSelected(el.node, selected) })
	}()
	el.finish("set_selected", start, nil, false, err)
	return err
}

// SetRangeValue moves a slider or spinner to v, which must lie within the
// element's range. Nothing is sent when it already holds v.
func (el *Element) SetRangeValue(ctx context.Context, v float64) error {
	start := time.Now()
	e := el.engine
	err := func() error {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return platform.Errorf(platform.CodeInvalidArgument, "range value %v is not a number", v)
		}
		p, err := el.actionable(ctx, gateEnabled, false)
		if err != nil {
			return err
		}
		if p.Range == nil {
			return platform.Unsupported("range value of " + describe(p))
		}
		if v < p.Range.Min || v > p.Range.Max {
			return platform.Errorf(platform.CodeInvalidArgument, "%v is outside [%v, %v]", v, p.Range.Min, p.Range.Max)
		}
		if p.Range.Value == v {
			return nil
		}
		vs, err := e.valueSetter()
		if err != nil {
			return err
		}
		return e.run(ctx, func() error { return vs.SetRangeValue(el.node, v) })
	}()
	el.finish("set_range_value", start, nil, false, err)
	return err
}

// SetValue writes the text value directly through the value pattern.
func (el *Element) SetValue(ctx context.Context, s string) error {
	start := time.Now()
	e := el.engine
	err := func() error {
		p, err := el.actionable(ctx, gateEnabled, false)
		if err != nil {
			return err
		}
		if p.Value == s {
			return nil
		}
		vs, err := e.valueSetter()
		if err != nil {
			return err
		}
		return e.run(ctx, func() error { return vs.SetValue(el.node, s) })
	}()
	el.finish("set_value", start, nil, false, err)
	return err
}

// Scroll turns the wheel amount notches over the element. Zero means three.
func (el *Element) Scroll(ctx context.Context, dir platform.ScrollDirection, amount int) error {
	start := time.Now()
	e := el.engine
	if amount <= 0 {
		amount = defaultScrollAmount
	}
	var pt *Point
	err := func() error {
		var dx, dy int
		switch dir {
		case platform.ScrollUp:
			dy = -amount
		case platform.ScrollDown:
			dy = amount
		case platform.ScrollLeft:
			dx = -amount
		case platform.ScrollRight:
			dx = amount
		default:
			return platform.Errorf(platform.CodeInvalidArgument, "unknown scroll direction %q", dir)
		}
		in, err := e.inputter()
		if err != nil {
			return err
		}
		p, err := el.actionable(ctx, gateVisible, false)
		if err != nil {
			return err
		}
		x, y := p.Bounds.Center()
		if err := e.pace(ctx, amount); err != nil {
			return err
		}
		if err := e.run(ctx, func() error { return in.Scroll(x, y, dx, dy) }); err != nil {
			return err
		}
		pt = &Point{X: x, Y: y}
		return nil
	}()
	el.finish("scroll", start, pt, false, err)
	return err
}

// ScrollIntoView scrolls until the element lies inside its window.
func (el *Element) ScrollIntoView(ctx context.Context) error {
	start := time.Now()
	_, err := el.actionable(ctx, gateViewport, false)
	el.finish("scroll_into_view", start, nil, false, err)
	return err
}

// Close closes the window owning the element.
func (el *Element) Close(ctx context.Context) error {
	start := time.Now()
	e := el.engine
	err := func() error {
		if _, err := el.checkDetached(ctx); err != nil {
			return err
		}
		ap := e.provider.ActionPerformer
		if ap == nil {
			return platform.Unsupported("closing windows")
		}
		return e.run(ctx, func() error { return ap.PerformAction(el.node, platform.ActionClose) })
	}()
	el.finish("close", start, nil, false, err)
	return err
}

// Capture grabs the pixels under the element's bounds.
func (el *Element) Capture(ctx context.Context) (*platform.Screenshot, error) {
	e := el.engine
	ss, err := e.screenshotter()
	if err != nil {
		return nil, err
	}
	p, err := el.checkDetached(ctx)
	if err != nil {
		return nil, err
	}
	if p.Bounds.Empty() {
		return nil, platform.Errorf(platform.CodeElementNotVisible, "%s has no area to capture", describe(p))
	}
	var shot *platform.Screenshot
	err = e.run(ctx, func() error {
		var rerr error
		shot, rerr = ss.Capture(p.Bounds)
		return rerr
	})
	return shot, err
}
