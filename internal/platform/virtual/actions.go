package virtual

import (
	"image"
	"image/color"
	"image/draw"
	"strconv"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// PerformAction implements platform.ActionPerformer.
func (d *Desktop) PerformAction(pn platform.Node, action string) error {
	d.mu.Lock()
	n, err := d.own(pn)
	if err != nil {
		d.mu.Unlock()
		return err
	}
	var hook Hook
	switch action {
	case platform.ActionInvoke:
		if !n.props.Enabled {
			d.mu.Unlock()
			return platform.NewPlatformError("invoke", "element is disabled").WithPlatformCode("E_DISABLED")
		}
		if n.props.Role == model.RoleCheckBox && n.props.Toggled != nil {
			next := platform.ToggleOn
			if *n.props.Toggled == platform.ToggleOn {
				next = platform.ToggleOff
			}
			n.props.Toggled = &next
		}
		hook = n.onInvoke
		if hook == nil {
			hook = n.onClick
		}
	case platform.ActionFocus:
		if !n.props.Focusable {
			d.mu.Unlock()
			return platform.NewPlatformError("focus", "element cannot take focus")
		}
		d.focused = n
	case platform.ActionScrollIntoView:
		if !n.unscrollable {
			if n.scrollTarget != nil {
				n.props.Bounds = *n.scrollTarget
			}
			n.props.Offscreen = false
		}
	case platform.ActionClose:
		w := n
		for w != nil && w.props.Role != model.RoleWindow {
			w = w.parent
		}
		if w == nil {
			d.mu.Unlock()
			return platform.Unsupported("close on a node outside a window")
		}
		d.detachLocked(w)
	case platform.ActionExpand, platform.ActionCollapse:
		if n.props.Attributes == nil {
			n.props.Attributes = map[string]string{}
		}
		n.props.Attributes["expanded"] = strconv.FormatBool(action == platform.ActionExpand)
	case platform.ActionShowMenu:
	default:
		d.mu.Unlock()
		return platform.Unsupported("action " + action)
	}
	d.record(Event{Kind: "action", Text: action, Target: n.key})
	d.mu.Unlock()

	if hook != nil {
		hook(d, n)
	}
	return nil
}

// SetValue implements platform.ValueSetter.
func (d *Desktop) SetValue(pn platform.Node, value string) error {
	return d.write(pn, func(n *Node) error {
		n.props.Value = value
		return nil
	})
}

// SetToggled implements platform.ValueSetter.
func (d *Desktop) SetToggled(pn platform.Node, on bool) error {
	return d.write(pn, func(n *Node) error {
		if n.props.Toggled == nil {
			return platform.Unsupported("toggle pattern on " + n.props.Role)
		}
		t := platform.ToggleOff
		if on {
			t = platform.ToggleOn
		}
		n.props.Toggled = &t
		return nil
	})
}

// SetSelected implements platform.ValueSetter.
func (d *Desktop) SetSelected(pn platform.Node, selected bool) error {
	return d.write(pn, func(n *Node) error {
		n.props.Selected = selected
		return nil
	})
}

// SetRangeValue implements platform.ValueSetter.
func (d *Desktop) SetRangeValue(pn platform.Node, value float64) error {
	return d.write(pn, func(n *Node) error {
		r := n.props.Range
		if r == nil {
			return platform.Unsupported("range pattern on " + n.props.Role)
		}
		if value < r.Min || value > r.Max {
			return platform.Errorf(platform.CodeInvalidArgument, "value %g outside [%g, %g]", value, r.Min, r.Max)
		}
		nr := *r
		nr.Value = value
		n.props.Range = &nr
		return nil
	})
}

func (d *Desktop) write(pn platform.Node, fn func(n *Node) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.own(pn)
	if err != nil {
		return err
	}
	if err := fn(n); err != nil {
		return err
	}
	d.writes[n.key]++
	return nil
}

// Monitors implements platform.Screenshotter.
func (d *Desktop) Monitors() ([]platform.Monitor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]platform.Monitor(nil), d.monitors...), nil
}

var (
	backdrop   = color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 0xff}
	windowFill = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}
)

// Capture implements platform.Screenshotter. Windows are painted back to
// front as flat rectangles over a dark backdrop.
func (d *Desktop) Capture(rect platform.Bounds) (*platform.Screenshot, error) {
	if rect.Empty() {
		return nil, platform.Errorf(platform.CodeInvalidArgument, "capture rectangle %dx%d has no area", rect.Width, rect.Height)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	img := image.NewRGBA(image.Rect(0, 0, rect.Width, rect.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: backdrop}, image.Point{}, draw.Src)
	for i := len(d.zorder) - 1; i >= 0; i-- {
		w := d.zorder[i]
		if !w.props.Visible || !w.props.Bounds.Intersects(rect) {
			continue
		}
		b := w.props.Bounds.Intersect(rect)
		r := image.Rect(b.X-rect.X, b.Y-rect.Y, b.X-rect.X+b.Width, b.Y-rect.Y+b.Height)
		draw.Draw(img, r, &image.Uniform{C: windowFill}, image.Point{}, draw.Src)
	}
	var mon *platform.Monitor
	cx, cy := rect.Center()
	for i := range d.monitors {
		if d.monitors[i].ContainsPoint(cx, cy) {
			m := d.monitors[i]
			mon = &m
			break
		}
	}
	return &platform.Screenshot{Width: rect.Width, Height: rect.Height, Pix: img.Pix, Monitor: mon}, nil
}

type overlay struct {
	d  *Desktop
	id int
}

// Close removes the overlay; repeated calls are no-ops.
func (o *overlay) Close() error {
	o.d.mu.Lock()
	defer o.d.mu.Unlock()
	delete(o.d.overlays, o.id)
	return nil
}

// Highlight implements platform.Highlighter.
func (d *Desktop) Highlight(opts platform.HighlightOptions) (platform.Overlay, error) {
	if opts.Bounds.Empty() {
		return nil, platform.NewError(platform.CodeInvalidArgument, "highlight rectangle has no area")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextOv++
	d.overlays[d.nextOv] = opts
	return &overlay{d: d, id: d.nextOv}, nil
}

// GetText implements platform.ClipboardManager.
func (d *Desktop) GetText() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clipboard, nil
}

// SetText implements platform.ClipboardManager.
func (d *Desktop) SetText(text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.clipboard = text
	return nil
}

// Clear implements platform.ClipboardManager.
func (d *Desktop) Clear() error { return d.SetText("") }

// Probe implements platform.Prober.
func (d *Desktop) Probe() platform.ProbeResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	count := 0
	var walk func(*Node)
	walk = func(n *Node) {
		count++
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(d.root)
	return platform.ProbeResult{
		APIAvailable: !d.apiDown,
		Diagnostics: map[string]string{
			"backend":  "virtual",
			"nodes":    strconv.Itoa(count),
			"windows":  strconv.Itoa(len(d.zorder)),
			"monitors": strconv.Itoa(len(d.monitors)),
			"pointer":  strconv.Itoa(d.pointer[0]) + "," + strconv.Itoa(d.pointer[1]),
		},
	}
}
