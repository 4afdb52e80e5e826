package virtual

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// Click implements platform.Inputter. A left click focuses the deepest
// focusable node under the pointer, flips check boxes and fires the nearest
// click hook.
func (d *Desktop) Click(x, y int, button platform.MouseButton, count int) error {
	if count < 1 {
		count = 1
	}
	d.mu.Lock()
	d.pointer = [2]int{x, y}
	target := d.hitLocked(x, y)
	e := Event{Kind: "click", X: x, Y: y, Button: button, Count: count}
	var hookNode *Node
	var hook Hook
	if target != nil {
		e.Target = target.key
		if button == platform.MouseLeft {
			for c := target; c != nil; c = c.parent {
				if c.props.Focusable && c.props.Enabled {
					d.focused = c
					break
				}
			}
			if target.props.Role == model.RoleCheckBox && target.props.Toggled != nil && target.props.Enabled {
				next := platform.ToggleOn
				if *target.props.Toggled == platform.ToggleOn {
					next = platform.ToggleOff
				}
				target.props.Toggled = &next
			}
			if target.props.Enabled {
				hookNode, hook = bubble(target, func(n *Node) Hook { return n.onClick })
			}
		}
	}
	d.record(e)
	d.mu.Unlock()

	d.logger.Debug("click", zap.Int("x", x), zap.Int("y", y), zap.String("target", e.Target))
	if hook != nil {
		hook(d, hookNode)
	}
	return nil
}

// MoveMouse implements platform.Inputter.
func (d *Desktop) MoveMouse(x, y int) error {
	d.mu.Lock()
	d.pointer = [2]int{x, y}
	target := d.hitLocked(x, y)
	e := Event{Kind: "move", X: x, Y: y}
	var hookNode *Node
	var hook Hook
	if target != nil {
		e.Target = target.key
		hookNode, hook = bubble(target, func(n *Node) Hook { return n.onHover })
	}
	d.record(e)
	d.mu.Unlock()

	if hook != nil {
		hook(d, hookNode)
	}
	return nil
}

// Scroll implements platform.Inputter.
func (d *Desktop) Scroll(x, y int, dx, dy int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Event{Kind: "scroll", X: x, Y: y, DX: dx, DY: dy})
	return nil
}

// TypeText implements platform.Inputter. Text lands in the focused node's
// value, replacing it when the whole value is selected.
func (d *Desktop) TypeText(text string, delayMs int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	e := Event{Kind: "type", Text: text}
	if f := d.focused; f != nil && !f.detached {
		e.Target = f.key
		if f.allSelected {
			f.props.Value = ""
			f.allSelected = false
		}
		f.props.Value += text
	}
	d.record(e)
	return nil
}

// KeyCombo implements platform.Inputter. It understands the editing and
// zoom chords the engine sends; everything else is only recorded.
func (d *Desktop) KeyCombo(keys []string) error {
	if len(keys) == 0 {
		return platform.NewError(platform.CodeInvalidArgument, "empty key combination")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e := Event{Kind: "keys", Keys: append([]string(nil), keys...)}
	chord := strings.ToLower(strings.Join(keys, "+"))
	f := d.focused
	if f != nil && f.detached {
		f = nil
	}
	if f != nil {
		e.Target = f.key
	}
	switch chord {
	case "ctrl+a", "cmd+a":
		if f != nil {
			f.allSelected = true
		}
	case "backspace", "delete":
		if f != nil {
			if f.allSelected {
				f.props.Value = ""
				f.allSelected = false
			} else if chord == "backspace" && f.props.Value != "" {
				_, size := utf8.DecodeLastRuneInString(f.props.Value)
				f.props.Value = f.props.Value[:len(f.props.Value)-size]
			}
		}
	case "ctrl++", "ctrl+=", "cmd++", "cmd+=":
		d.zoom++
	case "ctrl+-", "cmd+-":
		d.zoom--
	case "ctrl+0", "cmd+0":
		d.zoom = 0
	default:
		if f != nil {
			f.allSelected = false
		}
		if f != nil && len(keys) == 1 && utf8.RuneCountInString(keys[0]) == 1 {
			f.props.Value += keys[0]
		}
	}
	d.record(e)
	return nil
}

// Activate implements platform.WindowManager.
func (d *Desktop) Activate(pid int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var front, rest []*Node
	for _, w := range d.zorder {
		if w.props.PID == pid {
			front = append(front, w)
		} else {
			rest = append(rest, w)
		}
	}
	if len(front) == 0 {
		return platform.NewPlatformError("activate", "no window for pid").WithPlatformCode("ESRCH")
	}
	d.zorder = append(front, rest...)
	d.focused = front[0]
	return nil
}

// GetFrontmostApp implements platform.WindowManager.
func (d *Desktop) GetFrontmostApp() (string, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.zorder) == 0 {
		return "", 0, nil
	}
	w := d.zorder[0]
	return w.parent.props.Name, w.props.PID, nil
}

// Launch implements platform.WindowManager.
func (d *Desktop) Launch(target string) (int, error) {
	if strings.TrimSpace(target) == "" {
		return 0, platform.NewError(platform.CodeInvalidArgument, "empty launch target")
	}
	if d.LaunchFunc != nil {
		return d.LaunchFunc(d, target)
	}
	app := d.AddApp(target, 0)
	app.AddWindow(target, platform.Bounds{X: 100, Y: 100, Width: 800, Height: 600})
	d.mu.Lock()
	d.record(Event{Kind: "launch", Text: target})
	d.mu.Unlock()
	return app.props.PID, nil
}

// OpenURL implements platform.WindowManager. Each browser is one
// application; every URL opens one window titled with the URL.
func (d *Desktop) OpenURL(url string, browser platform.Browser) (int, error) {
	if url == "" {
		return 0, platform.NewError(platform.CodeInvalidArgument, "empty url")
	}
	name := "Browser"
	if browser != platform.BrowserDefault {
		name = string(browser)
	}
	d.mu.Lock()
	var app *Node
	for _, c := range d.root.children {
		if c.props.Role == model.RoleApplication && c.props.Name == name {
			app = c
			break
		}
	}
	if app == nil {
		app = d.addAppLocked(name, 0)
	}
	d.record(Event{Kind: "open_url", Text: url})
	d.mu.Unlock()

	w := app.AddWindow(url, platform.Bounds{X: 50, Y: 50, Width: 1200, Height: 800})
	w.Add(Spec{Role: model.RoleDocument, Name: url, Bounds: platform.Bounds{X: 50, Y: 130, Width: 1200, Height: 720}})
	return app.props.PID, nil
}

// OpenFile implements platform.WindowManager.
func (d *Desktop) OpenFile(path string) error {
	if path == "" {
		return platform.NewError(platform.CodeInvalidArgument, "empty path")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record(Event{Kind: "open_file", Text: path})
	return nil
}
