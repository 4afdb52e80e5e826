//go:build darwin && cgo

package darwin

import (
	"fmt"
	"strconv"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func (b *Backend) own(n platform.Node) (*element, error) {
	e, ok := n.(*element)
	if !ok || e == nil || e.b != b {
		return nil, platform.NewError(platform.CodeInvalidArgument, "node does not belong to the macOS backend")
	}
	return e, nil
}

// PerformAction implements platform.ActionPerformer.
func (b *Backend) PerformAction(n platform.Node, action string) error {
	e, err := b.own(n)
	if err != nil {
		return err
	}
	switch action {
	case platform.ActionFocus:
		if role, _ := e.text(attrRole); role == "AXWindow" {
			if err := e.perform("AXRaise"); err != nil {
				return err
			}
			return b.Activate(e.pid())
		}
		return e.setBool(attrFocused, true)
	case platform.ActionScrollIntoView:
		return e.perform("AXScrollToVisible")
	case platform.ActionExpand, platform.ActionCollapse:
		want := action == platform.ActionExpand
		if e.settable(attrExpanded) {
			return e.setBool(attrExpanded, want)
		}
		if e.flag(attrExpanded, !want) == want {
			return nil
		}
		return e.press(action)
	case platform.ActionClose:
		return e.closeWindow()
	}
	return e.press(action)
}

// press fires the AX action behind a platform action name.
func (e *element) press(action string) error {
	raw, err := e.actionNames()
	if err != nil {
		return err
	}
	ax, ok := axAction(raw, action)
	if !ok {
		return platform.Unsupported(fmt.Sprintf("action %q on %s (available: %v)", action, e.Key(), raw))
	}
	if !e.flag(attrEnabled, true) {
		return platform.NewPlatformError(action, "element is disabled").WithPlatformCode("E_DISABLED")
	}
	return e.perform(ax)
}

// closeWindow presses the close button of the window containing e.
func (e *element) closeWindow() error {
	w := e
	for i := 0; i < 64; i++ {
		role, err := w.text(attrRole)
		if err != nil {
			return err
		}
		if role == "AXWindow" {
			btn, err := w.elementAttr("AXCloseButton")
			if err != nil {
				return err
			}
			if btn == nil {
				return platform.Unsupported("close on a window without a close button")
			}
			return btn.perform("AXPress")
		}
		p, err := w.elementAttr(attrParent)
		if err != nil {
			return err
		}
		if p == nil {
			break
		}
		w = p
	}
	return platform.Unsupported("close outside a window")
}

// SetValue implements platform.ValueSetter.
func (b *Backend) SetValue(n platform.Node, value string) error {
	e, err := b.own(n)
	if err != nil {
		return err
	}
	if !e.settable(attrValue) {
		return platform.Unsupported("set_value on " + e.Key())
	}
	if role, _ := e.text(attrRole); rangeRoles[role] {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return platform.Errorf(platform.CodeInvalidArgument, "%s takes a number, got %q", e.Key(), value)
		}
		return e.setNumber(attrValue, v)
	}
	return e.setString(attrValue, value)
}

// SetToggled implements platform.ValueSetter by pressing the control when
// its state differs.
func (b *Backend) SetToggled(n platform.Node, on bool) error {
	e, err := b.own(n)
	if err != nil {
		return err
	}
	role, err := e.text(attrRole)
	if err != nil {
		return err
	}
	subrole, _ := e.text(attrSubrole)
	value, _ := e.text(attrValue)
	t := toggleState(role, subrole, value)
	if t == nil {
		return platform.Unsupported("set_toggled on a " + role)
	}
	if (*t == platform.ToggleOn) == on {
		return nil
	}
	return e.press(platform.ActionInvoke)
}

// SetSelected implements platform.ValueSetter through AXSelected, falling
// back to a press for rows and tabs that only select on click.
func (b *Backend) SetSelected(n platform.Node, selected bool) error {
	e, err := b.own(n)
	if err != nil {
		return err
	}
	if e.flag(attrSelected, false) == selected {
		return nil
	}
	if e.settable(attrSelected) {
		return e.setBool(attrSelected, selected)
	}
	if selected {
		return e.press(platform.ActionInvoke)
	}
	return platform.Unsupported("deselect on " + e.Key())
}

// SetRangeValue implements platform.ValueSetter.
func (b *Backend) SetRangeValue(n platform.Node, value float64) error {
	e, err := b.own(n)
	if err != nil {
		return err
	}
	if !e.settable(attrValue) {
		return platform.Unsupported("set_range_value on " + e.Key())
	}
	return e.setNumber(attrValue, value)
}

var (
	_ platform.ActionPerformer = (*Backend)(nil)
	_ platform.ValueSetter     = (*Backend)(nil)
)
