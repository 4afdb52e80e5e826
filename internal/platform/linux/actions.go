package linux

import (
	"fmt"
	"strconv"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func (b *Backend) own(n platform.Node) (*accessible, error) {
	a, ok := n.(*accessible)
	if !ok || a == nil || a.b != b {
		return nil, platform.NewError(platform.CodeInvalidArgument, "node does not belong to the AT-SPI backend")
	}
	return a, nil
}

// refused reports a method that answered false.
func refused(op string, a *accessible) error {
	return platform.NewPlatformError(op, "the application refused the request for "+a.Key()).
		WithPlatformCode("E_REFUSED")
}

func (a *accessible) boolCall(method string, args ...any) (bool, error) {
	var ok bool
	err := a.call(method, []any{&ok}, args...)
	return ok, err
}

// PerformAction implements platform.ActionPerformer.
func (b *Backend) PerformAction(n platform.Node, action string) error {
	a, err := b.own(n)
	if err != nil {
		return err
	}
	var ok bool
	switch action {
	case platform.ActionFocus:
		ok, err = a.boolCall(ifComponent + ".GrabFocus")
	case platform.ActionScrollIntoView:
		ok, err = a.boolCall(ifComponent+".ScrollTo", scrollAnywhere)
	default:
		return a.doAction(action)
	}
	if err != nil {
		return err
	}
	if !ok {
		return refused(action, a)
	}
	return nil
}

func (a *accessible) doAction(action string) error {
	raw, err := a.rawActions()
	if err != nil {
		return err
	}
	i := actionIndex(raw, action)
	if i < 0 {
		return platform.Unsupported(fmt.Sprintf("action %q on %s (available: %v)", action, a.Key(), raw))
	}
	if st, err := a.state(); err == nil && !st.has(stateSensitive) && !st.has(stateEnabled) {
		return platform.NewPlatformError(action, "element is disabled").WithPlatformCode("E_DISABLED")
	}
	ok, err := a.boolCall(ifAction+".DoAction", int32(i))
	if err != nil {
		return err
	}
	if !ok {
		return refused(action, a)
	}
	return nil
}

// SetValue implements platform.ValueSetter. Editable text is replaced; value
// widgets take a number.
func (b *Backend) SetValue(n platform.Node, value string) error {
	a, err := b.own(n)
	if err != nil {
		return err
	}
	ifaces := a.interfaces()
	switch {
	case ifaces[ifEditable]:
		ok, err := a.boolCall(ifEditable+".SetTextContents", value)
		if err != nil {
			return err
		}
		if !ok {
			return refused("set_value", a)
		}
		return nil
	case ifaces[ifValue]:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return platform.Errorf(platform.CodeInvalidArgument, "%s takes a number, got %q", a.Key(), value)
		}
		return setProperty(b.bus, a.ref, ifValue+".CurrentValue", v)
	}
	return platform.Unsupported("set_value on " + a.Key())
}

// SetToggled implements platform.ValueSetter by firing the toggle action
// when the state differs.
func (b *Backend) SetToggled(n platform.Node, on bool) error {
	a, err := b.own(n)
	if err != nil {
		return err
	}
	st, err := a.state()
	if err != nil {
		return err
	}
	var role string
	if err := a.call(ifAccessible+".GetRoleName", []any{&role}); err != nil {
		return err
	}
	t := st.toggle(role)
	if t == nil {
		return platform.Unsupported("set_toggled on a " + role)
	}
	if (*t == platform.ToggleOn) == on {
		return nil
	}
	return a.doAction(platform.ActionInvoke)
}

// SetSelected implements platform.ValueSetter through the parent's
// Selection interface.
func (b *Backend) SetSelected(n platform.Node, selected bool) error {
	a, err := b.own(n)
	if err != nil {
		return err
	}
	st, err := a.state()
	if err != nil {
		return err
	}
	if st.has(stateSelected) == selected {
		return nil
	}
	pn, err := a.Parent()
	if err != nil {
		return err
	}
	parent, ok := pn.(*accessible)
	if !ok || !parent.interfaces()[ifSelection] {
		if selected {
			return a.doAction(platform.ActionInvoke)
		}
		return platform.Unsupported("deselect without a selection container")
	}
	var idx int32
	if err := a.call(ifAccessible+".GetIndexInParent", []any{&idx}); err != nil {
		return err
	}
	method := ifSelection + ".DeselectChild"
	if selected {
		method = ifSelection + ".SelectChild"
	}
	done, err := parent.boolCall(method, idx)
	if err != nil {
		return err
	}
	if !done {
		return refused("set_selected", a)
	}
	return nil
}

// SetRangeValue implements platform.ValueSetter.
func (b *Backend) SetRangeValue(n platform.Node, value float64) error {
	a, err := b.own(n)
	if err != nil {
		return err
	}
	if !a.interfaces()[ifValue] {
		return platform.Unsupported("set_range_value on " + a.Key())
	}
	return setProperty(b.bus, a.ref, ifValue+".CurrentValue", value)
}

var (
	_ platform.ActionPerformer = (*Backend)(nil)
	_ platform.ValueSetter     = (*Backend)(nil)
)
