package darwin

import (
	"strings"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// axActions maps platform action names to AX actions.
var axActions = map[string]string{
	platform.ActionInvoke:   "AXPress",
	platform.ActionShowMenu: "AXShowMenu",
	"raise":                 "AXRaise",
	"increment":             "AXIncrement",
	"decrement":             "AXDecrement",
	"confirm":               "AXConfirm",
	"cancel":                "AXCancel",
	"pick":                  "AXPick",
}

// actionName converts an AX action into the name selectors and the action
// layer use: the aliases above, or the lowercased name without "AX".
func actionName(ax string) string {
	for name, a := range axActions {
		if a == ax {
			return name
		}
	}
	return strings.ToLower(strings.TrimPrefix(ax, "AX"))
}

// platformActions lists the actions of an element by platform name.
// Elements exposing a settable AXFocused also support focus.
func platformActions(raw []string, focusable bool) []string {
	out := make([]string, 0, len(raw)+1)
	seen := map[string]bool{}
	for _, r := range raw {
		n := actionName(r)
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	if focusable && !seen[platform.ActionFocus] {
		out = append(out, platform.ActionFocus)
	}
	return out
}

// axAction picks the AX action for name. An exact AX name in raw wins.
func axAction(raw []string, name string) (string, bool) {
	for _, r := range raw {
		if r == name {
			return r, true
		}
	}
	want, ok := axActions[name]
	if !ok && name != "" {
		want = "AX" + strings.ToUpper(name[:1]) + name[1:]
	}
	for _, r := range raw {
		if r == want {
			return r, true
		}
	}
	return "", false
}

// toggleState reads a check box or switch AXValue (0, 1 or 2 for mixed).
func toggleState(rawRole, subrole, value string) *platform.ToggleState {
	switch rawRole {
	case "AXCheckBox", "AXRadioButton", "AXSwitch":
	case "AXMenuItem":
		if value == "" {
			return nil
		}
	default:
		if subrole != "AXSwitch" && subrole != "AXToggle" {
			return nil
		}
	}
	t := platform.ToggleOff
	switch value {
	case "1", "true":
		t = platform.ToggleOn
	case "2":
		t = platform.ToggleIndeterminate
	}
	return &t
}
