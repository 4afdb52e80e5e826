package model

import "testing"

func TestNormalizeRole(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"AXButton", RoleButton},
		{"AXStaticText", RoleText},
		{"AXTextField", RoleEdit},
		{"AXWebArea", RoleDocument},
		{"push button", RoleButton},
		{"Push Button", RoleButton},
		{"document web", RoleDocument},
		{"frame", RoleWindow},
		{"text", RoleEdit},
		{"Text", RoleText},
		{"button", RoleButton},
		{"Edit", RoleEdit},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeRole(tt.input); got != tt.want {
				t.Errorf("NormalizeRole(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeRole_UnknownPassesThrough(t *testing.T) {
	for _, role := range []string{"AXFancyWidget", "ControlTypeWeird", ""} {
		if got := NormalizeRole(role); got != role {
			t.Errorf("NormalizeRole(%q) = %q, want verbatim", role, got)
		}
	}
}

func TestRoleMatches(t *testing.T) {
	tests := []struct {
		want, role, raw string
		match           bool
	}{
		{"Button", RoleButton, "push button", true},
		{"button", RoleButton, "push button", true},
		{"push button", RoleButton, "push button", true},
		{"AXButton", RoleButton, "AXButton", true},
		{"Text", RoleEdit, "text", true},
		{"Text", RoleText, "label", true},
		{"Edit", RoleText, "label", false},
		{"textfield", RoleEdit, "entry", true},
		{"Window", RoleButton, "push button", false},
		{"", RoleButton, "push button", true},
	}
	for _, tt := range tests {
		if got := RoleMatches(tt.want, tt.role, tt.raw); got != tt.match {
			t.Errorf("RoleMatches(%q, %q, %q) = %v, want %v", tt.want, tt.role, tt.raw, got, tt.match)
		}
	}
}

func TestIsInteractive(t *testing.T) {
	if !IsInteractive(RoleButton) || !IsInteractive(RoleEdit) {
		t.Error("buttons and edits are interactive")
	}
	if IsInteractive(RoleText) || IsInteractive(RoleGroup) {
		t.Error("text and groups are not interactive")
	}
}
