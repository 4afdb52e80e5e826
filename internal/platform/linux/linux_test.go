package linux

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/jezek/xgb/xproto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func TestStateSet(t *testing.T) {
	s := newStateSet([]uint32{1<<stateFocused | 1<<stateVisible | 1<<stateChecked, 1 << (stateCheckable - 32)})

	assert.True(t, s.has(stateFocused))
	assert.True(t, s.has(stateVisible))
	assert.True(t, s.has(stateCheckable))
	assert.False(t, s.has(stateShowing))
	assert.False(t, s.has(stateIndeterminate))

	tests := []struct {
		name  string
		words []uint32
		role  string
		want  *platform.ToggleState
	}{
		{"checked box", []uint32{1 << stateChecked}, "check box", toggle(platform.ToggleOn)},
		{"unchecked box", nil, "check box", toggle(platform.ToggleOff)},
		{"mixed box", []uint32{1 << stateChecked, 1 << (stateIndeterminate - 32)}, "check box", toggle(platform.ToggleIndeterminate)},
		{"pressed toggle button", []uint32{1 << statePressed}, "toggle button", toggle(platform.ToggleOn)},
		{"plain button", []uint32{1 << statePressed}, "push button", nil},
		{"checkable menu item", []uint32{0, 1 << (stateCheckable - 32)}, "menu item", toggle(platform.ToggleOff)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, newStateSet(tt.words).toggle(tt.role))
		})
	}
}

func toggle(t platform.ToggleState) *platform.ToggleState { return &t }

func TestActions(t *testing.T) {
	raw := []string{"press", "showMenu", "customize"}

	assert.Equal(t, []string{platform.ActionInvoke, platform.ActionShowMenu, "customize"}, platformActions(raw))
	assert.Equal(t, 0, actionIndex(raw, platform.ActionInvoke))
	assert.Equal(t, 1, actionIndex(raw, platform.ActionShowMenu))
	assert.Equal(t, 2, actionIndex(raw, "Customize"))
	assert.Equal(t, -1, actionIndex(raw, platform.ActionClose))

	// A raw name wins over an alias.
	assert.Equal(t, 1, actionIndex([]string{"click", "invoke"}, platform.ActionInvoke))
}

func TestMapDBusError(t *testing.T) {
	r := ref{Name: ":1.42", Path: "/org/a11y/atspi/accessible/7"}
	tests := []struct {
		err       error
		code      platform.ErrorCode
		retryable bool
	}{
		{dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownObject"}, platform.CodeElementDetached, false},
		{dbus.Error{Name: "org.freedesktop.DBus.Error.ServiceUnknown"}, platform.CodeElementDetached, false},
		{dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownMethod"}, platform.CodeUnsupportedOperation, false},
		{dbus.Error{Name: "org.freedesktop.DBus.Error.NoReply"}, platform.CodePlatformError, true},
		{dbus.Error{Name: "org.a11y.atspi.Error.Failed", Body: []any{"boom"}}, platform.CodePlatformError, false},
		{fmt.Errorf("call: %w", context.DeadlineExceeded), platform.CodePlatformError, true},
		{errors.New("broken pipe"), platform.CodePlatformError, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			err := mapDBusError("GetState", r, tt.err)
			assert.Equal(t, tt.code, platform.CodeOf(err))
			assert.Equal(t, tt.retryable, platform.IsRetryable(err))
			var perr *platform.Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.err, perr.Cause)
		})
	}
}

func TestRefNull(t *testing.T) {
	assert.True(t, ref{}.null())
	assert.True(t, ref{Name: ":1.5", Path: nullPath}.null())
	assert.False(t, ref{Name: ":1.5", Path: "/org/a11y/atspi/accessible/1"}.null())
}

func TestMatchWindows(t *testing.T) {
	frames := []frameInfo{
		{app: "editor", pid: 10, title: "Doc1"},
		{app: "editor", pid: 10, title: "Doc2"},
		{app: "term", pid: 20, title: "Term", active: true},
		{app: "orphan", pid: 30, title: "Orphan"},
	}
	titles := func(ws []platform.Window) []string {
		var out []string
		for i, w := range ws {
			assert.Equal(t, i, w.ZOrder)
			out = append(out, w.Title)
		}
		return out
	}

	t.Run("x11 stacking", func(t *testing.T) {
		xwins := []xWindow{
			{ID: 1, PID: 20, Title: "Term", Active: true},
			{ID: 2, PID: 10, Title: "Doc2"},
			{ID: 3, PID: 10, Title: "Renamed"},
			{ID: 4, PID: 0, Title: "desktop"},
		}
		ws := matchWindows(xwins, frames)
		assert.Equal(t, []string{"Term", "Doc2", "Doc1", "Orphan"}, titles(ws))
		assert.True(t, ws[0].Focused)
		assert.False(t, ws[3].Focused)
		assert.Equal(t, "editor", ws[1].App)
	})

	t.Run("accessibility order only", func(t *testing.T) {
		ws := matchWindows(nil, frames)
		assert.Equal(t, []string{"Term", "Doc1", "Doc2", "Orphan"}, titles(ws))
		assert.True(t, ws[0].Focused)
		assert.False(t, ws[1].Focused)
	})
}

func TestKeysyms(t *testing.T) {
	tests := []struct {
		r    rune
		want xproto.Keysym
	}{
		{'a', 0x61},
		{'Z', 0x5a},
		{'\n', 0xff0d},
		{'\t', 0xff09},
		{'é', 0xe9},
		{'€', 0x010020ac},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, runeKeysym(tt.r), string(tt.r))
	}

	sym, err := keyNameKeysym("ctrl")
	require.NoError(t, err)
	assert.Equal(t, xproto.Keysym(0xffe3), sym)
	sym, err = keyNameKeysym("F12")
	require.NoError(t, err)
	assert.Equal(t, xproto.Keysym(0xffc9), sym)
	sym, err = keyNameKeysym("A")
	require.NoError(t, err)
	assert.Equal(t, xproto.Keysym('a'), sym)
	_, err = keyNameKeysym("hyper")
	assert.Equal(t, platform.CodeInvalidArgument, platform.CodeOf(err))
}

func TestKeymap(t *testing.T) {
	km := newKeymap(8, 11, 2, []xproto.Keysym{
		0x61, 0x41, // a A
		0x31, 0x21, // 1 !
		0, 0,
		0xff0d, 0,
	})
	assert.Equal(t, xproto.Keycode(10), km.scratch)

	tests := []struct {
		sym   xproto.Keysym
		want  keyStroke
		found bool
	}{
		{0x61, keyStroke{code: 8}, true},
		{0x41, keyStroke{code: 8, shift: true}, true},
		{0x21, keyStroke{code: 9, shift: true}, true},
		{0xff0d, keyStroke{code: 11}, true},
		{0x20ac, keyStroke{}, false},
	}
	for _, tt := range tests {
		got, ok := km.lookup(tt.sym)
		assert.Equal(t, tt.found, ok)
		assert.Equal(t, tt.want, got)
	}
}

func TestBgrxToRGBA(t *testing.T) {
	got := bgrxToRGBA([]byte{1, 2, 3, 0, 10, 20, 30, 0}, 2, 1)
	assert.Equal(t, []byte{3, 2, 1, 255, 30, 20, 10, 255}, got)
}

func TestCardinals(t *testing.T) {
	assert.Equal(t, []uint32{1, 258}, cardinals(&xproto.GetPropertyReply{Format: 32, Value: []byte{1, 0, 0, 0, 2, 1, 0, 0}}))
	assert.Nil(t, cardinals(&xproto.GetPropertyReply{Format: 8, Value: []byte("title")}))
	assert.Nil(t, cardinals(nil))
}

func TestMarkPrimary(t *testing.T) {
	mons := []platform.Monitor{{Name: "right", X: 1920}, {Name: "left"}}
	markPrimary(mons)
	assert.False(t, mons[0].IsPrimary)
	assert.True(t, mons[1].IsPrimary)

	mons = []platform.Monitor{{Name: "left"}, {Name: "right", X: 1920, IsPrimary: true}}
	markPrimary(mons)
	assert.False(t, mons[0].IsPrimary)
}

func TestOverlayGeometry(t *testing.T) {
	b := platform.Bounds{X: 100, Y: 100, Width: 50, Height: 20}

	strips := borderStrips(b, 3)
	require.Len(t, strips, 4)
	assert.Equal(t, platform.Bounds{X: 97, Y: 97, Width: 56, Height: 3}, strips[0])
	assert.Equal(t, platform.Bounds{X: 150, Y: 100, Width: 3, Height: 20}, strips[3])

	tests := []struct {
		pos  platform.TextPosition
		x, y int
	}{
		{platform.TextTop, 110, 85},
		{"", 110, 85},
		{platform.TextInside, 110, 105},
		{platform.TextRight, 155, 105},
		{platform.TextBottomLeft, 100, 125},
		{platform.TextTopRight, 120, 85},
	}
	for _, tt := range tests {
		t.Run(string(tt.pos), func(t *testing.T) {
			x, y := labelOrigin(b, tt.pos, 30, 10)
			assert.Equal(t, tt.x, x)
			assert.Equal(t, tt.y, y)
		})
	}
}

func TestRenderLabel(t *testing.T) {
	bg := color.RGBA{R: 0xff, G: 0x10, B: 0x20, A: 0xff}
	data, w, h := renderLabel("Hi", color.RGBA{A: 0xff}, bg)

	assert.Equal(t, 2*7+2*labelPadding, w)
	assert.Equal(t, 13+2*labelPadding, h)
	require.Len(t, data, w*h*4)
	// Top-left pixel is background, stored BGRX.
	assert.Equal(t, []byte{0x20, 0x10, 0xff}, data[:3])
	assert.Equal(t, uint32(0xff1020), pixel(bg))
}

func TestLaunchCommand(t *testing.T) {
	lookPath := func(name string) (string, error) {
		switch name {
		case "firefox", "gnome-calculator":
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}
	tests := []struct {
		target string
		name   string
		args   []string
		direct bool
	}{
		{"firefox", "/usr/bin/firefox", nil, true},
		{"Firefox", "/usr/bin/firefox", nil, true},
		{"/opt/app/run", "/opt/app/run", nil, true},
		{"Calculator", "gtk-launch", []string{"calculator"}, false},
		{"/usr/share/applications/org.gnome.Calculator.desktop", "gtk-launch", []string{"org.gnome.Calculator"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			name, args, direct := launchCommand(tt.target, lookPath)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
			assert.Equal(t, tt.direct, direct)
		})
	}
}

func TestBrowserCommands(t *testing.T) {
	assert.Contains(t, browserCommands(platform.BrowserChrome), "chromium")
	assert.Equal(t, []string{"firefox"}, browserCommands(platform.BrowserFirefox))
	assert.Nil(t, browserCommands(platform.BrowserDefault))
}

func TestPickClipTool(t *testing.T) {
	only := func(names ...string) func(string) (string, error) {
		return func(name string) (string, error) {
			for _, n := range names {
				if n == name {
					return "/usr/bin/" + n, nil
				}
			}
			return "", errors.New("not found")
		}
	}

	tool, err := pickClipTool(false, only("xsel", "xclip"), false)
	require.NoError(t, err)
	assert.Equal(t, "xclip", tool.name)

	tool, err = pickClipTool(true, only("wl-copy", "wl-paste"), true)
	require.NoError(t, err)
	assert.Equal(t, "wl-copy", tool.name)

	_, err = pickClipTool(false, only("wl-paste"), false)
	assert.Error(t, err)
}
