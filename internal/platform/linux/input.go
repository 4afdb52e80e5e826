package linux

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// X pointer buttons.
const (
	buttonLeft       = 1
	buttonMiddle     = 2
	buttonRight      = 3
	buttonWheelUp    = 4
	buttonWheelDown  = 5
	buttonWheelLeft  = 6
	buttonWheelRight = 7
)

const clickGap = 20 * time.Millisecond

// namedKeysyms maps canonical key names to X keysyms.
var namedKeysyms = map[string]xproto.Keysym{
	"ctrl":      0xffe3,
	"shift":     0xffe1,
	"alt":       0xffe9,
	"cmd":       0xffeb,
	"enter":     0xff0d,
	"tab":       0xff09,
	"space":     0x0020,
	"backspace": 0xff08,
	"delete":    0xffff,
	"escape":    0xff1b,
	"left":      0xff51,
	"up":        0xff52,
	"right":     0xff53,
	"down":      0xff54,
	"home":      0xff50,
	"end":       0xff57,
	"pageup":    0xff55,
	"pagedown":  0xff56,
	"insert":    0xff63,
}

func init() {
	for i := 1; i <= 12; i++ {
		namedKeysyms[fmt.Sprintf("f%d", i)] = xproto.Keysym(0xffbe + i - 1)
	}
}

// runeKeysym converts a character to its keysym: Latin-1 maps directly,
// everything else uses the Unicode keysym range.
func runeKeysym(r rune) xproto.Keysym {
	switch {
	case r == '\n' || r == '\r':
		return namedKeysyms["enter"]
	case r == '\t':
		return namedKeysyms["tab"]
	case r == '\b':
		return namedKeysyms["backspace"]
	case r >= 0x20 && r <= 0x7e, r >= 0xa0 && r <= 0xff:
		return xproto.Keysym(r)
	default:
		return xproto.Keysym(0x01000000 | r)
	}
}

// keyNameKeysym resolves a chord member: a canonical name or one character.
// Letters are sent unshifted so {Ctrl}A and {Ctrl}a are the same chord.
func keyNameKeysym(name string) (xproto.Keysym, error) {
	if sym, ok := namedKeysyms[strings.ToLower(name)]; ok {
		return sym, nil
	}
	if utf8.RuneCountInString(name) == 1 {
		r, _ := utf8.DecodeRuneInString(name)
		return runeKeysym(unicode.ToLower(r)), nil
	}
	return 0, platform.Errorf(platform.CodeInvalidArgument, "unknown key %q", name)
}

// keymap indexes the server's keyboard mapping by keysym.
type keymap struct {
	min, max xproto.Keycode
	perCode  int
	syms     []xproto.Keysym
	// scratch is an unused keycode borrowed for keysyms the layout lacks.
	scratch xproto.Keycode
}

type keyStroke struct {
	code  xproto.Keycode
	shift bool
}

func newKeymap(lo, hi xproto.Keycode, perCode int, syms []xproto.Keysym) *keymap {
	km := &keymap{min: lo, max: hi, perCode: perCode, syms: syms}
	for kc := int(hi); kc >= int(lo); kc-- {
		if km.unused(xproto.Keycode(kc)) {
			km.scratch = xproto.Keycode(kc)
			break
		}
	}
	return km
}

func (km *keymap) unused(kc xproto.Keycode) bool {
	base := (int(kc) - int(km.min)) * km.perCode
	for i := 0; i < km.perCode && base+i < len(km.syms); i++ {
		if km.syms[base+i] != 0 {
			return false
		}
	}
	return true
}

// lookup finds the keycode producing sym, preferring the unshifted level.
func (km *keymap) lookup(sym xproto.Keysym) (keyStroke, bool) {
	for level := 0; level < 2 && level < km.perCode; level++ {
		for kc := int(km.min); kc <= int(km.max); kc++ {
			i := (kc-int(km.min))*km.perCode + level
			if i < len(km.syms) && km.syms[i] == sym {
				return keyStroke{code: xproto.Keycode(kc), shift: level == 1}, true
			}
		}
	}
	return keyStroke{}, false
}

func (d *display) loadKeymap() (*keymap, error) {
	d.mu.Lock()
	km := d.keymap
	d.mu.Unlock()
	if km != nil {
		return km, nil
	}
	lo, hi := d.setup.MinKeycode, d.setup.MaxKeycode
	reply, err := xproto.GetKeyboardMapping(d.conn, lo, byte(hi-lo+1)).Reply()
	if err != nil {
		return nil, platform.NewPlatformError("keyboard_mapping", "GetKeyboardMapping failed").WithCause(err)
	}
	km = newKeymap(lo, hi, int(reply.KeysymsPerKeycode), reply.Keysyms)
	d.mu.Lock()
	d.keymap = km
	d.mu.Unlock()
	return km, nil
}

// stroke resolves sym to a keycode, remapping the scratch keycode when the
// layout has no key for it.
func (d *display) stroke(sym xproto.Keysym) (keyStroke, error) {
	km, err := d.loadKeymap()
	if err != nil {
		return keyStroke{}, err
	}
	if ks, ok := km.lookup(sym); ok {
		return ks, nil
	}
	if km.scratch == 0 {
		return keyStroke{}, platform.NewPlatformError("type", fmt.Sprintf("no key produces keysym 0x%x and no spare keycode is free", uint32(sym)))
	}
	syms := make([]xproto.Keysym, km.perCode)
	for i := range syms {
		syms[i] = sym
	}
	err = xproto.ChangeKeyboardMappingChecked(d.conn, 1, km.scratch, byte(km.perCode), syms).Check()
	if err != nil {
		return keyStroke{}, platform.NewPlatformError("type", "ChangeKeyboardMapping failed").WithCause(err)
	}
	// Clients pick up the new mapping from MappingNotify.
	time.Sleep(10 * time.Millisecond)
	return keyStroke{code: km.scratch}, nil
}

func (d *display) fake(kind byte, detail byte, x, y int) error {
	if !d.xtest {
		return platform.Unsupported("synthetic input without the XTEST extension")
	}
	err := xtest.FakeInputChecked(d.conn, kind, detail, 0, d.root(), int16(x), int16(y), 0).Check()
	if err != nil {
		return platform.NewPlatformError("input", "XTEST FakeInput failed").WithCause(err)
	}
	return nil
}

func (d *display) key(code xproto.Keycode, down bool) error {
	kind := byte(xproto.KeyRelease)
	if down {
		kind = xproto.KeyPress
	}
	return d.fake(kind, byte(code), 0, 0)
}

func (d *display) button(b byte) error {
	if err := d.fake(xproto.ButtonPress, b, 0, 0); err != nil {
		return err
	}
	return d.fake(xproto.ButtonRelease, b, 0, 0)
}

// MoveMouse implements platform.Inputter.
func (d *display) MoveMouse(x, y int) error {
	return d.fake(xproto.MotionNotify, 0, x, y)
}

// Click implements platform.Inputter.
func (d *display) Click(x, y int, button platform.MouseButton, count int) error {
	if err := d.MoveMouse(x, y); err != nil {
		return err
	}
	b := byte(buttonLeft)
	switch button {
	case platform.MouseRight:
		b = buttonRight
	case platform.MouseMiddle:
		b = buttonMiddle
	}
	for i := 0; i < max(count, 1); i++ {
		if i > 0 {
			time.Sleep(clickGap)
		}
		if err := d.button(b); err != nil {
			return err
		}
	}
	return nil
}

// Scroll implements platform.Inputter. Positive dy scrolls down, positive
// dx right; each unit is one wheel click.
func (d *display) Scroll(x, y int, dx, dy int) error {
	if err := d.MoveMouse(x, y); err != nil {
		return err
	}
	steps := []struct {
		n        int
		pos, neg byte
	}{
		{dy, buttonWheelDown, buttonWheelUp},
		{dx, buttonWheelRight, buttonWheelLeft},
	}
	for _, s := range steps {
		b := s.pos
		n := s.n
		if n < 0 {
			b, n = s.neg, -n
		}
		for i := 0; i < n; i++ {
			if err := d.button(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// TypeText implements platform.Inputter.
func (d *display) TypeText(text string, delayMs int) error {
	shift, err := d.stroke(namedKeysyms["shift"])
	if err != nil {
		return err
	}
	for _, r := range text {
		ks, err := d.stroke(runeKeysym(r))
		if err != nil {
			return err
		}
		if ks.shift {
			if err := d.key(shift.code, true); err != nil {
				return err
			}
		}
		if err := d.key(ks.code, true); err != nil {
			return err
		}
		if err := d.key(ks.code, false); err != nil {
			return err
		}
		if ks.shift {
			if err := d.key(shift.code, false); err != nil {
				return err
			}
		}
		if delayMs > 0 {
			time.Sleep(time.Duration(delayMs) * time.Millisecond)
		}
	}
	return nil
}

// KeyCombo implements platform.Inputter: keys go down in order and come up
// in reverse.
func (d *display) KeyCombo(keys []string) error {
	codes := make([]xproto.Keycode, 0, len(keys))
	for _, k := range keys {
		sym, err := keyNameKeysym(k)
		if err != nil {
			return err
		}
		ks, err := d.stroke(sym)
		if err != nil {
			return err
		}
		codes = append(codes, ks.code)
	}
	var firstErr error
	pressed := 0
	for _, c := range codes {
		if firstErr = d.key(c, true); firstErr != nil {
			break
		}
		pressed++
	}
	for i := pressed - 1; i >= 0; i-- {
		if err := d.key(codes[i], false); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
