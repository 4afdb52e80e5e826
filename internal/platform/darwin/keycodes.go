package darwin

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// CGEventFlags modifier masks.
const (
	flagShift   uint64 = 0x00020000
	flagControl uint64 = 0x00040000
	flagOption  uint64 = 0x00080000
	flagCommand uint64 = 0x00100000
)

var modifierFlags = map[string]uint64{
	"shift": flagShift,
	"ctrl":  flagControl,
	"alt":   flagOption,
	"cmd":   flagCommand,
}

// Virtual key codes from Carbon Events.h (ANSI layout).
var keyCodes = map[string]uint16{
	"a": 0x00, "b": 0x0B, "c": 0x08, "d": 0x02, "e": 0x0E, "f": 0x03,
	"g": 0x05, "h": 0x04, "i": 0x22, "j": 0x26, "k": 0x28, "l": 0x25,
	"m": 0x2E, "n": 0x2D, "o": 0x1F, "p": 0x23, "q": 0x0C, "r": 0x0F,
	"s": 0x01, "t": 0x11, "u": 0x20, "v": 0x09, "w": 0x0D, "x": 0x07,
	"y": 0x10, "z": 0x06,
	"0": 0x1D, "1": 0x12, "2": 0x13, "3": 0x14, "4": 0x15,
	"5": 0x17, "6": 0x16, "7": 0x1A, "8": 0x1C, "9": 0x19,
	"-": 0x1B, "=": 0x18, "[": 0x21, "]": 0x1E, ";": 0x29, "'": 0x27,
	",": 0x2B, ".": 0x2F, "/": 0x2C, "\\": 0x2A, "`": 0x32,
	"enter": 0x24, "tab": 0x30, "space": 0x31,
	"backspace": 0x33, "delete": 0x75, "escape": 0x35, "insert": 0x72,
	"up": 0x7E, "down": 0x7D, "left": 0x7B, "right": 0x7C,
	"home": 0x73, "end": 0x77, "pageup": 0x74, "pagedown": 0x79,
	"f1": 0x7A, "f2": 0x78, "f3": 0x63, "f4": 0x76, "f5": 0x60,
	"f6": 0x61, "f7": 0x62, "f8": 0x64, "f9": 0x65, "f10": 0x6D,
	"f11": 0x67, "f12": 0x6F,
}

// chord is one key press with modifiers held. When char is set the key is
// posted as that Unicode character instead of code.
type chord struct {
	flags uint64
	code  uint16
	char  rune
	// order lists the modifier key codes to press before the key.
	order []uint16
}

var modifierCodes = map[string]uint16{
	"cmd": 0x37, "shift": 0x38, "alt": 0x3A, "ctrl": 0x3B,
}

// parseChord reads canonical key names: any modifiers followed by exactly
// one key.
func parseChord(keys []string) (chord, error) {
	var c chord
	found := false
	for _, k := range keys {
		name := strings.ToLower(strings.TrimSpace(k))
		if f, ok := modifierFlags[name]; ok {
			c.flags |= f
			c.order = append(c.order, modifierCodes[name])
			continue
		}
		if found {
			return chord{}, platform.Errorf(platform.CodeInvalidArgument, "more than one key in %v", keys)
		}
		found = true
		if code, ok := keyCodes[name]; ok {
			c.code = code
			continue
		}
		if utf8.RuneCountInString(k) == 1 {
			r, _ := utf8.DecodeRuneInString(k)
			if r > 0xffff {
				return chord{}, platform.Errorf(platform.CodeInvalidArgument, "key %q cannot be part of a chord", k)
			}
			c.char = unicode.ToLower(r)
			continue
		}
		return chord{}, platform.Errorf(platform.CodeInvalidArgument, "unknown key %q", k)
	}
	if !found {
		if len(c.order) == 0 {
			return chord{}, platform.NewError(platform.CodeInvalidArgument, "empty key combination")
		}
		// A lone modifier: press the last one as the key.
		c.code = c.order[len(c.order)-1]
		c.order = c.order[:len(c.order)-1]
	}
	return c, nil
}

func modifierFlagForCode(code uint16) uint64 {
	for name, c := range modifierCodes {
		if c == code {
			return modifierFlags[name]
		}
	}
	return 0
}
