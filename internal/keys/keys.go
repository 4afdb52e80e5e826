// Package keys parses the key-literal mini-language used by PressKey:
// "{Ctrl}{Shift}J", "{Enter}", "{Tab 3}", "{Ctrl+A}hello{Enter}".
//
// Braced names are keys. A braced modifier latches until the next key, which
// is then sent as one chord. Bare characters are typed as text unless a
// modifier is latched. "{{" and "}}" stand for literal braces.
package keys

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// Step is one unit of synthetic keyboard input. Exactly one of Text or
// Combo is set. Combo holds canonical names, modifiers first.
type Step struct {
	Text  string   `json:"text,omitempty"`
	Combo []string `json:"combo,omitempty"`
}

const maxRepeat = 100

var modifiers = map[string]string{
	"ctrl": "ctrl", "control": "ctrl",
	"shift": "shift",
	"alt": "alt", "option": "alt", "opt": "alt",
	"cmd": "cmd", "command": "cmd", "meta": "cmd", "super": "cmd", "win": "cmd",
}

// modifierOrder keeps chords in a stable order regardless of how they were written.
var modifierOrder = []string{"ctrl", "alt", "shift", "cmd"}

var named = map[string]string{
	"enter": "enter", "return": "enter",
	"tab": "tab", "space": "space",
	"backspace": "backspace", "bs": "backspace",
	"delete": "delete", "del": "delete",
	"escape": "escape", "esc": "escape",
	"up": "up", "down": "down", "left": "left", "right": "right",
	"home": "home", "end": "end",
	"pageup": "pageup", "pgup": "pageup",
	"pagedown": "pagedown", "pgdn": "pagedown",
	"insert": "insert", "ins": "insert",
	"f1": "f1", "f2": "f2", "f3": "f3", "f4": "f4", "f5": "f5", "f6": "f6",
	"f7": "f7", "f8": "f8", "f9": "f9", "f10": "f10", "f11": "f11", "f12": "f12",
	"plus": "+", "minus": "-", "equals": "=", "zero": "0",
}

// IsModifier reports whether name is a modifier in canonical or alias form.
func IsModifier(name string) bool {
	_, ok := modifiers[strings.ToLower(name)]
	return ok
}

// Parse converts a pattern into input steps.
func Parse(pattern string) ([]Step, error) {
	p := &parser{}
	rs := []rune(pattern)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '{' && i+1 < len(rs) && rs[i+1] == '{':
			p.char('{')
			i++
		case r == '}' && i+1 < len(rs) && rs[i+1] == '}':
			p.char('}')
			i++
		case r == '{':
			end := indexRune(rs, i+1, '}')
			if end < 0 {
				return nil, invalid("unclosed '{' at position %d in %q", i, pattern)
			}
			if err := p.braced(string(rs[i+1 : end])); err != nil {
				return nil, err
			}
			i = end
		case r == '}':
			return nil, invalid("unbalanced '}' at position %d in %q", i, pattern)
		default:
			p.char(r)
		}
	}
	if len(p.latched) > 0 {
		return nil, invalid("modifier %s in %q is not followed by a key", strings.Join(p.latched, "+"), pattern)
	}
	p.flushText()
	return p.steps, nil
}

type parser struct {
	steps   []Step
	text    strings.Builder
	latched []string
}

func (p *parser) char(r rune) {
	if len(p.latched) == 0 {
		p.text.WriteRune(r)
		return
	}
	p.chord(strings.ToLower(string(r)))
}

func (p *parser) braced(body string) error {
	body = strings.TrimSpace(body)
	if body == "" {
		return invalid("empty key name {}")
	}

	repeat := 1
	if name, count, ok := strings.Cut(body, " "); ok {
		n, err := strconv.Atoi(strings.TrimSpace(count))
		if err != nil || n < 1 || n > maxRepeat {
			return invalid("repeat count in {%s} must be between 1 and %d", body, maxRepeat)
		}
		body, repeat = name, n
	}

	parts := []string{body}
	if body != "+" && strings.Contains(body, "+") {
		parts = strings.Split(body, "+")
	}

	last := len(parts) - 1
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if mod, ok := modifiers[strings.ToLower(part)]; ok {
			if repeat > 1 {
				return invalid("modifier {%s} cannot repeat", part)
			}
			p.latch(mod)
			continue
		}
		if i != last {
			return invalid("key %q must come after the modifiers in {%s}", part, body)
		}
		key, err := keyName(part)
		if err != nil {
			return err
		}
		for n := 0; n < repeat; n++ {
			mods := append([]string(nil), p.latched...)
			p.chord(key)
			p.latched = mods
		}
		p.latched = nil
	}
	return nil
}

func (p *parser) latch(mod string) {
	for _, m := range p.latched {
		if m == mod {
			return
		}
	}
	p.latched = append(p.latched, mod)
}

func (p *parser) chord(key string) {
	p.flushText()
	combo := make([]string, 0, len(p.latched)+1)
	for _, m := range modifierOrder {
		for _, l := range p.latched {
			if l == m {
				combo = append(combo, m)
			}
		}
	}
	p.steps = append(p.steps, Step{Combo: append(combo, key)})
	p.latched = nil
}

func (p *parser) flushText() {
	if p.text.Len() == 0 {
		return
	}
	p.steps = append(p.steps, Step{Text: p.text.String()})
	p.text.Reset()
}

func keyName(s string) (string, error) {
	if k, ok := named[strings.ToLower(s)]; ok {
		return k, nil
	}
	if utf8.RuneCountInString(s) == 1 {
		return strings.ToLower(s), nil
	}
	return "", invalid("unknown key {%s}", s)
}

func indexRune(rs []rune, from int, target rune) int {
	for i := from; i < len(rs); i++ {
		if rs[i] == target {
			return i
		}
	}
	return -1
}

func invalid(format string, args ...any) error {
	return platform.Errorf(platform.CodeInvalidArgument, format, args...).WithOperation("press_key")
}
