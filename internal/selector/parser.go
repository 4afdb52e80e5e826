package selector

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse turns selector text into an AST. It never fails: malformed input
// yields a single top-level Invalid with the reason.
//
// Grammar, loosest binding first:
//
//	chain   = or { ">>" or }
//	or      = and { "||" and }
//	and     = unary { "&&" unary }
//	unary   = "!" unary | primary
//	primary = "(" chain ")" | atom
func Parse(input string) Selector {
	if strings.TrimSpace(input) == "" {
		return Invalidf("empty selector")
	}
	tokens, err := tokenize(input)
	if err != nil {
		return Invalid{Reason: err.Error()}
	}
	p := &parser{tokens: tokens}
	sel, err := p.parseChain()
	if err == nil && p.peek().kind != tokEOF {
		err = p.unexpected()
	}
	if err != nil {
		return Invalid{Reason: err.Error()}
	}
	if inv, ok := FindInvalid(sel); ok {
		return inv
	}
	return sel
}

// MustParse is Parse for selectors known at compile time. It panics on
// invalid input.
func MustParse(input string) Selector {
	sel := Parse(input)
	if inv, ok := sel.(Invalid); ok {
		panic("selector: " + inv.Reason)
	}
	return sel
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) unexpected() error {
	t := p.peek()
	return fmt.Errorf("unexpected %s at position %d", t.kind, t.pos)
}

func (p *parser) parseChain() (Selector, error) {
	first, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokChain {
		return first, nil
	}
	steps := appendFlat[Chain](nil, first)
	for p.peek().kind == tokChain {
		p.next()
		step, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		steps = appendFlat[Chain](steps, step)
	}
	return Chain(steps), nil
}

func (p *parser) parseOr() (Selector, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokOr {
		return first, nil
	}
	ops := appendFlat[Or](nil, first)
	for p.peek().kind == tokOr {
		p.next()
		op, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		ops = appendFlat[Or](ops, op)
	}
	return Or(ops), nil
}

func (p *parser) parseAnd() (Selector, error) {
	first, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokAnd {
		return first, nil
	}
	ops := appendFlat[And](nil, first)
	for p.peek().kind == tokAnd {
		p.next()
		op, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		ops = appendFlat[And](ops, op)
	}
	return And(ops), nil
}

func (p *parser) parseUnary() (Selector, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Inner: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (Selector, error) {
	t := p.next()
	switch t.kind {
	case tokAtom:
		return parseAtom(t.text), nil
	case tokLParen:
		inner, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, fmt.Errorf("missing ')' for '(' at position %d", t.pos)
		}
		p.next()
		return inner, nil
	default:
		return nil, fmt.Errorf("expected selector, got %s at position %d", t.kind, t.pos)
	}
}

// appendFlat appends op to ops, splicing in op's operands when it is the
// same combinator.
func appendFlat[T And | Or | Chain](ops []Selector, op Selector) []Selector {
	if same, ok := op.(T); ok {
		return append(ops, []Selector(same)...)
	}
	return append(ops, op)
}

var roleKeywords = map[string]bool{
	"app": true, "application": true, "window": true, "button": true,
	"checkbox": true, "menu": true, "menuitem": true, "menubar": true,
	"textfield": true, "input": true,
}

var spatialForms = map[string]func(Selector) Selector{
	"rightof": func(s Selector) Selector { return RightOf{Anchor: s} },
	"leftof":  func(s Selector) Selector { return LeftOf{Anchor: s} },
	"above":   func(s Selector) Selector { return Above{Anchor: s} },
	"below":   func(s Selector) Selector { return Below{Anchor: s} },
	"near":    func(s Selector) Selector { return Near{Anchor: s} },
	"has":     func(s Selector) Selector { return Has{Inner: s} },
	"not":     func(s Selector) Selector { return Not{Inner: s} },
}

// parseAtom parses one operator-free token. raw still carries escapes.
func parseAtom(raw string) Selector {
	s := strings.TrimSpace(raw)

	if s == ".." {
		return Parent{}
	}

	// has(...), not(...), rightof(...) and friends.
	if open := strings.IndexByte(s, '('); open > 0 && strings.HasSuffix(s, ")") && !isEscapedAt(s, len(s)-1) {
		if wrap, ok := spatialForms[strings.ToLower(s[:open])]; ok {
			return wrap(Parse(s[open+1 : len(s)-1]))
		}
	}
	for prefix, wrap := range spatialForms {
		if hasPrefixFold(s, prefix+":") {
			return wrap(Parse(s[len(prefix)+1:]))
		}
	}

	if sel, ok := parsePipe(s); ok {
		return sel
	}

	switch {
	case hasPrefixFold(s, "role:"):
		return valueOrInvalid("role:", s[5:], func(v string) Selector { return RoleOnly(v) })
	case roleKeywords[strings.ToLower(s)]:
		return RoleOnly(strings.ToLower(s))
	case strings.HasPrefix(s, "AX") && !strings.ContainsAny(s, ":="):
		return RoleOnly(unescape(s))
	case hasPrefixFold(s, "name:"):
		return valueOrInvalid("name:", s[5:], func(v string) Selector { return Name(v) })
	case hasPrefixFold(s, "classname:"):
		return valueOrInvalid("classname:", s[10:], func(v string) Selector { return ClassName(v) })
	case hasPrefixFold(s, "nativeid:"):
		return valueOrInvalid("nativeid:", s[9:], func(v string) Selector { return NativeID(v) })
	case hasPrefixFold(s, "visible:"):
		return parseVisible(s[8:])
	case hasPrefixFold(s, "attr:"):
		return parseAttr(s[5:])
	case hasPrefixFold(s, "nth=") || hasPrefixFold(s, "nth:"):
		return parseNth(s[4:])
	case hasPrefixFold(s, "id:"):
		return valueOrInvalid("id:", s[3:], func(v string) Selector { return ID(v) })
	case hasPrefixFold(s, "text:"):
		return valueOrInvalid("text:", s[5:], func(v string) Selector { return Text(v) })
	case strings.HasPrefix(s, "#"):
		return valueOrInvalid("#", s[1:], func(v string) Selector { return ID(v) })
	case strings.HasPrefix(s, "/"):
		return parsePath(s)
	}

	if key, value, ok := bareAttribute(s); ok {
		return Attr(key, value)
	}
	if prefix, value, ok := strings.Cut(s, ":"); ok && prefix != "" && value != "" {
		return RoleNamed(unescape(strings.TrimSpace(prefix)), unescape(value))
	}
	return Invalidf("unknown selector format %q: use a prefix such as role:, name:, id:, text:, nativeid:, classname:, attr:, visible: or has:", s)
}

// parsePipe handles the role|name shorthand. It applies only when there is
// exactly one unescaped '|' and the left side is a bare role or role:X.
func parsePipe(s string) (Selector, bool) {
	idx := -1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '|':
			if idx >= 0 {
				return nil, false
			}
			idx = i
		}
	}
	if idx < 0 {
		return nil, false
	}
	left := strings.TrimSpace(s[:idx])
	right := strings.TrimSpace(s[idx+1:])
	if hasPrefixFold(left, "role:") {
		left = strings.TrimSpace(left[5:])
	} else if strings.Contains(left, ":") {
		return nil, false
	}
	for _, p := range []string{"name:", "contains:"} {
		if hasPrefixFold(right, p) {
			right = right[len(p):]
			break
		}
	}
	if left == "" || right == "" {
		return Invalidf("role|name selector %q needs both a role and a name", s), true
	}
	return RoleNamed(unescape(left), unescape(right)), true
}

func valueOrInvalid(prefix, raw string, build func(string) Selector) Selector {
	v := unescape(strings.TrimSpace(raw))
	if v == "" {
		return Invalidf("%s selector needs a value", prefix)
	}
	return build(v)
}

func parseVisible(raw string) Selector {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return Visible(true)
	case "false":
		return Visible(false)
	}
	return Invalidf("visible: expects true or false, got %q", strings.TrimSpace(raw))
}

func parseNth(raw string) Selector {
	v := strings.TrimSpace(raw)
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil {
		return Invalidf("invalid index for nth selector: %q", v)
	}
	return Nth(n)
}

func parseAttr(raw string) Selector {
	key, value, hasValue := strings.Cut(raw, "=")
	key = unescape(strings.TrimSpace(key))
	if key == "" {
		return Invalidf("attr: selector needs a key")
	}
	if !hasValue {
		return Attr(key, "true")
	}
	return Attr(key, unescape(strings.TrimSpace(value)))
}

// bareAttribute recognizes key=value where key is a plain identifier.
func bareAttribute(s string) (string, string, bool) {
	key, value, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return "", "", false
	}
	key = strings.TrimSpace(key)
	for i, r := range key {
		ident := r == '_' || r == '-' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (i > 0 && r >= '0' && r <= '9')
		if !ident {
			return "", "", false
		}
	}
	if key == "" {
		return "", "", false
	}
	return key, unescape(strings.TrimSpace(value)), true
}

func parsePath(raw string) Selector {
	segments := strings.Split(raw[1:], "/")
	steps := make([]PathStep, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			return Invalidf("path %q has an empty step", raw)
		}
		step := PathStep{Role: seg}
		if open := strings.IndexByte(seg, '['); open >= 0 {
			if !strings.HasSuffix(seg, "]") || open == 0 {
				return Invalidf("path step %q is malformed", seg)
			}
			n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
			if err != nil || n < 1 {
				return Invalidf("path step %q needs a positive 1-based index", seg)
			}
			step = PathStep{Role: seg[:open], Index: n}
		}
		step.Role = unescape(step.Role)
		steps = append(steps, step)
	}
	return Path{Raw: raw, Steps: steps}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func isEscapedAt(s string, i int) bool {
	n := 0
	for j := i - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}
