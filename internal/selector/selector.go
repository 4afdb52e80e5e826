// Package selector implements the element query language: an AST, a tokenizer
// and a recursive-descent parser that turns selector text into that AST.
package selector

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Selector is one node of a parsed selector AST.
type Selector interface {
	fmt.Stringer
	isSelector()
}

// Role matches on the normalized or raw role, optionally with an exact name.
type Role struct {
	Role string
	Name *string
}

// Name matches the accessible name (case-insensitive equality).
type Name string

// ID matches the engine-assigned element id.
type ID string

// NativeID matches the platform automation id.
type NativeID string

// ClassName matches the platform class name.
type ClassName string

// Text matches elements whose name or value contains the string.
type Text string

// PathStep is one segment of a Path. Index is 1-based; zero means any.
type PathStep struct {
	Role  string
	Index int
}

// Path is an XPath-like absolute walk such as /Window[3]/Pane/Button[5].
type Path struct {
	Raw   string
	Steps []PathStep
}

// Attributes matches when every key/value pair is present on the element.
type Attributes map[string]string

// Visible filters by on-screen visibility.
type Visible bool

// Nth picks one element of the current match list. Negative counts from the end.
type Nth int

// Has keeps elements with at least one descendant matching Inner.
type Has struct{ Inner Selector }

// Not keeps elements that do not match Inner.
type Not struct{ Inner Selector }

// Parent replaces each match with its parent.
type Parent struct{}

// And requires every operand to hold on the same element.
type And []Selector

// Or matches the union of its operands, order preserved.
type Or []Selector

// Chain resolves each step inside the matches of the previous one.
type Chain []Selector

// Invalid is the result of parsing bad input.
type Invalid struct{ Reason string }

// Spatial selectors pick visible elements relative to the first match of Anchor.
type (
	RightOf struct{ Anchor Selector }
	LeftOf  struct{ Anchor Selector }
	Above   struct{ Anchor Selector }
	Below   struct{ Anchor Selector }
	Near    struct{ Anchor Selector }
)

func (Role) isSelector()       {}
func (Name) isSelector()       {}
func (ID) isSelector()         {}
func (NativeID) isSelector()   {}
func (ClassName) isSelector()  {}
func (Text) isSelector()       {}
func (Path) isSelector()       {}
func (Attributes) isSelector() {}
func (Visible) isSelector()    {}
func (Nth) isSelector()        {}
func (Has) isSelector()        {}
func (Not) isSelector()        {}
func (Parent) isSelector()     {}
func (And) isSelector()        {}
func (Or) isSelector()         {}
func (Chain) isSelector()      {}
func (Invalid) isSelector()    {}
func (RightOf) isSelector()    {}
func (LeftOf) isSelector()     {}
func (Above) isSelector()      {}
func (Below) isSelector()      {}
func (Near) isSelector()       {}

// RoleOnly builds Role{role, nil}.
func RoleOnly(role string) Role { return Role{Role: role} }

// RoleNamed builds Role{role, &name}.
func RoleNamed(role, name string) Role { return Role{Role: role, Name: &name} }

// Attr builds a single-pair Attributes selector.
func Attr(key, value string) Attributes { return Attributes{key: value} }

// Invalidf builds an Invalid selector with a formatted reason.
func Invalidf(format string, args ...any) Invalid {
	return Invalid{Reason: fmt.Sprintf(format, args...)}
}

// FindInvalid returns the first Invalid node in s, if any.
func FindInvalid(s Selector) (Invalid, bool) {
	var found *Invalid
	Walk(s, func(n Selector) bool {
		if inv, ok := n.(Invalid); ok {
			found = &inv
			return false
		}
		return true
	})
	if found == nil {
		return Invalid{}, false
	}
	return *found, true
}

// Walk visits s and every nested selector in pre-order until fn returns false.
func Walk(s Selector, fn func(Selector) bool) bool {
	if s == nil {
		return true
	}
	if !fn(s) {
		return false
	}
	for _, child := range children(s) {
		if !Walk(child, fn) {
			return false
		}
	}
	return true
}

func children(s Selector) []Selector {
	switch v := s.(type) {
	case And:
		return v
	case Or:
		return v
	case Chain:
		return v
	case Has:
		return []Selector{v.Inner}
	case Not:
		return []Selector{v.Inner}
	case RightOf:
		return []Selector{v.Anchor}
	case LeftOf:
		return []Selector{v.Anchor}
	case Above:
		return []Selector{v.Anchor}
	case Below:
		return []Selector{v.Anchor}
	case Near:
		return []Selector{v.Anchor}
	}
	return nil
}

// IsPredicate reports whether s can be decided by looking at a single
// element, which lets the resolver evaluate it in one tree walk.
func IsPredicate(s Selector) bool {
	switch v := s.(type) {
	case Role, Name, ID, NativeID, ClassName, Text, Attributes, Visible, Has:
		return true
	case Not:
		return IsPredicate(v.Inner)
	case And:
		for _, op := range v {
			if !IsPredicate(op) {
				return false
			}
		}
		return len(v) > 0
	case Or:
		for _, op := range v {
			if !IsPredicate(op) {
				return false
			}
		}
		return len(v) > 0
	}
	return false
}

// String prints selectors back to grammar text.

func (r Role) String() string {
	if r.Name == nil {
		return "role:" + escape(r.Role)
	}
	return "role:" + escape(r.Role) + "|name:" + escape(*r.Name)
}

func (n Name) String() string      { return "name:" + escape(string(n)) }
func (i ID) String() string        { return "id:" + escape(string(i)) }
func (n NativeID) String() string  { return "nativeid:" + escape(string(n)) }
func (c ClassName) String() string { return "classname:" + escape(string(c)) }
func (t Text) String() string      { return "text:" + escape(string(t)) }
func (p Path) String() string      { return p.Raw }
func (v Visible) String() string   { return "visible:" + strconv.FormatBool(bool(v)) }
func (n Nth) String() string       { return "nth=" + strconv.Itoa(int(n)) }
func (h Has) String() string       { return "has(" + h.Inner.String() + ")" }
func (Parent) String() string      { return ".." }
func (i Invalid) String() string   { return fmt.Sprintf("invalid(%q)", i.Reason) }
func (s RightOf) String() string   { return "rightof(" + s.Anchor.String() + ")" }
func (s LeftOf) String() string    { return "leftof(" + s.Anchor.String() + ")" }
func (s Above) String() string     { return "above(" + s.Anchor.String() + ")" }
func (s Below) String() string     { return "below(" + s.Anchor.String() + ")" }
func (s Near) String() string      { return "near(" + s.Anchor.String() + ")" }

func (n Not) String() string {
	if isComposite(n.Inner) {
		return "!(" + n.Inner.String() + ")"
	}
	return "!" + n.Inner.String()
}

func (a Attributes) String() string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = "attr:" + escape(k) + "=" + escape(a[k])
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " && ") + ")"
}

func (a And) String() string {
	return join(a, " && ", func(s Selector) bool {
		switch s.(type) {
		case Or, Chain:
			return true
		}
		return false
	})
}

func (o Or) String() string {
	return join(o, " || ", func(s Selector) bool {
		_, ok := s.(Chain)
		return ok
	})
}

func (c Chain) String() string {
	return join(c, " >> ", func(Selector) bool { return false })
}

func join(ops []Selector, sep string, wrap func(Selector) bool) string {
	parts := make([]string, len(ops))
	for i, op := range ops {
		if wrap(op) {
			parts[i] = "(" + op.String() + ")"
		} else {
			parts[i] = op.String()
		}
	}
	return strings.Join(parts, sep)
}

func isComposite(s Selector) bool {
	switch s.(type) {
	case And, Or, Chain:
		return true
	}
	return false
}

const specialChars = `\()|&>!`

func escape(s string) string {
	if !strings.ContainsAny(s, specialChars) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(specialChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] == '\\' && i+1 < len(rs) {
			i++
		}
		b.WriteRune(rs[i])
	}
	return b.String()
}
