package selector

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestProperty_ParseTotal checks that any input parses without panicking,
// deterministically, and that Invalid only ever appears at the top.
func TestProperty_ParseTotal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		input := rapid.OneOf(
			rapid.String(),
			rapid.StringMatching(`[a-z:=|&>!() #/\[\]0-9\\.-]{0,24}`),
		).Draw(rt, "input")

		first := Parse(input)
		second := Parse(input)
		assert.Equal(rt, first, second)

		if _, ok := first.(Invalid); ok {
			return
		}
		_, nested := FindInvalid(first)
		assert.False(rt, nested, "well-formed parse of %q carries an Invalid leaf: %#v", input, first)
	})
}

// TestProperty_StringRoundTrip checks that printing a well-formed AST and
// parsing it again gives the same AST.
func TestProperty_StringRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sel := genSelector(rt, 3)
		text := sel.String()
		assert.Equal(rt, sel, Parse(text), "round trip through %q", text)
	})
}

func genValue(rt *rapid.T, label string) string {
	return rapid.StringMatching(`[A-Za-z0-9][A-Za-z0-9 ()|&>!:=#\\]{0,6}[A-Za-z0-9]`).Draw(rt, label)
}

func genIdent(rt *rapid.T, label string) string {
	return rapid.StringMatching(`[A-Z][a-z]{1,7}`).Draw(rt, label)
}

func genLeaf(rt *rapid.T) Selector {
	switch rapid.IntRange(0, 10).Draw(rt, "leaf") {
	case 0:
		return RoleOnly(genValue(rt, "role"))
	case 1:
		return RoleNamed(genValue(rt, "role"), genValue(rt, "name"))
	case 2:
		return Name(genValue(rt, "name"))
	case 3:
		return Text(genValue(rt, "text"))
	case 4:
		return ID(genValue(rt, "id"))
	case 5:
		return NativeID(genValue(rt, "nativeid"))
	case 6:
		return ClassName(genValue(rt, "class"))
	case 7:
		return Visible(rapid.Bool().Draw(rt, "visible"))
	case 8:
		return Nth(rapid.IntRange(-5, 5).Draw(rt, "nth"))
	case 9:
		return Attr(genIdent(rt, "key"), genValue(rt, "value"))
	default:
		role := genIdent(rt, "step")
		idx := rapid.IntRange(1, 9).Draw(rt, "index")
		raw := fmt.Sprintf("/%s[%d]/%s", role, idx, role)
		return Path{Raw: raw, Steps: []PathStep{{Role: role, Index: idx}, {Role: role}}}
	}
}

func genSelector(rt *rapid.T, depth int) Selector {
	if depth == 0 {
		return genLeaf(rt)
	}
	switch rapid.IntRange(0, 6).Draw(rt, fmt.Sprintf("kind%d", depth)) {
	case 0:
		return And(genOperands(rt, depth, func(s Selector) bool { _, ok := s.(And); return ok }))
	case 1:
		return Or(genOperands(rt, depth, func(s Selector) bool { _, ok := s.(Or); return ok }))
	case 2:
		return Chain(genOperands(rt, depth, func(s Selector) bool { _, ok := s.(Chain); return ok }))
	case 3:
		return Not{Inner: genSelector(rt, depth-1)}
	case 4:
		return Has{Inner: genSelector(rt, depth-1)}
	case 5:
		return RightOf{Anchor: genSelector(rt, depth-1)}
	default:
		return genLeaf(rt)
	}
}

// genOperands draws operands that are not themselves the enclosing
// combinator, since the parser flattens those.
func genOperands(rt *rapid.T, depth int, same func(Selector) bool) []Selector {
	n := rapid.IntRange(2, 3).Draw(rt, "operands")
	ops := make([]Selector, 0, n)
	for len(ops) < n {
		op := genSelector(rt, depth-1)
		if same(op) {
			op = genLeaf(rt)
		}
		ops = append(ops, op)
	}
	return ops
}
