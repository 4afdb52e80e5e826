package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/platform/virtual"
	"github.com/mj1618/desktop-automation/internal/selector"
)

var (
	propertyRoles = []string{"Button", "Edit", "Group", "Text"}
	propertyNames = []string{"a", "b", "c"}
)

// randomDesktop draws a window holding a random tree up to three levels
// deep.
func randomDesktop(t *rapid.T) (*virtual.Desktop, platform.Node) {
	d := virtual.New(nil)
	w := d.AddApp("App", 0).AddWindow("Main", platform.Bounds{Width: 800, Height: 600})
	var grow func(parent *virtual.Node, depth int)
	grow = func(parent *virtual.Node, depth int) {
		n := rapid.IntRange(0, 3).Draw(t, "children")
		for i := 0; i < n; i++ {
			child := parent.Add(virtual.Spec{
				Role:   rapid.SampledFrom(propertyRoles).Draw(t, "role"),
				Name:   rapid.SampledFrom(propertyNames).Draw(t, "name"),
				Bounds: platform.Bounds{X: i * 20, Y: depth * 20, Width: 10, Height: 10},
			})
			if depth < 3 {
				grow(child, depth+1)
			}
		}
	}
	grow(w, 1)
	return d, w
}

func predicate(t *rapid.T, label string) selector.Selector {
	if rapid.Bool().Draw(t, label+"_kind") {
		return selector.Role{Role: rapid.SampledFrom(propertyRoles).Draw(t, label+"_role")}
	}
	return selector.Name(rapid.SampledFrom(propertyNames).Draw(t, label+"_name"))
}

func propertyResolver(t *testing.T, d *virtual.Desktop) *resolver {
	e := newEngine(t, d)
	return &resolver{e: e, ctx: context.Background(), maxDepth: 50}
}

func nodeKeys(nodes []platform.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Key()
	}
	return out
}

func TestResolve_ChainIsAssociative(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d, w := randomDesktop(rt)
		r := propertyResolver(t, d)
		a, b, c := predicate(rt, "a"), predicate(rt, "b"), predicate(rt, "c")

		left, err := r.resolve(selector.Chain{a, selector.Chain{b, c}}, w)
		require.NoError(rt, err)
		right, err := r.resolve(selector.Chain{selector.Chain{a, b}, c}, w)
		require.NoError(rt, err)
		assert.ElementsMatch(rt, nodeKeys(left), nodeKeys(right))
	})
}

func TestResolve_AndIsIntersection(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d, w := randomDesktop(rt)
		r := propertyResolver(t, d)
		a, b := predicate(rt, "a"), predicate(rt, "b")

		both, err := r.resolve(selector.And{a, b}, w)
		require.NoError(rt, err)
		left, err := r.resolve(a, w)
		require.NoError(rt, err)
		right, err := r.resolve(b, w)
		require.NoError(rt, err)

		inRight := map[string]bool{}
		for _, k := range nodeKeys(right) {
			inRight[k] = true
		}
		var want []string
		for _, k := range nodeKeys(left) {
			if inRight[k] {
				want = append(want, k)
			}
		}
		assert.ElementsMatch(rt, want, nodeKeys(both))
	})
}

func TestResolve_NotPartitionsTheSubtree(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d, w := randomDesktop(rt)
		r := propertyResolver(t, d)
		a := predicate(rt, "a")

		yes, err := r.resolve(a, w)
		require.NoError(rt, err)
		no, err := r.resolve(selector.Not{Inner: a}, w)
		require.NoError(rt, err)
		all, err := r.resolve(selector.Or{a, selector.Not{Inner: a}}, w)
		require.NoError(rt, err)

		assert.Len(rt, all, len(yes)+len(no))
		assert.ElementsMatch(rt, nodeKeys(all), append(nodeKeys(yes), nodeKeys(no)...))
	})
}

func TestResolve_NthFromEitherEnd(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		d, w := randomDesktop(rt)
		r := propertyResolver(t, d)
		a := predicate(rt, "a")

		all, err := r.resolve(a, w)
		require.NoError(rt, err)
		first, err := r.resolve(selector.Chain{a, selector.Nth(0)}, w)
		require.NoError(rt, err)
		last, err := r.resolve(selector.Chain{a, selector.Nth(-1)}, w)
		require.NoError(rt, err)

		if len(all) == 0 {
			assert.Empty(rt, first)
			assert.Empty(rt, last)
			return
		}
		require.Len(rt, first, 1)
		require.Len(rt, last, 1)
		assert.Equal(rt, all[0].Key(), first[0].Key())
		assert.Equal(rt, all[len(all)-1].Key(), last[0].Key())

		i := rapid.IntRange(0, len(all)-1).Draw(rt, "i")
		fwd, err := r.resolve(selector.Chain{a, selector.Nth(i)}, w)
		require.NoError(rt, err)
		back, err := r.resolve(selector.Chain{a, selector.Nth(i - len(all))}, w)
		require.NoError(rt, err)
		assert.Equal(rt, nodeKeys(fwd), nodeKeys(back))
	})
}
