package engine

import (
	"context"
	"sort"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// rank orders candidate matches for single-element lookups: elements sharing
// the deepest common ancestor with the focused element come first, then
// elements in the frontmost window, then traversal order. The sort is stable
// so repeated runs pick the same element.
func (e *Engine) rank(ctx context.Context, matches []platform.Node) ([]platform.Node, error) {
	if len(matches) < 2 {
		return matches, nil
	}
	rd, err := e.reader()
	if err != nil {
		return nil, err
	}

	var focused platform.Node
	var windows []platform.Window
	err = e.run(ctx, func() error {
		var rerr error
		if focused, rerr = rd.FocusedNode(); rerr != nil {
			return rerr
		}
		windows, rerr = rd.ListWindows()
		return rerr
	})
	if err != nil {
		return nil, err
	}

	zorder := make(map[string]int, len(windows))
	for _, w := range windows {
		if w.Node != nil {
			zorder[w.Node.Key()] = w.ZOrder
		}
	}

	var focusPath []string
	if focused != nil {
		if focusPath, err = e.ancestry(ctx, focused); err != nil && !platform.Is(err, platform.CodeElementDetached) {
			return nil, err
		}
	}

	type scored struct {
		node      platform.Node
		proximity int
		z         int
	}
	all := make([]scored, len(matches))
	for i, m := range matches {
		path, err := e.ancestry(ctx, m)
		if err != nil && !platform.Is(err, platform.CodeElementDetached) {
			return nil, err
		}
		s := scored{node: m, proximity: commonPrefixLen(focusPath, path), z: len(windows)}
		for _, k := range path {
			if z, ok := zorder[k]; ok {
				s.z = z
				break
			}
		}
		all[i] = s
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].proximity != all[j].proximity {
			return all[i].proximity > all[j].proximity
		}
		return all[i].z < all[j].z
	})
	out := make([]platform.Node, len(all))
	for i, s := range all {
		out[i] = s.node
	}
	return out, nil
}

// ancestry returns the node keys from the desktop root down to n.
func (e *Engine) ancestry(ctx context.Context, n platform.Node) ([]string, error) {
	var rev []string
	for cur := n; cur != nil; {
		rev = append(rev, cur.Key())
		p, err := e.parent(ctx, cur)
		if err != nil {
			return nil, err
		}
		cur = p
	}
	path := make([]string, len(rev))
	for i, k := range rev {
		path[len(rev)-1-i] = k
	}
	return path, nil
}

// commonPrefixLen returns the length of the common prefix of two paths.
func commonPrefixLen(a, b []string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
