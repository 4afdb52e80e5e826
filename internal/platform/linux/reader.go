package linux

import (
	"sort"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

const (
	maxFocusSearch = 4000
	maxHitDepth    = 64
)

// Root implements platform.Reader.
func (b *Backend) Root() (platform.Node, error) {
	return b.node(ref{Name: registryBus, Path: rootPath}), nil
}

// Applications implements platform.Reader.
func (b *Backend) Applications() ([]platform.Node, error) {
	root, _ := b.Root()
	return root.Children()
}

// frameInfo is a top-level AT-SPI frame with the fields window matching
// needs.
type frameInfo struct {
	node   platform.Node
	app    string
	pid    int
	title  string
	bounds platform.Bounds
	active bool
}

func (b *Backend) frames() ([]frameInfo, error) {
	apps, err := b.Applications()
	if err != nil {
		return nil, err
	}
	var out []frameInfo
	for _, app := range apps {
		ap, err := app.Properties()
		if err != nil {
			// Applications come and go while we walk.
			b.logger.Debug("skipping application", zap.String("key", app.Key()), zap.Error(err))
			continue
		}
		kids, err := app.Children()
		if err != nil {
			continue
		}
		for _, k := range kids {
			a, ok := k.(*accessible)
			if !ok {
				continue
			}
			p, err := a.Properties()
			if err != nil {
				continue
			}
			if p.Role != model.RoleWindow && p.Role != model.RoleDialog {
				continue
			}
			st, _ := a.state()
			out = append(out, frameInfo{
				node:   a,
				app:    ap.Name,
				pid:    p.PID,
				title:  p.Name,
				bounds: p.Bounds,
				active: st.has(stateActive),
			})
		}
	}
	return out, nil
}

// ListWindows implements platform.Reader. The X stacking order decides the
// z-order when a display is available; otherwise the active frame comes
// first.
func (b *Backend) ListWindows() ([]platform.Window, error) {
	frames, err := b.frames()
	if err != nil {
		return nil, err
	}
	var xwins []xWindow
	if b.x != nil {
		if xwins, err = b.x.topLevels(); err != nil {
			b.logger.Debug("x11 stacking order unavailable", zap.Error(err))
		}
	}
	return matchWindows(xwins, frames), nil
}

// xWindow is a managed X11 client window.
type xWindow struct {
	ID     uint32
	PID    int
	Title  string
	Active bool
}

// matchWindows pairs X11 client windows, front to back, with AT-SPI frames:
// first by pid and title, then by pid alone. Frames no X window claims
// follow in accessibility order with the active one first.
func matchWindows(xwins []xWindow, frames []frameInfo) []platform.Window {
	used := make([]bool, len(frames))
	out := make([]platform.Window, 0, len(frames))
	add := func(i int, focused bool) {
		used[i] = true
		f := frames[i]
		out = append(out, platform.Window{
			Node:    f.node,
			App:     f.app,
			PID:     f.pid,
			Title:   f.title,
			Bounds:  f.bounds,
			Focused: focused,
			ZOrder:  len(out),
		})
	}
	pick := func(match func(f frameInfo) bool) int {
		for i, f := range frames {
			if !used[i] && match(f) {
				return i
			}
		}
		return -1
	}

	for _, xw := range xwins {
		if xw.PID == 0 {
			continue
		}
		i := pick(func(f frameInfo) bool { return f.pid == xw.PID && f.title == xw.Title })
		if i < 0 {
			i = pick(func(f frameInfo) bool { return f.pid == xw.PID })
		}
		if i >= 0 {
			add(i, xw.Active)
		}
	}

	var rest []int
	for i := range frames {
		if !used[i] {
			rest = append(rest, i)
		}
	}
	sort.SliceStable(rest, func(a, b int) bool {
		return frames[rest[a]].active && !frames[rest[b]].active
	})
	for _, i := range rest {
		add(i, len(xwins) == 0 && frames[i].active)
	}
	return out
}

// FocusedNode implements platform.Reader. AT-SPI has no global focus query,
// so the focused window's subtree is searched for the FOCUSED state.
func (b *Backend) FocusedNode() (platform.Node, error) {
	windows, err := b.ListWindows()
	if err != nil {
		return nil, err
	}
	var win platform.Node
	for _, w := range windows {
		if w.Focused {
			win = w.Node
			break
		}
	}
	if win == nil {
		return nil, nil
	}
	queue := []platform.Node{win}
	for seen := 0; len(queue) > 0 && seen < maxFocusSearch; seen++ {
		n := queue[0]
		queue = queue[1:]
		a, ok := n.(*accessible)
		if !ok {
			continue
		}
		st, err := a.state()
		if err != nil {
			continue
		}
		if st.has(stateFocused) {
			return a, nil
		}
		if !st.has(stateShowing) && n != win {
			continue
		}
		kids, err := a.Children()
		if err != nil {
			continue
		}
		queue = append(queue, kids...)
	}
	return win, nil
}

// NodeAt implements platform.Reader: the frontmost window containing the
// point is descended with Component.GetAccessibleAtPoint.
func (b *Backend) NodeAt(x, y int) (platform.Node, error) {
	windows, err := b.ListWindows()
	if err != nil {
		return nil, err
	}
	for _, w := range windows {
		if !w.Bounds.Contains(x, y) {
			continue
		}
		cur, ok := w.Node.(*accessible)
		if !ok {
			return w.Node, nil
		}
		for depth := 0; depth < maxHitDepth; depth++ {
			var child ref
			err := cur.call(ifComponent+".GetAccessibleAtPoint", []any{&child}, int32(x), int32(y), coordScreen)
			if err != nil || child.null() || (child.Name == cur.ref.Name && child.Path == cur.ref.Path) {
				break
			}
			cur = b.node(child)
		}
		return cur, nil
	}
	return nil, nil
}

var _ platform.Reader = (*Backend)(nil)
