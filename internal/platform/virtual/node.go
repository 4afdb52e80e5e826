package virtual

import (
	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// Node is one element of the virtual tree.
type Node struct {
	d        *Desktop
	key      string
	parent   *Node
	children []*Node
	props    platform.Properties
	detached bool

	scrollTarget *platform.Bounds
	unscrollable bool
	animate      func(reads int) platform.Bounds
	reads        int
	allSelected  bool

	onClick  Hook
	onHover  Hook
	onInvoke Hook
}

// Key implements platform.Node.
func (n *Node) Key() string { return n.key }

// Properties implements platform.Node.
func (n *Node) Properties() (platform.Properties, error) {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	if n.detached {
		return platform.Properties{}, detached(n)
	}
	if n.animate != nil {
		n.reads++
		n.props.Bounds = n.animate(n.reads)
	}
	return n.snapshotLocked(), nil
}

func (n *Node) snapshotLocked() platform.Properties {
	p := n.props
	p.Focused = n.d.focused == n
	p.Actions = append([]string(nil), n.props.Actions...)
	if n.props.Attributes != nil {
		p.Attributes = make(map[string]string, len(n.props.Attributes))
		for k, v := range n.props.Attributes {
			p.Attributes[k] = v
		}
	}
	if n.props.Toggled != nil {
		t := *n.props.Toggled
		p.Toggled = &t
	}
	if n.props.Range != nil {
		r := *n.props.Range
		p.Range = &r
	}
	return p
}

// Children implements platform.Node.
func (n *Node) Children() ([]platform.Node, error) {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	if n.detached {
		return nil, detached(n)
	}
	out := make([]platform.Node, len(n.children))
	for i, c := range n.children {
		out[i] = c
	}
	return out, nil
}

// Parent implements platform.Node.
func (n *Node) Parent() (platform.Node, error) {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	if n.detached {
		return nil, detached(n)
	}
	if n.parent == nil {
		return nil, nil
	}
	return n.parent, nil
}

// Alive implements platform.Node.
func (n *Node) Alive() bool {
	n.d.mu.Lock()
	defer n.d.mu.Unlock()
	return !n.detached
}

func (n *Node) String() string { return n.key + " " + n.props.Role + " " + n.props.Name }

func detached(n *Node) error {
	return platform.Errorf(platform.CodeElementDetached, "node %s (%s %q) no longer exists", n.key, n.props.Role, n.props.Name)
}

// own converts a platform node back to a live node of this desktop.
func (d *Desktop) own(pn platform.Node) (*Node, error) {
	n, ok := pn.(*Node)
	if !ok || n == nil || n.d != d {
		return nil, platform.NewError(platform.CodeInvalidArgument, "node does not belong to the virtual desktop")
	}
	if n.detached {
		return nil, detached(n)
	}
	return n, nil
}

// Root implements platform.Reader.
func (d *Desktop) Root() (platform.Node, error) { return d.root, nil }

// Applications implements platform.Reader.
func (d *Desktop) Applications() ([]platform.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []platform.Node
	for _, c := range d.root.children {
		if c.props.Role == model.RoleApplication {
			out = append(out, c)
		}
	}
	return out, nil
}

// ListWindows implements platform.Reader.
func (d *Desktop) ListWindows() ([]platform.Window, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]platform.Window, 0, len(d.zorder))
	for i, w := range d.zorder {
		app := w.parent
		out = append(out, platform.Window{
			Node:    w,
			App:     app.props.Name,
			PID:     w.props.PID,
			Title:   w.props.Name,
			Bounds:  w.props.Bounds,
			Focused: i == 0,
			ZOrder:  i,
		})
	}
	return out, nil
}

// FocusedNode implements platform.Reader.
func (d *Desktop) FocusedNode() (platform.Node, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.focused == nil || d.focused.detached {
		return nil, nil
	}
	return d.focused, nil
}

// NodeAt implements platform.Reader. Windows are tested front to back and
// the deepest visible node containing the point wins; later siblings paint
// over earlier ones.
func (d *Desktop) NodeAt(x, y int) (platform.Node, error) {
	if !d.HitTest {
		return nil, platform.Unsupported("hit testing")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if n := d.hitLocked(x, y); n != nil {
		return n, nil
	}
	return d.root, nil
}

func (d *Desktop) hitLocked(x, y int) *Node {
	for _, w := range d.zorder {
		if w.props.Visible && w.props.Bounds.Contains(x, y) {
			return deepest(w, x, y)
		}
	}
	return nil
}

func deepest(n *Node, x, y int) *Node {
	for i := len(n.children) - 1; i >= 0; i-- {
		c := n.children[i]
		if !c.props.Visible || c.props.Offscreen {
			continue
		}
		if c.props.Bounds.Contains(x, y) {
			return deepest(c, x, y)
		}
	}
	return n
}

// bubble walks from n to the root and returns the first node with a hook
// selected by pick.
func bubble(n *Node, pick func(*Node) Hook) (*Node, Hook) {
	for c := n; c != nil; c = c.parent {
		if h := pick(c); h != nil {
			return c, h
		}
	}
	return nil, nil
}
