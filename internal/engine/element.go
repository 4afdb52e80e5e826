package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// Element is a handle to one live accessibility node. Copying the pointer
// is cheap; the node is released when the last handle is collected.
type Element struct {
	node   platform.Node
	engine *Engine
}

// Node returns the underlying platform node.
func (el *Element) Node() platform.Node { return el.node }

// Key identifies the node within the backend session.
func (el *Element) Key() string { return el.node.Key() }

// Engine returns the engine the element belongs to.
func (el *Element) Engine() *Engine { return el.engine }

// Equal reports whether both handles refer to the same OS node.
func (el *Element) Equal(o *Element) bool {
	return el != nil && o != nil && el.node.Key() == o.node.Key()
}

func (el *Element) String() string {
	p, err := el.Properties()
	if err != nil {
		return el.node.Key() + " (detached)"
	}
	return describe(p)
}

func describe(p platform.Properties) string {
	if p.Name == "" {
		return p.Role
	}
	return fmt.Sprintf("%s %q", p.Role, p.Name)
}

// Properties reads every attribute of the element, from the property cache
// when the engine has one.
func (el *Element) Properties() (platform.Properties, error) {
	return el.engine.props(context.Background(), el.node, false)
}

// fresh reads the element bypassing the cache.
func (el *Element) fresh(ctx context.Context) (platform.Properties, error) {
	return el.engine.props(ctx, el.node, true)
}

func (e *Engine) props(ctx context.Context, n platform.Node, fresh bool) (platform.Properties, error) {
	key := n.Key()
	if !fresh && e.caches != nil {
		p, ok, err := e.caches.properties(n)
		if err != nil {
			return platform.Properties{}, err
		}
		if ok {
			return p, nil
		}
	}
	var p platform.Properties
	err := e.run(ctx, func() error {
		var rerr error
		p, rerr = n.Properties()
		return rerr
	})
	if err != nil {
		return platform.Properties{}, err
	}
	if e.caches != nil {
		e.caches.storeProperties(key, p)
	}
	return p, nil
}

// Role returns the normalized role, or the raw platform role when it has
// no mapping.
func (el *Element) Role() (string, error) {
	p, err := el.Properties()
	return p.Role, err
}

// RawRole returns the role as the accessibility API reported it.
func (el *Element) RawRole() (string, error) {
	p, err := el.Properties()
	return p.RawRole, err
}

// Name returns the accessible name.
func (el *Element) Name() (string, error) {
	p, err := el.Properties()
	return p.Name, err
}

// ID returns the engine-internal id.
func (el *Element) ID() (string, error) {
	p, err := el.Properties()
	return p.ID, err
}

// NativeID returns the platform automation id.
func (el *Element) NativeID() (string, error) {
	p, err := el.Properties()
	return p.NativeID, err
}

// ClassName returns the platform class name.
func (el *Element) ClassName() (string, error) {
	p, err := el.Properties()
	return p.ClassName, err
}

// ProcessID returns the owning process id.
func (el *Element) ProcessID() (int, error) {
	p, err := el.Properties()
	return p.PID, err
}

// Attributes returns the platform attribute map.
func (el *Element) Attributes() (map[string]string, error) {
	p, err := el.Properties()
	return p.Attributes, err
}

// Bounds returns the bounding rectangle in screen pixels.
func (el *Element) Bounds() (platform.Bounds, error) {
	p, err := el.Properties()
	return p.Bounds, err
}

// Value returns the text value.
func (el *Element) Value() (string, error) {
	p, err := el.Properties()
	return p.Value, err
}

// IsEnabled reports whether the element accepts input.
func (el *Element) IsEnabled() (bool, error) {
	p, err := el.Properties()
	return p.Enabled, err
}

// IsVisible reports whether the element is on screen.
func (el *Element) IsVisible() (bool, error) {
	p, err := el.Properties()
	return p.Visible && !p.Offscreen && !p.Bounds.Empty(), err
}

// IsFocused reports whether the element has keyboard focus.
func (el *Element) IsFocused() (bool, error) {
	p, err := el.engine.props(context.Background(), el.node, true)
	return p.Focused, err
}

// IsToggled reports whether a toggleable element is on. Elements without
// the toggle pattern fail UNSUPPORTED_OPERATION.
func (el *Element) IsToggled() (bool, error) {
	p, err := el.Properties()
	if err != nil {
		return false, err
	}
	if p.Toggled == nil {
		return false, platform.Unsupported("toggle state of " + describe(p))
	}
	return *p.Toggled == platform.ToggleOn, nil
}

// ToggleState returns the tri-valued toggle state, or nil when the element
// cannot be toggled.
func (el *Element) ToggleState() (*platform.ToggleState, error) {
	p, err := el.Properties()
	return p.Toggled, err
}

// IsSelected reports the selection state.
func (el *Element) IsSelected() (bool, error) {
	p, err := el.Properties()
	return p.Selected, err
}

// RangeValue returns the numeric state of sliders and progress bars.
func (el *Element) RangeValue() (platform.RangeValue, error) {
	p, err := el.Properties()
	if err != nil {
		return platform.RangeValue{}, err
	}
	if p.Range == nil {
		return platform.RangeValue{}, platform.Unsupported("range value of " + describe(p))
	}
	return *p.Range, nil
}

// Children returns the direct children.
func (el *Element) Children() ([]*Element, error) {
	kids, err := el.engine.children(context.Background(), el.node)
	if err != nil {
		return nil, err
	}
	out := make([]*Element, len(kids))
	for i, k := range kids {
		out[i] = el.engine.wrap(k)
	}
	return out, nil
}

func (e *Engine) children(ctx context.Context, n platform.Node) ([]platform.Node, error) {
	var kids []platform.Node
	err := e.run(ctx, func() error {
		var rerr error
		kids, rerr = n.Children()
		return rerr
	})
	return kids, err
}

func (e *Engine) parent(ctx context.Context, n platform.Node) (platform.Node, error) {
	var p platform.Node
	err := e.run(ctx, func() error {
		var rerr error
		p, rerr = n.Parent()
		return rerr
	})
	return p, err
}

// Parent returns the parent element, or nil at the desktop root.
func (el *Element) Parent() (*Element, error) {
	p, err := el.engine.parent(context.Background(), el.node)
	if err != nil || p == nil {
		return nil, err
	}
	return el.engine.wrap(p), nil
}

// Window returns the top-level window containing the element.
func (el *Element) Window() (*Element, error) {
	return el.window(context.Background())
}

func (el *Element) window(ctx context.Context) (*Element, error) {
	return el.ancestor(ctx, func(p platform.Properties) bool {
		return p.Role == model.RoleWindow || p.Role == model.RoleDialog
	}, "window")
}

// Application returns the application owning the element.
func (el *Element) Application() (*Element, error) {
	return el.ancestor(context.Background(), func(p platform.Properties) bool {
		return p.Role == model.RoleApplication
	}, "application")
}

// ancestor returns the outermost ancestor-or-self accepted by match.
func (el *Element) ancestor(ctx context.Context, match func(platform.Properties) bool, what string) (*Element, error) {
	var found platform.Node
	for n := el.node; n != nil; {
		p, err := el.engine.props(ctx, n, false)
		if err != nil {
			return nil, err
		}
		if match(p) {
			found = n
		}
		n, err = el.engine.parent(ctx, n)
		if err != nil {
			return nil, err
		}
	}
	if found == nil {
		return nil, platform.Errorf(platform.CodeElementNotFound, "element has no owning %s", what)
	}
	return el.engine.wrap(found), nil
}

// Text collects the values, or names when there is no value, of the
// element and its descendants down to maxDepth levels.
func (el *Element) Text(maxDepth int) (string, error) {
	var parts []string
	var walk func(n platform.Node, depth int) error
	walk = func(n platform.Node, depth int) error {
		p, err := el.engine.props(context.Background(), n, depth == 0)
		if err != nil {
			return err
		}
		s := p.Value
		if s == "" {
			s = p.Name
		}
		if s = strings.TrimSpace(s); s != "" && (len(parts) == 0 || parts[len(parts)-1] != s) {
			parts = append(parts, s)
		}
		if depth >= maxDepth {
			return nil
		}
		kids, err := el.engine.children(context.Background(), n)
		if err != nil {
			return err
		}
		for _, k := range kids {
			if err := walk(k, depth+1); err != nil && !platform.Is(err, platform.CodeElementDetached) {
				return err
			}
		}
		return nil
	}
	if err := walk(el.node, 0); err != nil {
		return "", err
	}
	return strings.Join(parts, "\n"), nil
}

// ToSerializableTree snapshots the element's subtree down to depth levels.
func (el *Element) ToSerializableTree(depth int) (*model.Node, error) {
	b := treeBuilder{engine: el.engine, ctx: context.Background(), cfg: TreeBuildConfig{
		PropertyMode: PropertyComplete,
		MaxDepth:     depth,
	}}
	return b.build(el.node, 0)
}

// URL returns the address bar contents of the browser tab owning the
// element. It fails UNSUPPORTED_OPERATION outside a browser.
func (el *Element) URL(ctx context.Context) (string, error) {
	win, err := el.Window()
	if err != nil {
		return "", err
	}
	var url string
	err = el.engine.walk(ctx, win.node, el.engine.cfg.Resolver.MaxDepth, func(n platform.Node, p platform.Properties) (bool, error) {
		if u := p.Attributes["url"]; u != "" && p.Role == model.RoleDocument {
			url = u
			return false, nil
		}
		if p.Role == model.RoleEdit && isAddressBar(p.Name) && p.Value != "" {
			url = p.Value
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return "", err
	}
	if url == "" {
		return "", platform.Unsupported("url of a window without an address bar")
	}
	return url, nil
}

func isAddressBar(name string) bool {
	n := strings.ToLower(name)
	for _, hint := range []string{"address", "location", "url", "search or enter"} {
		if strings.Contains(n, hint) {
			return true
		}
	}
	return false
}
