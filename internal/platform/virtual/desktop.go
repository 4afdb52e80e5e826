// Package virtual is an in-memory desktop. It implements every platform
// capability deterministically so the engine and the CLI can run without an
// accessibility subsystem, and it exposes hooks that tests use to script
// application behaviour.
package virtual

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// Hook is called after a simulated interaction, without the desktop lock
// held, so it may mutate the desktop.
type Hook func(d *Desktop, n *Node)

// Event is one recorded synthetic input event.
type Event struct {
	Kind   string
	X, Y   int
	DX, DY int
	Button platform.MouseButton
	Count  int
	Text   string
	Keys   []string
	Target string
}

// Desktop is the root of the virtual accessibility tree.
type Desktop struct {
	mu sync.Mutex

	root      *Node
	nextKey   int
	nextPID   int
	monitors  []platform.Monitor
	zorder    []*Node
	focused   *Node
	pointer   [2]int
	clipboard string
	overlays  map[int]platform.HighlightOptions
	nextOv    int
	events    []Event
	zoom      int
	writes    map[string]int
	apiDown   bool

	// HitTest enables NodeAt. Disabled desktops report it unsupported.
	HitTest bool
	// RequireApartment makes the provider ask for single-thread dispatch.
	RequireApartment bool
	// LaunchFunc replaces the default Launch behaviour of adding an
	// application with one window named after the target.
	LaunchFunc func(d *Desktop, target string) (int, error)

	logger *zap.Logger
}

// New returns an empty desktop with a single 1920x1080 primary monitor.
func New(logger *zap.Logger) *Desktop {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Desktop{
		nextPID:  1000,
		overlays: map[int]platform.HighlightOptions{},
		writes:   map[string]int{},
		HitTest:  true,
		logger:   logger.With(zap.String("component", "virtual")),
		monitors: []platform.Monitor{{
			ID: "0", Name: "Virtual-1", Width: 1920, Height: 1080, ScaleFactor: 1, IsPrimary: true,
		}},
	}
	d.root = d.newNode(nil, platform.Properties{
		Role:    model.RolePane,
		RawRole: "desktop frame",
		Name:    "Desktop",
		Bounds:  platform.Bounds{Width: 1920, Height: 1080},
		Enabled: true,
		Visible: true,
	})
	return d
}

// SetMonitors replaces the monitor layout.
func (d *Desktop) SetMonitors(mons ...platform.Monitor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.monitors = append([]platform.Monitor(nil), mons...)
}

// SetAPIAvailable toggles what Probe reports.
func (d *Desktop) SetAPIAvailable(ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.apiDown = !ok
}

// RootNode returns the desktop root.
func (d *Desktop) RootNode() *Node { return d.root }

// AddApp adds a running application. A zero pid allocates one.
func (d *Desktop) AddApp(name string, pid int) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addAppLocked(name, pid)
}

func (d *Desktop) addAppLocked(name string, pid int) *Node {
	if pid == 0 {
		d.nextPID++
		pid = d.nextPID
	}
	app := d.newNode(d.root, platform.Properties{
		Role:    model.RoleApplication,
		RawRole: "application",
		Name:    name,
		PID:     pid,
		Enabled: true,
		Visible: true,
		Started: time.Unix(int64(pid), 0),
	})
	d.root.children = append(d.root.children, app)
	return app
}

// AddWindow adds a top-level window to an application node and puts it in
// front of every other window.
func (n *Node) AddWindow(title string, bounds platform.Bounds) *Node {
	d := n.d
	d.mu.Lock()
	defer d.mu.Unlock()
	w := d.newNode(n, platform.Properties{
		Role:      model.RoleWindow,
		RawRole:   "frame",
		Name:      title,
		PID:       n.props.PID,
		Bounds:    bounds,
		Enabled:   true,
		Visible:   true,
		Focusable: true,
	})
	n.children = append(n.children, w)
	d.zorder = append([]*Node{w}, d.zorder...)
	return w
}

// Spec describes a node to add. It doubles as the fixture format.
type Spec struct {
	Role       string               `yaml:"role"`
	Name       string               `yaml:"name"`
	ID         string               `yaml:"id"`
	NativeID   string               `yaml:"native_id"`
	ClassName  string               `yaml:"class_name"`
	Bounds     platform.Bounds      `yaml:"bounds"`
	Disabled   bool                 `yaml:"disabled"`
	Hidden     bool                 `yaml:"hidden"`
	Offscreen  bool                 `yaml:"offscreen"`
	Focusable  bool                 `yaml:"focusable"`
	Toggle     string               `yaml:"toggle"`
	Selected   bool                 `yaml:"selected"`
	Range      *platform.RangeValue `yaml:"range"`
	Value      string               `yaml:"value"`
	Actions    []string             `yaml:"actions"`
	Attributes map[string]string    `yaml:"attributes"`
	// ScrollTarget is where the node lands after scroll_into_view.
	ScrollTarget *platform.Bounds `yaml:"scroll_target"`
	// Unscrollable nodes ignore scroll_into_view.
	Unscrollable bool   `yaml:"unscrollable"`
	Children     []Spec `yaml:"children"`
}

// Add appends a child described by s (and its Children) and returns it.
func (n *Node) Add(s Spec) *Node {
	d := n.d
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addLocked(n, s)
}

func (d *Desktop) addLocked(parent *Node, s Spec) *Node {
	props := platform.Properties{
		Role:       model.NormalizeRole(s.Role),
		RawRole:    s.Role,
		Name:       s.Name,
		ID:         s.ID,
		NativeID:   s.NativeID,
		ClassName:  s.ClassName,
		PID:        parent.props.PID,
		Bounds:     s.Bounds,
		Enabled:    !s.Disabled,
		Visible:    !s.Hidden,
		Offscreen:  s.Offscreen,
		Focusable:  s.Focusable,
		Selected:   s.Selected,
		Value:      s.Value,
		Actions:    append([]string(nil), s.Actions...),
		Attributes: map[string]string{},
	}
	for k, v := range s.Attributes {
		props.Attributes[k] = v
	}
	switch strings.ToLower(s.Toggle) {
	case "on", "true":
		t := platform.ToggleOn
		props.Toggled = &t
	case "off", "false":
		t := platform.ToggleOff
		props.Toggled = &t
	case "indeterminate", "mixed":
		t := platform.ToggleIndeterminate
		props.Toggled = &t
	}
	if s.Range != nil {
		r := *s.Range
		props.Range = &r
	}
	if !props.Focusable && model.IsInteractive(props.Role) {
		props.Focusable = true
	}
	child := d.newNode(parent, props)
	child.unscrollable = s.Unscrollable
	if s.ScrollTarget != nil {
		b := *s.ScrollTarget
		child.scrollTarget = &b
	}
	parent.children = append(parent.children, child)
	for _, cs := range s.Children {
		d.addLocked(child, cs)
	}
	return child
}

func (d *Desktop) newNode(parent *Node, props platform.Properties) *Node {
	d.nextKey++
	return &Node{d: d, key: fmt.Sprintf("v-%d", d.nextKey), parent: parent, props: props}
}

// Find returns the first live node, in pre-order, whose name equals name.
func (d *Desktop) Find(name string) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	var found *Node
	var walk func(n *Node)
	walk = func(n *Node) {
		if found != nil {
			return
		}
		if n != d.root && n.props.Name == name {
			found = n
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(d.root)
	return found
}

// Update mutates a node's properties under the desktop lock.
func (d *Desktop) Update(n *Node, fn func(p *platform.Properties)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&n.props)
}

// SetBounds moves a node.
func (d *Desktop) SetBounds(n *Node, b platform.Bounds) {
	d.Update(n, func(p *platform.Properties) { p.Bounds = b })
}

// Animate makes every property read of n report fn(reads) as its bounds,
// where reads counts reads since the call.
func (d *Desktop) Animate(n *Node, fn func(reads int) platform.Bounds) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n.animate = fn
	n.reads = 0
}

// Detach removes n and its subtree from the tree. Handles to them fail
// ELEMENT_DETACHED from then on.
func (d *Desktop) Detach(n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detachLocked(n)
}

func (d *Desktop) detachLocked(n *Node) {
	if n.parent != nil {
		kids := n.parent.children[:0]
		for _, c := range n.parent.children {
			if c != n {
				kids = append(kids, c)
			}
		}
		n.parent.children = kids
	}
	var mark func(*Node)
	mark = func(x *Node) {
		x.detached = true
		if d.focused == x {
			d.focused = nil
		}
		for _, c := range x.children {
			mark(c)
		}
	}
	mark(n)
	z := d.zorder[:0]
	for _, w := range d.zorder {
		if !w.detached {
			z = append(z, w)
		}
	}
	d.zorder = z
}

// OnClick sets the hook fired when n (or a descendant without its own hook)
// is clicked.
func (n *Node) OnClick(h Hook) { n.d.setHook(func() { n.onClick = h }) }

// OnHover sets the hook fired when the pointer moves onto n.
func (n *Node) OnHover(h Hook) { n.d.setHook(func() { n.onHover = h }) }

// OnInvoke sets the hook fired by the invoke action. Without one, invoke
// falls back to the click hook.
func (n *Node) OnInvoke(h Hook) { n.d.setHook(func() { n.onInvoke = h }) }

func (d *Desktop) setHook(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn()
}

// Focus moves keyboard focus to n.
func (d *Desktop) Focus(n *Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focused = n
}

// Events returns the recorded input events.
func (d *Desktop) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// Writes returns how many ValueSetter writes reached n.
func (d *Desktop) Writes(n *Node) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.writes[n.key]
}

// Overlays returns the number of open highlight overlays.
func (d *Desktop) Overlays() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.overlays)
}

// Zoom returns the net number of zoom steps since the last reset.
func (d *Desktop) Zoom() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.zoom
}

// Clipboard returns the clipboard contents.
func (d *Desktop) Clipboard() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.clipboard
}

func (d *Desktop) record(e Event) {
	d.events = append(d.events, e)
}

// Provider exposes the desktop through the platform capability interfaces.
func (d *Desktop) Provider() *platform.Provider {
	return &platform.Provider{
		Name:              "virtual",
		Reader:            d,
		Inputter:          d,
		WindowManager:     d,
		Screenshotter:     d,
		ActionPerformer:   d,
		ValueSetter:       d,
		Highlighter:       d,
		ClipboardManager:  d,
		Prober:            d,
		RequiresApartment: d.RequireApartment,
		Close:             func() error { return nil },
	}
}
