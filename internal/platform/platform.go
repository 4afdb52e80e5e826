package platform

// Node is a live reference to one accessibility node. Implementations are
// owned by a single backend and must be safe to use from any goroutine that
// the engine dispatches on.
type Node interface {
	// Key identifies the node within a backend session; two Nodes with the
	// same Key refer to the same OS element.
	Key() string

	// Properties reads the node's attributes. Fails ELEMENT_DETACHED when the
	// OS node no longer exists.
	Properties() (Properties, error)

	// Children returns the direct children in accessibility order.
	Children() ([]Node, error)

	// Parent returns the parent, or nil at the desktop root.
	Parent() (Node, error)

	// Alive reports whether the OS node still exists.
	Alive() bool
}

// Reader walks the OS accessibility tree.
type Reader interface {
	// Root returns the desktop root node.
	Root() (Node, error)

	// Applications returns the top-level application nodes.
	Applications() ([]Node, error)

	// ListWindows returns top-level windows ordered front to back.
	ListWindows() ([]Window, error)

	// FocusedNode returns the node with keyboard focus, or nil.
	FocusedNode() (Node, error)

	// NodeAt hit-tests a screen point and returns the deepest node there.
	NodeAt(x, y int) (Node, error)
}

// Inputter simulates mouse and keyboard input.
type Inputter interface {
	Click(x, y int, button MouseButton, count int) error
	MoveMouse(x, y int) error
	Scroll(x, y int, dx, dy int) error
	TypeText(text string, delayMs int) error
	KeyCombo(keys []string) error
}

// WindowManager manages applications and window focus.
type WindowManager interface {
	// Activate brings the application with the given pid to the front.
	Activate(pid int) error
	GetFrontmostApp() (string, int, error)
	// Launch starts an application by name, path or URI and returns its pid,
	// or 0 when the OS does not report one.
	Launch(target string) (int, error)
	OpenURL(url string, browser Browser) (int, error)
	OpenFile(path string) error
}

// Screenshotter enumerates monitors and captures pixels.
type Screenshotter interface {
	Monitors() ([]Monitor, error)
	Capture(rect Bounds) (*Screenshot, error)
}

// ActionPerformer fires accessibility actions on a node.
type ActionPerformer interface {
	PerformAction(n Node, action string) error
}

// ValueSetter writes pattern state on a node.
type ValueSetter interface {
	SetValue(n Node, value string) error
	SetToggled(n Node, on bool) error
	SetSelected(n Node, selected bool) error
	SetRangeValue(n Node, value float64) error
}

// Overlay is an on-screen highlight owned by the caller.
type Overlay interface {
	Close() error
}

// Highlighter draws highlight overlays.
type Highlighter interface {
	Highlight(opts HighlightOptions) (Overlay, error)
}

// ClipboardManager reads and writes the system clipboard.
type ClipboardManager interface {
	GetText() (string, error)
	SetText(text string) error
	Clear() error
}

// Prober reports whether the accessibility subsystem is usable.
type Prober interface {
	Probe() ProbeResult
}
