package platform

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/mj1618/desktop-automation/internal/model"
)

// MouseButton represents a mouse button.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

// ParseMouseButton converts a string flag value to MouseButton.
func ParseMouseButton(s string) (MouseButton, error) {
	switch strings.ToLower(s) {
	case "left", "":
		return MouseLeft, nil
	case "right":
		return MouseRight, nil
	case "middle":
		return MouseMiddle, nil
	default:
		return MouseLeft, fmt.Errorf("unknown mouse button: %q (expected left, right, or middle)", s)
	}
}

// Bounds represents a screen rectangle in pixels.
type Bounds struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"w" yaml:"w"`
	Height int `json:"h" yaml:"h"`
}

// ParseBBox parses a "x,y,w,h" string into a Bounds.
func ParseBBox(s string) (*Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("invalid bbox %q: expected x,y,w,h", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid bbox %q: %w", s, err)
		}
		vals[i] = v
	}
	return &Bounds{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}, nil
}

// Empty reports whether the rectangle has no area.
func (b Bounds) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Center returns the centre point.
func (b Bounds) Center() (int, int) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Contains reports whether the point lies inside the rectangle.
func (b Bounds) Contains(x, y int) bool {
	return x >= b.X && x < b.X+b.Width && y >= b.Y && y < b.Y+b.Height
}

// Intersects reports whether two rectangles overlap.
func (b Bounds) Intersects(o Bounds) bool {
	return b.X < o.X+o.Width && b.X+b.Width > o.X &&
		b.Y < o.Y+o.Height && b.Y+b.Height > o.Y
}

// Intersect returns the overlapping part of two rectangles.
func (b Bounds) Intersect(o Bounds) Bounds {
	r := image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height).
		Intersect(image.Rect(o.X, o.Y, o.X+o.Width, o.Y+o.Height))
	return Bounds{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Monitor describes one physical display in the shared screen coordinate space.
type Monitor struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	X           int     `json:"x" yaml:"x"`
	Y           int     `json:"y" yaml:"y"`
	Width       int     `json:"width" yaml:"width"`
	Height      int     `json:"height" yaml:"height"`
	ScaleFactor float64 `json:"scale_factor" yaml:"scale_factor"`
	IsPrimary   bool    `json:"is_primary" yaml:"is_primary"`
}

// Bounds returns the monitor rectangle.
func (m Monitor) Bounds() Bounds {
	return Bounds{X: m.X, Y: m.Y, Width: m.Width, Height: m.Height}
}

// ContainsPoint reports whether the point lies on this monitor.
func (m Monitor) ContainsPoint(x, y int) bool {
	return m.Bounds().Contains(x, y)
}

// Center returns the centre point of the monitor.
func (m Monitor) Center() (int, int) {
	return m.Bounds().Center()
}

// Screenshot holds raw RGBA pixels, row-major with a top-left origin.
type Screenshot struct {
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Pix     []byte   `json:"-"`
	Monitor *Monitor `json:"monitor,omitempty"`
}

// Image wraps the pixels as an *image.RGBA without copying.
func (s *Screenshot) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    s.Pix,
		Stride: s.Width * 4,
		Rect:   image.Rect(0, 0, s.Width, s.Height),
	}
}

// NewScreenshot copies an image into the RGBA layout.
func NewScreenshot(img image.Image, mon *Monitor) *Screenshot {
	b := img.Bounds()
	s := &Screenshot{Width: b.Dx(), Height: b.Dy(), Monitor: mon}
	s.Pix = make([]byte, s.Width*s.Height*4)
	rgba := s.Image()
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			rgba.Set(x, y, img.At(b.Min.X+x, b.Min.Y+y))
		}
	}
	return s
}

// ToggleState is the tri-valued toggle pattern state.
type ToggleState int

const (
	ToggleOff ToggleState = iota
	ToggleOn
	ToggleIndeterminate
)

func (t ToggleState) String() string {
	switch t {
	case ToggleOn:
		return "on"
	case ToggleIndeterminate:
		return "indeterminate"
	default:
		return "off"
	}
}

// RangeValue is the numeric state of sliders, spinners and progress bars.
type RangeValue struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Value float64 `json:"value"`
}

// Properties is one read of a node's attributes. Role is the normalized role;
// RawRole is what the accessibility API reported.
type Properties struct {
	Role      string
	RawRole   string
	Name      string
	ID        string
	NativeID  string
	ClassName string
	PID       int
	Bounds    Bounds
	Enabled   bool
	Visible   bool
	// Offscreen is set for visible elements scrolled outside their viewport.
	Offscreen  bool
	Focusable  bool
	Focused    bool
	Toggled    *ToggleState
	Selected   bool
	Range      *RangeValue
	Value      string
	Actions    []string
	Attributes map[string]string
	// Started is the process start time, only filled for application nodes.
	Started time.Time
}

// Window is a top-level window with its stacking position. ZOrder 0 is frontmost.
type Window struct {
	Node    Node
	App     string
	PID     int
	Title   string
	Bounds  Bounds
	Focused bool
	ZOrder  int
}

// Snapshot returns the serializable form of w.
func (w Window) Snapshot() model.Window {
	return model.Window{
		App:     w.App,
		PID:     w.PID,
		Title:   w.Title,
		Bounds:  model.Rect{X: w.Bounds.X, Y: w.Bounds.Y, W: w.Bounds.Width, H: w.Bounds.Height},
		Focused: w.Focused,
		ZOrder:  w.ZOrder,
	}
}

// Browser selects the browser used to open URLs.
type Browser string

const (
	BrowserDefault Browser = ""
	BrowserChrome  Browser = "chrome"
	BrowserFirefox Browser = "firefox"
	BrowserEdge    Browser = "edge"
	BrowserBrave   Browser = "brave"
	BrowserOpera   Browser = "opera"
	BrowserVivaldi Browser = "vivaldi"
)

// ParseBrowser converts a flag value to a Browser.
func ParseBrowser(s string) (Browser, error) {
	switch b := Browser(strings.ToLower(strings.TrimSpace(s))); b {
	case BrowserDefault, BrowserChrome, BrowserFirefox, BrowserEdge, BrowserBrave, BrowserOpera, BrowserVivaldi:
		return b, nil
	case "default":
		return BrowserDefault, nil
	default:
		return BrowserDefault, fmt.Errorf("unknown browser: %q", s)
	}
}

// TextPosition places highlight text relative to the highlighted rectangle.
type TextPosition string

const (
	TextTop         TextPosition = "top"
	TextTopRight    TextPosition = "top_right"
	TextRight       TextPosition = "right"
	TextBottomRight TextPosition = "bottom_right"
	TextBottom      TextPosition = "bottom"
	TextBottomLeft  TextPosition = "bottom_left"
	TextLeft        TextPosition = "left"
	TextTopLeft     TextPosition = "top_left"
	TextInside      TextPosition = "inside"
)

// FontStyle configures highlight text.
type FontStyle struct {
	Size  int
	Bold  bool
	Color color.RGBA
}

// HighlightOptions describes one overlay.
type HighlightOptions struct {
	Bounds   Bounds
	Color    color.RGBA
	Text     string
	Position TextPosition
	Font     FontStyle
}

// ScrollDirection is a scroll direction.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// ParseScrollDirection converts a flag value to a ScrollDirection.
func ParseScrollDirection(s string) (ScrollDirection, error) {
	switch d := ScrollDirection(strings.ToLower(s)); d {
	case ScrollUp, ScrollDown, ScrollLeft, ScrollRight:
		return d, nil
	default:
		return "", fmt.Errorf("unknown scroll direction: %q (expected up, down, left, or right)", s)
	}
}

// Accessibility action names understood by ActionPerformer.
const (
	ActionInvoke         = "invoke"
	ActionFocus          = "focus"
	ActionScrollIntoView = "scroll_into_view"
	ActionClose          = "close"
	ActionExpand         = "expand"
	ActionCollapse       = "collapse"
	ActionShowMenu       = "show_menu"
)

// ProbeResult is a backend's answer to a liveness probe.
type ProbeResult struct {
	APIAvailable bool
	Diagnostics  map[string]string
}
