package linux

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/jezek/xgb"
	"github.com/jezek/xgb/randr"
	"github.com/jezek/xgb/xproto"
	"github.com/jezek/xgb/xtest"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// display is one X11 connection. The xgb connection is safe for concurrent
// use; mu guards the atom and keymap caches.
type display struct {
	name   string
	conn   *xgb.Conn
	setup  *xproto.SetupInfo
	screen *xproto.ScreenInfo
	xtest  bool
	randr  bool

	mu     sync.Mutex
	atoms  map[string]xproto.Atom
	keymap *keymap
}

func openDisplay(name string) (*display, error) {
	conn, err := xgb.NewConnDisplay(name)
	if err != nil {
		return nil, err
	}
	setup := xproto.Setup(conn)
	d := &display{
		name:   name,
		conn:   conn,
		setup:  setup,
		screen: setup.DefaultScreen(conn),
		atoms:  map[string]xproto.Atom{},
	}
	d.xtest = xtest.Init(conn) == nil
	d.randr = randr.Init(conn) == nil
	return d, nil
}

func (d *display) close() {
	d.conn.Close()
}

func (d *display) root() xproto.Window {
	return d.screen.Root
}

func (d *display) atom(name string) (xproto.Atom, error) {
	d.mu.Lock()
	a, ok := d.atoms[name]
	d.mu.Unlock()
	if ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(d.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, platform.NewPlatformError("intern_atom", name).WithCause(err)
	}
	d.mu.Lock()
	d.atoms[name] = reply.Atom
	d.mu.Unlock()
	return reply.Atom, nil
}

func (d *display) property(win xproto.Window, name string) (*xproto.GetPropertyReply, error) {
	a, err := d.atom(name)
	if err != nil {
		return nil, err
	}
	reply, err := xproto.GetProperty(d.conn, false, win, a, xproto.GetPropertyTypeAny, 0, 1<<16).Reply()
	if err != nil {
		return nil, platform.NewPlatformError("get_property", name).WithCause(err)
	}
	return reply, nil
}

// cardinals decodes a 32-bit property.
func cardinals(reply *xproto.GetPropertyReply) []uint32 {
	if reply == nil || reply.Format != 32 {
		return nil
	}
	out := make([]uint32, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		out = append(out, xgb.Get32(reply.Value[i:]))
	}
	return out
}

func (d *display) windowTitle(win xproto.Window) string {
	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		if reply, err := d.property(win, name); err == nil && len(reply.Value) > 0 {
			return string(reply.Value)
		}
	}
	return ""
}

func (d *display) windowPID(win xproto.Window) int {
	reply, err := d.property(win, "_NET_WM_PID")
	if err != nil {
		return 0
	}
	if v := cardinals(reply); len(v) > 0 {
		return int(v[0])
	}
	return 0
}

func (d *display) activeWindow() xproto.Window {
	reply, err := d.property(d.root(), "_NET_ACTIVE_WINDOW")
	if err != nil {
		return 0
	}
	if v := cardinals(reply); len(v) > 0 {
		return xproto.Window(v[0])
	}
	return 0
}

// topLevels lists managed client windows front to back using the EWMH
// stacking list.
func (d *display) topLevels() ([]xWindow, error) {
	var ids []uint32
	for _, name := range []string{"_NET_CLIENT_LIST_STACKING", "_NET_CLIENT_LIST"} {
		reply, err := d.property(d.root(), name)
		if err != nil {
			return nil, err
		}
		if ids = cardinals(reply); len(ids) > 0 {
			break
		}
	}
	if len(ids) == 0 {
		return nil, platform.NewPlatformError("list_windows", "window manager publishes no client list")
	}
	active := d.activeWindow()
	out := make([]xWindow, 0, len(ids))
	// The stacking list runs bottom to top.
	for i := len(ids) - 1; i >= 0; i-- {
		w := xproto.Window(ids[i])
		out = append(out, xWindow{
			ID:     ids[i],
			PID:    d.windowPID(w),
			Title:  d.windowTitle(w),
			Active: w == active,
		})
	}
	return out, nil
}

// activate asks the window manager to raise and focus win.
func (d *display) activate(win xproto.Window) error {
	a, err := d.atom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   a,
		// Source indication 2: a pager, which window managers always honour.
		Data: xproto.ClientMessageDataUnionData32New([]uint32{2, 0, 0, 0, 0}),
	}
	mask := uint32(xproto.EventMaskSubstructureRedirect | xproto.EventMaskSubstructureNotify)
	if err := xproto.SendEventChecked(d.conn, false, d.root(), mask, string(ev.Bytes())).Check(); err != nil {
		return platform.NewPlatformError("activate", "window manager refused _NET_ACTIVE_WINDOW").WithCause(err)
	}
	return nil
}

// Monitors implements platform.Screenshotter.
func (d *display) Monitors() ([]platform.Monitor, error) {
	if !d.randr {
		return []platform.Monitor{d.screenMonitor()}, nil
	}
	res, err := randr.GetScreenResourcesCurrent(d.conn, d.root()).Reply()
	if err != nil {
		return nil, platform.NewPlatformError("monitors", "RandR screen resources").WithCause(err)
	}
	var primary randr.Output
	if p, err := randr.GetOutputPrimary(d.conn, d.root()).Reply(); err == nil {
		primary = p.Output
	}
	var mons []platform.Monitor
	for _, out := range res.Outputs {
		info, err := randr.GetOutputInfo(d.conn, out, res.ConfigTimestamp).Reply()
		if err != nil || info.Connection != randr.ConnectionConnected || info.Crtc == 0 {
			continue
		}
		crtc, err := randr.GetCrtcInfo(d.conn, info.Crtc, res.ConfigTimestamp).Reply()
		if err != nil || crtc.Width == 0 {
			continue
		}
		mons = append(mons, platform.Monitor{
			ID:          strconv.FormatUint(uint64(out), 10),
			Name:        string(info.Name),
			X:           int(crtc.X),
			Y:           int(crtc.Y),
			Width:       int(crtc.Width),
			Height:      int(crtc.Height),
			ScaleFactor: 1,
			IsPrimary:   out == primary,
		})
	}
	if len(mons) == 0 {
		return []platform.Monitor{d.screenMonitor()}, nil
	}
	markPrimary(mons)
	return mons, nil
}

// markPrimary makes the monitor at the origin primary when RandR names none.
func markPrimary(mons []platform.Monitor) {
	for _, m := range mons {
		if m.IsPrimary {
			return
		}
	}
	best := 0
	for i, m := range mons {
		if m.X == 0 && m.Y == 0 {
			best = i
			break
		}
	}
	mons[best].IsPrimary = true
}

func (d *display) screenMonitor() platform.Monitor {
	return platform.Monitor{
		ID:          "0",
		Name:        "screen",
		Width:       int(d.screen.WidthInPixels),
		Height:      int(d.screen.HeightInPixels),
		ScaleFactor: 1,
		IsPrimary:   true,
	}
}

// Capture implements platform.Screenshotter.
func (d *display) Capture(rect platform.Bounds) (*platform.Screenshot, error) {
	screen := platform.Bounds{Width: int(d.screen.WidthInPixels), Height: int(d.screen.HeightInPixels)}
	r := rect.Intersect(screen)
	if r.Empty() {
		return nil, platform.Errorf(platform.CodeInvalidArgument, "capture rectangle %+v lies outside the screen", rect)
	}
	img, err := xproto.GetImage(d.conn, xproto.ImageFormatZPixmap, xproto.Drawable(d.root()),
		int16(r.X), int16(r.Y), uint16(r.Width), uint16(r.Height), 0xffffffff).Reply()
	if err != nil {
		return nil, platform.NewPlatformError("capture", "GetImage failed").WithCause(err)
	}
	if len(img.Data) < r.Width*r.Height*4 {
		return nil, platform.NewPlatformError("capture",
			fmt.Sprintf("unsupported pixel format: depth %d, %d bytes for %dx%d", img.Depth, len(img.Data), r.Width, r.Height))
	}
	return &platform.Screenshot{Width: r.Width, Height: r.Height, Pix: bgrxToRGBA(img.Data, r.Width, r.Height)}, nil
}

// bgrxToRGBA converts 32-bit ZPixmap rows (little-endian BGRX) to opaque RGBA.
func bgrxToRGBA(data []byte, w, h int) []byte {
	pix := make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		s := data[i*4 : i*4+4]
		pix[i*4] = s[2]
		pix[i*4+1] = s[1]
		pix[i*4+2] = s[0]
		pix[i*4+3] = 0xff
	}
	return pix
}

var (
	_ platform.Screenshotter = (*display)(nil)
	_ platform.Inputter      = (*display)(nil)
	_ platform.Highlighter   = (*display)(nil)
)
