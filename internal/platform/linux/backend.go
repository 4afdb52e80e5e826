// Package linux drives Linux desktops: the element tree comes from AT-SPI
// over D-Bus, input, screenshots, monitors and overlays from X11 (XTest,
// RandR and override-redirect windows).
package linux

import (
	"os"
	"strconv"
	"sync"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func init() {
	platform.Register("linux", func(opts platform.ProviderOptions) (*platform.Provider, error) {
		b, err := New(opts)
		if err != nil {
			return nil, err
		}
		return b.Provider(), nil
	})
}

// Backend holds the accessibility bus and X display connections.
type Backend struct {
	bus    *dbus.Conn
	x      *display
	xvfb   *xvfb
	logger *zap.Logger
	trace  bool

	mu   sync.Mutex
	pids map[string]int
}

// New connects to the accessibility bus and the X display. The display is
// optional: without it the tree can be read but input and capture fail.
func New(opts platform.ProviderOptions) (*Backend, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "linux_backend"))

	bus, err := connectA11y()
	if err != nil {
		return nil, err
	}
	b := &Backend{
		bus:    bus,
		logger: logger,
		trace:  opts.Trace,
		pids:   map[string]int{},
	}

	name := os.Getenv("DISPLAY")
	if opts.Headless && opts.Display != "" {
		name = opts.Display
	}
	x, err := openDisplay(name)
	if err != nil && opts.Headless {
		logger.Info("no X server on the headless display, starting Xvfb", zap.String("display", name), zap.Error(err))
		b.xvfb, x, err = startXvfb(name, openDisplay, xvfbStartTimeout, logger)
		if err != nil {
			_ = bus.Close()
			return nil, err
		}
	}
	if err != nil {
		logger.Warn("X display unavailable; input, capture and overlays are disabled", zap.String("display", name), zap.Error(err))
	} else {
		b.x = x
		if opts.Headless {
			// Applications launched from this process open their windows here.
			_ = os.Setenv("DISPLAY", name)
		}
	}
	logger.Info("linux backend ready", zap.String("display", name), zap.Bool("x11", b.x != nil))
	return b, nil
}

// Provider exposes the backend through the capability interfaces.
func (b *Backend) Provider() *platform.Provider {
	p := &platform.Provider{
		Name:             "linux",
		Reader:           b,
		WindowManager:    b,
		ActionPerformer:  b,
		ValueSetter:      b,
		ClipboardManager: clipboard{},
		Prober:           b,
		Close:            b.Close,
	}
	if b.x != nil {
		p.Inputter = b.x
		p.Screenshotter = b.x
		p.Highlighter = b.x
	}
	return p
}

// Close drops both connections and stops an Xvfb this backend started.
func (b *Backend) Close() error {
	if b.x != nil {
		b.x.close()
	}
	if b.xvfb != nil {
		b.xvfb.stop()
		b.xvfb = nil
	}
	return b.bus.Close()
}

// Probe implements platform.Prober.
func (b *Backend) Probe() platform.ProbeResult {
	diag := map[string]string{"backend": "linux"}
	res := platform.ProbeResult{Diagnostics: diag}

	var enabled bool
	if session, err := dbus.SessionBus(); err == nil {
		if err := getProperty(session, ref{Name: "org.a11y.Bus", Path: "/org/a11y/bus"}, "org.a11y.Status.IsEnabled", &enabled); err != nil {
			diag["a11y_status"] = err.Error()
		} else {
			diag["a11y_enabled"] = strconv.FormatBool(enabled)
		}
	}

	var apps int32
	if err := getProperty(b.bus, ref{Name: registryBus, Path: rootPath}, ifAccessible+".ChildCount", &apps); err != nil {
		diag["registry"] = err.Error()
		return res
	}
	diag["applications"] = strconv.Itoa(int(apps))
	diag["x11"] = strconv.FormatBool(b.x != nil)
	if b.x != nil {
		diag["display"] = b.x.name
		diag["xtest"] = strconv.FormatBool(b.x.xtest)
		diag["randr"] = strconv.FormatBool(b.x.randr)
	}
	if b.xvfb != nil {
		diag["xvfb"] = strconv.FormatBool(b.xvfb.running())
	}
	res.APIAvailable = true
	return res
}
