//go:build darwin && cgo

package darwin

import (
	"strconv"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func init() {
	platform.RequestPermissionsFunc = func() { trusted(true) }
	platform.Register("darwin", func(opts platform.ProviderOptions) (*platform.Provider, error) {
		b, err := New(opts)
		if err != nil {
			return nil, err
		}
		return b.Provider(), nil
	})
}

// Backend talks to the Accessibility API of the current login session.
type Backend struct {
	logger  *zap.Logger
	system  *element
	desktop *desktop
}

// New creates the backend. Missing accessibility permission is not fatal:
// calls fail PERMISSION_DENIED until it is granted and Probe reports it.
func New(opts platform.ProviderOptions) (*Backend, error) {
	if opts.Headless {
		return nil, platform.NewError(platform.CodeUnsupportedPlatform, "headless sessions need an X display; macOS has none")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backend{logger: logger.With(zap.String("component", "darwin_backend"))}
	b.system = b.systemWide()
	b.desktop = &desktop{b: b}
	if !trusted(false) {
		b.logger.Warn("accessibility permission not granted; grant it under System Settings > Privacy & Security > Accessibility")
	}
	return b, nil
}

// Provider exposes the backend through the capability interfaces. There is
// no highlighter: drawing overlays needs an AppKit run loop.
func (b *Backend) Provider() *platform.Provider {
	return &platform.Provider{
		Name:              "darwin",
		Reader:            b,
		Inputter:          inputter{},
		WindowManager:     b,
		Screenshotter:     b,
		ActionPerformer:   b,
		ValueSetter:       b,
		ClipboardManager:  NewClipboard(),
		Prober:            b,
		RequiresApartment: true,
		Close:             func() error { return nil },
	}
}

// Probe implements platform.Prober.
func (b *Backend) Probe() platform.ProbeResult {
	diag := map[string]string{"backend": "darwin"}
	ok := trusted(false)
	diag["accessibility_trusted"] = strconv.FormatBool(ok)
	diag["screen_recording"] = strconv.FormatBool(screenRecordingAllowed())
	if ok {
		diag["applications"] = strconv.Itoa(len(runningApps()))
	}
	return platform.ProbeResult{APIAvailable: ok, Diagnostics: diag}
}

var _ platform.Prober = (*Backend)(nil)
