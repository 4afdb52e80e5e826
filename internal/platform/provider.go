package platform

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Provider bundles all backends for one accessibility subsystem. Any field
// may be nil when the backend lacks the capability.
type Provider struct {
	Name             string
	Reader           Reader
	Inputter         Inputter
	WindowManager    WindowManager
	Screenshotter    Screenshotter
	ActionPerformer  ActionPerformer
	ValueSetter      ValueSetter
	Highlighter      Highlighter
	ClipboardManager ClipboardManager
	Prober           Prober

	// RequiresApartment confines every call to a single OS thread.
	RequiresApartment bool

	// Close releases the accessibility connection.
	Close func() error
}

// ProviderOptions are passed to backend constructors.
type ProviderOptions struct {
	Headless bool
	// Display is the X display used in headless mode.
	Display string
	// Fixture is a YAML desktop description for the virtual backend.
	Fixture string
	// Trace logs every accessibility read at debug level.
	Trace  bool
	Logger *zap.Logger
}

// NewProviderFunc constructs a provider.
type NewProviderFunc func(opts ProviderOptions) (*Provider, error)

// RequestPermissionsFunc is set by platform-specific packages via init().
// It triggers OS permission prompts at startup.
var RequestPermissionsFunc func()

var (
	registryMu sync.RWMutex
	registry   = map[string]NewProviderFunc{}
)

// Register makes a backend available under name. Platform packages call it
// from init().
func Register(name string, fn NewProviderFunc) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Backends lists registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrUnsupported is returned when no backend exists for the current OS.
var ErrUnsupported = NewError(CodeUnsupportedPlatform,
	fmt.Sprintf("desktop automation is not supported on %s/%s; supported: linux, darwin", runtime.GOOS, runtime.GOARCH))

// NewProvider returns the named backend, or the one for the current OS when
// name is empty.
func NewProvider(name string, opts ProviderOptions) (*Provider, error) {
	if name == "" {
		name = runtime.GOOS
	}
	registryMu.RLock()
	fn, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		if name == runtime.GOOS {
			return nil, ErrUnsupported
		}
		return nil, Errorf(CodeUnsupportedPlatform, "unknown backend %q (available: %v)", name, Backends())
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return fn(opts)
}
