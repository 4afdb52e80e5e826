package linux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// AT-SPI bus names, paths and interfaces.
const (
	registryBus  = "org.a11y.atspi.Registry"
	rootPath     = dbus.ObjectPath("/org/a11y/atspi/accessible/root")
	nullPath     = dbus.ObjectPath("/org/a11y/atspi/null")
	ifAccessible = "org.a11y.atspi.Accessible"
	ifComponent  = "org.a11y.atspi.Component"
	ifAction     = "org.a11y.atspi.Action"
	ifValue      = "org.a11y.atspi.Value"
	ifText       = "org.a11y.atspi.Text"
	ifEditable   = "org.a11y.atspi.EditableText"
	ifSelection  = "org.a11y.atspi.Selection"
	ifApp        = "org.a11y.atspi.Application"

	// ATSPI_COORD_TYPE_SCREEN
	coordScreen = uint32(0)
	// ATSPI_SCROLL_ANYWHERE
	scrollAnywhere = uint32(4)
)

const callTimeout = 2 * time.Second

// ref is the (so) pair AT-SPI uses to address an accessible.
type ref struct {
	Name string
	Path dbus.ObjectPath
}

func (r ref) null() bool {
	return r.Name == "" || r.Path == "" || r.Path == nullPath
}

// connectA11y opens a private connection to the accessibility bus. The bus
// address comes from AT_SPI_BUS_ADDRESS or from org.a11y.Bus on the session
// bus.
func connectA11y() (*dbus.Conn, error) {
	addr := os.Getenv("AT_SPI_BUS_ADDRESS")
	if addr == "" {
		session, err := dbus.SessionBus()
		if err != nil {
			return nil, platform.NewPlatformError("connect", "no D-Bus session bus").WithCause(err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		err = session.Object("org.a11y.Bus", "/org/a11y/bus").
			CallWithContext(ctx, "org.a11y.Bus.GetAddress", 0).Store(&addr)
		if err != nil {
			return nil, platform.NewPlatformError("connect", "accessibility bus not running (is at-spi2-core installed?)").WithCause(err)
		}
	}
	conn, err := dbus.Connect(addr)
	if err != nil {
		return nil, platform.NewPlatformError("connect", "cannot connect to the accessibility bus at "+addr).WithCause(err)
	}
	return conn, nil
}

// call invokes method on the object and stores the reply.
func call(conn *dbus.Conn, r ref, method string, out []any, args ...any) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	c := conn.Object(r.Name, r.Path).CallWithContext(ctx, method, 0, args...)
	if c.Err != nil {
		return mapDBusError(method, r, c.Err)
	}
	if len(out) == 0 {
		return nil
	}
	if err := c.Store(out...); err != nil {
		return platform.NewPlatformError(method, "unexpected reply").WithCause(err)
	}
	return nil
}

func getProperty(conn *dbus.Conn, r ref, prop string, out any) error {
	return call(conn, r, "org.freedesktop.DBus.Properties.Get", []any{out}, interfaceOf(prop), memberOf(prop))
}

func setProperty(conn *dbus.Conn, r ref, prop string, v any) error {
	return call(conn, r, "org.freedesktop.DBus.Properties.Set", nil, interfaceOf(prop), memberOf(prop), dbus.MakeVariant(v))
}

func interfaceOf(prop string) string {
	return prop[:strings.LastIndex(prop, ".")]
}

func memberOf(prop string) string {
	return prop[strings.LastIndex(prop, ".")+1:]
}

// mapDBusError converts D-Bus failures into the platform taxonomy. Objects
// and names that vanished mean the element is gone.
func mapDBusError(op string, r ref, err error) error {
	var de dbus.Error
	if errors.As(err, &de) {
		switch de.Name {
		case "org.freedesktop.DBus.Error.UnknownObject",
			"org.freedesktop.DBus.Error.ServiceUnknown",
			"org.freedesktop.DBus.Error.NameHasNoOwner":
			return platform.Errorf(platform.CodeElementDetached, "accessible %s%s no longer exists", r.Name, r.Path).WithCause(err)
		case "org.freedesktop.DBus.Error.UnknownMethod",
			"org.freedesktop.DBus.Error.UnknownInterface",
			"org.freedesktop.DBus.Error.UnknownProperty":
			return platform.Unsupported(op).WithCause(err)
		case "org.freedesktop.DBus.Error.NoReply", "org.freedesktop.DBus.Error.Timeout":
			return platform.NewPlatformError(op, "application did not answer").
				WithPlatformCode(de.Name).WithRetryable(true).WithCause(err)
		}
		return platform.NewPlatformError(op, fmt.Sprint(de.Body...)).WithPlatformCode(de.Name).WithCause(err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return platform.NewPlatformError(op, "application did not answer within "+callTimeout.String()).
			WithRetryable(true).WithCause(err)
	}
	return platform.NewPlatformError(op, "D-Bus call failed").WithCause(err)
}

// AtspiStateType values.
const (
	stateActive             = 1
	stateChecked            = 4
	stateDefunct            = 6
	stateEditable           = 7
	stateEnabled            = 8
	stateExpanded           = 10
	stateFocusable          = 11
	stateFocused            = 12
	stateModal              = 16
	statePressed            = 20
	stateSelected           = 23
	stateSensitive          = 24
	stateShowing            = 25
	stateVisible            = 30
	stateManagesDescendants = 31
	stateIndeterminate      = 32
	stateCheckable          = 41
)

// stateSet is the two-word bitfield GetState returns.
type stateSet uint64

func newStateSet(words []uint32) stateSet {
	var s stateSet
	for i, w := range words {
		if i > 1 {
			break
		}
		s |= stateSet(w) << (32 * i)
	}
	return s
}

func (s stateSet) has(state int) bool {
	return s&(1<<state) != 0
}

// toggle derives the toggle pattern state, or nil when the role has none.
func (s stateSet) toggle(role string) *platform.ToggleState {
	switch role {
	case "check box", "radio button", "toggle button", "check menu item", "radio menu item", "switch":
	default:
		if !s.has(stateCheckable) {
			return nil
		}
	}
	t := platform.ToggleOff
	switch {
	case s.has(stateIndeterminate):
		t = platform.ToggleIndeterminate
	case s.has(stateChecked), s.has(statePressed):
		t = platform.ToggleOn
	}
	return &t
}

// actionAliases maps AT-SPI action names to the platform action they
// implement.
var actionAliases = map[string]string{
	"click":              platform.ActionInvoke,
	"press":              platform.ActionInvoke,
	"activate":           platform.ActionInvoke,
	"jump":               platform.ActionInvoke,
	"toggle":             platform.ActionInvoke,
	"open":               platform.ActionInvoke,
	"expand or contract": platform.ActionExpand,
	"expand":             platform.ActionExpand,
	"collapse":           platform.ActionCollapse,
	"showmenu":           platform.ActionShowMenu,
	"show menu":          platform.ActionShowMenu,
	"menu":               platform.ActionShowMenu,
	"close":              platform.ActionClose,
}

// platformActions lists the platform actions the raw AT-SPI actions cover,
// followed by raw names without an alias.
func platformActions(raw []string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(a string) {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	for _, a := range raw {
		if p, ok := actionAliases[strings.ToLower(a)]; ok {
			add(p)
		}
	}
	for _, a := range raw {
		if _, ok := actionAliases[strings.ToLower(a)]; !ok {
			add(a)
		}
	}
	return out
}

// actionIndex finds the AT-SPI action implementing a platform action name.
// Exact raw names win over aliases.
func actionIndex(raw []string, action string) int {
	for i, a := range raw {
		if strings.EqualFold(a, action) {
			return i
		}
	}
	for i, a := range raw {
		if actionAliases[strings.ToLower(a)] == action {
			return i
		}
	}
	return -1
}
