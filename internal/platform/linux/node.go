package linux

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// accessible is a node on the AT-SPI bus.
type accessible struct {
	b   *Backend
	ref ref
}

func (b *Backend) node(r ref) *accessible {
	return &accessible{b: b, ref: r}
}

// Key implements platform.Node.
func (a *accessible) Key() string { return a.ref.Name + string(a.ref.Path) }

func (a *accessible) call(method string, out []any, args ...any) error {
	return call(a.b.bus, a.ref, method, out, args...)
}

func (a *accessible) state() (stateSet, error) {
	var words []uint32
	if err := a.call(ifAccessible+".GetState", []any{&words}); err != nil {
		return 0, err
	}
	return newStateSet(words), nil
}

func (a *accessible) interfaces() map[string]bool {
	var names []string
	if err := a.call(ifAccessible+".GetInterfaces", []any{&names}); err != nil {
		return nil
	}
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func (a *accessible) rawActions() ([]string, error) {
	var acts []struct {
		Name        string
		Description string
		KeyBinding  string
	}
	if err := a.call(ifAction+".GetActions", []any{&acts}); err != nil {
		return nil, err
	}
	names := make([]string, len(acts))
	for i, x := range acts {
		names[i] = x.Name
	}
	return names, nil
}

func (a *accessible) extents() (platform.Bounds, error) {
	var ext struct{ X, Y, W, H int32 }
	if err := a.call(ifComponent+".GetExtents", []any{&ext}, coordScreen); err != nil {
		return platform.Bounds{}, err
	}
	return platform.Bounds{X: int(ext.X), Y: int(ext.Y), Width: int(ext.W), Height: int(ext.H)}, nil
}

// Properties implements platform.Node.
func (a *accessible) Properties() (platform.Properties, error) {
	var p platform.Properties
	st, err := a.state()
	if err != nil {
		return p, err
	}
	if st.has(stateDefunct) {
		return p, platform.Errorf(platform.CodeElementDetached, "accessible %s is defunct", a.Key())
	}

	var roleName string
	if err := a.call(ifAccessible+".GetRoleName", []any{&roleName}); err != nil {
		return p, err
	}
	p.RawRole = roleName
	p.Role = model.NormalizeRole(roleName)
	_ = getProperty(a.b.bus, a.ref, ifAccessible+".Name", &p.Name)
	_ = getProperty(a.b.bus, a.ref, ifAccessible+".AccessibleId", &p.NativeID)

	attrs := map[string]string{}
	_ = a.call(ifAccessible+".GetAttributes", []any{&attrs})
	var desc string
	if getProperty(a.b.bus, a.ref, ifAccessible+".Description", &desc) == nil && desc != "" {
		attrs["description"] = desc
	}
	p.Attributes = attrs
	p.ID = attrs["id"]
	p.ClassName = attrs["class"]
	if p.ClassName == "" {
		p.ClassName = attrs["toolkit"]
	}
	p.PID = a.b.pidOf(a.ref.Name)

	p.Enabled = st.has(stateEnabled) || st.has(stateSensitive)
	p.Visible = st.has(stateVisible)
	p.Offscreen = p.Visible && !st.has(stateShowing)
	p.Focusable = st.has(stateFocusable)
	p.Focused = st.has(stateFocused)
	p.Selected = st.has(stateSelected)
	p.Toggled = st.toggle(roleName)

	ifaces := a.interfaces()
	if ifaces[ifComponent] {
		if bounds, err := a.extents(); err == nil {
			p.Bounds = bounds
		}
	}
	if ifaces[ifValue] {
		var r platform.RangeValue
		if getProperty(a.b.bus, a.ref, ifValue+".CurrentValue", &r.Value) == nil {
			_ = getProperty(a.b.bus, a.ref, ifValue+".MinimumValue", &r.Min)
			_ = getProperty(a.b.bus, a.ref, ifValue+".MaximumValue", &r.Max)
			p.Range = &r
			p.Value = strconv.FormatFloat(r.Value, 'f', -1, 64)
		}
	}
	if ifaces[ifText] {
		var text string
		if a.call(ifText+".GetText", []any{&text}, int32(0), int32(-1)) == nil {
			p.Value = text
		}
	}
	if ifaces[ifAction] {
		if raw, err := a.rawActions(); err == nil {
			p.Actions = platformActions(raw)
		}
	}
	if ifaces[ifEditable] && st.has(stateEditable) {
		p.Attributes["editable"] = "true"
	}
	if ifaces[ifApp] || p.Role == model.RoleApplication {
		p.Started = processStart(p.PID)
	}
	if a.b.trace {
		a.b.logger.Debug("properties", zap.String("key", a.Key()), zap.String("role", roleName), zap.String("name", p.Name))
	}
	return p, nil
}

// Children implements platform.Node.
func (a *accessible) Children() ([]platform.Node, error) {
	var refs []ref
	if err := a.call(ifAccessible+".GetChildren", []any{&refs}); err != nil {
		return nil, err
	}
	out := make([]platform.Node, 0, len(refs))
	for _, r := range refs {
		if r.null() {
			continue
		}
		out = append(out, a.b.node(r))
	}
	return out, nil
}

// Parent implements platform.Node.
func (a *accessible) Parent() (platform.Node, error) {
	if a.ref.Path == rootPath {
		return nil, nil
	}
	var parent ref
	if err := getProperty(a.b.bus, a.ref, ifAccessible+".Parent", &parent); err != nil {
		return nil, err
	}
	if parent.null() {
		return nil, nil
	}
	return a.b.node(parent), nil
}

// Alive implements platform.Node.
func (a *accessible) Alive() bool {
	st, err := a.state()
	return err == nil && !st.has(stateDefunct)
}

// processStart reads the start time of pid from procfs.
func processStart(pid int) (t time.Time) {
	if pid <= 0 {
		return t
	}
	fi, err := os.Stat(fmt.Sprintf("/proc/%d", pid))
	if err != nil {
		return t
	}
	return fi.ModTime()
}

// pidOf resolves the process behind a bus name. Results are cached for the
// backend's lifetime.
func (b *Backend) pidOf(busName string) int {
	b.mu.Lock()
	pid, ok := b.pids[busName]
	b.mu.Unlock()
	if ok {
		return pid
	}
	var v uint32
	err := call(b.bus, ref{Name: "org.freedesktop.DBus", Path: "/org/freedesktop/DBus"},
		"org.freedesktop.DBus.GetConnectionUnixProcessID", []any{&v}, busName)
	if err != nil {
		b.logger.Debug("pid lookup failed", zap.String("bus", busName), zap.Error(err))
		return 0
	}
	b.mu.Lock()
	b.pids[busName] = int(v)
	b.mu.Unlock()
	return int(v)
}

// appName is the name of a process as /proc reports it.
func appName(pid int) string {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

var _ platform.Node = (*accessible)(nil)
