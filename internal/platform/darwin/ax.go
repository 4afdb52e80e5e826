//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation -framework Foundation
#include <ApplicationServices/ApplicationServices.h>
#include <libproc.h>
#include <stdint.h>
#include <stdio.h>
#include <stdlib.h>
#include <string.h>

typedef uintptr_t axref;

static AXUIElementRef ax_el(axref r) { return (AXUIElementRef)r; }

static CFStringRef ax_cfstr(const char *s) {
    return CFStringCreateWithCString(NULL, s, kCFStringEncodingUTF8);
}

static char *ax_utf8(CFStringRef s) {
    CFIndex len = CFStringGetMaximumSizeForEncoding(CFStringGetLength(s), kCFStringEncodingUTF8) + 1;
    char *buf = malloc(len);
    if (!CFStringGetCString(s, buf, len, kCFStringEncodingUTF8)) buf[0] = 0;
    return buf;
}

static int ax_copy(axref r, const char *name, CFTypeRef *out) {
    CFStringRef attr = ax_cfstr(name);
    AXError err = AXUIElementCopyAttributeValue(ax_el(r), attr, out);
    CFRelease(attr);
    return err;
}

// Strings, numbers and booleans come back as text; *out stays NULL for
// other types.
static int ax_text(axref r, const char *name, char **out) {
    CFTypeRef v = NULL;
    *out = NULL;
    int err = ax_copy(r, name, &v);
    if (err != kAXErrorSuccess || v == NULL) return err;
    CFTypeID t = CFGetTypeID(v);
    if (t == CFStringGetTypeID()) {
        *out = ax_utf8((CFStringRef)v);
    } else if (t == CFNumberGetTypeID()) {
        double d = 0;
        CFNumberGetValue((CFNumberRef)v, kCFNumberDoubleType, &d);
        *out = malloc(32);
        snprintf(*out, 32, "%.15g", d);
    } else if (t == CFBooleanGetTypeID()) {
        *out = strdup(CFBooleanGetValue((CFBooleanRef)v) ? "true" : "false");
    }
    CFRelease(v);
    return kAXErrorSuccess;
}

static int ax_number(axref r, const char *name, double *out) {
    CFTypeRef v = NULL;
    int err = ax_copy(r, name, &v);
    if (err != kAXErrorSuccess) return err;
    if (v == NULL) return kAXErrorNoValue;
    int rc = kAXErrorSuccess;
    CFTypeID t = CFGetTypeID(v);
    if (t == CFNumberGetTypeID()) {
        CFNumberGetValue((CFNumberRef)v, kCFNumberDoubleType, out);
    } else if (t == CFBooleanGetTypeID()) {
        *out = CFBooleanGetValue((CFBooleanRef)v) ? 1 : 0;
    } else {
        rc = kAXErrorNoValue;
    }
    CFRelease(v);
    return rc;
}

static int ax_frame(axref r, double *x, double *y, double *w, double *h) {
    CFTypeRef pos = NULL, size = NULL;
    CGPoint p = CGPointZero;
    CGSize s = CGSizeZero;
    int err = ax_copy(r, "AXPosition", &pos);
    if (err != kAXErrorSuccess) return err;
    if (pos) {
        AXValueGetValue((AXValueRef)pos, kAXValueTypeCGPoint, &p);
        CFRelease(pos);
    }
    err = ax_copy(r, "AXSize", &size);
    if (err != kAXErrorSuccess) return err;
    if (size) {
        AXValueGetValue((AXValueRef)size, kAXValueTypeCGSize, &s);
        CFRelease(size);
    }
    *x = p.x; *y = p.y; *w = s.width; *h = s.height;
    return kAXErrorSuccess;
}

// Element arrays are returned retained; the caller releases each entry.
static int ax_elements(axref r, const char *name, axref **out, int *count) {
    CFTypeRef v = NULL;
    *out = NULL;
    *count = 0;
    int err = ax_copy(r, name, &v);
    if (err != kAXErrorSuccess || v == NULL) return err;
    if (CFGetTypeID(v) != CFArrayGetTypeID()) {
        CFRelease(v);
        return kAXErrorSuccess;
    }
    CFIndex n = CFArrayGetCount((CFArrayRef)v);
    if (n > 0) {
        *out = malloc(sizeof(axref) * n);
        int k = 0;
        for (CFIndex i = 0; i < n; i++) {
            CFTypeRef e = CFArrayGetValueAtIndex((CFArrayRef)v, i);
            if (CFGetTypeID(e) != AXUIElementGetTypeID()) continue;
            CFRetain(e);
            (*out)[k++] = (axref)e;
        }
        *count = k;
    }
    CFRelease(v);
    return kAXErrorSuccess;
}

static int ax_element(axref r, const char *name, axref *out) {
    CFTypeRef v = NULL;
    *out = 0;
    int err = ax_copy(r, name, &v);
    if (err != kAXErrorSuccess || v == NULL) return err;
    if (CFGetTypeID(v) == AXUIElementGetTypeID()) {
        *out = (axref)v;
    } else {
        CFRelease(v);
    }
    return kAXErrorSuccess;
}

static int ax_action_names(axref r, char ***out, int *count) {
    CFArrayRef names = NULL;
    *out = NULL;
    *count = 0;
    AXError err = AXUIElementCopyActionNames(ax_el(r), &names);
    if (err != kAXErrorSuccess || names == NULL) return err;
    CFIndex n = CFArrayGetCount(names);
    if (n > 0) {
        *out = malloc(sizeof(char *) * n);
        for (CFIndex i = 0; i < n; i++) {
            (*out)[i] = ax_utf8((CFStringRef)CFArrayGetValueAtIndex(names, i));
        }
    }
    *count = (int)n;
    CFRelease(names);
    return kAXErrorSuccess;
}

static void ax_free_strings(char **s, int n) {
    for (int i = 0; i < n; i++) free(s[i]);
    free(s);
}

static int ax_settable(axref r, const char *name, int *out) {
    Boolean b = false;
    CFStringRef attr = ax_cfstr(name);
    AXError err = AXUIElementIsAttributeSettable(ax_el(r), attr, &b);
    CFRelease(attr);
    *out = b ? 1 : 0;
    return err;
}

static int ax_perform(axref r, const char *action) {
    CFStringRef a = ax_cfstr(action);
    AXError err = AXUIElementPerformAction(ax_el(r), a);
    CFRelease(a);
    return err;
}

static int ax_set(axref r, const char *name, CFTypeRef value) {
    CFStringRef attr = ax_cfstr(name);
    AXError err = AXUIElementSetAttributeValue(ax_el(r), attr, value);
    CFRelease(attr);
    return err;
}

static int ax_set_string(axref r, const char *name, const char *value) {
    CFStringRef v = ax_cfstr(value);
    int err = ax_set(r, name, v);
    CFRelease(v);
    return err;
}

static int ax_set_bool(axref r, const char *name, int value) {
    return ax_set(r, name, value ? kCFBooleanTrue : kCFBooleanFalse);
}

static int ax_set_number(axref r, const char *name, double value) {
    CFNumberRef v = CFNumberCreate(NULL, kCFNumberDoubleType, &value);
    int err = ax_set(r, name, v);
    CFRelease(v);
    return err;
}

static int ax_pid(axref r, int *out) {
    pid_t p = 0;
    AXError err = AXUIElementGetPid(ax_el(r), &p);
    *out = p;
    return err;
}

static int ax_hit_test(axref r, float x, float y, axref *out) {
    AXUIElementRef e = NULL;
    AXError err = AXUIElementCopyElementAtPosition(ax_el(r), x, y, &e);
    *out = (axref)e;
    return err;
}

static axref ax_application(int pid) { return (axref)AXUIElementCreateApplication(pid); }
static axref ax_system_wide(void) { return (axref)AXUIElementCreateSystemWide(); }
static void ax_release(axref r) { if (r) CFRelease((CFTypeRef)r); }
static unsigned long ax_hash(axref r) { return (unsigned long)CFHash((CFTypeRef)r); }
static int ax_equal(axref a, axref b) { return CFEqual((CFTypeRef)a, (CFTypeRef)b); }

static void ax_set_timeout(axref r, float seconds) {
    AXUIElementSetMessagingTimeout(ax_el(r), seconds);
}

static int ax_trusted(int prompt) {
    if (!prompt) return AXIsProcessTrusted();
    const void *keys[] = { kAXTrustedCheckOptionPrompt };
    const void *values[] = { kCFBooleanTrue };
    CFDictionaryRef opts = CFDictionaryCreate(NULL, keys, values, 1,
        &kCFTypeDictionaryKeyCallBacks, &kCFTypeDictionaryValueCallBacks);
    int ok = AXIsProcessTrustedWithOptions(opts);
    CFRelease(opts);
    return ok;
}

static long long proc_start(int pid) {
    struct proc_bsdinfo info;
    if (proc_pidinfo(pid, PROC_PIDTBSDINFO, 0, &info, sizeof(info)) != sizeof(info)) return 0;
    return (long long)info.pbi_start_tvsec;
}
*/
import "C"

import (
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// AX attribute names.
const (
	attrRole        = "AXRole"
	attrSubrole     = "AXSubrole"
	attrTitle       = "AXTitle"
	attrDescription = "AXDescription"
	attrValue       = "AXValue"
	attrIdentifier  = "AXIdentifier"
	attrEnabled     = "AXEnabled"
	attrFocused     = "AXFocused"
	attrSelected    = "AXSelected"
	attrChildren    = "AXChildren"
	attrParent      = "AXParent"
	attrWindows     = "AXWindows"
	attrMinimized   = "AXMinimized"
	attrHidden      = "AXHidden"
	attrExpanded    = "AXExpanded"
)

// messagingTimeout bounds every AX call on an element.
const messagingTimeout = 2 * time.Second

func trusted(prompt bool) bool {
	p := C.int(0)
	if prompt {
		p = 1
	}
	return C.ax_trusted(p) != 0
}

func processStart(pid int) time.Time {
	sec := int64(C.proc_start(C.int(pid)))
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// element owns one retained AXUIElementRef, released when the element is
// collected.
type element struct {
	b   *Backend
	ref C.axref
	key string
}

// wrap takes ownership of a retained reference.
func (b *Backend) wrap(ref C.axref) *element {
	C.ax_set_timeout(ref, C.float(messagingTimeout.Seconds()))
	e := &element{b: b, ref: ref}
	runtime.SetFinalizer(e, func(e *element) { C.ax_release(e.ref) })
	return e
}

func (b *Backend) application(pid int) *element {
	return b.wrap(C.ax_application(C.int(pid)))
}

func (b *Backend) systemWide() *element {
	return b.wrap(C.ax_system_wide())
}

func (e *element) cstr(s string, fn func(*C.char) C.int) C.int {
	cs := C.CString(s)
	defer C.free(unsafe.Pointer(cs))
	return fn(cs)
}

// text reads an attribute as a string. Missing values read as "".
func (e *element) text(attr string) (string, error) {
	var out *C.char
	rc := e.cstr(attr, func(a *C.char) C.int { return C.ax_text(e.ref, a, &out) })
	runtime.KeepAlive(e)
	if rc == axNoValue || rc == axAttributeUnsupported {
		return "", nil
	}
	if err := axError(attr, int(rc)); err != nil {
		return "", err
	}
	if out == nil {
		return "", nil
	}
	defer C.free(unsafe.Pointer(out))
	return C.GoString(out), nil
}

func (e *element) number(attr string) (float64, bool) {
	var out C.double
	rc := e.cstr(attr, func(a *C.char) C.int { return C.ax_number(e.ref, a, &out) })
	runtime.KeepAlive(e)
	return float64(out), rc == axSuccess
}

// flag reads a boolean attribute, def when the element lacks it.
func (e *element) flag(attr string, def bool) bool {
	v, ok := e.number(attr)
	if !ok {
		return def
	}
	return v != 0
}

func (e *element) frame() (platform.Bounds, error) {
	var x, y, w, h C.double
	rc := C.ax_frame(e.ref, &x, &y, &w, &h)
	runtime.KeepAlive(e)
	if rc == axNoValue || rc == axAttributeUnsupported {
		return platform.Bounds{}, nil
	}
	if err := axError("frame", int(rc)); err != nil {
		return platform.Bounds{}, err
	}
	return platform.Bounds{X: int(x), Y: int(y), Width: int(w), Height: int(h)}, nil
}

func (e *element) elements(attr string) ([]*element, error) {
	var refs *C.axref
	var n C.int
	rc := e.cstr(attr, func(a *C.char) C.int { return C.ax_elements(e.ref, a, &refs, &n) })
	runtime.KeepAlive(e)
	if rc == axNoValue || rc == axAttributeUnsupported {
		return nil, nil
	}
	if err := axError(attr, int(rc)); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	defer C.free(unsafe.Pointer(refs))
	out := make([]*element, 0, int(n))
	for _, r := range unsafe.Slice(refs, int(n)) {
		out = append(out, e.b.wrap(r))
	}
	return out, nil
}

func (e *element) elementAttr(attr string) (*element, error) {
	var ref C.axref
	rc := e.cstr(attr, func(a *C.char) C.int { return C.ax_element(e.ref, a, &ref) })
	runtime.KeepAlive(e)
	if rc == axNoValue || rc == axAttributeUnsupported {
		return nil, nil
	}
	if err := axError(attr, int(rc)); err != nil {
		return nil, err
	}
	if ref == 0 {
		return nil, nil
	}
	return e.b.wrap(ref), nil
}

func (e *element) actionNames() ([]string, error) {
	var names **C.char
	var n C.int
	rc := C.ax_action_names(e.ref, &names, &n)
	runtime.KeepAlive(e)
	if err := axError("actions", int(rc)); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	defer C.ax_free_strings(names, n)
	out := make([]string, 0, int(n))
	for _, s := range unsafe.Slice(names, int(n)) {
		out = append(out, C.GoString(s))
	}
	return out, nil
}

func (e *element) settable(attr string) bool {
	var ok C.int
	rc := e.cstr(attr, func(a *C.char) C.int { return C.ax_settable(e.ref, a, &ok) })
	runtime.KeepAlive(e)
	return rc == axSuccess && ok != 0
}

func (e *element) perform(action string) error {
	rc := e.cstr(action, func(a *C.char) C.int { return C.ax_perform(e.ref, a) })
	runtime.KeepAlive(e)
	return axError(action, int(rc))
}

func (e *element) setString(attr, value string) error {
	cv := C.CString(value)
	defer C.free(unsafe.Pointer(cv))
	rc := e.cstr(attr, func(a *C.char) C.int { return C.ax_set_string(e.ref, a, cv) })
	runtime.KeepAlive(e)
	return axError("set "+attr, int(rc))
}

func (e *element) setBool(attr string, v bool) error {
	cv := C.int(0)
	if v {
		cv = 1
	}
	rc := e.cstr(attr, func(a *C.char) C.int { return C.ax_set_bool(e.ref, a, cv) })
	runtime.KeepAlive(e)
	return axError("set "+attr, int(rc))
}

func (e *element) setNumber(attr string, v float64) error {
	rc := e.cstr(attr, func(a *C.char) C.int { return C.ax_set_number(e.ref, a, C.double(v)) })
	runtime.KeepAlive(e)
	return axError("set "+attr, int(rc))
}

func (e *element) pid() int {
	var pid C.int
	C.ax_pid(e.ref, &pid)
	runtime.KeepAlive(e)
	return int(pid)
}

// hitTest returns the deepest element at a screen point below e.
func (e *element) hitTest(x, y int) (*element, error) {
	var ref C.axref
	rc := C.ax_hit_test(e.ref, C.float(x), C.float(y), &ref)
	runtime.KeepAlive(e)
	if rc == axNoValue {
		return nil, nil
	}
	if err := axError("hit_test", int(rc)); err != nil {
		return nil, err
	}
	if ref == 0 {
		return nil, nil
	}
	return e.b.wrap(ref), nil
}

func (e *element) equal(o *element) bool {
	ok := C.ax_equal(e.ref, o.ref) != 0
	runtime.KeepAlive(e)
	runtime.KeepAlive(o)
	return ok
}

// Key implements platform.Node. AX elements that compare equal share a hash.
func (e *element) Key() string {
	if e.key == "" {
		e.key = fmt.Sprintf("ax:%d:%x", e.pid(), uint64(C.ax_hash(e.ref)))
		runtime.KeepAlive(e)
	}
	return e.key
}

// rangeRoles carry AXMinValue and AXMaxValue.
var rangeRoles = map[string]bool{
	"AXSlider":            true,
	"AXIncrementor":       true,
	"AXProgressIndicator": true,
	"AXScrollBar":         true,
	"AXLevelIndicator":    true,
	"AXValueIndicator":    true,
}

// Properties implements platform.Node.
func (e *element) Properties() (platform.Properties, error) {
	role, err := e.text(attrRole)
	if err != nil {
		return platform.Properties{}, err
	}
	subrole, _ := e.text(attrSubrole)
	title, _ := e.text(attrTitle)
	desc, _ := e.text(attrDescription)
	value, _ := e.text(attrValue)
	ident, _ := e.text(attrIdentifier)
	domID, _ := e.text("AXDOMIdentifier")

	p := platform.Properties{
		Role:      model.NormalizeRole(role),
		RawRole:   role,
		Name:      title,
		NativeID:  ident,
		ID:        ident,
		ClassName: subrole,
		PID:       e.pid(),
		Value:     value,
		Enabled:   e.flag(attrEnabled, true),
		Focused:   e.flag(attrFocused, false),
		Focusable: e.settable(attrFocused),
		Selected:  e.flag(attrSelected, false),
	}
	p.Attributes = map[string]string{}
	if domID != "" {
		p.ID = domID
	}
	if p.Name == "" {
		p.Name = desc
	}
	if p.Name == "" && role == "AXStaticText" {
		p.Name = value
	}
	for attr, key := range map[string]string{
		"AXRoleDescription":  "role_description",
		"AXHelp":             "help",
		"AXPlaceholderValue": "placeholder",
	} {
		if v, _ := e.text(attr); v != "" {
			p.Attributes[key] = v
		}
	}
	if subrole != "" {
		p.Attributes["subrole"] = subrole
	}
	if desc != "" {
		p.Attributes["description"] = desc
	}

	if p.Bounds, err = e.frame(); err != nil {
		return platform.Properties{}, err
	}
	switch role {
	case "AXApplication":
		p.Visible = !e.flag(attrHidden, false)
		p.Started = processStart(p.PID)
	case "AXWindow":
		p.Visible = !p.Bounds.Empty() && !e.flag(attrMinimized, false)
	default:
		p.Visible = !p.Bounds.Empty()
	}
	p.Toggled = toggleState(role, subrole, value)
	if rangeRoles[role] {
		r := &platform.RangeValue{}
		r.Min, _ = e.number("AXMinValue")
		r.Max, _ = e.number("AXMaxValue")
		r.Value, _ = e.number(attrValue)
		p.Range = r
	}
	raw, err := e.actionNames()
	if err != nil && !platform.Is(err, platform.CodeUnsupportedOperation) {
		return platform.Properties{}, err
	}
	p.Actions = platformActions(raw, p.Focusable)
	if e.settable(attrValue) {
		p.Attributes["editable"] = "true"
	}
	return p, nil
}

// Children implements platform.Node.
func (e *element) Children() ([]platform.Node, error) {
	kids, err := e.elements(attrChildren)
	if err != nil {
		return nil, err
	}
	out := make([]platform.Node, len(kids))
	for i, k := range kids {
		out[i] = k
	}
	return out, nil
}

// Parent implements platform.Node. Applications hang off the desktop root.
func (e *element) Parent() (platform.Node, error) {
	p, err := e.elementAttr(attrParent)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	if role, _ := e.text(attrRole); role == "AXApplication" {
		return e.b.desktop, nil
	}
	return nil, nil
}

// Alive implements platform.Node.
func (e *element) Alive() bool {
	_, err := e.text(attrRole)
	return !platform.Is(err, platform.CodeElementDetached)
}

// desktop is the synthetic root above the running applications.
type desktop struct{ b *Backend }

func (d *desktop) Key() string { return "desktop" }

func (d *desktop) Properties() (platform.Properties, error) {
	p := platform.Properties{
		Role:    model.RolePane,
		RawRole: "AXSystemWide",
		Name:    "Desktop",
		Enabled: true,
		Visible: true,
	}
	if mons, err := d.b.Monitors(); err == nil {
		for i, m := range mons {
			if i == 0 {
				p.Bounds = m.Bounds()
				continue
			}
			p.Bounds = union(p.Bounds, m.Bounds())
		}
	}
	return p, nil
}

func (d *desktop) Children() ([]platform.Node, error) { return d.b.Applications() }

func (d *desktop) Parent() (platform.Node, error) { return nil, nil }

func (d *desktop) Alive() bool { return true }

var (
	_ platform.Node = (*element)(nil)
	_ platform.Node = (*desktop)(nil)
)
