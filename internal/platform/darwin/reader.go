//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework CoreGraphics -framework CoreFoundation -framework Foundation
#import <AppKit/AppKit.h>
#include <CoreGraphics/CoreGraphics.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
    int pid;
    char *name;
    char *bundle;
    int active;
    int hidden;
} app_info;

static char *ns_dup(NSString *s) {
    return strdup(s ? s.UTF8String : "");
}

// Regular applications only: the ones with a Dock icon and menu bar.
static int ns_apps(app_info **out, int *count) {
    @autoreleasepool {
        NSArray<NSRunningApplication *> *apps = [[NSWorkspace sharedWorkspace] runningApplications];
        *out = malloc(sizeof(app_info) * (apps.count ? apps.count : 1));
        int n = 0;
        for (NSRunningApplication *a in apps) {
            if (a.activationPolicy != NSApplicationActivationPolicyRegular || a.terminated) continue;
            app_info *i = &(*out)[n++];
            i->pid = a.processIdentifier;
            i->name = ns_dup(a.localizedName);
            i->bundle = ns_dup(a.bundleIdentifier);
            i->active = a.active;
            i->hidden = a.hidden;
        }
        *count = n;
    }
    return 0;
}

static void ns_free_apps(app_info *a, int n) {
    for (int i = 0; i < n; i++) {
        free(a[i].name);
        free(a[i].bundle);
    }
    free(a);
}

static int ns_frontmost(char **name) {
    @autoreleasepool {
        NSRunningApplication *a = [[NSWorkspace sharedWorkspace] frontmostApplication];
        if (!a) return -1;
        *name = ns_dup(a.localizedName);
        return a.processIdentifier;
    }
}

typedef struct {
    int id;
    int pid;
    char *owner;
    char *title;
    double x, y, w, h;
} cg_window;

static char *cg_str(CFStringRef s) {
    if (!s) return strdup("");
    CFIndex len = CFStringGetMaximumSizeForEncoding(CFStringGetLength(s), kCFStringEncodingUTF8) + 1;
    char *buf = malloc(len);
    if (!CFStringGetCString(s, buf, len, kCFStringEncodingUTF8)) buf[0] = 0;
    return buf;
}

static int cg_int(CFDictionaryRef d, CFStringRef key) {
    int v = 0;
    CFNumberRef n = CFDictionaryGetValue(d, key);
    if (n) CFNumberGetValue(n, kCFNumberIntType, &v);
    return v;
}

// On-screen layer-0 windows, front to back.
static int cg_windows(cg_window **out, int *count) {
    CFArrayRef list = CGWindowListCopyWindowInfo(
        kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements, kCGNullWindowID);
    if (!list) return -1;
    CFIndex n = CFArrayGetCount(list);
    *out = malloc(sizeof(cg_window) * (n ? n : 1));
    int k = 0;
    for (CFIndex i = 0; i < n; i++) {
        CFDictionaryRef d = CFArrayGetValueAtIndex(list, i);
        if (cg_int(d, kCGWindowLayer) != 0) continue;
        cg_window *w = &(*out)[k++];
        w->id = cg_int(d, kCGWindowNumber);
        w->pid = cg_int(d, kCGWindowOwnerPID);
        w->owner = cg_str(CFDictionaryGetValue(d, kCGWindowOwnerName));
        w->title = cg_str(CFDictionaryGetValue(d, kCGWindowName));
        CGRect r = CGRectZero;
        CFDictionaryRef b = CFDictionaryGetValue(d, kCGWindowBounds);
        if (b) CGRectMakeWithDictionaryRepresentation(b, &r);
        w->x = r.origin.x;
        w->y = r.origin.y;
        w->w = r.size.width;
        w->h = r.size.height;
    }
    CFRelease(list);
    *count = k;
    return 0;
}

static void cg_free_windows(cg_window *w, int n) {
    for (int i = 0; i < n; i++) {
        free(w[i].owner);
        free(w[i].title);
    }
    free(w);
}
*/
import "C"

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

type appInfo struct {
	pid    int
	name   string
	bundle string
	active bool
	hidden bool
}

func runningApps() []appInfo {
	var list *C.app_info
	var n C.int
	C.ns_apps(&list, &n)
	defer C.ns_free_apps(list, n)
	out := make([]appInfo, 0, int(n))
	for _, a := range unsafe.Slice(list, int(n)) {
		out = append(out, appInfo{
			pid:    int(a.pid),
			name:   C.GoString(a.name),
			bundle: C.GoString(a.bundle),
			active: a.active != 0,
			hidden: a.hidden != 0,
		})
	}
	return out
}

func frontmostApp() (string, int) {
	var name *C.char
	pid := C.ns_frontmost(&name)
	if pid < 0 {
		return "", 0
	}
	defer C.free(unsafe.Pointer(name))
	return C.GoString(name), int(pid)
}

func cgWindows() ([]cgWindow, error) {
	var list *C.cg_window
	var n C.int
	if C.cg_windows(&list, &n) != 0 {
		return nil, platform.NewPlatformError("list_windows", "CGWindowListCopyWindowInfo returned nothing")
	}
	defer C.cg_free_windows(list, n)
	out := make([]cgWindow, 0, int(n))
	for _, w := range unsafe.Slice(list, int(n)) {
		out = append(out, cgWindow{
			ID:     int(w.id),
			PID:    int(w.pid),
			Owner:  C.GoString(w.owner),
			Title:  C.GoString(w.title),
			Bounds: platform.Bounds{X: int(w.x), Y: int(w.y), Width: int(w.w), Height: int(w.h)},
		})
	}
	return out, nil
}

// Root implements platform.Reader.
func (b *Backend) Root() (platform.Node, error) {
	return b.desktop, nil
}

// Applications implements platform.Reader.
func (b *Backend) Applications() ([]platform.Node, error) {
	apps := runningApps()
	out := make([]platform.Node, 0, len(apps))
	for _, a := range apps {
		out = append(out, b.application(a.pid))
	}
	return out, nil
}

// ListWindows implements platform.Reader.
func (b *Backend) ListWindows() ([]platform.Window, error) {
	_, frontPID := frontmostApp()
	ax := map[int][]axWindow{}
	var pids []int
	for _, a := range runningApps() {
		app := b.application(a.pid)
		wins, err := app.elements(attrWindows)
		if err != nil {
			if platform.Is(err, platform.CodePermissionDenied) {
				return nil, err
			}
			// Applications that are launching or hung do not answer.
			b.logger.Debug("skipping application windows", zap.String("app", a.name), zap.Error(err))
			continue
		}
		focused, _ := app.elementAttr("AXFocusedWindow")
		for _, w := range wins {
			title, _ := w.text(attrTitle)
			bounds, _ := w.frame()
			ax[a.pid] = append(ax[a.pid], axWindow{
				node:    w,
				app:     a.name,
				title:   title,
				bounds:  bounds,
				focused: focused != nil && w.equal(focused),
			})
		}
		pids = append(pids, a.pid)
	}
	cg, err := cgWindows()
	if err != nil {
		return nil, err
	}
	return matchWindows(cg, ax, pids, frontPID), nil
}

// FocusedNode implements platform.Reader.
func (b *Backend) FocusedNode() (platform.Node, error) {
	e, err := b.system.elementAttr("AXFocusedUIElement")
	if err != nil && platform.Is(err, platform.CodePermissionDenied) {
		return nil, err
	}
	if e != nil {
		return e, nil
	}
	// Some applications only answer through their own element.
	if _, pid := frontmostApp(); pid > 0 {
		e, err = b.application(pid).elementAttr("AXFocusedUIElement")
		if err != nil {
			return nil, err
		}
		if e != nil {
			return e, nil
		}
	}
	return nil, nil
}

// NodeAt implements platform.Reader.
func (b *Backend) NodeAt(x, y int) (platform.Node, error) {
	e, err := b.system.hitTest(x, y)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, nil
	}
	return e, nil
}

var _ platform.Reader = (*Backend)(nil)
