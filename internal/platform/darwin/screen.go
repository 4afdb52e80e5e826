//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework CoreGraphics -framework Foundation
#import <AppKit/AppKit.h>
#include <CoreGraphics/CoreGraphics.h>
#include <stdint.h>
#include <stdlib.h>
#include <string.h>

#define MAX_DISPLAYS 16

typedef struct {
    uint32_t id;
    double x, y, w, h;
    double scale;
    int primary;
    char *name;
} cg_display;

static char *cg_display_name(CGDirectDisplayID id) {
    @autoreleasepool {
        for (NSScreen *s in [NSScreen screens]) {
            NSNumber *n = s.deviceDescription[@"NSScreenNumber"];
            if (n && n.unsignedIntValue == id) {
                if (@available(macOS 10.15, *)) {
                    return strdup(s.localizedName.UTF8String);
                }
            }
        }
    }
    return strdup("");
}

static int cg_displays(cg_display *out) {
    CGDirectDisplayID ids[MAX_DISPLAYS];
    uint32_t n = 0;
    if (CGGetActiveDisplayList(MAX_DISPLAYS, ids, &n) != kCGErrorSuccess) return -1;
    CGDirectDisplayID main = CGMainDisplayID();
    for (uint32_t i = 0; i < n; i++) {
        CGRect r = CGDisplayBounds(ids[i]);
        double scale = 1;
        CGDisplayModeRef mode = CGDisplayCopyDisplayMode(ids[i]);
        if (mode) {
            size_t pw = CGDisplayModeGetPixelWidth(mode);
            if (pw > 0 && r.size.width > 0) scale = (double)pw / r.size.width;
            CGDisplayModeRelease(mode);
        }
        out[i].id = ids[i];
        out[i].x = r.origin.x;
        out[i].y = r.origin.y;
        out[i].w = r.size.width;
        out[i].h = r.size.height;
        out[i].scale = scale;
        out[i].primary = ids[i] == main;
        out[i].name = cg_display_name(ids[i]);
    }
    return (int)n;
}

// Renders the on-screen windows inside rect (points) into buf as RGBA at
// one pixel per point.
static int cg_capture(double x, double y, int w, int h, unsigned char *buf) {
    CGImageRef img = CGWindowListCreateImage(CGRectMake(x, y, w, h),
        kCGWindowListOptionOnScreenOnly, kCGNullWindowID, kCGWindowImageNominalResolution);
    if (!img) return -1;
    CGColorSpaceRef cs = CGColorSpaceCreateDeviceRGB();
    CGContextRef ctx = CGBitmapContextCreate(buf, w, h, 8, w * 4, cs,
        kCGImageAlphaPremultipliedLast | kCGBitmapByteOrder32Big);
    CGColorSpaceRelease(cs);
    if (!ctx) {
        CGImageRelease(img);
        return -2;
    }
    CGContextDrawImage(ctx, CGRectMake(0, 0, w, h), img);
    CGContextRelease(ctx);
    CGImageRelease(img);
    return 0;
}

static int cg_screen_access(void) {
    if (@available(macOS 10.15, *)) {
        return CGPreflightScreenCaptureAccess();
    }
    return 1;
}
*/
import "C"

import (
	"fmt"
	"strconv"
	"unsafe"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func screenRecordingAllowed() bool {
	return C.cg_screen_access() != 0
}

// Monitors implements platform.Screenshotter. Coordinates are in points
// with the origin at the top-left of the main display.
func (b *Backend) Monitors() ([]platform.Monitor, error) {
	var buf [C.MAX_DISPLAYS]C.cg_display
	n := int(C.cg_displays(&buf[0]))
	if n < 0 {
		return nil, platform.NewPlatformError("monitors", "CGGetActiveDisplayList failed")
	}
	mons := make([]platform.Monitor, 0, n)
	for _, d := range buf[:n] {
		name := C.GoString(d.name)
		C.free(unsafe.Pointer(d.name))
		if name == "" {
			name = fmt.Sprintf("Display %d", uint32(d.id))
		}
		mons = append(mons, platform.Monitor{
			ID:          strconv.FormatUint(uint64(d.id), 10),
			Name:        name,
			X:           int(d.x),
			Y:           int(d.y),
			Width:       int(d.w),
			Height:      int(d.h),
			ScaleFactor: float64(d.scale),
			IsPrimary:   d.primary != 0,
		})
	}
	return mons, nil
}

// Capture implements platform.Screenshotter. Without Screen Recording
// permission macOS returns only the desktop background and menu bar.
func (b *Backend) Capture(rect platform.Bounds) (*platform.Screenshot, error) {
	mons, err := b.Monitors()
	if err != nil {
		return nil, err
	}
	var screen platform.Bounds
	for i, m := range mons {
		if i == 0 {
			screen = m.Bounds()
			continue
		}
		screen = union(screen, m.Bounds())
	}
	r := rect.Intersect(screen)
	if r.Empty() {
		return nil, platform.Errorf(platform.CodeInvalidArgument, "capture rectangle %+v lies outside the screen", rect)
	}
	pix := make([]byte, r.Width*r.Height*4)
	if rc := C.cg_capture(C.double(r.X), C.double(r.Y), C.int(r.Width), C.int(r.Height),
		(*C.uchar)(unsafe.Pointer(&pix[0]))); rc != 0 {
		return nil, platform.NewPlatformError("capture", "CGWindowListCreateImage failed").
			WithPlatformCode(strconv.Itoa(int(rc)))
	}
	shot := &platform.Screenshot{Width: r.Width, Height: r.Height, Pix: pix}
	for i := range mons {
		if mons[i].Bounds().Intersect(r) == r {
			shot.Monitor = &mons[i]
			break
		}
	}
	return shot, nil
}

var _ platform.Screenshotter = (*Backend)(nil)
