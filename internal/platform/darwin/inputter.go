//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics -framework ApplicationServices -framework Foundation
#include <CoreGraphics/CoreGraphics.h>
#include <stdint.h>

// button: 0 left, 1 right, 2 middle. Repeated presses carry the click
// state so the target sees a double or triple click.
static int cg_click(float x, float y, int button, int count) {
    CGPoint point = CGPointMake(x, y);
    CGEventType downType = kCGEventLeftMouseDown, upType = kCGEventLeftMouseUp;
    CGMouseButton cgButton = kCGMouseButtonLeft;
    if (button == 1) {
        cgButton = kCGMouseButtonRight;
        downType = kCGEventRightMouseDown;
        upType = kCGEventRightMouseUp;
    } else if (button == 2) {
        cgButton = kCGMouseButtonCenter;
        downType = kCGEventOtherMouseDown;
        upType = kCGEventOtherMouseUp;
    }
    for (int i = 0; i < count; i++) {
        CGEventRef down = CGEventCreateMouseEvent(NULL, downType, point, cgButton);
        CGEventRef up = CGEventCreateMouseEvent(NULL, upType, point, cgButton);
        if (!down || !up) {
            if (down) CFRelease(down);
            if (up) CFRelease(up);
            return -1;
        }
        CGEventSetIntegerValueField(down, kCGMouseEventClickState, i + 1);
        CGEventSetIntegerValueField(up, kCGMouseEventClickState, i + 1);
        CGEventPost(kCGHIDEventTap, down);
        CGEventPost(kCGHIDEventTap, up);
        CFRelease(down);
        CFRelease(up);
    }
    return 0;
}

static int cg_move_mouse(float x, float y) {
    CGEventRef move = CGEventCreateMouseEvent(NULL, kCGEventMouseMoved, CGPointMake(x, y), kCGMouseButtonLeft);
    if (!move) return -1;
    CGEventPost(kCGHIDEventTap, move);
    CFRelease(move);
    return 0;
}

// One character as one or two UTF-16 units.
static void cg_type_char(UniChar a, UniChar b) {
    UniChar units[2] = {a, b};
    int n = b ? 2 : 1;
    CGEventRef down = CGEventCreateKeyboardEvent(NULL, 0, true);
    CGEventRef up = CGEventCreateKeyboardEvent(NULL, 0, false);
    CGEventKeyboardSetUnicodeString(down, n, units);
    CGEventKeyboardSetUnicodeString(up, n, units);
    CGEventPost(kCGHIDEventTap, down);
    CGEventPost(kCGHIDEventTap, up);
    CFRelease(down);
    CFRelease(up);
}

// A zero ch sends the virtual key code; otherwise the character rides on
// key code 0.
static void cg_key(CGKeyCode code, UniChar ch, int isDown, uint64_t flags) {
    CGEventRef ev = CGEventCreateKeyboardEvent(NULL, ch ? 0 : code, isDown);
    if (ch) CGEventKeyboardSetUnicodeString(ev, 1, &ch);
    CGEventSetFlags(ev, (CGEventFlags)flags);
    CGEventPost(kCGHIDEventTap, ev);
    CFRelease(ev);
}

// dy: lines, positive is up. dx: lines, positive is left.
static int cg_scroll(int dy, int dx) {
    CGEventRef scroll = CGEventCreateScrollWheelEvent(NULL, kCGScrollEventUnitLine, 2, dy, dx);
    if (!scroll) return -1;
    CGEventPost(kCGHIDEventTap, scroll);
    CFRelease(scroll);
    return 0;
}
*/
import "C"

import (
	"time"
	"unicode/utf16"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// inputter implements platform.Inputter with CoreGraphics events posted at
// the HID tap.
type inputter struct{}

func inputError(op string) error {
	return platform.NewPlatformError(op, "CoreGraphics could not create the event").WithRetryable(true)
}

// Click implements platform.Inputter.
func (inputter) Click(x, y int, button platform.MouseButton, count int) error {
	if count < 1 {
		count = 1
	}
	b := C.int(0)
	switch button {
	case platform.MouseRight:
		b = 1
	case platform.MouseMiddle:
		b = 2
	}
	if C.cg_click(C.float(x), C.float(y), b, C.int(count)) != 0 {
		return inputError("click")
	}
	return nil
}

// MoveMouse implements platform.Inputter.
func (inputter) MoveMouse(x, y int) error {
	if C.cg_move_mouse(C.float(x), C.float(y)) != 0 {
		return inputError("move_mouse")
	}
	return nil
}

// Scroll implements platform.Inputter. Positive dy scrolls down and
// positive dx scrolls right.
func (inputter) Scroll(x, y int, dx, dy int) error {
	if C.cg_move_mouse(C.float(x), C.float(y)) != 0 {
		return inputError("scroll")
	}
	// The pointer must settle before the wheel event is routed.
	time.Sleep(10 * time.Millisecond)
	if C.cg_scroll(C.int(-dy), C.int(-dx)) != 0 {
		return inputError("scroll")
	}
	return nil
}

// TypeText implements platform.Inputter. Characters outside the BMP are
// sent as one event carrying the surrogate pair.
func (inputter) TypeText(text string, delayMs int) error {
	for _, r := range text {
		if r > 0xffff {
			hi, lo := utf16.EncodeRune(r)
			C.cg_type_char(C.UniChar(hi), C.UniChar(lo))
		} else {
			C.cg_type_char(C.UniChar(r), 0)
		}
		if delayMs > 0 {
			time.Sleep(time.Duration(delayMs) * time.Millisecond)
		}
	}
	return nil
}

// KeyCombo implements platform.Inputter: modifiers go down in order, the
// key is pressed with their flags set, then modifiers are released in
// reverse.
func (inputter) KeyCombo(keys []string) error {
	c, err := parseChord(keys)
	if err != nil {
		return err
	}
	var flags C.uint64_t
	for _, code := range c.order {
		C.cg_key(C.CGKeyCode(code), 0, 1, flags)
		flags |= C.uint64_t(modifierFlagForCode(code))
	}
	ch := C.UniChar(0)
	if c.char != 0 && c.char <= 0xffff {
		ch = C.UniChar(c.char)
	}
	C.cg_key(C.CGKeyCode(c.code), ch, 1, C.uint64_t(c.flags))
	C.cg_key(C.CGKeyCode(c.code), ch, 0, C.uint64_t(c.flags))
	for i := len(c.order) - 1; i >= 0; i-- {
		flags &^= C.uint64_t(modifierFlagForCode(c.order[i]))
		C.cg_key(C.CGKeyCode(c.order[i]), 0, 0, flags)
	}
	return nil
}

var _ platform.Inputter = inputter{}
