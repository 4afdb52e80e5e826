// Package darwin drives macOS through the Accessibility API (AXUIElement),
// CoreGraphics events and window lists, and NSWorkspace.
//
// The OS bindings need cgo. Without it only the pure-Go helpers compile and
// no backend is registered.
package darwin
