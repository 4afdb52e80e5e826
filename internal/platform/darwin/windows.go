package darwin

import (
	"strings"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// cgWindow is one on-screen, layer-0 entry from the CoreGraphics window
// list, front to back.
type cgWindow struct {
	ID     int
	PID    int
	Owner  string
	Title  string
	Bounds platform.Bounds
}

// axWindow is one AXWindows entry of an application.
type axWindow struct {
	node    platform.Node
	app     string
	title   string
	bounds  platform.Bounds
	focused bool
}

// matchWindows orders AX windows by the CoreGraphics stacking. Each CG
// window takes the first unused AX window of the same pid with equal title
// and frame, then equal title, then equal frame. AX windows that are not on
// screen (minimized, other spaces) follow in application order.
func matchWindows(cg []cgWindow, ax map[int][]axWindow, pids []int, frontPID int) []platform.Window {
	used := map[int]map[int]bool{}
	for pid := range ax {
		used[pid] = map[int]bool{}
	}
	var out []platform.Window
	add := func(w axWindow, pid int) {
		out = append(out, platform.Window{
			Node:    w.node,
			App:     w.app,
			PID:     pid,
			Title:   w.title,
			Bounds:  w.bounds,
			Focused: w.focused && pid == frontPID,
			ZOrder:  len(out),
		})
	}
	tests := []func(a axWindow, c cgWindow) bool{
		func(a axWindow, c cgWindow) bool { return a.title == c.Title && a.bounds == c.Bounds },
		func(a axWindow, c cgWindow) bool { return c.Title != "" && a.title == c.Title },
		func(a axWindow, c cgWindow) bool { return a.bounds == c.Bounds },
	}
	for _, c := range cg {
		cands := ax[c.PID]
		pick := -1
		for _, test := range tests {
			for i, a := range cands {
				if !used[c.PID][i] && test(a, c) {
					pick = i
					break
				}
			}
			if pick >= 0 {
				break
			}
		}
		if pick < 0 {
			continue
		}
		used[c.PID][pick] = true
		add(cands[pick], c.PID)
	}
	for _, pid := range pids {
		for i, a := range ax[pid] {
			if !used[pid][i] {
				add(a, pid)
			}
		}
	}
	return out
}

// launchCommand decides how to start target with open(1): application
// bundles and names by -a, bundle identifiers by -b. Paths that are not
// bundles run directly.
func launchCommand(target string) (name string, args []string, direct bool) {
	switch {
	case strings.HasSuffix(target, ".app") || strings.HasSuffix(target, ".app/"):
		return "open", []string{"-a", target}, false
	case strings.Contains(target, "/"):
		return target, nil, true
	case isBundleID(target):
		return "open", []string{"-b", target}, false
	default:
		return "open", []string{"-a", target}, false
	}
}

// isBundleID matches reverse-DNS identifiers such as com.apple.Safari.
func isBundleID(s string) bool {
	if strings.ContainsAny(s, " /") {
		return false
	}
	parts := strings.Split(s, ".")
	if len(parts) < 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// browserApp names the application bundle for a browser.
func browserApp(br platform.Browser) string {
	switch br {
	case platform.BrowserChrome:
		return "Google Chrome"
	case platform.BrowserFirefox:
		return "Firefox"
	case platform.BrowserEdge:
		return "Microsoft Edge"
	case platform.BrowserBrave:
		return "Brave Browser"
	case platform.BrowserOpera:
		return "Opera"
	case platform.BrowserVivaldi:
		return "Vivaldi"
	}
	return ""
}

// union returns the smallest rectangle covering a and b.
func union(a, b platform.Bounds) platform.Bounds {
	x0, y0 := min(a.X, b.X), min(a.Y, b.Y)
	x1, y1 := max(a.X+a.Width, b.X+b.Width), max(a.Y+a.Height, b.Y+b.Height)
	return platform.Bounds{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
