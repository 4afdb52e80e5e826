package linux

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jezek/xgb/xproto"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// Activate implements platform.WindowManager: the window manager is asked to
// raise the first client window of pid, or the AT-SPI frame takes focus
// when there is no display.
func (b *Backend) Activate(pid int) error {
	if b.x != nil {
		if xwins, err := b.x.topLevels(); err == nil {
			for _, w := range xwins {
				if w.PID == pid {
					return b.x.activate(xproto.Window(w.ID))
				}
			}
		}
	}
	frames, err := b.frames()
	if err != nil {
		return err
	}
	for _, f := range frames {
		if f.pid == pid {
			return b.PerformAction(f.node, platform.ActionFocus)
		}
	}
	return platform.NewPlatformError("activate", "no window belongs to pid "+strconv.Itoa(pid))
}

// GetFrontmostApp implements platform.WindowManager.
func (b *Backend) GetFrontmostApp() (string, int, error) {
	windows, err := b.ListWindows()
	if err != nil {
		return "", 0, err
	}
	for _, w := range windows {
		if w.Focused {
			name := w.App
			if name == "" {
				name = appName(w.PID)
			}
			return name, w.PID, nil
		}
	}
	if len(windows) > 0 {
		return windows[0].App, windows[0].PID, nil
	}
	return "", 0, platform.NewPlatformError("frontmost_app", "no application has a window")
}

// start runs a command detached and reaps it in the background.
func (b *Backend) start(name string, args ...string) (int, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return 0, err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			b.logger.Debug("launched process exited", zap.String("cmd", name), zap.Error(err))
		}
	}()
	return cmd.Process.Pid, nil
}

// launchCommand decides how to start target: executables run directly,
// everything else is treated as a desktop entry for gtk-launch.
func launchCommand(target string, lookPath func(string) (string, error)) (name string, args []string, direct bool) {
	if strings.HasSuffix(target, ".desktop") {
		return "gtk-launch", []string{strings.TrimSuffix(filepath.Base(target), ".desktop")}, false
	}
	if strings.Contains(target, "/") {
		return target, nil, true
	}
	for _, cand := range []string{target, strings.ToLower(target)} {
		if p, err := lookPath(cand); err == nil {
			return p, nil, true
		}
	}
	return "gtk-launch", []string{strings.ToLower(target)}, false
}

// Launch implements platform.WindowManager. Desktop entries report pid 0:
// gtk-launch exits once the application is spawned.
func (b *Backend) Launch(target string) (int, error) {
	name, args, direct := launchCommand(target, exec.LookPath)
	pid, err := b.start(name, args...)
	if err != nil {
		return 0, platform.NewPlatformError("launch", "cannot start "+target).WithCause(err)
	}
	if !direct {
		return 0, nil
	}
	return pid, nil
}

// browserCommands lists candidate executables per browser.
func browserCommands(br platform.Browser) []string {
	switch br {
	case platform.BrowserChrome:
		return []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}
	case platform.BrowserFirefox:
		return []string{"firefox"}
	case platform.BrowserEdge:
		return []string{"microsoft-edge", "microsoft-edge-stable"}
	case platform.BrowserBrave:
		return []string{"brave-browser", "brave"}
	case platform.BrowserOpera:
		return []string{"opera"}
	case platform.BrowserVivaldi:
		return []string{"vivaldi", "vivaldi-stable"}
	}
	return nil
}

// OpenURL implements platform.WindowManager.
func (b *Backend) OpenURL(url string, br platform.Browser) (int, error) {
	for _, c := range browserCommands(br) {
		if p, err := exec.LookPath(c); err == nil {
			pid, err := b.start(p, url)
			if err != nil {
				return 0, platform.NewPlatformError("open_url", "cannot start "+c).WithCause(err)
			}
			return pid, nil
		}
	}
	if br != platform.BrowserDefault {
		b.logger.Warn("browser not installed, using the default", zap.String("browser", string(br)))
	}
	if _, err := b.start("xdg-open", url); err != nil {
		return 0, platform.NewPlatformError("open_url", "xdg-open failed").WithCause(err)
	}
	return 0, nil
}

// OpenFile implements platform.WindowManager.
func (b *Backend) OpenFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return platform.Errorf(platform.CodeInvalidArgument, "file %s does not exist", path)
		}
		return platform.NewPlatformError("open_file", "cannot stat "+path).WithCause(err)
	}
	if _, err := b.start("xdg-open", path); err != nil {
		return platform.NewPlatformError("open_file", "xdg-open failed").WithCause(err)
	}
	return nil
}

var _ platform.WindowManager = (*Backend)(nil)
