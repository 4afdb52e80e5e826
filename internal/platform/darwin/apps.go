//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework Foundation
#import <AppKit/AppKit.h>

static int ns_activate(int pid) {
    @autoreleasepool {
        NSRunningApplication *a = [NSRunningApplication runningApplicationWithProcessIdentifier:pid];
        if (!a) return -1;
        return [a activateWithOptions:NSApplicationActivateIgnoringOtherApps] ? 0 : -2;
    }
}
*/
import "C"

import (
	"errors"
	"os"
	"os/exec"
	"strconv"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// Activate implements platform.WindowManager.
func (b *Backend) Activate(pid int) error {
	switch C.ns_activate(C.int(pid)) {
	case 0:
		return nil
	case -1:
		return platform.NewPlatformError("activate", "no running application has pid "+strconv.Itoa(pid))
	default:
		return platform.NewPlatformError("activate", "the application refused activation").WithRetryable(true)
	}
}

// GetFrontmostApp implements platform.WindowManager.
func (b *Backend) GetFrontmostApp() (string, int, error) {
	name, pid := frontmostApp()
	if pid == 0 {
		return "", 0, platform.NewPlatformError("frontmost_app", "no application is frontmost")
	}
	return name, pid, nil
}

// start runs a command and reaps it in the background.
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

// Launch implements platform.WindowManager. Applications started through
// open(1) report pid 0.
func (b *Backend) Launch(target string) (int, error) {
	name, args, direct := launchCommand(target)
	if !direct {
		// open waits for Launch Services, so its failure is visible here.
		if out, err := exec.Command(name, args...).CombinedOutput(); err != nil {
			return 0, platform.NewPlatformError("launch", "cannot open "+target+": "+string(out)).WithCause(err)
		}
		return 0, nil
	}
	pid, err := b.start(name, args...)
	if err != nil {
		return 0, platform.NewPlatformError("launch", "cannot start "+target).WithCause(err)
	}
	return pid, nil
}

// OpenURL implements platform.WindowManager.
func (b *Backend) OpenURL(url string, br platform.Browser) (int, error) {
	args := []string{url}
	if app := browserApp(br); app != "" {
		args = []string{"-a", app, url}
	}
	out, err := exec.Command("open", args...).CombinedOutput()
	if err != nil && len(args) > 1 {
		b.logger.Warn("browser not installed, using the default", zap.String("browser", string(br)), zap.ByteString("output", out))
		out, err = exec.Command("open", url).CombinedOutput()
	}
	if err != nil {
		return 0, platform.NewPlatformError("open_url", "open failed: "+string(out)).WithCause(err)
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
	if out, err := exec.Command("open", path).CombinedOutput(); err != nil {
		return platform.NewPlatformError("open_file", "open failed: "+string(out)).WithCause(err)
	}
	return nil
}

var _ platform.WindowManager = (*Backend)(nil)
