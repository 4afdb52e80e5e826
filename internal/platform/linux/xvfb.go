package linux

import (
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

const xvfbStartTimeout = 5 * time.Second

// xvfbCommand builds the virtual X server process for a display name.
var xvfbCommand = func(display string) *exec.Cmd {
	return exec.Command("Xvfb", xvfbArgs(display)...)
}

func xvfbArgs(display string) []string {
	return []string{display, "-screen", "0", "1920x1080x24", "-nolisten", "tcp", "-ac"}
}

// xvfb is a virtual X server started for a headless session.
type xvfb struct {
	cmd    *exec.Cmd
	exited chan error
}

// startXvfb launches the server and waits until dial succeeds against it.
func startXvfb(name string, dial func(string) (*display, error), timeout time.Duration, logger *zap.Logger) (*xvfb, *display, error) {
	cmd := xvfbCommand(name)
	if err := cmd.Start(); err != nil {
		return nil, nil, platform.NewPlatformError("start_xvfb", "cannot start Xvfb for "+name).WithCause(err)
	}
	srv := &xvfb{cmd: cmd, exited: make(chan error, 1)}
	go func() { srv.exited <- cmd.Wait() }()
	logger.Info("started Xvfb", zap.String("display", name), zap.Int("pid", cmd.Process.Pid))

	deadline := time.Now().Add(timeout)
	delay := 20 * time.Millisecond
	for {
		select {
		case err := <-srv.exited:
			srv.exited <- err
			return nil, nil, platform.NewPlatformError("start_xvfb", "Xvfb exited before accepting connections on "+name).WithCause(err)
		default:
		}
		d, err := dial(name)
		if err == nil {
			return srv, d, nil
		}
		if time.Now().After(deadline) {
			srv.stop()
			return nil, nil, platform.NewPlatformError("start_xvfb", "Xvfb did not accept connections on "+name).
				WithCause(err).WithRetryable(true)
		}
		time.Sleep(delay)
		if delay < 200*time.Millisecond {
			delay *= 2
		}
	}
}

// stop terminates the server and reaps it.
func (s *xvfb) stop() {
	select {
	case err := <-s.exited:
		s.exited <- err
		return
	default:
	}
	_ = s.cmd.Process.Kill()
	err := <-s.exited
	s.exited <- err
}

// running reports whether the server process is still alive.
func (s *xvfb) running() bool {
	select {
	case err := <-s.exited:
		s.exited <- err
		return false
	default:
		return true
	}
}
