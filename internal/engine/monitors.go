package engine

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func (e *Engine) monitors(ctx context.Context) ([]platform.Monitor, error) {
	ss, err := e.screenshotter()
	if err != nil {
		return nil, err
	}
	var mons []platform.Monitor
	err = e.run(ctx, func() error {
		var rerr error
		mons, rerr = ss.Monitors()
		return rerr
	})
	return mons, err
}

// Monitors lists the displays. The list is never empty on success.
func (e *Engine) Monitors(ctx context.Context) ([]platform.Monitor, error) {
	mons, err := e.monitors(ctx)
	if err != nil {
		return nil, err
	}
	if len(mons) == 0 {
		return nil, platform.NewPlatformError("monitors", "the display server reported no monitors")
	}
	return mons, nil
}

// PrimaryMonitor returns the primary display, or the first one when none is
// flagged primary.
func (e *Engine) PrimaryMonitor(ctx context.Context) (platform.Monitor, error) {
	mons, err := e.Monitors(ctx)
	if err != nil {
		return platform.Monitor{}, err
	}
	for _, m := range mons {
		if m.IsPrimary {
			return m, nil
		}
	}
	return mons[0], nil
}

// ActiveMonitor returns the display showing the centre of the frontmost
// window, falling back to the primary display.
func (e *Engine) ActiveMonitor(ctx context.Context) (platform.Monitor, error) {
	mons, err := e.Monitors(ctx)
	if err != nil {
		return platform.Monitor{}, err
	}
	if rd, err := e.reader(); err == nil {
		var windows []platform.Window
		if err := e.run(ctx, func() error {
			var rerr error
			windows, rerr = rd.ListWindows()
			return rerr
		}); err == nil && len(windows) > 0 {
			cx, cy := windows[0].Bounds.Center()
			for _, m := range mons {
				if m.ContainsPoint(cx, cy) {
					return m, nil
				}
			}
		}
	}
	return e.PrimaryMonitor(ctx)
}

// MonitorByName finds a display by name or id, case-insensitively.
func (e *Engine) MonitorByName(ctx context.Context, name string) (platform.Monitor, error) {
	mons, err := e.Monitors(ctx)
	if err != nil {
		return platform.Monitor{}, err
	}
	for _, m := range mons {
		if strings.EqualFold(m.Name, name) || strings.EqualFold(m.ID, name) {
			return m, nil
		}
	}
	return platform.Monitor{}, platform.Errorf(platform.CodeElementNotFound, "no monitor named %q", name)
}

// CaptureMonitor grabs the whole of one display.
func (e *Engine) CaptureMonitor(ctx context.Context, m platform.Monitor) (*platform.Screenshot, error) {
	ss, err := e.screenshotter()
	if err != nil {
		return nil, err
	}
	var shot *platform.Screenshot
	err = e.run(ctx, func() error {
		var rerr error
		shot, rerr = ss.Capture(m.Bounds())
		return rerr
	})
	if err != nil {
		return nil, err
	}
	mon := m
	shot.Monitor = &mon
	return shot, nil
}

// CaptureAllMonitors grabs every display concurrently. The result is in
// Monitors order.
func (e *Engine) CaptureAllMonitors(ctx context.Context) ([]*platform.Screenshot, error) {
	mons, err := e.Monitors(ctx)
	if err != nil {
		return nil, err
	}
	shots := make([]*platform.Screenshot, len(mons))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range mons {
		i, m := i, m
		g.Go(func() error {
			shot, err := e.CaptureMonitor(gctx, m)
			if err != nil {
				return err
			}
			shots[i] = shot
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return shots, nil
}
