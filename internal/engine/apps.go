package engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// match quality of an application name against a query, best first.
const (
	matchNone = iota
	matchSubsequence
	matchSubstring
	matchPrefix
	matchExact
)

func matchScore(name, query string) int {
	n, q := strings.ToLower(name), strings.ToLower(strings.TrimSpace(query))
	switch {
	case q == "":
		return matchNone
	case n == q:
		return matchExact
	case strings.HasPrefix(n, q):
		return matchPrefix
	case strings.Contains(n, q):
		return matchSubstring
	case isSubsequence(n, q):
		return matchSubsequence
	}
	return matchNone
}

func isSubsequence(s, sub string) bool {
	rs := []rune(sub)
	i := 0
	for _, r := range s {
		if i < len(rs) && r == rs[i] {
			i++
		}
	}
	return i == len(rs)
}

// Applications returns the running applications the accessibility API can
// see.
func (e *Engine) Applications(ctx context.Context) ([]*Element, error) {
	rd, err := e.reader()
	if err != nil {
		return nil, err
	}
	var nodes []platform.Node
	if err := e.run(ctx, func() error {
		var rerr error
		nodes, rerr = rd.Applications()
		return rerr
	}); err != nil {
		return nil, err
	}
	out := make([]*Element, len(nodes))
	for i, n := range nodes {
		out[i] = e.wrap(n)
	}
	return out, nil
}

// Windows lists the top-level windows, frontmost first.
func (e *Engine) Windows(ctx context.Context) ([]platform.Window, error) {
	rd, err := e.reader()
	if err != nil {
		return nil, err
	}
	var windows []platform.Window
	err = e.run(ctx, func() error {
		var rerr error
		windows, rerr = rd.ListWindows()
		return rerr
	})
	return windows, err
}

// Application finds a running application by name. Exact matches beat
// prefixes, prefixes beat substrings and substrings beat subsequences,
// all case-insensitive. Ties go to the application with focus, then to
// the most recently started one.
func (e *Engine) Application(ctx context.Context, query string) (*Element, error) {
	el, _, err := e.application(ctx, query)
	return el, err
}

func (e *Engine) application(ctx context.Context, query string) (*Element, int, error) {
	apps, err := e.Applications(ctx)
	if err != nil {
		return nil, matchNone, err
	}
	focusedPID := e.focusedPID(ctx)

	var best *Element
	var bestProps platform.Properties
	bestScore := matchNone
	for _, app := range apps {
		p, err := app.fresh(ctx)
		if err != nil {
			if platform.Is(err, platform.CodeElementDetached) {
				continue
			}
			return nil, matchNone, err
		}
		s := matchScore(p.Name, query)
		if s == matchNone || s < bestScore {
			continue
		}
		if s == bestScore && !preferApp(p, bestProps, focusedPID) {
			continue
		}
		best, bestProps, bestScore = app, p, s
	}
	if best == nil {
		return nil, matchNone, platform.Errorf(platform.CodeElementNotFound, "no running application matches %q", query)
	}
	return best, bestScore, nil
}

// preferApp breaks a tie between two equally good name matches.
func preferApp(a, b platform.Properties, focusedPID int) bool {
	if focusedPID > 0 && (a.PID == focusedPID) != (b.PID == focusedPID) {
		return a.PID == focusedPID
	}
	return a.Started.After(b.Started)
}

func (e *Engine) focusedPID(ctx context.Context) int {
	if wm := e.provider.WindowManager; wm != nil {
		var pid int
		if err := e.run(ctx, func() error {
			var rerr error
			_, pid, rerr = wm.GetFrontmostApp()
			return rerr
		}); err == nil && pid > 0 {
			return pid
		}
	}
	f, err := e.FocusedElement(ctx)
	if err != nil {
		return 0
	}
	pid, _ := f.ProcessID()
	return pid
}

// OpenApplication activates a running application matching name or launches
// it, then waits for one of its windows to appear.
func (e *Engine) OpenApplication(ctx context.Context, name string) (*Element, error) {
	start := time.Now()
	el, err := e.openApplication(ctx, name)
	e.invalidate()
	e.record(Event{Action: "open_application", Element: name, Error: errString(err)})
	e.observeAction("open_application", start, err)
	return el, err
}

func (e *Engine) openApplication(ctx context.Context, name string) (*Element, error) {
	wm, err := e.windowManager()
	if err != nil {
		return nil, err
	}
	log := e.logger.With(zap.String("application", name))
	log.Debug("open application", zap.String("state", "requested"))

	if app, score, err := e.application(ctx, name); err == nil && score >= matchSubstring {
		pid, _ := app.ProcessID()
		if err := e.run(ctx, func() error { return wm.Activate(pid) }); err != nil {
			return nil, err
		}
		log.Debug("open application", zap.String("state", "ready"), zap.Int("pid", pid), zap.Bool("already_running", true))
		return app, nil
	} else if err != nil && !platform.Is(err, platform.CodeElementNotFound) {
		return nil, err
	}

	var pid int
	if err := e.run(ctx, func() error {
		var rerr error
		pid, rerr = wm.Launch(name)
		return rerr
	}); err != nil {
		return nil, err
	}
	log.Debug("open application", zap.String("state", "launched"), zap.Int("pid", pid))

	win, err := e.waitForWindow(ctx, pid, name)
	if err != nil {
		log.Debug("open application", zap.String("state", "timeout_failed"), zap.Error(err))
		return nil, err
	}
	if pid == 0 {
		pid = win.PID
	}
	app, err := e.appByPID(ctx, pid)
	if err != nil {
		return nil, err
	}
	log.Debug("open application", zap.String("state", "ready"), zap.Int("pid", pid))
	return app, nil
}

// waitForWindow polls until a window of pid appears, or, when the platform
// did not report a pid, a window of an application matching name.
func (e *Engine) waitForWindow(ctx context.Context, pid int, name string) (platform.Window, error) {
	rd, err := e.reader()
	if err != nil {
		return platform.Window{}, err
	}
	timeout := e.cfg.Actions.OpenTimeout
	var found platform.Window
	err = e.poll(ctx, timeout, func() (bool, error) {
		var windows []platform.Window
		if err := e.run(ctx, func() error {
			var rerr error
			windows, rerr = rd.ListWindows()
			return rerr
		}); err != nil {
			return false, err
		}
		for _, w := range windows {
			if (pid > 0 && w.PID == pid) || (pid == 0 && matchScore(w.App, name) >= matchSubstring) {
				found = w
				return true, nil
			}
		}
		return false, nil
	})
	var exp *expiredError
	if errors.As(err, &exp) {
		return found, platform.Errorf(platform.CodeTimeout, "no window of %q appeared within %s", name, timeout).WithCause(exp.last)
	}
	return found, err
}

func (e *Engine) appByPID(ctx context.Context, pid int) (*Element, error) {
	apps, err := e.Applications(ctx)
	if err != nil {
		return nil, err
	}
	for _, app := range apps {
		if p, err := app.fresh(ctx); err == nil && p.PID == pid {
			return app, nil
		}
	}
	return nil, platform.Errorf(platform.CodeElementNotFound, "no application with pid %d", pid)
}

// ActivateApplication brings a running application to the foreground.
func (e *Engine) ActivateApplication(ctx context.Context, name string) error {
	start := time.Now()
	err := func() error {
		wm, err := e.windowManager()
		if err != nil {
			return err
		}
		app, err := e.Application(ctx, name)
		if err != nil {
			return err
		}
		pid, err := app.ProcessID()
		if err != nil {
			return err
		}
		return e.run(ctx, func() error { return wm.Activate(pid) })
	}()
	e.invalidate()
	e.record(Event{Action: "activate_application", Element: name, Error: errString(err)})
	e.observeAction("activate_application", start, err)
	return err
}

// OpenURL opens url in browser and returns the document of the new tab, or
// its window when the browser exposes no document.
func (e *Engine) OpenURL(ctx context.Context, url string, browser platform.Browser) (*Element, error) {
	start := time.Now()
	el, err := func() (*Element, error) {
		wm, err := e.windowManager()
		if err != nil {
			return nil, err
		}
		var pid int
		if err := e.run(ctx, func() error {
			var rerr error
			pid, rerr = wm.OpenURL(url, browser)
			return rerr
		}); err != nil {
			return nil, err
		}
		name := string(browser)
		if name == "" {
			name = "browser"
		}
		win, err := e.waitForWindow(ctx, pid, name)
		if err != nil {
			return nil, err
		}
		winEl := e.wrap(win.Node)
		var doc platform.Node
		err = e.walk(ctx, win.Node, e.cfg.Resolver.MaxDepth, func(n platform.Node, p platform.Properties) (bool, error) {
			if p.Role == model.RoleDocument {
				doc = n
				return false, nil
			}
			return true, nil
		})
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return winEl, nil
		}
		return e.wrap(doc), nil
	}()
	e.invalidate()
	e.record(Event{Action: "open_url", Element: url, Error: errString(err)})
	e.observeAction("open_url", start, err)
	return el, err
}

// OpenFile opens path with the desktop's default handler.
func (e *Engine) OpenFile(ctx context.Context, path string) error {
	start := time.Now()
	err := func() error {
		wm, err := e.windowManager()
		if err != nil {
			return err
		}
		return e.run(ctx, func() error { return wm.OpenFile(path) })
	}()
	e.invalidate()
	e.record(Event{Action: "open_file", Element: path, Error: errString(err)})
	e.observeAction("open_file", start, err)
	return err
}
