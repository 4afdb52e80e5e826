package engine

import (
	"context"
	"time"

	"github.com/mj1618/desktop-automation/internal/metrics"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// ScriptRequest is one script evaluation in the browser owning an element.
type ScriptRequest struct {
	Code string
	// WindowTitle is the name of the browser window owning the element; it
	// selects the tab.
	WindowTitle string
	PID         int
	// UI drives the browser through its own window when no programmatic
	// channel is reachable.
	UI ScriptUI
}

// ScriptResult is the evaluation result. Thrown errors are reported in
// Value as "ERROR: <message>" rather than as a Go error.
type ScriptResult struct {
	Value     string
	Transport string
}

// ScriptEvaluator runs JavaScript in a browser.
type ScriptEvaluator interface {
	Evaluate(ctx context.Context, req ScriptRequest) (ScriptResult, error)
}

// ScriptUI is the keyboard and clipboard access the console fallback needs.
type ScriptUI interface {
	PressKey(ctx context.Context, pattern string) error
	ClipboardText(ctx context.Context) (string, error)
	SetClipboardText(ctx context.Context, text string) error
}

// ExecuteScript evaluates js in the browser tab owning the element.
func (el *Element) ExecuteScript(ctx context.Context, js string) (string, error) {
	e := el.engine
	if e.evaluator == nil {
		return "", platform.Unsupported("script execution without a browser evaluator")
	}
	start := time.Now()
	win, err := el.Window()
	if err != nil {
		return "", err
	}
	wp, err := win.Properties()
	if err != nil {
		return "", err
	}
	if e.cfg.Browser.EvalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Browser.EvalTimeout)
		defer cancel()
	}
	res, err := e.evaluator.Evaluate(ctx, ScriptRequest{
		Code:        js,
		WindowTitle: wp.Name,
		PID:         wp.PID,
		UI:          &windowUI{el: win},
	})
	e.metrics.RecordScript(res.Transport, metrics.Outcome(err, codeLabel), time.Since(start))
	e.invalidate()
	e.record(Event{Action: "execute_script", Element: el.Key(), Error: errString(err)})
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

// windowUI drives a browser window for the console fallback.
type windowUI struct {
	el *Element
}

func (u *windowUI) PressKey(ctx context.Context, pattern string) error {
	return u.el.PressKey(ctx, pattern)
}

func (u *windowUI) ClipboardText(ctx context.Context) (string, error) {
	cb := u.el.engine.provider.ClipboardManager
	if cb == nil {
		return "", platform.Unsupported("clipboard access")
	}
	var s string
	err := u.el.engine.run(ctx, func() error {
		var rerr error
		s, rerr = cb.GetText()
		return rerr
	})
	return s, err
}

func (u *windowUI) SetClipboardText(ctx context.Context, text string) error {
	cb := u.el.engine.provider.ClipboardManager
	if cb == nil {
		return platform.Unsupported("clipboard access")
	}
	return u.el.engine.run(ctx, func() error { return cb.SetText(text) })
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
