package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/engine"
)

// consoleMarker prefixes the clipboard text the console wrapper writes, so
// the result cannot be confused with whatever was on the clipboard before.
const consoleMarker = "__desktop_automation_result__:"

// Console evaluates scripts by typing them into the browser's devtools
// console and reading the result back from the clipboard.
type Console struct {
	// Mac selects the Cmd-based shortcuts.
	Mac bool
	// Poll is the clipboard polling interval.
	Poll   time.Duration
	logger *zap.Logger
}

// NewConsole returns a console driver.
func NewConsole(mac bool, logger *zap.Logger) *Console {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Console{Mac: mac, Poll: 100 * time.Millisecond, logger: logger.With(zap.String("component", "devtools_console"))}
}

// consoleWrapper evaluates code with indirect eval, so both expressions and
// statement lists work, and copies the marked result to the clipboard.
func consoleWrapper(code string) string {
	quoted, _ := json.Marshal(code)
	marker, _ := json.Marshal(consoleMarker)
	return fmt.Sprintf(`(async () => { let out; try { const r = await (0, eval)(%s); `+
		`out = r === undefined ? "null" : (typeof r === "string" ? r : JSON.stringify(r)); } `+
		`catch (e) { out = "ERROR: " + ((e && e.message) || String(e)); } copy(%s + out); })()`,
		quoted, marker)
}

// Evaluate opens the console, pastes the wrapper, runs it and waits for the
// result on the clipboard. The previous clipboard text is restored.
func (c *Console) Evaluate(ctx context.Context, ui engine.ScriptUI, code string) (string, error) {
	if ui == nil {
		return "", fmt.Errorf("%w: no window to drive the console through", errUnavailable)
	}
	mod := "{Ctrl}"
	open := "{Ctrl}{Shift}J"
	if c.Mac {
		mod = "{Cmd}"
		open = "{Cmd}{Alt}J"
	}

	saved, err := ui.ClipboardText(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: clipboard: %v", errUnavailable, err)
	}
	defer func() {
		if err := ui.SetClipboardText(context.Background(), saved); err != nil {
			c.logger.Warn("failed to restore clipboard", zap.Error(err))
		}
	}()

	wrapper := consoleWrapper(code)
	if err := ui.SetClipboardText(ctx, wrapper); err != nil {
		return "", err
	}
	for _, step := range []string{open, mod + "V", "{Enter}"} {
		if err := ui.PressKey(ctx, step); err != nil {
			return "", fmt.Errorf("console key %s: %w", step, err)
		}
	}
	c.logger.Debug("console wrapper submitted", zap.Int("code_len", len(code)))

	t := time.NewTicker(c.Poll)
	defer t.Stop()
	for {
		text, err := ui.ClipboardText(ctx)
		if err != nil {
			return "", err
		}
		if out, ok := strings.CutPrefix(text, consoleMarker); ok {
			// Close the console again.
			if err := ui.PressKey(ctx, open); err != nil {
				c.logger.Debug("failed to close console", zap.Error(err))
			}
			return out, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
}
