package engine

import (
	"bytes"
	"context"
	"image/png"
	"os/exec"
	"strings"
	"time"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// OCRFunc recognizes the text in a screenshot.
type OCRFunc func(ctx context.Context, shot *platform.Screenshot) (string, error)

// CommandOCR runs an external recognizer that reads a PNG on stdin and
// prints text on stdout, e.g. "tesseract stdin stdout".
func CommandOCR(command string, args ...string) OCRFunc {
	return func(ctx context.Context, shot *platform.Screenshot) (string, error) {
		if _, err := exec.LookPath(command); err != nil {
			return "", platform.Unsupported("ocr: " + command + " is not installed").WithCause(err)
		}
		var in bytes.Buffer
		if err := png.Encode(&in, shot.Image()); err != nil {
			return "", platform.NewError(platform.CodeInternal, "encoding screenshot").WithCause(err)
		}
		var out, stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Stdin = &in
		cmd.Stdout = &out
		cmd.Stderr = &stderr
		if err := cmd.Run(); err != nil {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				msg = err.Error()
			}
			return "", platform.NewPlatformError("ocr", msg).WithCause(err)
		}
		return strings.TrimSpace(out.String()), nil
	}
}

// OCR captures the element and runs the configured recognizer on it.
func (el *Element) OCR(ctx context.Context) (string, error) {
	start := time.Now()
	if el.engine.ocr == nil {
		return "", platform.Unsupported("ocr without a configured recognizer")
	}
	shot, err := el.Capture(ctx)
	if err != nil {
		return "", err
	}
	text, err := el.engine.ocr(ctx, shot)
	el.engine.observeAction("ocr", start, err)
	return text, err
}
