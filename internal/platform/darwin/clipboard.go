//go:build darwin

package darwin

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Clipboard implements platform.ClipboardManager using pbcopy/pbpaste.
type Clipboard struct{}

// NewClipboard returns a new Clipboard instance.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// GetText reads the current plain-text content of the general pasteboard.
func (c *Clipboard) GetText() (string, error) {
	cmd := exec.Command("pbpaste", "-Prefer", "txt")
	cmd.Env = utf8Env()
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pbpaste: %w", err)
	}
	return string(out), nil
}

// SetText replaces the pasteboard content with text.
func (c *Clipboard) SetText(text string) error {
	cmd := exec.Command("pbcopy")
	cmd.Env = utf8Env()
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pbcopy: %w", err)
	}
	return nil
}

// Clear empties the pasteboard.
func (c *Clipboard) Clear() error {
	return c.SetText("")
}

// utf8Env makes pbcopy and pbpaste treat stdio as UTF-8 regardless of the
// caller's locale.
func utf8Env() []string {
	return append(os.Environ(), "LANG=en_US.UTF-8")
}
