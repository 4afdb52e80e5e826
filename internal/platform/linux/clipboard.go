package linux

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// clipTool is one command-line clipboard helper.
type clipTool struct {
	name  string
	read  []string
	write []string
}

var clipTools = []clipTool{
	{name: "xclip", read: []string{"-selection", "clipboard", "-o"}, write: []string{"-selection", "clipboard", "-i"}},
	{name: "xsel", read: []string{"--clipboard", "--output"}, write: []string{"--clipboard", "--input"}},
	{name: "wl-paste", read: []string{"--no-newline"}},
	{name: "wl-copy", write: []string{}},
}

// pickClipTool returns the first installed helper able to read (or write).
// Wayland helpers are only considered inside a Wayland session.
func pickClipTool(write bool, lookPath func(string) (string, error), wayland bool) (clipTool, error) {
	for _, t := range clipTools {
		if strings.HasPrefix(t.name, "wl-") && !wayland {
			continue
		}
		if (write && t.write == nil) || (!write && t.read == nil) {
			continue
		}
		if _, err := lookPath(t.name); err == nil {
			return t, nil
		}
	}
	return clipTool{}, fmt.Errorf("no clipboard helper found: install xclip or xsel")
}

// clipboard implements platform.ClipboardManager with xclip, xsel or
// wl-clipboard.
type clipboard struct{}

func wayland() bool { return os.Getenv("WAYLAND_DISPLAY") != "" }

// GetText reads the current text content from the system clipboard.
func (clipboard) GetText() (string, error) {
	t, err := pickClipTool(false, exec.LookPath, wayland())
	if err != nil {
		return "", err
	}
	out, err := exec.Command(t.name, t.read...).Output()
	if err != nil {
		// xclip exits non-zero on an empty clipboard.
		if _, ok := err.(*exec.ExitError); ok && len(out) == 0 {
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", t.name, err)
	}
	return string(out), nil
}

// SetText writes text to the system clipboard.
func (clipboard) SetText(text string) error {
	t, err := pickClipTool(true, exec.LookPath, wayland())
	if err != nil {
		return err
	}
	cmd := exec.Command(t.name, t.write...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}
	return nil
}

// Clear empties the system clipboard.
func (c clipboard) Clear() error {
	return c.SetText("")
}
