package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// OpenResult is the output of open.
type OpenResult struct {
	OK     bool         `yaml:"ok"               json:"ok"`
	Action string       `yaml:"action"           json:"action"`
	Target string       `yaml:"target"           json:"target"`
	Window *ElementInfo `yaml:"window,omitempty" json:"window,omitempty"`
}

var openCmd = &cobra.Command{
	Use:   "open <app|url|file>",
	Short: "Launch an application, a URL or a file",
	Long: `Open a target and wait for its window.

http(s) URLs open in --browser (default: the system browser). Existing paths
open in their default application. Anything else is treated as an
application name: a running match is activated, otherwise it is launched.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func init() {
	rootCmd.AddCommand(openCmd)
	openCmd.Flags().String("browser", "default", "Browser for URLs: default, chrome, firefox, edge, safari, brave, opera")
}

func isURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

func runOpen(cmd *cobra.Command, args []string) error {
	target := args[0]
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	res := OpenResult{OK: true, Target: target}
	var el *engine.Element
	switch {
	case isURL(target):
		name, _ := cmd.Flags().GetString("browser")
		br, perr := platform.ParseBrowser(name)
		if perr != nil {
			return perr
		}
		res.Action = "open_url"
		el, err = s.engine.OpenURL(ctx, target, br)
	case fileExists(target):
		res.Action = "open_file"
		err = s.engine.OpenFile(ctx, target)
	default:
		res.Action = "open_application"
		el, err = s.engine.OpenApplication(ctx, target)
	}
	if err != nil {
		return err
	}
	if el != nil {
		if res.Window, err = elementInfo(el); err != nil {
			return err
		}
	}
	return output.Print(res)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
