package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

// FocusResult is the output of focus --app.
type FocusResult struct {
	OK     bool   `yaml:"ok"            json:"ok"`
	Action string `yaml:"action"        json:"action"`
	App    string `yaml:"app,omitempty" json:"app,omitempty"`
	PID    int    `yaml:"pid,omitempty" json:"pid,omitempty"`
}

var focusCmd = &cobra.Command{
	Use:   "focus [selector]",
	Short: "Give keyboard focus to an element or bring an application to the front",
	Long: `Focus the element matching a selector, or with --activate and no selector
bring the application named by --app to the foreground.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFocus,
}

func init() {
	rootCmd.AddCommand(focusCmd)
	addLookupFlags(focusCmd)
	focusCmd.Flags().Bool("activate", false, "Bring the --app application to the foreground")
}

func runFocus(cmd *cobra.Command, args []string) error {
	app, _ := cmd.Flags().GetString("app")
	activate, _ := cmd.Flags().GetBool("activate")
	if len(args) == 0 && !(activate && app != "") {
		return fmt.Errorf("specify a selector, or --activate with --app")
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	if len(args) == 0 {
		if err := s.engine.ActivateApplication(ctx, app); err != nil {
			return err
		}
		res := FocusResult{OK: true, Action: "activate"}
		if el, err := s.engine.Application(ctx, app); err == nil {
			if p, err := el.Properties(); err == nil {
				res.App, res.PID = p.Name, p.PID
			}
		}
		return output.Print(res)
	}

	el, err := s.find(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	if err := el.Focus(ctx); err != nil {
		return err
	}
	return output.Print(actionResult("focus", el))
}
