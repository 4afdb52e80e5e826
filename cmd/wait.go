package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/selector"
)

// WaitResult is the output of wait.
type WaitResult struct {
	OK      bool         `yaml:"ok"              json:"ok"`
	Action  string       `yaml:"action"          json:"action"`
	Elapsed string       `yaml:"elapsed"         json:"elapsed"`
	Match   *ElementInfo `yaml:"match,omitempty" json:"match,omitempty"`
}

var waitCmd = &cobra.Command{
	Use:   "wait <selector>",
	Short: "Wait until an element appears or disappears",
	Long: `Poll until the selector matches (or, with --gone, until it no longer
matches). Fails with TIMEOUT when the condition is not met in time.`,
	Args: cobra.ExactArgs(1),
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)
	waitCmd.Flags().String("app", "", "Scope the lookup to an application (fuzzy name match)")
	waitCmd.Flags().Duration("timeout", 30*time.Second, "How long to wait")
	waitCmd.Flags().Duration("interval", 500*time.Millisecond, "Polling interval for --gone")
	waitCmd.Flags().Bool("gone", false, "Wait until nothing matches")
}

func runWait(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	interval, _ := cmd.Flags().GetDuration("interval")
	gone, _ := cmd.Flags().GetBool("gone")
	if timeout <= 0 || interval <= 0 {
		return fmt.Errorf("--timeout and --interval must be positive")
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	root, err := s.scope(ctx, cmd)
	if err != nil {
		return err
	}
	loc := s.engine.Locator(selector.Parse(args[0]))
	if root != nil {
		loc = loc.Within(root)
	}

	start := time.Now()
	if !gone {
		el, err := loc.Wait(ctx, timeout)
		if err != nil {
			return err
		}
		info, err := elementInfo(el)
		if err != nil {
			return err
		}
		return output.Print(WaitResult{OK: true, Action: "appeared", Elapsed: time.Since(start).Round(time.Millisecond).String(), Match: info})
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		// One immediate probe per tick; FindElements returns empty on expiry.
		els, err := loc.All(ctx, time.Millisecond, 0)
		if err != nil && ctx.Err() == nil {
			return err
		}
		if err == nil && len(els) == 0 {
			return output.Print(WaitResult{OK: true, Action: "gone", Elapsed: time.Since(start).Round(time.Millisecond).String()})
		}
		select {
		case <-ctx.Done():
			return platform.Errorf(platform.CodeTimeout, "timed out after %s waiting for %q to disappear", timeout, args[0])
		case <-ticker.C:
		}
	}
}
