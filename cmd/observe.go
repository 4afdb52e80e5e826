package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/output"
)

var observeCmd = &cobra.Command{
	Use:   "observe",
	Short: "Watch a window and stream its changes as JSONL",
	Long: `Re-read a window tree every --interval and write one JSON line per added,
removed or changed element. A stable UI produces no output.

The stream opens with a "snapshot" line and closes with a "done" line. Output
is always JSONL regardless of --format. Stop with Ctrl+C or --duration.`,
	Args: cobra.NoArgs,
	RunE: runObserve,
}

func init() {
	rootCmd.AddCommand(observeCmd)
	addTreeSourceFlags(observeCmd)
	observeCmd.Flags().String("roles", "", "Only report these roles (comma-separated)")
	observeCmd.Flags().Duration("interval", time.Second, "Polling interval")
	observeCmd.Flags().Duration("duration", 0, "Stop after this long (0 = until interrupted)")
	observeCmd.Flags().Bool("ignore-bounds", false, "Ignore position and size changes")
}

type observeEvent struct {
	Type    string `json:"type"`
	TS      int64  `json:"ts"`
	Count   int    `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
	Elapsed string `json:"elapsed,omitempty"`
	Events  int    `json:"events,omitempty"`
}

func runObserve(cmd *cobra.Command, args []string) error {
	interval, _ := cmd.Flags().GetDuration("interval")
	duration, _ := cmd.Flags().GetDuration("duration")
	ignoreBounds, _ := cmd.Flags().GetBool("ignore-bounds")
	roles, _ := cmd.Flags().GetString("roles")
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}
	f := model.Filter{Roles: splitList(roles)}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	snapshot := func() ([]model.FlatNode, error) {
		tree, _, err := readTree(ctx, s, cmd)
		if err != nil {
			return nil, err
		}
		nodes := model.FilterNodes([]model.Node{*tree}, f)
		var flat []model.FlatNode
		for i := range nodes {
			flat = append(flat, model.Flatten(&nodes[i])...)
		}
		return flat, nil
	}

	enc := json.NewEncoder(output.Writer)
	enc.SetEscapeHTML(false)
	start := time.Now()

	prev, err := snapshot()
	if err != nil {
		return fmt.Errorf("initial read failed: %w", err)
	}
	if err := enc.Encode(observeEvent{Type: "snapshot", TS: time.Now().Unix(), Count: len(prev)}); err != nil {
		return err
	}

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-deadline:
			break loop
		case <-ticker.C:
		}

		curr, err := snapshot()
		if err != nil {
			if err := enc.Encode(observeEvent{Type: "error", TS: time.Now().Unix(), Error: err.Error()}); err != nil {
				return err
			}
			continue
		}
		for _, change := range model.DiffNodes(prev, curr) {
			if change.Type == model.ChangeChanged && ignoreBounds {
				delete(change.Changes, "bounds")
				if len(change.Changes) == 0 {
					continue
				}
			}
			if err := enc.Encode(change); err != nil {
				return err
			}
			events++
		}
		prev = curr
	}

	return enc.Encode(observeEvent{
		Type:    "done",
		TS:      time.Now().Unix(),
		Elapsed: fmt.Sprintf("%.1fs", time.Since(start).Seconds()),
		Events:  events,
	})
}
