package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// HighlightResult is the output of highlight, printed once the overlay is gone.
type HighlightResult struct {
	OK      bool         `yaml:"ok"               json:"ok"`
	Action  string       `yaml:"action"           json:"action"`
	Target  *ElementInfo `yaml:"target,omitempty" json:"target,omitempty"`
	Shown   string       `yaml:"shown"            json:"shown"`
	Stopped string       `yaml:"stopped"          json:"stopped"`
}

var highlightCmd = &cobra.Command{
	Use:   "highlight <selector>",
	Short: "Draw a coloured frame over an element",
	Long: `Draw a click-through frame over an element, optionally with a text label,
and keep it up for --duration (or until interrupted when the duration is 0).`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlight,
}

func init() {
	rootCmd.AddCommand(highlightCmd)
	addLookupFlags(highlightCmd)
	highlightCmd.Flags().String("color", "", "Frame colour #RRGGBB or #RRGGBBAA (default: actions.highlight_color)")
	highlightCmd.Flags().Duration("duration", 3*time.Second, "How long the frame stays (0 = until interrupted)")
	highlightCmd.Flags().String("text", "", "Label drawn next to the frame")
	highlightCmd.Flags().String("position", "top", "Label position: top, top_right, right, bottom_right, bottom, bottom_left, left, top_left, inside")
	highlightCmd.Flags().Int("font-size", 12, "Label font size")
	highlightCmd.Flags().Bool("bold", false, "Bold label")
}

func highlightOptions(cmd *cobra.Command) (engine.HighlightOptions, error) {
	var opts engine.HighlightOptions
	flags := cmd.Flags()
	if c, _ := flags.GetString("color"); c != "" {
		rgba, err := engine.ParseColor(c)
		if err != nil {
			return opts, err
		}
		opts.Color = rgba
	}
	opts.Duration, _ = flags.GetDuration("duration")
	opts.Text, _ = flags.GetString("text")
	pos, _ := flags.GetString("position")
	opts.Position = platform.TextPosition(pos)
	opts.Font.Size, _ = flags.GetInt("font-size")
	opts.Font.Bold, _ = flags.GetBool("bold")
	return opts, nil
}

func runHighlight(cmd *cobra.Command, args []string) error {
	opts, err := highlightOptions(cmd)
	if err != nil {
		return err
	}
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	el, err := s.find(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	res := HighlightResult{OK: true, Action: "highlight"}
	res.Target, _ = elementInfo(el)

	start := time.Now()
	h, err := el.Highlight(ctx, opts)
	if err != nil {
		return err
	}
	select {
	case <-h.Done():
		res.Stopped = "duration"
	case <-ctx.Done():
		res.Stopped = "interrupted"
	}
	if err := h.Close(); err != nil {
		return err
	}
	res.Shown = time.Since(start).Round(time.Millisecond).String()
	return output.Print(res)
}
