package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

// ZoomResult is the output of zoom.
type ZoomResult struct {
	OK      bool   `yaml:"ok"                json:"ok"`
	Action  string `yaml:"action"            json:"action"`
	Steps   int    `yaml:"steps,omitempty"   json:"steps,omitempty"`
	Percent int    `yaml:"percent,omitempty" json:"percent,omitempty"`
}

var zoomCmd = &cobra.Command{
	Use:   "zoom in|out [steps] | zoom set <percent>",
	Short: "Change the zoom level of the focused window",
	Long: `Send the platform zoom shortcut to the focused window.

  zoom in 2      two steps in
  zoom out       one step out
  zoom set 150   reset, then step to the closest browser zoom level`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runZoom,
}

func init() {
	rootCmd.AddCommand(zoomCmd)
}

func runZoom(cmd *cobra.Command, args []string) error {
	res := ZoomResult{OK: true}
	n := 1
	if len(args) == 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 1 {
			return fmt.Errorf("invalid zoom amount %q", args[1])
		}
		n = v
	}
	switch args[0] {
	case "in", "out":
		res.Action, res.Steps = "zoom_"+args[0], n
	case "set":
		if len(args) != 2 {
			return fmt.Errorf("zoom set needs a percentage")
		}
		res.Action, res.Percent = "set_zoom", n
	default:
		return fmt.Errorf("unknown zoom mode %q (want in, out or set)", args[0])
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	switch args[0] {
	case "in":
		err = s.engine.ZoomIn(ctx, n)
	case "out":
		err = s.engine.ZoomOut(ctx, n)
	default:
		err = s.engine.SetZoom(ctx, n)
	}
	if err != nil {
		return err
	}
	return output.Print(res)
}
