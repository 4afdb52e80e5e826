package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
)

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List running applications and their windows",
	Long: `List the running applications with their top-level windows, frontmost
window first. The application owning the focused window is marked focused.`,
	Args: cobra.NoArgs,
	RunE: runApps,
}

func init() {
	rootCmd.AddCommand(appsCmd)
	appsCmd.Flags().String("app", "", "Only applications whose name matches (fuzzy)")
	appsCmd.Flags().Bool("windows-only", false, "Print the flat window list in z-order")
}

func runApps(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	windows, err := s.engine.Windows(ctx)
	if err != nil {
		return err
	}
	if only, _ := cmd.Flags().GetBool("windows-only"); only {
		out := make([]model.Window, 0, len(windows))
		for _, w := range windows {
			out = append(out, w.Snapshot())
		}
		return output.Print(out)
	}

	var els []*engine.Element
	if name, _ := cmd.Flags().GetString("app"); name != "" {
		el, err := s.engine.Application(ctx, name)
		if err != nil {
			return err
		}
		els = append(els, el)
	} else if els, err = s.engine.Applications(ctx); err != nil {
		return err
	}

	apps := make([]model.App, 0, len(els))
	for _, el := range els {
		p, err := el.Properties()
		if err != nil {
			if platform.Is(err, platform.CodeElementDetached) {
				continue
			}
			return err
		}
		app := model.App{Name: p.Name, PID: p.PID, Windows: []model.Window{}}
		for _, w := range windows {
			if w.PID != p.PID || p.PID == 0 {
				continue
			}
			app.Windows = append(app.Windows, w.Snapshot())
			app.Focused = app.Focused || w.Focused
		}
		apps = append(apps, app)
	}
	return output.Print(apps)
}
