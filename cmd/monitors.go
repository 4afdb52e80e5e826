package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
)

var monitorsCmd = &cobra.Command{
	Use:   "monitors",
	Short: "List displays",
	Long: `List the displays in the shared screen coordinate space. --primary, --active
or --name print a single display instead.`,
	Args: cobra.NoArgs,
	RunE: runMonitors,
}

func init() {
	rootCmd.AddCommand(monitorsCmd)
	monitorsCmd.Flags().Bool("primary", false, "Print the primary display")
	monitorsCmd.Flags().Bool("active", false, "Print the display showing the frontmost window")
	monitorsCmd.Flags().String("name", "", "Print the display with this name or id")
}

func runMonitors(cmd *cobra.Command, args []string) error {
	primary, _ := cmd.Flags().GetBool("primary")
	active, _ := cmd.Flags().GetBool("active")
	name, _ := cmd.Flags().GetString("name")
	picked := 0
	for _, b := range []bool{primary, active, name != ""} {
		if b {
			picked++
		}
	}
	if picked > 1 {
		return fmt.Errorf("--primary, --active and --name are mutually exclusive")
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	var m platform.Monitor
	switch {
	case primary:
		m, err = s.engine.PrimaryMonitor(ctx)
	case active:
		m, err = s.engine.ActiveMonitor(ctx)
	case name != "":
		m, err = s.engine.MonitorByName(ctx, name)
	default:
		mons, err := s.engine.Monitors(ctx)
		if err != nil {
			return err
		}
		return output.Print(mons)
	}
	if err != nil {
		return err
	}
	return output.Print(m)
}
