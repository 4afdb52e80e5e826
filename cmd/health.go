package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the automation backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(sessionOptions{})
		if err != nil {
			return err
		}
		defer s.Close()
		return output.Print(s.engine.Health(cmd.Context()))
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
