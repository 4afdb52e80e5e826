package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

var focusedCmd = &cobra.Command{
	Use:   "focused",
	Short: "Print the element that has keyboard focus",
	Args:  cobra.NoArgs,
	RunE:  runFocused,
}

func init() {
	rootCmd.AddCommand(focusedCmd)
}

func runFocused(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	el, err := s.engine.FocusedElement(cmd.Context())
	if err != nil {
		return err
	}
	info, err := elementInfo(el)
	if err != nil {
		return err
	}
	return output.Print(info)
}
