package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

var hoverCmd = &cobra.Command{
	Use:   "hover <selector>",
	Short: "Move the pointer over an element without clicking",
	Long:  "Move the pointer to the centre of an element. Useful for triggering hover-dependent UI like tooltips, row actions and flyout menus.",
	Args:  cobra.ExactArgs(1),
	RunE:  runHover,
}

func init() {
	rootCmd.AddCommand(hoverCmd)
	addLookupFlags(hoverCmd)
}

func runHover(cmd *cobra.Command, args []string) error {
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
	res := actionResult("hover", el)
	ar, err := el.Hover(ctx)
	if err != nil {
		return err
	}
	return output.Print(res.withPointer(ar))
}
