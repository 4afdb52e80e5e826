package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
)

var scrollCmd = &cobra.Command{
	Use:   "scroll <selector>",
	Short: "Scroll an element, or scroll it into view",
	Long: `Turn the mouse wheel over an element, or with --into-view scroll its
container until the element lies inside the visible part of its window.`,
	Args: cobra.ExactArgs(1),
	RunE: runScroll,
}

func init() {
	rootCmd.AddCommand(scrollCmd)
	addLookupFlags(scrollCmd)
	scrollCmd.Flags().String("direction", "down", "Scroll direction: up, down, left, right")
	scrollCmd.Flags().Int("amount", 3, "Number of wheel notches")
	scrollCmd.Flags().Bool("into-view", false, "Scroll the element into view instead of scrolling it")
}

func runScroll(cmd *cobra.Command, args []string) error {
	dirStr, _ := cmd.Flags().GetString("direction")
	amount, _ := cmd.Flags().GetInt("amount")
	intoView, _ := cmd.Flags().GetBool("into-view")
	dir, err := platform.ParseScrollDirection(dirStr)
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
	if intoView {
		if err := el.ScrollIntoView(ctx); err != nil {
			return err
		}
		return output.Print(actionResult("scroll_into_view", el))
	}
	if err := el.Scroll(ctx, dir, amount); err != nil {
		return err
	}
	return output.Print(actionResult("scroll", el))
}
