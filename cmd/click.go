package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

var clickCmd = &cobra.Command{
	Use:   "click <selector>",
	Short: "Click an element",
	Long: `Click the element matching a selector.

The element must be attached, visible, scrolled into view, stable and not
obscured at its centre before the pointer moves. When synthetic input cannot
reach it the element's invoke action is used and the result reports
validated: false.`,
	Args: cobra.ExactArgs(1),
	RunE: runClick,
}

func init() {
	rootCmd.AddCommand(clickCmd)
	addLookupFlags(clickCmd)
	clickCmd.Flags().String("button", "left", "Mouse button: left, right")
	clickCmd.Flags().Bool("double", false, "Double-click")
}

func runClick(cmd *cobra.Command, args []string) error {
	button, _ := cmd.Flags().GetString("button")
	double, _ := cmd.Flags().GetBool("double")
	if button != "left" && button != "right" {
		return fmt.Errorf("unsupported --button %q (use left or right)", button)
	}
	if double && button == "right" {
		return fmt.Errorf("--double only applies to the left button")
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
	action, click := "click", el.Click
	switch {
	case double:
		action, click = "double_click", el.DoubleClick
	case button == "right":
		action, click = "right_click", el.RightClick
	}
	res := actionResult(action, el)
	ar, err := click(ctx)
	if err != nil {
		return err
	}
	return output.Print(res.withPointer(ar))
}
