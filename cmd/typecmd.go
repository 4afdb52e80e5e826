package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

var typeCmd = &cobra.Command{
	Use:   "type <text>",
	Short: "Type text into an element",
	Long: `Focus an element and type text into it. Without --into the text goes to the
element that currently has keyboard focus.

Examples:
  desktop-automation type --into "id:editor" "hello world"
  desktop-automation type --into "Edit|Search" --clear "new query"`,
	Args: cobra.ExactArgs(1),
	RunE: runType,
}

func init() {
	rootCmd.AddCommand(typeCmd)
	addLookupFlags(typeCmd)
	typeCmd.Flags().String("into", "", "Selector of the element to type into (default: focused element)")
	typeCmd.Flags().Bool("clear", false, "Select and delete the existing content first")
}

func runType(cmd *cobra.Command, args []string) error {
	into, _ := cmd.Flags().GetString("into")
	clear, _ := cmd.Flags().GetBool("clear")

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	el, err := s.target(ctx, cmd, into)
	if err != nil {
		return err
	}
	if err := el.TypeText(ctx, args[0], clear); err != nil {
		return err
	}
	return output.Print(actionResult("type", el))
}
