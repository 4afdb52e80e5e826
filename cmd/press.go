package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

var pressCmd = &cobra.Command{
	Use:   "press <keys>",
	Short: "Send a key sequence to an element",
	Long: `Focus an element and send a key-literal pattern. Braced names are keys or
modifiers that stay held until the next plain key; a count repeats a key.

Examples:
  desktop-automation press "{Ctrl}s"
  desktop-automation press --into "id:editor" "{Ctrl}{Shift}{End}"
  desktop-automation press "{Tab 3}{Enter}"`,
	Args: cobra.ExactArgs(1),
	RunE: runPress,
}

func init() {
	rootCmd.AddCommand(pressCmd)
	addLookupFlags(pressCmd)
	pressCmd.Flags().String("into", "", "Selector of the element that receives the keys (default: focused element)")
}

func runPress(cmd *cobra.Command, args []string) error {
	into, _ := cmd.Flags().GetString("into")

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
	if err := el.PressKey(ctx, args[0]); err != nil {
		return err
	}
	return output.Print(actionResult("press", el))
}
