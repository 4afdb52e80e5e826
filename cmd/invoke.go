package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <selector>",
	Short: "Fire an element's default accessibility action",
	Long: `Fire the default action of an element (press, activate) through the
accessibility API. No pointer input is generated, so the element does not need
to be on screen.`,
	Args: cobra.ExactArgs(1),
	RunE: runInvoke,
}

func init() {
	rootCmd.AddCommand(invokeCmd)
	addLookupFlags(invokeCmd)
}

func runInvoke(cmd *cobra.Command, args []string) error {
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
	res := actionResult("invoke", el)
	ar, err := el.Invoke(ctx)
	if err != nil {
		return err
	}
	return output.Print(res.withPointer(ar))
}
