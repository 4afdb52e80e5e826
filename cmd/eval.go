package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

// EvalResult is the output of eval.
type EvalResult struct {
	OK     bool   `yaml:"ok"     json:"ok"`
	Result string `yaml:"result" json:"result"`
}

var evalCmd = &cobra.Command{
	Use:   "eval <selector> [script]",
	Short: "Run JavaScript in the browser tab owning an element",
	Long: `Evaluate a script in the tab that contains the element. The DevTools
protocol is tried first, then the extension bridge, then the console
fallback. Read the script from --file instead of the argument for anything
longer than a one-liner.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEval,
}

func init() {
	rootCmd.AddCommand(evalCmd)
	addLookupFlags(evalCmd)
	evalCmd.Flags().String("file", "", "Read the script from a file")
}

func runEval(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	var js string
	switch {
	case file != "" && len(args) == 2:
		return fmt.Errorf("give the script as an argument or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		js = string(data)
	case len(args) == 2:
		js = args[1]
	default:
		return fmt.Errorf("no script given")
	}

	s, err := openSession(sessionOptions{scripts: true})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	el, err := s.find(ctx, cmd, args[0])
	if err != nil {
		return err
	}
	out, err := el.ExecuteScript(ctx, js)
	if err != nil {
		return err
	}
	return output.Print(EvalResult{OK: true, Result: out})
}
