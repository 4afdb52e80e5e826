package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// Version is overridden at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "desktop-automation",
	Short: "Locate, inspect and drive desktop UI elements",
	Long: `Locate, inspect and drive GUI elements of running applications through the
operating system's accessibility API.

Elements are addressed with selectors such as "role:Button && name:Save",
"Window|Untitled >> id:editor" or "/Window/Pane/Button[2]".`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ErrorResult is printed to stderr when a command fails.
type ErrorResult struct {
	OK    bool        `yaml:"ok"    json:"ok"`
	Error ErrorDetail `yaml:"error" json:"error"`
}

// ErrorDetail carries the taxonomy code of a failure.
type ErrorDetail struct {
	Code         string `yaml:"code"                    json:"code"`
	Message      string `yaml:"message"                 json:"message"`
	Operation    string `yaml:"operation,omitempty"     json:"operation,omitempty"`
	PlatformCode string `yaml:"platform_code,omitempty" json:"platform_code,omitempty"`
	Retryable    bool   `yaml:"retryable,omitempty"     json:"retryable,omitempty"`
}

func errorResult(err error) ErrorResult {
	var perr *platform.Error
	if errors.As(err, &perr) {
		return ErrorResult{Error: ErrorDetail{
			Code:         string(perr.Code),
			Message:      err.Error(),
			Operation:    perr.Operation,
			PlatformCode: perr.PlatformCode,
			Retryable:    perr.Retryable,
		}}
	}
	return ErrorResult{Error: ErrorDetail{Code: "ERROR", Message: err.Error()}}
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if perr := output.Fprint(os.Stderr, output.OutputFormat, output.PrettyOutput, errorResult(err)); perr != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = Version
	pf := rootCmd.PersistentFlags()
	pf.String("format", "yaml", "Output format: yaml, json")
	pf.Bool("pretty", false, "Indent JSON output")
	pf.String("config", "", "Configuration file (YAML)")
	pf.String("backend", "", "Platform backend: linux, darwin, virtual (default: current OS)")
	pf.String("fixture", "", "Desktop description for the virtual backend (YAML)")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Read the root persistent flags directly so a subcommand flag of
		// the same name cannot shadow them.
		format, _ := rootCmd.PersistentFlags().GetString("format")
		f, err := output.ParseFormat(format)
		if err != nil {
			return err
		}
		output.OutputFormat = f
		output.PrettyOutput, _ = rootCmd.PersistentFlags().GetBool("pretty")
		return nil
	}
}
