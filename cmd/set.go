package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
)

var setCmd = &cobra.Command{
	Use:   "set <selector>",
	Short: "Set the value, toggle, selection or range of an element",
	Long: `Write one piece of element state through the accessibility API. Setters are
idempotent: an element already in the requested state is left alone.

Examples:
  desktop-automation set "CheckBox|Word Wrap" --toggle on
  desktop-automation set "Slider|Font Size" --range 14
  desktop-automation set "id:display" --value 42
  desktop-automation set "ListItem|Inbox" --selected true`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

func init() {
	rootCmd.AddCommand(setCmd)
	addLookupFlags(setCmd)
	setCmd.Flags().String("value", "", "Text value")
	setCmd.Flags().String("toggle", "", "Toggle state: on, off")
	setCmd.Flags().String("selected", "", "Selection state: true, false")
	setCmd.Flags().Float64("range", 0, "Numeric value of a slider or spinner")
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("expected on/off or true/false, got %q", s)
}

func runSet(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	var set []string
	for _, name := range []string{"value", "toggle", "selected", "range"} {
		if flags.Changed(name) {
			set = append(set, name)
		}
	}
	if len(set) != 1 {
		return fmt.Errorf("specify exactly one of --value, --toggle, --selected or --range")
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
	switch set[0] {
	case "value":
		v, _ := flags.GetString("value")
		err = el.SetValue(ctx, v)
	case "toggle":
		t, _ := flags.GetString("toggle")
		on, perr := parseOnOff(t)
		if perr != nil {
			return perr
		}
		err = el.SetToggled(ctx, on)
	case "selected":
		t, _ := flags.GetString("selected")
		sel, perr := parseOnOff(t)
		if perr != nil {
			return perr
		}
		err = el.SetSelected(ctx, sel)
	case "range":
		v, _ := flags.GetFloat64("range")
		err = el.SetRangeValue(ctx, v)
	}
	if err != nil {
		return err
	}
	return output.Print(actionResult("set_"+set[0], el))
}
