package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/selector"
)

// FindResult is the output of find --all.
type FindResult struct {
	Selector string         `yaml:"selector" json:"selector"`
	Count    int            `yaml:"count"    json:"count"`
	Elements []*ElementInfo `yaml:"elements" json:"elements"`
}

var findCmd = &cobra.Command{
	Use:   "find <selector>",
	Short: "Find elements matching a selector",
	Long: `Resolve a selector and print the matching element.

With --all every match is printed in traversal order; an empty list is not an
error. Without --all exactly one element is printed, ranked by window z-order
and closeness to the focused element when several match.

Examples:
  desktop-automation find "role:Button && name:Save"
  desktop-automation find --app Calculator --all "role:Button"
  desktop-automation find "Window|Untitled >> id:editor"`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	rootCmd.AddCommand(findCmd)
	addLookupFlags(findCmd)
	findCmd.Flags().Bool("all", false, "Print every match instead of the best one")
	findCmd.Flags().Int("depth", 0, "Max depth to search with --all (0 = resolver.max_depth)")
}

func runFind(cmd *cobra.Command, args []string) error {
	s, err := openSession(sessionOptions{useCache: true})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	all, _ := cmd.Flags().GetBool("all")
	if !all {
		el, err := s.find(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		info, err := elementInfo(el)
		if err != nil {
			return err
		}
		return output.Print(info)
	}

	root, err := s.scope(ctx, cmd)
	if err != nil {
		return err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	depth, _ := cmd.Flags().GetInt("depth")
	sel := selector.Parse(args[0])
	els, err := s.engine.FindElements(ctx, sel, root, timeout, depth)
	if err != nil {
		return err
	}
	res := FindResult{Selector: sel.String(), Elements: []*ElementInfo{}}
	for _, el := range els {
		info, err := elementInfo(el)
		if err != nil {
			// Elements can vanish between resolution and the property read.
			continue
		}
		res.Elements = append(res.Elements, info)
	}
	res.Count = len(res.Elements)
	return output.Print(res)
}
