package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// TreeResult is the output of tree when filters are applied.
type TreeResult struct {
	PID   int          `yaml:"pid,omitempty" json:"pid,omitempty"`
	Count int          `yaml:"count"         json:"count"`
	Nodes []model.Node `yaml:"nodes"         json:"nodes"`
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the element tree of a window",
	Long: `Snapshot the element tree of a window as {role, name, id, bounds, children}.

The window is the frontmost one of --pid or --app (optionally narrowed with
--title), the subtree of --selector, or the frontmost window on screen.

--mode picks how much is read per node: fast (role, name, bounds), complete
(every property) or smart (complete for interactive roles, fast otherwise).

Filters (--roles, --bbox, --text, --prune) collapse non-matching nodes into
their matching descendants and print a list of top-level nodes.`,
	Args: cobra.NoArgs,
	RunE: runTree,
}

func init() {
	rootCmd.AddCommand(treeCmd)
	addTreeSourceFlags(treeCmd)
	treeCmd.Flags().String("roles", "", "Comma-separated roles to keep (e.g. \"Button,Edit\")")
	treeCmd.Flags().String("bbox", "", "Keep nodes intersecting x,y,w,h")
	treeCmd.Flags().String("text", "", "Keep nodes whose name or value contains this text")
	treeCmd.Flags().Bool("prune", false, "Drop anonymous Group and Pane nodes")
	treeCmd.Flags().Bool("flat", false, "Print a flat list with path breadcrumbs")
}

// addTreeSourceFlags registers the flags that pick the snapshotted window.
func addTreeSourceFlags(c *cobra.Command) {
	c.Flags().String("app", "", "Application whose frontmost window is read (fuzzy name match)")
	c.Flags().Int("pid", 0, "Process whose frontmost window is read")
	c.Flags().String("title", "", "Only windows whose title contains this text")
	c.Flags().String("selector", "", "Snapshot the subtree of the element matching this selector")
	c.Flags().String("mode", "smart", "Property mode: smart, fast, complete")
	c.Flags().Int("depth", 0, "Max depth (0 = 50)")
	c.Flags().Duration("timeout", 0, "How long to poll for --selector")
}

// readTree snapshots the window or subtree selected by the source flags.
// The returned pid is zero for --selector snapshots.
func readTree(ctx context.Context, s *session, cmd *cobra.Command) (*model.Node, int, error) {
	modeStr, _ := cmd.Flags().GetString("mode")
	mode, err := engine.ParsePropertyMode(modeStr)
	if err != nil {
		return nil, 0, err
	}
	cfg := engine.DefaultTreeBuildConfig()
	cfg.PropertyMode = mode
	if depth, _ := cmd.Flags().GetInt("depth"); depth > 0 {
		cfg.MaxDepth = depth
	}

	if expr, _ := cmd.Flags().GetString("selector"); expr != "" {
		el, err := s.find(ctx, cmd, expr)
		if err != nil {
			return nil, 0, err
		}
		t, err := el.ToSerializableTree(cfg.MaxDepth)
		return t, 0, err
	}

	pid, _ := cmd.Flags().GetInt("pid")
	title, _ := cmd.Flags().GetString("title")
	if app, _ := cmd.Flags().GetString("app"); app != "" && pid == 0 {
		el, err := s.engine.Application(ctx, app)
		if err != nil {
			return nil, 0, err
		}
		if pid, err = el.ProcessID(); err != nil {
			return nil, 0, err
		}
	}
	if pid == 0 {
		windows, err := s.engine.Windows(ctx)
		if err != nil {
			return nil, 0, err
		}
		if len(windows) == 0 {
			return nil, 0, platform.NewError(platform.CodeElementNotFound, "no windows are open")
		}
		pid = windows[0].PID
	}
	t, err := s.engine.GetWindowTree(ctx, pid, title, cfg)
	return t, pid, err
}

func treeFilter(cmd *cobra.Command) (model.Filter, error) {
	var f model.Filter
	roles, _ := cmd.Flags().GetString("roles")
	f.Roles = splitList(roles)
	if bbox, _ := cmd.Flags().GetString("bbox"); bbox != "" {
		b, err := platform.ParseBBox(bbox)
		if err != nil {
			return f, fmt.Errorf("invalid --bbox: %w", err)
		}
		f.BBox = &model.Rect{X: b.X, Y: b.Y, W: b.Width, H: b.Height}
	}
	f.Text, _ = cmd.Flags().GetString("text")
	f.PruneEmpty, _ = cmd.Flags().GetBool("prune")
	return f, nil
}

func runTree(cmd *cobra.Command, args []string) error {
	f, err := treeFilter(cmd)
	if err != nil {
		return err
	}
	s, err := openSession(sessionOptions{useCache: true})
	if err != nil {
		return err
	}
	defer s.Close()

	tree, pid, err := readTree(cmd.Context(), s, cmd)
	if err != nil {
		return err
	}
	nodes := model.FilterNodes([]model.Node{*tree}, f)
	if flat, _ := cmd.Flags().GetBool("flat"); flat {
		var out []model.FlatNode
		for i := range nodes {
			out = append(out, model.Flatten(&nodes[i])...)
		}
		return output.Print(out)
	}
	res := TreeResult{PID: pid, Nodes: nodes}
	for i := range nodes {
		res.Count += nodes[i].Count()
	}
	return output.Print(res)
}
