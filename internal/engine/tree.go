package engine

import (
	"context"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// PropertyMode selects how much of each node a tree snapshot reads.
type PropertyMode int

const (
	// PropertySmart reads everything for interactive roles and the fast set
	// for the rest.
	PropertySmart PropertyMode = iota
	// PropertyFast reads role, name and bounds.
	PropertyFast
	// PropertyComplete reads every property.
	PropertyComplete
)

func (m PropertyMode) String() string {
	switch m {
	case PropertyFast:
		return "fast"
	case PropertyComplete:
		return "complete"
	default:
		return "smart"
	}
}

// ParsePropertyMode converts a flag value.
func ParsePropertyMode(s string) (PropertyMode, error) {
	switch strings.ToLower(s) {
	case "", "smart":
		return PropertySmart, nil
	case "fast":
		return PropertyFast, nil
	case "complete":
		return PropertyComplete, nil
	}
	return PropertySmart, platform.Errorf(platform.CodeInvalidArgument, "unknown property mode %q (expected fast, complete or smart)", s)
}

// TreeBuildConfig controls GetWindowTree.
type TreeBuildConfig struct {
	PropertyMode PropertyMode
	MaxDepth     int
	// YieldEvery yields the goroutine after this many nodes.
	YieldEvery int
}

// DefaultTreeBuildConfig returns Smart mode, depth 50, yielding every 50 nodes.
func DefaultTreeBuildConfig() TreeBuildConfig {
	return TreeBuildConfig{PropertyMode: PropertySmart, MaxDepth: 50, YieldEvery: 50}
}

type treeBuilder struct {
	engine  *Engine
	ctx     context.Context
	cfg     TreeBuildConfig
	visited int
}

func (b *treeBuilder) build(n platform.Node, depth int) (*model.Node, error) {
	if err := b.ctx.Err(); err != nil {
		return nil, platform.NewError(platform.CodeTimeout, "tree snapshot cancelled").WithCause(err)
	}
	b.visited++
	if b.cfg.YieldEvery > 0 && b.visited%b.cfg.YieldEvery == 0 {
		runtime.Gosched()
	}

	p, err := b.engine.props(b.ctx, n, b.cfg.PropertyMode == PropertyComplete)
	if err != nil {
		return nil, err
	}
	out := snapshot(p, b.cfg.PropertyMode)
	out.Children = []model.Node{}
	if depth >= b.cfg.MaxDepth {
		return out, nil
	}
	kids, err := b.engine.children(b.ctx, n)
	if err != nil {
		if platform.Is(err, platform.CodeElementDetached) {
			return out, nil
		}
		return nil, err
	}
	for _, k := range kids {
		c, err := b.build(k, depth+1)
		if err != nil {
			if platform.Is(err, platform.CodeElementDetached) {
				continue
			}
			return nil, err
		}
		out.Children = append(out.Children, *c)
	}
	return out, nil
}

// snapshot converts one property read into its serializable form.
func snapshot(p platform.Properties, mode PropertyMode) *model.Node {
	n := &model.Node{Role: p.Role, Name: p.Name}
	if !p.Bounds.Empty() {
		n.Bounds = &model.Rect{X: p.Bounds.X, Y: p.Bounds.Y, W: p.Bounds.Width, H: p.Bounds.Height}
	}
	if mode == PropertyFast || (mode == PropertySmart && !model.IsInteractive(p.Role)) {
		return n
	}
	n.ID = p.ID
	n.NativeID = p.NativeID
	n.ClassName = p.ClassName
	n.Enabled = model.BoolPtr(p.Enabled)
	n.Visible = model.BoolPtr(p.Visible && !p.Offscreen)
	n.Value = p.Value
	return n
}

// GetWindowTree snapshots the frontmost window of process pid whose title
// contains titleContains (any window when empty).
func (e *Engine) GetWindowTree(ctx context.Context, pid int, titleContains string, cfg TreeBuildConfig) (*model.Node, error) {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultTreeBuildConfig().MaxDepth
	}
	rd, err := e.reader()
	if err != nil {
		return nil, err
	}
	build := func() (*model.Node, error) {
		var windows []platform.Window
		if err := e.run(ctx, func() error {
			var rerr error
			windows, rerr = rd.ListWindows()
			return rerr
		}); err != nil {
			return nil, err
		}
		title := strings.ToLower(titleContains)
		for _, w := range windows {
			if w.PID != pid || !strings.Contains(strings.ToLower(w.Title), title) {
				continue
			}
			b := treeBuilder{engine: e, ctx: ctx, cfg: cfg}
			return b.build(w.Node, 0)
		}
		if titleContains != "" {
			return nil, platform.Errorf(platform.CodeElementNotFound, "no window of pid %d has a title containing %q", pid, titleContains)
		}
		return nil, platform.Errorf(platform.CodeElementNotFound, "pid %d has no windows", pid)
	}

	if e.caches == nil {
		return build()
	}
	tree, hit, err := e.caches.trees.Tree(treeKey{PID: pid, Title: titleContains, Mode: cfg.PropertyMode, MaxDepth: cfg.MaxDepth}, build)
	if hit {
		e.metrics.RecordCacheHit("window_tree")
	} else {
		e.metrics.RecordCacheMiss("window_tree")
	}
	if err == nil {
		e.logger.Debug("window tree",
			zap.Int("pid", pid),
			zap.String("mode", cfg.PropertyMode.String()),
			zap.Int("nodes", tree.Count()),
			zap.Bool("cached", hit))
	}
	return tree, err
}
