package engine

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/metrics"
	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/selector"
)

// nearThreshold is the centre distance, in pixels, below which near()
// matches.
const nearThreshold = 50.0

// expiredError is returned by poll when the deadline passes without a
// match. last is the final transient error, if any.
type expiredError struct{ last error }

func (e *expiredError) Error() string { return "polling deadline expired" }

func (e *expiredError) Unwrap() error { return e.last }

// FindElement resolves sel to one element below root (the desktop when root
// is nil). It polls until a match appears. With timeout 0 it waits the
// configured default and fails ELEMENT_NOT_FOUND; with an explicit timeout
// it fails TIMEOUT.
func (e *Engine) FindElement(ctx context.Context, sel selector.Selector, root *Element, timeout time.Duration) (*Element, error) {
	start := time.Now()
	explicit := timeout > 0
	if !explicit {
		timeout = e.cfg.Resolver.DefaultTimeout
	}
	var found platform.Node
	err := e.lookup(ctx, sel, root, func(r *resolver, scope platform.Node) error {
		return e.poll(ctx, timeout, func() (bool, error) {
			n, err := r.findOne(sel, scope)
			if err != nil {
				return false, err
			}
			found = n
			return n != nil, nil
		})
	})
	var exp *expiredError
	if errors.As(err, &exp) {
		if explicit {
			err = platform.Errorf(platform.CodeTimeout, "no element matched %q within %s", sel, timeout).WithCause(exp.last)
		} else {
			err = platform.Errorf(platform.CodeElementNotFound, "no element matched %q", sel).WithCause(exp.last)
		}
	}
	e.metrics.RecordLookup(selectorKind(sel), metrics.Outcome(err, codeLabel), time.Since(start))
	if err != nil {
		e.logger.Debug("lookup failed", zap.Stringer("selector", sel), zap.Error(err))
		return nil, err
	}
	return e.wrap(found), nil
}

// FindElements resolves sel to every match below root in traversal order.
// It polls until at least one element matches and returns an empty list
// when the timeout passes first. depth 0 uses the configured maximum.
func (e *Engine) FindElements(ctx context.Context, sel selector.Selector, root *Element, timeout time.Duration, depth int) ([]*Element, error) {
	start := time.Now()
	if timeout <= 0 {
		timeout = e.cfg.Resolver.DefaultTimeout
	}
	var found []platform.Node
	err := e.lookup(ctx, sel, root, func(r *resolver, scope platform.Node) error {
		if depth > 0 {
			r.maxDepth = depth
		}
		return e.poll(ctx, timeout, func() (bool, error) {
			nodes, err := r.resolve(sel, scope)
			if err != nil {
				return false, err
			}
			found = nodes
			return len(nodes) > 0, nil
		})
	})
	var exp *expiredError
	if errors.As(err, &exp) {
		err = nil
	}
	e.metrics.RecordLookup(selectorKind(sel), metrics.Outcome(err, codeLabel), time.Since(start))
	if err != nil {
		return nil, err
	}
	out := make([]*Element, len(found))
	for i, n := range found {
		out[i] = e.wrap(n)
	}
	return out, nil
}

// lookup validates sel, resolves the scope and hands both to fn.
func (e *Engine) lookup(ctx context.Context, sel selector.Selector, root *Element, fn func(*resolver, platform.Node) error) error {
	if sel == nil {
		return platform.NewError(platform.CodeInvalidSelector, "empty selector")
	}
	if inv, ok := selector.FindInvalid(sel); ok {
		return platform.NewError(platform.CodeInvalidSelector, inv.Reason)
	}
	if root == nil && startsWithParent(sel) {
		return platform.NewError(platform.CodeInvalidSelector, "'..' needs a root element to take the parent of")
	}
	r := &resolver{e: e, ctx: ctx, maxDepth: e.cfg.Resolver.MaxDepth}
	var scope platform.Node
	if root != nil {
		if !root.node.Alive() {
			return platform.Errorf(platform.CodeElementDetached, "search root %s no longer exists", root.node.Key())
		}
		scope = root.node
	} else {
		rd, err := e.reader()
		if err != nil {
			return err
		}
		if err := e.run(ctx, func() error {
			var rerr error
			scope, rerr = rd.Root()
			return rerr
		}); err != nil {
			return err
		}
	}
	return fn(r, scope)
}

func startsWithParent(sel selector.Selector) bool {
	switch v := sel.(type) {
	case selector.Parent:
		return true
	case selector.Chain:
		return len(v) > 0 && startsWithParent(v[0])
	}
	return false
}

// poll calls attempt with exponential backoff until it reports done, fails
// with a non-retryable error, or the timeout passes. It never sleeps past
// the deadline. A missed deadline returns *expiredError.
func (e *Engine) poll(ctx context.Context, timeout time.Duration, attempt func() (bool, error)) error {
	deadline := time.Now().Add(timeout)
	backoff := e.cfg.Resolver.PollInitial
	for {
		done, err := attempt()
		switch {
		case err != nil && !retryable(err):
			return err
		case err == nil && done:
			return nil
		case err != nil:
			e.logger.Debug("retrying after transient error", zap.Error(err))
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return &expiredError{last: err}
		}
		wait := backoff
		if wait > remaining {
			wait = remaining
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return platform.NewError(platform.CodeTimeout, "lookup cancelled").WithCause(ctx.Err())
		case <-t.C:
		}
		backoff *= 2
		if backoff > e.cfg.Resolver.PollMax {
			backoff = e.cfg.Resolver.PollMax
		}
	}
}

func retryable(err error) bool {
	return platform.IsRetryable(err) || platform.Is(err, platform.CodeElementNotFound)
}

func selectorKind(sel selector.Selector) string {
	switch sel.(type) {
	case selector.Role:
		return "role"
	case selector.Name:
		return "name"
	case selector.ID:
		return "id"
	case selector.NativeID:
		return "nativeid"
	case selector.ClassName:
		return "classname"
	case selector.Text:
		return "text"
	case selector.Path:
		return "path"
	case selector.Attributes:
		return "attributes"
	case selector.Visible:
		return "visible"
	case selector.Has:
		return "has"
	case selector.Not:
		return "not"
	case selector.Parent:
		return "parent"
	case selector.And:
		return "and"
	case selector.Or:
		return "or"
	case selector.Chain:
		return "chain"
	case selector.RightOf, selector.LeftOf, selector.Above, selector.Below, selector.Near:
		return "spatial"
	}
	return "other"
}

// resolver evaluates one selector against the live tree.
type resolver struct {
	e        *Engine
	ctx      context.Context
	maxDepth int
}

// walk visits the descendants of root, root excluded, in pre-order down to
// maxDepth levels. Nodes that vanish mid-walk are skipped. fn returns false
// to stop the walk.
func (e *Engine) walk(ctx context.Context, root platform.Node, maxDepth int, fn func(platform.Node, platform.Properties) (bool, error)) error {
	var visit func(n platform.Node, depth int) (bool, error)
	visit = func(n platform.Node, depth int) (bool, error) {
		if depth > maxDepth {
			return true, nil
		}
		kids, err := e.children(ctx, n)
		if err != nil {
			if platform.Is(err, platform.CodeElementDetached) {
				return true, nil
			}
			return false, err
		}
		for _, k := range kids {
			if err := ctx.Err(); err != nil {
				return false, platform.NewError(platform.CodeTimeout, "tree walk cancelled").WithCause(err)
			}
			p, err := e.props(ctx, k, false)
			if err != nil {
				if platform.Is(err, platform.CodeElementDetached) {
					continue
				}
				return false, err
			}
			cont, err := fn(k, p)
			if err != nil || !cont {
				return false, err
			}
			if depth < maxDepth {
				if cont, err := visit(k, depth+1); err != nil || !cont {
					return false, err
				}
			}
		}
		return true, nil
	}
	_, err := visit(root, 1)
	return err
}

func (r *resolver) walk(scope platform.Node, fn func(platform.Node, platform.Properties) (bool, error)) error {
	return r.e.walk(r.ctx, scope, r.maxDepth, fn)
}

// resolve returns every match of sel below scope in traversal order.
func (r *resolver) resolve(sel selector.Selector, scope platform.Node) ([]platform.Node, error) {
	if selector.IsPredicate(sel) {
		return r.collect(scope, sel)
	}
	switch v := sel.(type) {
	case selector.Invalid:
		return nil, platform.NewError(platform.CodeInvalidSelector, v.Reason)
	case selector.Nth:
		return nil, platform.Errorf(platform.CodeInvalidSelector, "%s must follow another selector", v)
	case selector.Parent:
		p, err := r.e.parent(r.ctx, scope)
		if err != nil || p == nil {
			return nil, err
		}
		return []platform.Node{p}, nil
	case selector.Chain:
		if len(v) == 0 {
			return nil, platform.NewError(platform.CodeInvalidSelector, "empty chain")
		}
		cur, err := r.resolve(v[0], scope)
		if err != nil {
			return nil, err
		}
		return r.steps(cur, v[1:])
	case selector.And:
		return r.and(v, scope)
	case selector.Or:
		var out []platform.Node
		for _, op := range v {
			res, err := r.resolve(op, scope)
			if err != nil {
				return nil, err
			}
			out = append(out, res...)
		}
		return dedupe(out), nil
	case selector.Not:
		exclude, err := r.resolve(v.Inner, scope)
		if err != nil {
			return nil, err
		}
		skip := keySet(exclude)
		var out []platform.Node
		err = r.walk(scope, func(n platform.Node, _ platform.Properties) (bool, error) {
			if !skip[n.Key()] {
				out = append(out, n)
			}
			return true, nil
		})
		return out, err
	case selector.Path:
		return r.path(v, scope)
	case selector.RightOf, selector.LeftOf, selector.Above, selector.Below, selector.Near:
		return r.spatial(v, scope)
	}
	return nil, platform.Errorf(platform.CodeInvalidSelector, "cannot resolve %T", sel)
}

// steps applies the remaining chain steps to the current match list. Nth,
// visible and '..' act on the list itself; every other step searches the
// subtree of each current match.
func (r *resolver) steps(cur []platform.Node, steps []selector.Selector) ([]platform.Node, error) {
	for _, step := range steps {
		switch s := step.(type) {
		case selector.Nth:
			cur = pickNth(cur, int(s))
		case selector.Visible:
			var err error
			if cur, err = r.filter(cur, s); err != nil {
				return nil, err
			}
		case selector.Parent:
			var parents []platform.Node
			for _, n := range cur {
				p, err := r.e.parent(r.ctx, n)
				if err != nil {
					if platform.Is(err, platform.CodeElementDetached) {
						continue
					}
					return nil, err
				}
				if p != nil {
					parents = append(parents, p)
				}
			}
			cur = dedupe(parents)
		default:
			var next []platform.Node
			for _, n := range cur {
				res, err := r.resolve(step, n)
				if err != nil {
					return nil, err
				}
				next = append(next, res...)
			}
			cur = dedupe(next)
		}
		if len(cur) == 0 {
			return nil, nil
		}
	}
	return cur, nil
}

// and keeps the elements on which every operand holds. The first operand
// that produces a list seeds it; predicates then filter it, Nth indexes it
// and other operands intersect with their own resolution.
func (r *resolver) and(ops selector.And, scope platform.Node) ([]platform.Node, error) {
	var cur []platform.Node
	started := false
	for _, op := range ops {
		if nth, ok := op.(selector.Nth); ok {
			if !started {
				return nil, platform.Errorf(platform.CodeInvalidSelector, "%s must follow another selector", nth)
			}
			cur = pickNth(cur, int(nth))
			continue
		}
		if !started {
			res, err := r.resolve(op, scope)
			if err != nil {
				return nil, err
			}
			cur, started = res, true
			continue
		}
		if selector.IsPredicate(op) {
			var err error
			if cur, err = r.filter(cur, op); err != nil {
				return nil, err
			}
			continue
		}
		res, err := r.resolve(op, scope)
		if err != nil {
			return nil, err
		}
		keep := keySet(res)
		filtered := cur[:0:0]
		for _, n := range cur {
			if keep[n.Key()] {
				filtered = append(filtered, n)
			}
		}
		cur = filtered
	}
	return cur, nil
}

func (r *resolver) collect(scope platform.Node, sel selector.Selector) ([]platform.Node, error) {
	var out []platform.Node
	err := r.walk(scope, func(n platform.Node, p platform.Properties) (bool, error) {
		ok, err := r.matches(sel, n, p)
		if err != nil {
			return false, err
		}
		if ok {
			out = append(out, n)
		}
		return true, nil
	})
	return out, err
}

func (r *resolver) filter(nodes []platform.Node, sel selector.Selector) ([]platform.Node, error) {
	var out []platform.Node
	for _, n := range nodes {
		p, err := r.e.props(r.ctx, n, false)
		if err != nil {
			if platform.Is(err, platform.CodeElementDetached) {
				continue
			}
			return nil, err
		}
		ok, err := r.matches(sel, n, p)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// matches evaluates a predicate selector on one element.
func (r *resolver) matches(sel selector.Selector, n platform.Node, p platform.Properties) (bool, error) {
	switch v := sel.(type) {
	case selector.Role:
		if !model.RoleMatches(v.Role, p.Role, p.RawRole) {
			return false, nil
		}
		return v.Name == nil || strings.EqualFold(*v.Name, p.Name), nil
	case selector.Name:
		return strings.EqualFold(string(v), p.Name), nil
	case selector.ID:
		return string(v) == p.ID || string(v) == n.Key(), nil
	case selector.NativeID:
		return string(v) == p.NativeID, nil
	case selector.ClassName:
		return strings.EqualFold(string(v), p.ClassName), nil
	case selector.Text:
		t := strings.ToLower(string(v))
		return strings.Contains(strings.ToLower(p.Name), t) || strings.Contains(strings.ToLower(p.Value), t), nil
	case selector.Attributes:
		for k, want := range v {
			got, ok := attribute(p, k)
			if !ok || !strings.EqualFold(got, want) {
				return false, nil
			}
		}
		return true, nil
	case selector.Visible:
		return visible(p) == bool(v), nil
	case selector.Has:
		return r.exists(v.Inner, n)
	case selector.Not:
		ok, err := r.matches(v.Inner, n, p)
		return !ok, err
	case selector.And:
		for _, op := range v {
			ok, err := r.matches(op, n, p)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case selector.Or:
		for _, op := range v {
			ok, err := r.matches(op, n, p)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	}
	return false, platform.Errorf(platform.CodeInvalidSelector, "%T is not an element predicate", sel)
}

// exists reports whether sel matches anything below n.
func (r *resolver) exists(sel selector.Selector, n platform.Node) (bool, error) {
	if !selector.IsPredicate(sel) {
		res, err := r.resolve(sel, n)
		return len(res) > 0, err
	}
	found := false
	err := r.walk(n, func(c platform.Node, p platform.Properties) (bool, error) {
		ok, err := r.matches(sel, c, p)
		if ok {
			found = true
		}
		return !found, err
	})
	return found, err
}

// path resolves /Role[i]/Role... The first step searches the whole scope,
// later steps only direct children. Indices are 1-based among the matching
// siblings.
func (r *resolver) path(p selector.Path, scope platform.Node) ([]platform.Node, error) {
	if len(p.Steps) == 0 {
		return nil, platform.NewError(platform.CodeInvalidSelector, "empty path")
	}
	first := p.Steps[0]
	cur, err := r.collect(scope, selector.RoleOnly(first.Role))
	if err != nil {
		return nil, err
	}
	cur = pickIndex(cur, first.Index)
	for _, step := range p.Steps[1:] {
		var next []platform.Node
		for _, n := range cur {
			kids, err := r.e.children(r.ctx, n)
			if err != nil {
				if platform.Is(err, platform.CodeElementDetached) {
					continue
				}
				return nil, err
			}
			var matched []platform.Node
			for _, k := range kids {
				kp, err := r.e.props(r.ctx, k, false)
				if err != nil {
					continue
				}
				if model.RoleMatches(step.Role, kp.Role, kp.RawRole) {
					matched = append(matched, k)
				}
			}
			next = append(next, pickIndex(matched, step.Index)...)
		}
		cur = next
	}
	return cur, nil
}

func pickIndex(nodes []platform.Node, index int) []platform.Node {
	if index <= 0 {
		return nodes
	}
	if index > len(nodes) {
		return nil
	}
	return nodes[index-1 : index]
}

// spatial finds visible elements positioned relative to the first match of
// the anchor selector.
func (r *resolver) spatial(sel selector.Selector, scope platform.Node) ([]platform.Node, error) {
	var anchorSel selector.Selector
	switch v := sel.(type) {
	case selector.RightOf:
		anchorSel = v.Anchor
	case selector.LeftOf:
		anchorSel = v.Anchor
	case selector.Above:
		anchorSel = v.Anchor
	case selector.Below:
		anchorSel = v.Anchor
	case selector.Near:
		anchorSel = v.Anchor
	}
	anchor, err := r.findOne(anchorSel, scope)
	if err != nil || anchor == nil {
		return nil, err
	}
	ap, err := r.e.props(r.ctx, anchor, false)
	if err != nil {
		return nil, err
	}
	a := ap.Bounds
	var out []platform.Node
	err = r.walk(scope, func(n platform.Node, p platform.Properties) (bool, error) {
		if n.Key() == anchor.Key() || !visible(p) {
			return true, nil
		}
		c := p.Bounds
		vOverlap := c.Y < a.Y+a.Height && c.Y+c.Height > a.Y
		hOverlap := c.X < a.X+a.Width && c.X+c.Width > a.X
		var ok bool
		switch sel.(type) {
		case selector.RightOf:
			ok = c.X >= a.X+a.Width && vOverlap
		case selector.LeftOf:
			ok = c.X+c.Width <= a.X && vOverlap
		case selector.Above:
			ok = c.Y+c.Height <= a.Y && hOverlap
		case selector.Below:
			ok = c.Y >= a.Y+a.Height && hOverlap
		case selector.Near:
			ax, ay := a.Center()
			cx, cy := c.Center()
			ok = math.Hypot(float64(ax-cx), float64(ay-cy)) < nearThreshold
		}
		if ok {
			out = append(out, n)
		}
		return true, nil
	})
	return out, err
}

// findOne resolves a single element. Positional selectors (anything with
// nth) keep traversal order. Chains rank the candidates of their first step
// and return the best match found under the best-ranked candidate that has
// one; everything else ranks all matches.
func (r *resolver) findOne(sel selector.Selector, scope platform.Node) (platform.Node, error) {
	if id, ok := sel.(selector.NativeID); ok && r.e.caches != nil {
		if n, hit := r.e.caches.nativeNode(scope.Key(), string(id)); hit {
			if p, err := r.e.props(r.ctx, n, true); err == nil && p.NativeID == string(id) {
				return n, nil
			}
		}
	}

	positional := false
	selector.Walk(sel, func(s selector.Selector) bool {
		if _, ok := s.(selector.Nth); ok {
			positional = true
		}
		return !positional
	})

	var best platform.Node
	chain, isChain := sel.(selector.Chain)
	switch {
	case positional:
		all, err := r.resolve(sel, scope)
		if err != nil || len(all) == 0 {
			return nil, err
		}
		best = all[0]
	case isChain && len(chain) > 1:
		anchors, err := r.resolve(chain[0], scope)
		if err != nil {
			return nil, err
		}
		ranked, err := r.e.rank(r.ctx, anchors)
		if err != nil {
			return nil, err
		}
		for _, a := range ranked {
			res, err := r.steps([]platform.Node{a}, chain[1:])
			if err != nil {
				return nil, err
			}
			if len(res) > 0 {
				ranked, err := r.e.rank(r.ctx, res)
				if err != nil {
					return nil, err
				}
				best = ranked[0]
				break
			}
		}
	default:
		all, err := r.resolve(sel, scope)
		if err != nil || len(all) == 0 {
			return nil, err
		}
		ranked, err := r.e.rank(r.ctx, all)
		if err != nil {
			return nil, err
		}
		best = ranked[0]
	}

	if best != nil && r.e.caches != nil {
		if id, ok := sel.(selector.NativeID); ok {
			r.e.caches.storeNative(scope.Key(), string(id), best)
		}
	}
	return best, nil
}

// pickNth indexes a match list; negative indices count from the end.
func pickNth(nodes []platform.Node, i int) []platform.Node {
	if i < 0 {
		i += len(nodes)
	}
	if i < 0 || i >= len(nodes) {
		return nil
	}
	return nodes[i : i+1]
}

func dedupe(nodes []platform.Node) []platform.Node {
	seen := make(map[string]bool, len(nodes))
	out := nodes[:0:0]
	for _, n := range nodes {
		if !seen[n.Key()] {
			seen[n.Key()] = true
			out = append(out, n)
		}
	}
	return out
}

func keySet(nodes []platform.Node) map[string]bool {
	m := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		m[n.Key()] = true
	}
	return m
}

// visible is the visibility used by selectors and the visible gate's first
// two conditions.
func visible(p platform.Properties) bool {
	return p.Visible && !p.Bounds.Empty()
}

// attribute looks k up in the platform attribute map, then among the
// well-known properties.
func attribute(p platform.Properties, k string) (string, bool) {
	if v, ok := p.Attributes[k]; ok {
		return v, true
	}
	for ak, v := range p.Attributes {
		if strings.EqualFold(ak, k) {
			return v, true
		}
	}
	switch strings.ToLower(k) {
	case "role":
		return p.Role, true
	case "name":
		return p.Name, true
	case "id":
		return p.ID, true
	case "native_id", "nativeid", "automationid":
		return p.NativeID, true
	case "class_name", "classname":
		return p.ClassName, true
	case "value":
		return p.Value, true
	case "enabled":
		return strconv.FormatBool(p.Enabled), true
	case "visible":
		return strconv.FormatBool(p.Visible), true
	case "focusable":
		return strconv.FormatBool(p.Focusable), true
	case "focused":
		return strconv.FormatBool(p.Focused), true
	case "selected":
		return strconv.FormatBool(p.Selected), true
	case "toggled":
		if p.Toggled == nil {
			return "", false
		}
		return p.Toggled.String(), true
	case "pid":
		return strconv.Itoa(p.PID), true
	}
	return "", false
}
