package engine

import (
	"context"
	"time"

	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/selector"
)

// DefaultLocatorTimeout is used by locators that were never given one.
const DefaultLocatorTimeout = 30 * time.Second

// Locator is a lazy query: a selector bound to an engine, a default timeout
// and an optional root. Every builder method returns a new Locator.
type Locator struct {
	engine  *Engine
	sel     selector.Selector
	timeout time.Duration
	root    *Element
}

// Locator starts a query on the engine. The default timeout comes from the
// resolver configuration.
func (e *Engine) Locator(sel selector.Selector) Locator {
	t := e.cfg.Resolver.DefaultTimeout
	if t <= 0 {
		t = DefaultLocatorTimeout
	}
	return Locator{engine: e, sel: sel, timeout: t}
}

// Locator starts a query scoped to the element's subtree.
func (el *Element) Locator(sel selector.Selector) Locator {
	return el.engine.Locator(sel).Within(el)
}

// Selector returns the selector the locator resolves.
func (l Locator) Selector() selector.Selector { return l.sel }

// Timeout returns the default timeout.
func (l Locator) Timeout() time.Duration { return l.timeout }

// Within scopes the locator to el's subtree.
func (l Locator) Within(el *Element) Locator {
	l.root = el
	return l
}

// WithTimeout sets the timeout used when First, Wait or All get none.
func (l Locator) WithTimeout(d time.Duration) Locator {
	l.timeout = d
	return l
}

// Locator appends sel as a new chain step.
func (l Locator) Locator(sel selector.Selector) Locator {
	l.sel = appendStep(l.sel, sel)
	return l
}

// Visible appends a visibility filter step.
func (l Locator) Visible(v bool) Locator {
	return l.Locator(selector.Visible(v))
}

func appendStep(base, next selector.Selector) selector.Selector {
	var steps selector.Chain
	if c, ok := base.(selector.Chain); ok {
		steps = append(steps, c...)
	} else {
		steps = append(steps, base)
	}
	if c, ok := next.(selector.Chain); ok {
		steps = append(steps, c...)
	} else {
		steps = append(steps, next)
	}
	return steps
}

// First is Wait.
func (l Locator) First(ctx context.Context, timeout time.Duration) (*Element, error) {
	return l.Wait(ctx, timeout)
}

// Wait blocks until an element matches, failing TIMEOUT when none does
// within timeout (the locator default when 0).
func (l Locator) Wait(ctx context.Context, timeout time.Duration) (*Element, error) {
	if timeout <= 0 {
		timeout = l.timeout
	}
	el, err := l.engine.FindElement(ctx, l.sel, l.root, timeout)
	if platform.Is(err, platform.CodeElementNotFound) {
		return nil, platform.Errorf(platform.CodeTimeout, "timed out after %s waiting for %q", timeout, l.sel).WithCause(err)
	}
	return el, err
}

// All returns every match, or an empty list when nothing matches within
// timeout. depth 0 uses the configured maximum.
func (l Locator) All(ctx context.Context, timeout time.Duration, depth int) ([]*Element, error) {
	if timeout <= 0 {
		timeout = l.timeout
	}
	return l.engine.FindElements(ctx, l.sel, l.root, timeout, depth)
}
