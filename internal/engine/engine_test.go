package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-automation/internal/config"
	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/platform/virtual"
	"github.com/mj1618/desktop-automation/internal/selector"
)

// testConfig shortens every wait so failures surface quickly.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Resolver.DefaultTimeout = 300 * time.Millisecond
	cfg.Resolver.PollInitial = 5 * time.Millisecond
	cfg.Resolver.PollMax = 20 * time.Millisecond
	cfg.Actions.ScrollSettle = time.Millisecond
	cfg.Actions.StabilityGap = 5 * time.Millisecond
	cfg.Actions.StabilityBudget = 200 * time.Millisecond
	cfg.Actions.InputRate = 100000
	cfg.Actions.InputBurst = 1000
	cfg.Actions.OpenTimeout = 500 * time.Millisecond
	return cfg
}

func newEngine(t *testing.T, d *virtual.Desktop, opts ...Option) *Engine {
	t.Helper()
	return newEngineWith(t, d, Options{RecordEvents: true}, opts...)
}

func newEngineWith(t *testing.T, d *virtual.Desktop, o Options, opts ...Option) *Engine {
	t.Helper()
	all := append([]Option{WithConfig(testConfig()), WithProvider(d.Provider())}, opts...)
	e, err := New(o, all...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

// formDesktop is one application with a sign-up window:
//
//	Email (Edit) at 10,10   Agree (CheckBox) at 10,40   Age (Slider) at 10,70
//	Submit (Button) at 10,100   Cancel (Button, disabled) at 100,100
func formDesktop() (*virtual.Desktop, *virtual.Node) {
	d := virtual.New(nil)
	w := d.AddApp("Form", 0).AddWindow("Signup", platform.Bounds{Width: 400, Height: 300})
	w.Add(virtual.Spec{Role: "Edit", Name: "Email", NativeID: "email", Bounds: platform.Bounds{X: 10, Y: 10, Width: 200, Height: 20}})
	w.Add(virtual.Spec{Role: "CheckBox", Name: "Agree", Toggle: "off", Bounds: platform.Bounds{X: 10, Y: 40, Width: 100, Height: 20}})
	w.Add(virtual.Spec{Role: "Slider", Name: "Age", Range: &platform.RangeValue{Max: 120, Value: 30},
		Bounds: platform.Bounds{X: 10, Y: 70, Width: 100, Height: 20}})
	w.Add(virtual.Spec{Role: "Button", Name: "Submit", Bounds: platform.Bounds{X: 10, Y: 100, Width: 80, Height: 30}})
	w.Add(virtual.Spec{Role: "Button", Name: "Cancel", Disabled: true, Bounds: platform.Bounds{X: 100, Y: 100, Width: 80, Height: 30}})
	return d, w
}

func find(t *testing.T, e *Engine, sel string) *Element {
	t.Helper()
	el, err := e.FindElement(context.Background(), selector.Parse(sel), nil, 0)
	require.NoError(t, err, sel)
	return el
}

func nameOf(t *testing.T, el *Element) string {
	t.Helper()
	n, err := el.Name()
	require.NoError(t, err)
	return n
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Backend = "no-such-backend"
	_, err := New(Options{}, WithConfig(cfg))
	assert.True(t, platform.Is(err, platform.CodeUnsupportedPlatform))
}

func TestNew_ApartmentBackend(t *testing.T) {
	d, _ := formDesktop()
	d.RequireApartment = true
	e := newEngine(t, d)
	require.NotNil(t, e.apartment)

	assert.Equal(t, "Submit", nameOf(t, find(t, e, "role:Button|Submit")))
}

func TestFindElement(t *testing.T) {
	d, _ := formDesktop()
	e := newEngine(t, d)

	tests := []struct {
		sel  string
		want string
	}{
		{"role:Button|Submit", "Submit"},
		{"name:email", "Email"},
		{"nativeid:email", "Email"},
		{"role:Window >> role:Button", "Submit"},
		{"role:Button && !name:Submit", "Cancel"},
		{"role:Edit || role:Slider", "Email"},
		{"role:Button >> nth=-1", "Cancel"},
		{"role:Button >> ..", "Signup"},
		{"has(name:Agree)", "Signup"},
		{"/Window/Button[2]", "Cancel"},
		{"rightof(name:Submit)", "Cancel"},
		{"below(name:Email)", "Agree"},
		{"text:gre", "Agree"},
		{"role:checkbox", "Agree"},
	}
	for _, tt := range tests {
		t.Run(tt.sel, func(t *testing.T) {
			assert.Equal(t, tt.want, nameOf(t, find(t, e, tt.sel)))
		})
	}
}

func TestFindElement_PrefersFocusedSubtree(t *testing.T) {
	d := virtual.New(nil)
	one := d.AddApp("One", 0).AddWindow("One", platform.Bounds{Width: 300, Height: 300})
	field := one.Add(virtual.Spec{Role: "Edit", Name: "Field", Bounds: platform.Bounds{X: 10, Y: 10, Width: 100, Height: 20}})
	one.Add(virtual.Spec{Role: "Button", Name: "OK", Bounds: platform.Bounds{X: 10, Y: 40, Width: 50, Height: 20}})
	two := d.AddApp("Two", 0).AddWindow("Two", platform.Bounds{X: 400, Width: 300, Height: 300})
	two.Add(virtual.Spec{Role: "Button", Name: "OK", Bounds: platform.Bounds{X: 410, Y: 40, Width: 50, Height: 20}})
	e := newEngine(t, d)

	// Without focus the frontmost window wins.
	win, err := find(t, e, "role:Button|OK").Window()
	require.NoError(t, err)
	assert.Equal(t, "Two", nameOf(t, win))

	d.Focus(field)
	win, err = find(t, e, "role:Button|OK").Window()
	require.NoError(t, err)
	assert.Equal(t, "One", nameOf(t, win))
}

func TestFindElement_Failures(t *testing.T) {
	d, w := formDesktop()
	e := newEngine(t, d)
	ctx := context.Background()
	poll := e.cfg.Resolver.PollMax

	t.Run("default timeout is not found", func(t *testing.T) {
		_, err := e.FindElement(ctx, selector.Parse("name:Nope"), nil, 0)
		assert.True(t, platform.Is(err, platform.CodeElementNotFound), "got %v", err)
	})

	t.Run("explicit timeout", func(t *testing.T) {
		timeout := 60 * time.Millisecond
		start := time.Now()
		_, err := e.FindElement(ctx, selector.Parse("name:Nope"), nil, timeout)
		assert.True(t, platform.Is(err, platform.CodeTimeout), "got %v", err)
		assert.Less(t, time.Since(start), timeout+poll+100*time.Millisecond)
	})

	t.Run("invalid selector does not poll", func(t *testing.T) {
		start := time.Now()
		_, err := e.FindElement(ctx, selector.Parse("nth=invalid"), nil, 5*time.Second)
		assert.True(t, platform.Is(err, platform.CodeInvalidSelector), "got %v", err)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("parent without root", func(t *testing.T) {
		_, err := e.FindElement(ctx, selector.Parse(".."), nil, time.Second)
		assert.True(t, platform.Is(err, platform.CodeInvalidSelector))
	})

	t.Run("bare nth", func(t *testing.T) {
		_, err := e.FindElement(ctx, selector.Nth(0), nil, time.Second)
		assert.True(t, platform.Is(err, platform.CodeInvalidSelector))
	})

	t.Run("detached root", func(t *testing.T) {
		root := find(t, e, "role:Window|Signup")
		d.Detach(w)
		_, err := e.FindElement(ctx, selector.Parse("name:Submit"), root, time.Second)
		assert.True(t, platform.Is(err, platform.CodeElementDetached), "got %v", err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := e.FindElement(cctx, selector.Parse("name:Nope"), nil, time.Second)
		assert.True(t, platform.Is(err, platform.CodeTimeout), "got %v", err)
	})
}

func TestFindElement_AppearsLater(t *testing.T) {
	d, w := formDesktop()
	e := newEngine(t, d)

	time.AfterFunc(50*time.Millisecond, func() {
		w.Add(virtual.Spec{Role: "Text", Name: "I have arrived!", Bounds: platform.Bounds{X: 10, Y: 200, Width: 100, Height: 20}})
	})
	el, err := e.FindElement(context.Background(), selector.Parse("role:Text|name:I have arrived!"), nil, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "I have arrived!", nameOf(t, el))
}

func TestFindElement_Scoped(t *testing.T) {
	d, _ := formDesktop()
	other := d.AddApp("Other", 0).AddWindow("Other", platform.Bounds{X: 500, Width: 200, Height: 200})
	other.Add(virtual.Spec{Role: "Button", Name: "Elsewhere", Bounds: platform.Bounds{X: 510, Y: 10, Width: 50, Height: 20}})
	e := newEngine(t, d)

	signup := find(t, e, "role:Window|Signup")
	_, err := e.FindElement(context.Background(), selector.Parse("name:Elsewhere"), signup, 30*time.Millisecond)
	assert.True(t, platform.Is(err, platform.CodeTimeout))

	parent, err := e.FindElement(context.Background(), selector.Parse(".."), find(t, e, "name:Submit"), 0)
	require.NoError(t, err)
	assert.True(t, parent.Equal(signup))
}

func TestFindElements(t *testing.T) {
	d, _ := formDesktop()
	e := newEngine(t, d)
	ctx := context.Background()

	buttons, err := e.FindElements(ctx, selector.Parse("role:Button"), nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, buttons, 2)
	assert.Equal(t, "Submit", nameOf(t, buttons[0]))
	assert.Equal(t, "Cancel", nameOf(t, buttons[1]))

	none, err := e.FindElements(ctx, selector.Parse("name:Nope"), nil, 30*time.Millisecond, 0)
	require.NoError(t, err)
	assert.Empty(t, none)

	shallow, err := e.FindElements(ctx, selector.Parse("role:Button"), nil, 30*time.Millisecond, 1)
	require.NoError(t, err)
	assert.Empty(t, shallow)
}

func TestFindElement_NativeIDCache(t *testing.T) {
	d, w := formDesktop()
	e := newEngineWith(t, d, Options{UseCache: true})

	first := find(t, e, "nativeid:email")
	again := find(t, e, "nativeid:email")
	assert.True(t, first.Equal(again))

	d.Detach(d.Find("Email"))
	w.Add(virtual.Spec{Role: "Edit", Name: "Email 2", NativeID: "email", Bounds: platform.Bounds{X: 10, Y: 10, Width: 200, Height: 20}})
	replaced := find(t, e, "nativeid:email")
	assert.False(t, replaced.Equal(first))
	assert.Equal(t, "Email 2", nameOf(t, replaced))
}

func TestElement_Inspection(t *testing.T) {
	d, _ := formDesktop()
	e := newEngine(t, d)

	agree := find(t, e, "name:Agree")
	on, err := agree.IsToggled()
	require.NoError(t, err)
	assert.False(t, on)

	_, err = find(t, e, "name:Submit").IsToggled()
	assert.True(t, platform.Is(err, platform.CodeUnsupportedOperation))

	rv, err := find(t, e, "name:Age").RangeValue()
	require.NoError(t, err)
	assert.Equal(t, 30.0, rv.Value)

	enabled, err := find(t, e, "name:Cancel").IsEnabled()
	require.NoError(t, err)
	assert.False(t, enabled)

	app, err := agree.Application()
	require.NoError(t, err)
	assert.Equal(t, "Form", nameOf(t, app))

	kids, err := find(t, e, "role:Window").Children()
	require.NoError(t, err)
	assert.Len(t, kids, 5)

	tree, err := find(t, e, "role:Window").ToSerializableTree(1)
	require.NoError(t, err)
	assert.Equal(t, "Window", tree.Role)
	assert.Len(t, tree.Children, 5)
	assert.Equal(t, 6, tree.Count())
}

func TestGetWindowTree(t *testing.T) {
	d, _ := formDesktop()
	e := newEngineWith(t, d, Options{UseCache: true})
	ctx := context.Background()

	pid, err := find(t, e, "role:Window").ProcessID()
	require.NoError(t, err)

	tree, err := e.GetWindowTree(ctx, pid, "sign", DefaultTreeBuildConfig())
	require.NoError(t, err)
	assert.Equal(t, "Signup", tree.Name)
	require.Len(t, tree.Children, 5)

	email := tree.Children[0]
	assert.Equal(t, "Email", email.Name)
	require.NotNil(t, email.Enabled, "interactive roles carry every property in smart mode")

	fast, err := e.GetWindowTree(ctx, pid, "", TreeBuildConfig{PropertyMode: PropertyFast, MaxDepth: 5})
	require.NoError(t, err)
	assert.Nil(t, fast.Children[0].Enabled)
	assert.NotNil(t, fast.Children[0].Bounds)

	_, err = e.GetWindowTree(ctx, pid, "nope", DefaultTreeBuildConfig())
	assert.True(t, platform.Is(err, platform.CodeElementNotFound))
}

func TestLocator(t *testing.T) {
	d, w := formDesktop()
	e := newEngine(t, d)
	ctx := context.Background()

	el, err := e.Locator(selector.Parse("role:Window")).Locator(selector.Parse("role:Button")).First(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Submit", nameOf(t, el))

	base := e.Locator(selector.Parse("name:Submit"))
	scoped := base.Within(find(t, e, "role:Window"))
	assert.Nil(t, base.root, "builders return copies")
	assert.NotNil(t, scoped.root)

	all, err := e.Locator(selector.Parse("role:Button")).Visible(true).All(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	t.Run("wait succeeds once the element appears", func(t *testing.T) {
		time.AfterFunc(50*time.Millisecond, func() {
			w.Add(virtual.Spec{Role: "Text", Name: "I have arrived!", Bounds: platform.Bounds{X: 10, Y: 200, Width: 100, Height: 20}})
		})
		el, err := e.Locator(selector.Parse("role:Text|name:I have arrived!")).Wait(ctx, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, "I have arrived!", nameOf(t, el))
	})

	t.Run("wait times out", func(t *testing.T) {
		timeout := 80 * time.Millisecond
		start := time.Now()
		_, err := e.Locator(selector.Parse("role:Text|name:Never")).WithTimeout(timeout).Wait(ctx, 0)
		elapsed := time.Since(start)
		assert.True(t, platform.Is(err, platform.CodeTimeout), "got %v", err)
		assert.GreaterOrEqual(t, elapsed, timeout)
		assert.Less(t, elapsed, timeout+e.cfg.Resolver.PollMax+100*time.Millisecond)
	})
}
