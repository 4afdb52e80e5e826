package virtual

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
)

func newForm(t *testing.T) (*Desktop, *Node) {
	t.Helper()
	d := New(nil)
	app := d.AddApp("Form", 0)
	w := app.AddWindow("Signup", platform.Bounds{X: 0, Y: 0, Width: 400, Height: 300})
	w.Add(Spec{Role: "Edit", Name: "Email", Bounds: platform.Bounds{X: 10, Y: 10, Width: 200, Height: 20}})
	w.Add(Spec{Role: "CheckBox", Name: "Agree", Toggle: "off", Bounds: platform.Bounds{X: 10, Y: 40, Width: 100, Height: 20}})
	w.Add(Spec{Role: "Slider", Name: "Age", Range: &platform.RangeValue{Min: 0, Max: 120, Value: 30},
		Bounds: platform.Bounds{X: 10, Y: 70, Width: 100, Height: 20}})
	w.Add(Spec{Role: "Button", Name: "Submit", Bounds: platform.Bounds{X: 10, Y: 100, Width: 80, Height: 30}})
	return d, w
}

func TestTreeShape(t *testing.T) {
	d, w := newForm(t)

	apps, err := d.Applications()
	require.NoError(t, err)
	require.Len(t, apps, 1)

	p, err := apps[0].Properties()
	require.NoError(t, err)
	assert.Equal(t, model.RoleApplication, p.Role)
	assert.Equal(t, "Form", p.Name)

	kids, err := w.Children()
	require.NoError(t, err)
	require.Len(t, kids, 4)

	parent, err := kids[0].Parent()
	require.NoError(t, err)
	assert.Equal(t, w.Key(), parent.Key())

	rootParent, err := d.RootNode().Parent()
	require.NoError(t, err)
	assert.Nil(t, rootParent)
}

func TestDetach(t *testing.T) {
	d, w := newForm(t)
	btn := d.Find("Submit")
	require.NotNil(t, btn)

	d.Detach(w)

	assert.False(t, btn.Alive())
	_, err := btn.Properties()
	assert.True(t, platform.Is(err, platform.CodeElementDetached))
	wins, err := d.ListWindows()
	require.NoError(t, err)
	assert.Empty(t, wins)
}

func TestNodeAt(t *testing.T) {
	d, _ := newForm(t)

	n, err := d.NodeAt(20, 110)
	require.NoError(t, err)
	p, err := n.Properties()
	require.NoError(t, err)
	assert.Equal(t, "Submit", p.Name)

	n, err = d.NodeAt(1500, 900)
	require.NoError(t, err)
	assert.Equal(t, d.RootNode().Key(), n.Key())

	d.HitTest = false
	_, err = d.NodeAt(20, 110)
	assert.True(t, platform.Is(err, platform.CodeUnsupportedOperation))
}

func TestNodeAt_FrontWindowWins(t *testing.T) {
	d, _ := newForm(t)
	other := d.AddApp("Other", 0)
	other.AddWindow("Cover", platform.Bounds{X: 0, Y: 90, Width: 400, Height: 100})

	n, err := d.NodeAt(20, 110)
	require.NoError(t, err)
	p, _ := n.Properties()
	assert.Equal(t, "Cover", p.Name)
}

func TestClickFocusesAndFiresHook(t *testing.T) {
	d, _ := newForm(t)
	submit := d.Find("Submit")
	clicked := 0
	submit.OnClick(func(d *Desktop, n *Node) { clicked++ })

	require.NoError(t, d.Click(20, 110, platform.MouseLeft, 1))
	assert.Equal(t, 1, clicked)

	f, err := d.FocusedNode()
	require.NoError(t, err)
	assert.Equal(t, submit.Key(), f.Key())

	events := d.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "click", events[0].Kind)
	assert.Equal(t, submit.Key(), events[0].Target)
}

func TestTypingIntoFocusedEdit(t *testing.T) {
	d, _ := newForm(t)
	email := d.Find("Email")
	require.NoError(t, d.PerformAction(email, platform.ActionFocus))

	require.NoError(t, d.TypeText("old", 0))
	require.NoError(t, d.KeyCombo([]string{"ctrl", "a"}))
	require.NoError(t, d.TypeText("me@example.com", 0))
	require.NoError(t, d.KeyCombo([]string{"backspace"}))

	p, err := email.Properties()
	require.NoError(t, err)
	assert.Equal(t, "me@example.co", p.Value)
	assert.True(t, p.Focused)
}

func TestZoomKeys(t *testing.T) {
	d := New(nil)
	require.NoError(t, d.KeyCombo([]string{"ctrl", "+"}))
	require.NoError(t, d.KeyCombo([]string{"ctrl", "+"}))
	require.NoError(t, d.KeyCombo([]string{"ctrl", "-"}))
	assert.Equal(t, 1, d.Zoom())
	require.NoError(t, d.KeyCombo([]string{"ctrl", "0"}))
	assert.Equal(t, 0, d.Zoom())
}

func TestValueSetters(t *testing.T) {
	d, _ := newForm(t)
	agree := d.Find("Agree")
	age := d.Find("Age")
	submit := d.Find("Submit")

	require.NoError(t, d.SetToggled(agree, true))
	p, _ := agree.Properties()
	require.NotNil(t, p.Toggled)
	assert.Equal(t, platform.ToggleOn, *p.Toggled)
	assert.Equal(t, 1, d.Writes(agree))

	require.NoError(t, d.SetRangeValue(age, 42))
	p, _ = age.Properties()
	assert.Equal(t, 42.0, p.Range.Value)

	err := d.SetRangeValue(age, 500)
	assert.True(t, platform.Is(err, platform.CodeInvalidArgument))

	err = d.SetToggled(submit, true)
	assert.True(t, platform.Is(err, platform.CodeUnsupportedOperation))
	assert.Equal(t, 0, d.Writes(submit))
}

func TestScrollIntoView(t *testing.T) {
	d, w := newForm(t)
	target := platform.Bounds{X: 10, Y: 200, Width: 80, Height: 20}
	far := w.Add(Spec{Role: "Button", Name: "Far", Offscreen: true,
		Bounds: platform.Bounds{X: 10, Y: 2000, Width: 80, Height: 20}, ScrollTarget: &target})
	stuck := w.Add(Spec{Role: "Button", Name: "Stuck", Offscreen: true, Unscrollable: true})

	require.NoError(t, d.PerformAction(far, platform.ActionScrollIntoView))
	p, _ := far.Properties()
	assert.False(t, p.Offscreen)
	assert.Equal(t, target, p.Bounds)

	require.NoError(t, d.PerformAction(stuck, platform.ActionScrollIntoView))
	p, _ = stuck.Properties()
	assert.True(t, p.Offscreen)
}

func TestCloseDetachesWindow(t *testing.T) {
	d, w := newForm(t)
	require.NoError(t, d.PerformAction(d.Find("Submit"), platform.ActionClose))
	assert.False(t, w.Alive())
}

func TestActivateReordersWindows(t *testing.T) {
	d, _ := newForm(t)
	other := d.AddApp("Other", 0)
	other.AddWindow("Other", platform.Bounds{X: 500, Y: 0, Width: 100, Height: 100})

	name, _, err := d.GetFrontmostApp()
	require.NoError(t, err)
	assert.Equal(t, "Other", name)

	formPID := d.Find("Signup").props.PID
	require.NoError(t, d.Activate(formPID))
	name, pid, err := d.GetFrontmostApp()
	require.NoError(t, err)
	assert.Equal(t, "Form", name)
	assert.Equal(t, formPID, pid)

	err = d.Activate(99999)
	assert.True(t, platform.Is(err, platform.CodePlatformError))
}

func TestHighlightOverlays(t *testing.T) {
	d := New(nil)
	ov, err := d.Highlight(platform.HighlightOptions{Bounds: platform.Bounds{Width: 10, Height: 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Overlays())
	require.NoError(t, ov.Close())
	require.NoError(t, ov.Close())
	assert.Equal(t, 0, d.Overlays())
}

func TestCapture(t *testing.T) {
	d, _ := newForm(t)
	shot, err := d.Capture(platform.Bounds{X: 390, Y: 0, Width: 20, Height: 10})
	require.NoError(t, err)
	assert.Equal(t, 20*10*4, len(shot.Pix))
	require.NotNil(t, shot.Monitor)

	img := shot.Image()
	assert.Equal(t, windowFill, img.RGBAAt(0, 0))
	assert.Equal(t, backdrop, img.RGBAAt(15, 0))

	_, err = d.Capture(platform.Bounds{})
	assert.True(t, platform.Is(err, platform.CodeInvalidArgument))
}

func TestLaunchAndOpenURL(t *testing.T) {
	d := New(nil)
	pid, err := d.Launch("Notes")
	require.NoError(t, err)
	assert.NotZero(t, pid)

	wins, _ := d.ListWindows()
	require.Len(t, wins, 1)
	assert.Equal(t, "Notes", wins[0].App)

	bpid, err := d.OpenURL("https://example.com", platform.BrowserDefault)
	require.NoError(t, err)
	again, err := d.OpenURL("https://example.org", platform.BrowserDefault)
	require.NoError(t, err)
	assert.Equal(t, bpid, again)

	wins, _ = d.ListWindows()
	assert.Equal(t, "https://example.org", wins[0].Title)
}

func TestClipboardAndProbe(t *testing.T) {
	d := New(nil)
	require.NoError(t, d.SetText("copied"))
	got, err := d.GetText()
	require.NoError(t, err)
	assert.Equal(t, "copied", got)
	require.NoError(t, d.Clear())
	assert.Empty(t, d.Clipboard())

	r := d.Probe()
	assert.True(t, r.APIAvailable)
	assert.Equal(t, "virtual", r.Diagnostics["backend"])

	d.SetAPIAvailable(false)
	assert.False(t, d.Probe().APIAvailable)
}
