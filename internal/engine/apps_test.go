package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/platform"
	"github.com/mj1618/desktop-automation/internal/platform/virtual"
)

// appsDesktop runs four applications; Notepad's window is in front.
func appsDesktop() *virtual.Desktop {
	d := virtual.New(nil)
	for i, name := range []string{"Calculator", "Calendar", "Notes", "Notepad"} {
		d.AddApp(name, 0).AddWindow(name, platform.Bounds{X: i * 50, Y: i * 50, Width: 300, Height: 200})
	}
	d.AddApp("Padlock", 0)
	return d
}

func TestApplication_FuzzyMatch(t *testing.T) {
	d := appsDesktop()
	e := newEngine(t, d)
	ctx := context.Background()

	tests := []struct {
		query string
		want  string
	}{
		{"calculator", "Calculator"},
		{"CALENDAR", "Calendar"},
		{"note", "Notepad"},
		{"pad", "Padlock"},
		{"lend", "Calendar"},
		{"ctr", "Calculator"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			app, err := e.Application(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, nameOf(t, app))
		})
	}

	_, err := e.Application(ctx, "zzz")
	assert.True(t, platform.Is(err, platform.CodeElementNotFound))
	_, err = e.Application(ctx, "  ")
	assert.True(t, platform.Is(err, platform.CodeElementNotFound))
}

func TestApplication_TieBreaks(t *testing.T) {
	t.Run("frontmost wins", func(t *testing.T) {
		d := appsDesktop()
		e := newEngine(t, d)
		notes, err := d.Find("Notes").Properties()
		require.NoError(t, err)
		require.NoError(t, d.Activate(notes.PID))
		app, err := e.Application(context.Background(), "note")
		require.NoError(t, err)
		assert.Equal(t, "Notes", nameOf(t, app))
	})
	t.Run("latest started wins", func(t *testing.T) {
		d := virtual.New(nil)
		d.AddApp("Notes", 0)
		d.AddApp("Notepad", 0)
		e := newEngine(t, d)
		app, err := e.Application(context.Background(), "note")
		require.NoError(t, err)
		assert.Equal(t, "Notepad", nameOf(t, app))
	})
}

func TestWindows_FrontmostFirst(t *testing.T) {
	e := newEngine(t, appsDesktop())
	windows, err := e.Windows(context.Background())
	require.NoError(t, err)
	require.Len(t, windows, 4)
	assert.Equal(t, "Notepad", windows[0].Title)
	for i, w := range windows {
		assert.Equal(t, i, w.ZOrder)
	}
}

func TestOpenApplication(t *testing.T) {
	ctx := context.Background()

	t.Run("launches", func(t *testing.T) {
		d := appsDesktop()
		e := newEngine(t, d)
		app, err := e.OpenApplication(ctx, "Mail")
		require.NoError(t, err)
		assert.Equal(t, "Mail", nameOf(t, app))
		name, _, err := d.GetFrontmostApp()
		require.NoError(t, err)
		assert.Equal(t, "Mail", name)
	})
	t.Run("activates a running match", func(t *testing.T) {
		d := appsDesktop()
		e := newEngine(t, d)
		app, err := e.OpenApplication(ctx, "calc")
		require.NoError(t, err)
		assert.Equal(t, "Calculator", nameOf(t, app))
		name, _, err := d.GetFrontmostApp()
		require.NoError(t, err)
		assert.Equal(t, "Calculator", name)
	})
	t.Run("a loose match launches", func(t *testing.T) {
		d := appsDesktop()
		e := newEngine(t, d)
		app, err := e.OpenApplication(ctx, "ctr")
		require.NoError(t, err)
		assert.Equal(t, "ctr", nameOf(t, app))
	})
	t.Run("no window appears", func(t *testing.T) {
		d := appsDesktop()
		d.LaunchFunc = func(*virtual.Desktop, string) (int, error) { return 4242, nil }
		cfg := testConfig()
		cfg.Actions.OpenTimeout = 40 * time.Millisecond
		e := newEngine(t, d, WithConfig(cfg))

		_, err := e.OpenApplication(ctx, "Mail")
		assert.True(t, platform.Is(err, platform.CodeTimeout), "got %v", err)
		events := e.Events()
		require.NotEmpty(t, events)
		assert.Equal(t, "open_application", events[len(events)-1].Action)
		assert.NotEmpty(t, events[len(events)-1].Error)
	})
}

func TestActivateApplication(t *testing.T) {
	d := appsDesktop()
	e := newEngine(t, d)
	ctx := context.Background()

	require.NoError(t, e.ActivateApplication(ctx, "calendar"))
	name, _, err := d.GetFrontmostApp()
	require.NoError(t, err)
	assert.Equal(t, "Calendar", name)

	err = e.ActivateApplication(ctx, "Padlock")
	assert.True(t, platform.Is(err, platform.CodePlatformError), "an application without windows cannot come forward")
}

func TestOpenURL(t *testing.T) {
	d := virtual.New(nil)
	e := newEngine(t, d)
	ctx := context.Background()

	doc, err := e.OpenURL(ctx, "https://example.com", platform.BrowserDefault)
	require.NoError(t, err)
	role, err := doc.Role()
	require.NoError(t, err)
	assert.Equal(t, model.RoleDocument, role)
	assert.Equal(t, "https://example.com", nameOf(t, doc))

	second, err := e.OpenURL(ctx, "https://example.org", platform.BrowserDefault)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org", nameOf(t, second))

	apps, err := e.Applications(ctx)
	require.NoError(t, err)
	assert.Len(t, apps, 1)

	_, err = e.OpenURL(ctx, "", platform.BrowserDefault)
	assert.True(t, platform.Is(err, platform.CodeInvalidArgument))
}

func TestOpenFile(t *testing.T) {
	d := virtual.New(nil)
	e := newEngine(t, d)
	ctx := context.Background()

	require.NoError(t, e.OpenFile(ctx, "/tmp/report.pdf"))
	var opened []string
	for _, ev := range d.Events() {
		if ev.Kind == "open_file" {
			opened = append(opened, ev.Text)
		}
	}
	assert.Equal(t, []string{"/tmp/report.pdf"}, opened)
	assert.True(t, platform.Is(e.OpenFile(ctx, ""), platform.CodeInvalidArgument))
}

func TestMonitors(t *testing.T) {
	d, _ := formDesktop()
	left := platform.Monitor{ID: "1", Name: "Left", Width: 1920, Height: 1080, ScaleFactor: 1}
	right := platform.Monitor{ID: "2", Name: "Right", X: 1920, Width: 1280, Height: 1024, ScaleFactor: 2, IsPrimary: true}
	d.SetMonitors(left, right)
	e := newEngine(t, d)
	ctx := context.Background()

	mons, err := e.Monitors(ctx)
	require.NoError(t, err)
	assert.Equal(t, []platform.Monitor{left, right}, mons)

	primary, err := e.PrimaryMonitor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Right", primary.Name)

	active, err := e.ActiveMonitor(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Left", active.Name)

	byID, err := e.MonitorByName(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, right, byID)
	byName, err := e.MonitorByName(ctx, "left")
	require.NoError(t, err)
	assert.Equal(t, left, byName)
	_, err = e.MonitorByName(ctx, "nope")
	assert.True(t, platform.Is(err, platform.CodeElementNotFound))

	shots, err := e.CaptureAllMonitors(ctx)
	require.NoError(t, err)
	require.Len(t, shots, 2)
	assert.Equal(t, 1920, shots[0].Width)
	assert.Equal(t, 1280, shots[1].Width)
	require.NotNil(t, shots[1].Monitor)
	assert.Equal(t, "Right", shots[1].Monitor.Name)
	assert.Len(t, shots[1].Pix, 1280*1024*4)
}

func TestMonitors_NoneReported(t *testing.T) {
	d, _ := formDesktop()
	d.SetMonitors()
	e := newEngine(t, d)

	_, err := e.Monitors(context.Background())
	assert.True(t, platform.Is(err, platform.CodePlatformError))
}

func TestHealth(t *testing.T) {
	d, _ := formDesktop()
	e := newEngine(t, d)
	ctx := context.Background()

	report := e.Health(ctx)
	assert.Equal(t, StatusOK, report.Status)
	assert.Equal(t, "virtual", report.Platform)
	assert.Equal(t, "true", report.Diagnostics["api_available"])
	assert.Equal(t, "true", report.Diagnostics["desktop_accessible"])
	assert.Equal(t, "1", report.Diagnostics["top_level_elements"])
	assert.Equal(t, "virtual", report.Diagnostics["backend"])
	assert.NotContains(t, report.Diagnostics, "error")

	d.SetAPIAvailable(false)
	report = e.Health(ctx)
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "false", report.Diagnostics["api_available"])
	assert.NotEmpty(t, report.Diagnostics["error"])
}

func TestHealth_DispatchFailureIsReported(t *testing.T) {
	d, _ := formDesktop()
	d.RequireApartment = true
	e := newEngine(t, d)
	require.NotNil(t, e.apartment)
	e.apartment.Close()

	report := e.Health(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, "unknown", report.Diagnostics["api_available"])
	assert.Contains(t, report.Diagnostics["error"], "apartment is closed")
}
