package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
	_ "github.com/mj1618/desktop-automation/internal/platform/virtual"
)

// resetFlags restores every flag to its default; cobra keeps parsed values
// on the package-level commands between runs.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// run executes the CLI against the built-in virtual desktop and returns
// what it printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var buf bytes.Buffer
	prev := output.Writer
	output.Writer = &buf
	t.Cleanup(func() {
		output.Writer = prev
		output.OutputFormat = output.FormatYAML
		output.PrettyOutput = false
	})
	rootCmd.SetArgs(append([]string{"--backend", "virtual", "--format", "json"}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func runJSON[T any](t *testing.T, args ...string) T {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err)
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{
		"find", "tree", "apps", "focused", "click", "hover", "invoke", "focus", "type",
		"press", "scroll", "set", "highlight", "screenshot", "monitors", "open", "wait",
		"health", "eval", "ocr", "zoom", "observe", "serve",
	}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], name)
	}
}

func TestFind(t *testing.T) {
	info := runJSON[ElementInfo](t, "find", "Button|Save")
	assert.Equal(t, "Button", info.Role)
	assert.Equal(t, "Save", info.Name)
	assert.Equal(t, platform.Bounds{X: 780, Y: 650, Width: 100, Height: 30}, info.Bounds)

	all := runJSON[FindResult](t, "find", "role:Button", "--all", "--app", "calc")
	assert.Equal(t, 5, all.Count)
	assert.Len(t, all.Elements, 5)
}

func TestFind_Timeout(t *testing.T) {
	_, err := run(t, "find", "Button|Missing", "--timeout", "50ms")
	require.Error(t, err)
	res := errorResult(err)
	assert.Equal(t, string(platform.CodeTimeout), res.Error.Code)
	assert.False(t, res.OK)
}

func TestFocused(t *testing.T) {
	info := runJSON[ElementInfo](t, "focused")
	assert.Equal(t, "Text Editor", info.Name)
}

func TestTree(t *testing.T) {
	tr := runJSON[TreeResult](t, "tree", "--app", "editor")
	assert.Equal(t, 4200, tr.PID)
	require.Len(t, tr.Nodes, 1)
	assert.Equal(t, "Untitled - Editor", tr.Nodes[0].Name)

	flat := runJSON[[]model.FlatNode](t, "tree", "--pid", "4100", "--flat")
	var names []string
	for _, n := range flat {
		names = append(names, n.Name)
	}
	assert.Subset(t, names, []string{"7", "Plus", "Equals"})
}

func TestApps(t *testing.T) {
	apps := runJSON[[]model.App](t, "apps")
	require.Len(t, apps, 2)
	byName := map[string]model.App{}
	for _, a := range apps {
		byName[a.Name] = a
	}
	require.Contains(t, byName, "Editor")
	assert.Equal(t, 4200, byName["Editor"].PID)
	require.Len(t, byName["Editor"].Windows, 1)
	assert.Equal(t, 0, byName["Editor"].Windows[0].ZOrder)

	windows := runJSON[[]model.Window](t, "apps", "--windows-only")
	require.Len(t, windows, 2)
	assert.Equal(t, "Untitled - Editor", windows[0].Title)
}

func TestClick(t *testing.T) {
	res := runJSON[ActionResult](t, "click", "Button|Save")
	assert.True(t, res.OK)
	assert.Equal(t, "click", res.Action)
	require.NotNil(t, res.Point)
	assert.Equal(t, engine.Point{X: 830, Y: 665}, *res.Point)

	_, err := run(t, "click", "Button|Save", "--button", "right", "--double")
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	res := runJSON[ActionResult](t, "set", "CheckBox|Word Wrap", "--toggle", "on")
	assert.True(t, res.OK)
	assert.Equal(t, "set_toggle", res.Action)
	require.NotNil(t, res.Target)
	assert.Equal(t, "on", res.Target.Toggled)

	res = runJSON[ActionResult](t, "set", "Slider|Font Size", "--range", "24")
	require.NotNil(t, res.Target)
	require.NotNil(t, res.Target.Range)
	assert.InDelta(t, 24, res.Target.Range.Value, 0.001)

	_, err := run(t, "set", "Slider|Font Size", "--range", "24", "--value", "x")
	assert.Error(t, err)
}

func TestMonitors(t *testing.T) {
	m := runJSON[platform.Monitor](t, "monitors", "--primary")
	assert.True(t, m.IsPrimary)
	assert.Equal(t, "Virtual-1", m.Name)

	_, err := run(t, "monitors", "--primary", "--active")
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	report := runJSON[engine.HealthReport](t, "health")
	assert.Equal(t, "virtual", report.Platform)
	assert.Equal(t, engine.StatusOK, report.Status)
}

func TestScreenshot_WritesPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editor.png")
	res := runJSON[ScreenshotResult](t, "screenshot", "Window|Untitled - Editor", "--output", path, "--annotate", "--scale", "0.5")
	require.Len(t, res.Files, 1)
	assert.Equal(t, 400, res.Files[0].Width)
	assert.Positive(t, res.Files[0].Annotated)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dy())
}

func TestScreenshot_FlagValidation(t *testing.T) {
	_, err := run(t, "screenshot", "--all")
	assert.Error(t, err, "--all without --output")
	_, err = run(t, "screenshot", "--scale", "2")
	assert.Error(t, err)
	_, err = run(t, "screenshot", "--labels", "ids")
	assert.Error(t, err)
}

func TestZoom_Args(t *testing.T) {
	_, err := run(t, "zoom", "sideways")
	assert.Error(t, err)
	_, err = run(t, "zoom", "set")
	assert.Error(t, err)
	_, err = run(t, "zoom", "in", "zero")
	assert.Error(t, err)
}

func TestWait_Gone(t *testing.T) {
	res := runJSON[WaitResult](t, "wait", "Button|Missing", "--gone", "--timeout", "1s", "--interval", "10ms")
	assert.Equal(t, "gone", res.Action)

	_, err := run(t, "wait", "Button|Save", "--gone", "--timeout", "60ms", "--interval", "10ms")
	assert.True(t, platform.Is(err, platform.CodeTimeout))
}

func TestObserve_StableWindowEmitsSnapshotAndDone(t *testing.T) {
	out, err := run(t, "observe", "--app", "editor", "--interval", "10ms", "--duration", "50ms")
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.GreaterOrEqual(t, len(lines), 2)

	var first, last observeEvent
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &last))
	assert.Equal(t, "snapshot", first.Type)
	assert.Positive(t, first.Count)
	assert.Equal(t, "done", last.Type)
	assert.Zero(t, last.Events)
}

func TestErrorResult(t *testing.T) {
	err := platform.NewPlatformError("click", "boom").WithPlatformCode("E1")
	res := errorResult(err)
	assert.Equal(t, "PLATFORM_ERROR", res.Error.Code)
	assert.Equal(t, "click", res.Error.Operation)
	assert.Equal(t, "E1", res.Error.PlatformCode)

	res = errorResult(assert.AnError)
	assert.Equal(t, "ERROR", res.Error.Code)
}

func TestIndexedPath(t *testing.T) {
	assert.Equal(t, "shot-2.png", indexedPath("shot.png", 1))
	assert.Equal(t, "dir/shot-1", indexedPath("dir/shot", 0))
}

func TestIsURL(t *testing.T) {
	assert.True(t, isURL("HTTPS://example.com"))
	assert.False(t, isURL("Calculator"))
	assert.False(t, isURL("file:///tmp/x"))
}

func TestProviderOptions_FromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trace: true\nheadless: true\ndisplay: \":42\"\n"), 0o644))
	t.Cleanup(func() { resetFlags(rootCmd) })
	require.NoError(t, rootCmd.PersistentFlags().Set("config", path))

	cfg, err := loadConfig()
	require.NoError(t, err)
	opts := providerOptions(cfg, "desk.yaml", zap.NewNop())
	assert.True(t, opts.Trace)
	assert.True(t, opts.Headless)
	assert.Equal(t, ":42", opts.Display)
	assert.Equal(t, "desk.yaml", opts.Fixture)
}
