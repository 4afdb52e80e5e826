package virtual

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func TestLoad(t *testing.T) {
	d, err := Load([]byte(`
monitors:
  - {id: "a", name: Left, x: 0, y: 0, width: 1280, height: 1024, scale_factor: 1, is_primary: true}
  - {id: "b", name: Right, x: 1280, y: 0, width: 1920, height: 1080, scale_factor: 2}
hit_test: false
apps:
  - name: Mail
    pid: 77
    windows:
      - title: Inbox
        bounds: {x: 0, y: 0, w: 800, h: 600}
        children:
          - role: List
            name: Messages
            children:
              - {role: ListItem, name: Hello, selected: true}
      - title: Compose
        bounds: {x: 100, y: 100, w: 400, h: 300}
focus: Hello
`), nil)
	require.NoError(t, err)

	mons, err := d.Monitors()
	require.NoError(t, err)
	require.Len(t, mons, 2)
	assert.Equal(t, 2.0, mons[1].ScaleFactor)
	assert.False(t, d.HitTest)

	wins, err := d.ListWindows()
	require.NoError(t, err)
	require.Len(t, wins, 2)
	assert.Equal(t, "Inbox", wins[0].Title)
	assert.Equal(t, 77, wins[0].PID)

	f, err := d.FocusedNode()
	require.NoError(t, err)
	p, err := f.Properties()
	require.NoError(t, err)
	assert.Equal(t, "Hello", p.Name)
	assert.True(t, p.Selected)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load([]byte("apps: [unclosed"), nil)
	require.Error(t, err)
}

func TestRegisteredBackend(t *testing.T) {
	assert.Contains(t, platform.Backends(), "virtual")

	p, err := platform.NewProvider("virtual", platform.ProviderOptions{})
	require.NoError(t, err)
	apps, err := p.Reader.Applications()
	require.NoError(t, err)
	assert.Len(t, apps, 2)

	path := filepath.Join(t.TempDir(), "desk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("apps:\n  - name: Solo\n"), 0o644))
	p, err = platform.NewProvider("virtual", platform.ProviderOptions{Fixture: path})
	require.NoError(t, err)
	apps, err = p.Reader.Applications()
	require.NoError(t, err)
	assert.Len(t, apps, 1)

	_, err = platform.NewProvider("virtual", platform.ProviderOptions{Fixture: "/nonexistent.yaml"})
	assert.True(t, platform.Is(err, platform.CodeInvalidArgument))
}
