package virtual

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// Fixture is the YAML description of a virtual desktop.
type Fixture struct {
	Monitors []platform.Monitor `yaml:"monitors"`
	Apps     []FixtureApp       `yaml:"apps"`
	// Focus names the node that starts with keyboard focus.
	Focus   string `yaml:"focus"`
	HitTest *bool  `yaml:"hit_test"`
}

// FixtureApp is one application in a fixture.
type FixtureApp struct {
	Name    string          `yaml:"name"`
	PID     int             `yaml:"pid"`
	Windows []FixtureWindow `yaml:"windows"`
}

// FixtureWindow is one top-level window in a fixture. The first window
// listed ends up frontmost.
type FixtureWindow struct {
	Title    string          `yaml:"title"`
	Bounds   platform.Bounds `yaml:"bounds"`
	Children []Spec          `yaml:"children"`
}

// Load builds a desktop from YAML.
func Load(data []byte, logger *zap.Logger) (*Desktop, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse virtual desktop fixture: %w", err)
	}
	return f.Build(logger), nil
}

// LoadFile builds a desktop from a YAML file.
func LoadFile(path string, logger *zap.Logger) (*Desktop, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read virtual desktop fixture: %w", err)
	}
	return Load(data, logger)
}

// Build materializes the fixture.
func (f *Fixture) Build(logger *zap.Logger) *Desktop {
	d := New(logger)
	if len(f.Monitors) > 0 {
		d.SetMonitors(f.Monitors...)
	}
	if f.HitTest != nil {
		d.HitTest = *f.HitTest
	}
	for _, a := range f.Apps {
		app := d.AddApp(a.Name, a.PID)
		for i := len(a.Windows) - 1; i >= 0; i-- {
			fw := a.Windows[i]
			w := app.AddWindow(fw.Title, fw.Bounds)
			for _, s := range fw.Children {
				w.Add(s)
			}
		}
	}
	if f.Focus != "" {
		if n := d.Find(f.Focus); n != nil {
			d.Focus(n)
		}
	}
	return d
}

// demoFixture is served when the backend is selected without a fixture.
const demoFixture = `
apps:
  - name: Calculator
    pid: 4100
    windows:
      - title: Calculator
        bounds: {x: 1000, y: 200, w: 320, h: 420}
        children:
          - role: Edit
            name: Display
            id: display
            value: "0"
            bounds: {x: 1010, y: 240, w: 300, h: 50}
          - role: Group
            name: Keypad
            bounds: {x: 1010, y: 300, w: 300, h: 310}
            children:
              - {role: Button, name: "7", id: num7, bounds: {x: 1010, y: 300, w: 70, h: 70}}
              - {role: Button, name: "8", id: num8, bounds: {x: 1085, y: 300, w: 70, h: 70}}
              - {role: Button, name: "9", id: num9, bounds: {x: 1160, y: 300, w: 70, h: 70}}
              - {role: Button, name: Plus, id: plus, bounds: {x: 1235, y: 300, w: 70, h: 70}}
              - {role: Button, name: Equals, id: equals, bounds: {x: 1235, y: 540, w: 70, h: 70}}
  - name: Editor
    pid: 4200
    windows:
      - title: Untitled - Editor
        bounds: {x: 100, y: 100, w: 800, h: 600}
        children:
          - role: MenuBar
            name: Application
            bounds: {x: 100, y: 130, w: 800, h: 24}
            children:
              - {role: MenuItem, name: File, bounds: {x: 100, y: 130, w: 40, h: 24}}
              - {role: MenuItem, name: Edit, bounds: {x: 140, y: 130, w: 40, h: 24}}
          - role: Document
            name: Text Editor
            id: editor
            bounds: {x: 100, y: 160, w: 800, h: 480}
          - role: CheckBox
            name: Word Wrap
            toggle: "off"
            bounds: {x: 110, y: 650, w: 120, h: 20}
          - role: Slider
            name: Font Size
            range: {min: 8, max: 72, value: 12}
            bounds: {x: 250, y: 650, w: 200, h: 20}
          - {role: Button, name: Save, id: save, bounds: {x: 780, y: 650, w: 100, h: 30}}
focus: Text Editor
`

// Demo returns the built-in sample desktop.
func Demo(logger *zap.Logger) *Desktop {
	d, err := Load([]byte(demoFixture), logger)
	if err != nil {
		panic(err)
	}
	return d
}

func init() {
	platform.Register("virtual", func(opts platform.ProviderOptions) (*platform.Provider, error) {
		if opts.Fixture == "" {
			return Demo(opts.Logger).Provider(), nil
		}
		d, err := LoadFile(opts.Fixture, opts.Logger)
		if err != nil {
			return nil, platform.NewError(platform.CodeInvalidArgument, "cannot load virtual desktop").WithCause(err)
		}
		return d.Provider(), nil
	})
}
