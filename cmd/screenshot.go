package cmd

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mj1618/desktop-automation/internal/engine"
	"github.com/mj1618/desktop-automation/internal/model"
	"github.com/mj1618/desktop-automation/internal/output"
	"github.com/mj1618/desktop-automation/internal/platform"
)

// ScreenshotResult describes the files written by screenshot --output.
type ScreenshotResult struct {
	OK    bool             `yaml:"ok"    json:"ok"`
	Files []ScreenshotFile `yaml:"files" json:"files"`
}

// ScreenshotFile is one written PNG.
type ScreenshotFile struct {
	Path      string            `yaml:"path"                json:"path"`
	Width     int               `yaml:"width"               json:"width"`
	Height    int               `yaml:"height"              json:"height"`
	Monitor   *platform.Monitor `yaml:"monitor,omitempty"   json:"monitor,omitempty"`
	Annotated int               `yaml:"annotated,omitempty" json:"annotated,omitempty"`
}

var screenshotCmd = &cobra.Command{
	Use:   "screenshot [selector]",
	Short: "Capture an element, a display or every display",
	Long: `Capture the pixels under an element, one display (--monitor), every display
(--all) or, by default, the primary display.

Without --output the PNG is written to stdout as base64. With --all the
display index is added to the file name.

--annotate frames the interactive elements of the captured element (or of
the frontmost window for display captures) and labels them with their centre
coordinates or with their Role|Name shorthand.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScreenshot,
}

func init() {
	rootCmd.AddCommand(screenshotCmd)
	addLookupFlags(screenshotCmd)
	screenshotCmd.Flags().String("monitor", "", "Capture the display with this name or id")
	screenshotCmd.Flags().Bool("all", false, "Capture every display")
	screenshotCmd.Flags().String("output", "", "Output PNG path (default: stdout as base64)")
	screenshotCmd.Flags().Float64("scale", 1, "Scale factor 0.1-1.0")
	screenshotCmd.Flags().Bool("annotate", false, "Frame and label interactive elements")
	screenshotCmd.Flags().String("labels", "coords", "Annotation labels: coords, names")
}

type capture struct {
	shot   *platform.Screenshot
	origin image.Point
	// region is the captured screen rectangle in points.
	region platform.Bounds
	tree   *model.Node
}

func runScreenshot(cmd *cobra.Command, args []string) error {
	monitor, _ := cmd.Flags().GetString("monitor")
	all, _ := cmd.Flags().GetBool("all")
	path, _ := cmd.Flags().GetString("output")
	scale, _ := cmd.Flags().GetFloat64("scale")
	annotate, _ := cmd.Flags().GetBool("annotate")
	labelStr, _ := cmd.Flags().GetString("labels")
	mode, err := ParseLabelMode(labelStr)
	if err != nil {
		return err
	}
	if scale < 0.1 || scale > 1 {
		return fmt.Errorf("--scale must be between 0.1 and 1.0")
	}
	if (len(args) > 0 && (monitor != "" || all)) || (monitor != "" && all) {
		return fmt.Errorf("a selector, --monitor and --all are mutually exclusive")
	}
	if all && path == "" {
		return fmt.Errorf("--all requires --output")
	}

	s, err := openSession(sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := cmd.Context()

	caps, err := takeCaptures(ctx, s, cmd, args, monitor, all)
	if err != nil {
		return err
	}
	if annotate {
		if err := attachTrees(ctx, s, cmd, args, caps); err != nil {
			return err
		}
	}

	res := ScreenshotResult{OK: true}
	for i, c := range caps {
		img := c.shot.Image()
		file := ScreenshotFile{Monitor: c.shot.Monitor}
		if c.tree != nil {
			pxPerPoint := 1.0
			if c.region.Width > 0 {
				pxPerPoint = float64(img.Bounds().Dx()) / float64(c.region.Width)
			}
			file.Annotated = annotateTree(img, c.tree, c.origin, pxPerPoint, mode)
		}
		img = scaleImage(img, scale)
		file.Width, file.Height = img.Bounds().Dx(), img.Bounds().Dy()

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("png encode: %w", err)
		}
		if path == "" {
			return writeBase64(buf.Bytes())
		}
		file.Path = path
		if all {
			file.Path = indexedPath(path, i)
		}
		if err := os.WriteFile(file.Path, buf.Bytes(), 0o644); err != nil {
			return err
		}
		res.Files = append(res.Files, file)
	}
	return output.Print(res)
}

func takeCaptures(ctx context.Context, s *session, cmd *cobra.Command, args []string, monitor string, all bool) ([]capture, error) {
	switch {
	case len(args) > 0:
		el, err := s.find(ctx, cmd, args[0])
		if err != nil {
			return nil, err
		}
		shot, err := el.Capture(ctx)
		if err != nil {
			return nil, err
		}
		b, err := el.Bounds()
		if err != nil {
			return nil, err
		}
		return []capture{{shot: shot, origin: image.Pt(b.X, b.Y), region: b}}, nil
	case all:
		mons, err := s.engine.Monitors(ctx)
		if err != nil {
			return nil, err
		}
		shots, err := s.engine.CaptureAllMonitors(ctx)
		if err != nil {
			return nil, err
		}
		caps := make([]capture, len(shots))
		for i, shot := range shots {
			caps[i] = monitorCapture(shot, mons[i])
		}
		return caps, nil
	}

	var m platform.Monitor
	var err error
	if monitor != "" {
		m, err = s.engine.MonitorByName(ctx, monitor)
	} else {
		m, err = s.engine.PrimaryMonitor(ctx)
	}
	if err != nil {
		return nil, err
	}
	shot, err := s.engine.CaptureMonitor(ctx, m)
	if err != nil {
		return nil, err
	}
	return []capture{monitorCapture(shot, m)}, nil
}

func monitorCapture(shot *platform.Screenshot, m platform.Monitor) capture {
	return capture{shot: shot, origin: image.Pt(m.X, m.Y), region: m.Bounds()}
}

// attachTrees snapshots what each capture shows: the captured element's
// subtree, or the frontmost window for display captures.
func attachTrees(ctx context.Context, s *session, cmd *cobra.Command, args []string, caps []capture) error {
	var tree *model.Node
	if len(args) > 0 {
		el, err := s.find(ctx, cmd, args[0])
		if err != nil {
			return err
		}
		if tree, err = el.ToSerializableTree(engine.DefaultTreeBuildConfig().MaxDepth); err != nil {
			return err
		}
	} else {
		windows, err := s.engine.Windows(ctx)
		if err != nil {
			return err
		}
		if len(windows) == 0 {
			return nil
		}
		if tree, err = s.engine.GetWindowTree(ctx, windows[0].PID, windows[0].Title, engine.DefaultTreeBuildConfig()); err != nil {
			return err
		}
	}
	for i := range caps {
		caps[i].tree = tree
	}
	return nil
}

func writeBase64(data []byte) error {
	enc := base64.NewEncoder(base64.StdEncoding, output.Writer)
	if _, err := enc.Write(data); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(output.Writer)
	return err
}

// indexedPath turns shot.png into shot-1.png for display i.
func indexedPath(path string, i int) string {
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(path, ext), i+1, ext)
}
