package engine

import (
	"context"
	"time"

	"github.com/mj1618/desktop-automation/internal/platform"
)

// zoomLadder is the sequence of zoom levels, in percent, that browsers step
// through on Ctrl+Plus and Ctrl+Minus.
var zoomLadder = []int{25, 33, 50, 67, 75, 80, 90, 100, 110, 125, 150, 175, 200, 250, 300, 400, 500}

const zoomReset = 7 // index of 100 in zoomLadder

// ZoomIn sends the zoom-in shortcut steps times to the focused window.
func (e *Engine) ZoomIn(ctx context.Context, steps int) error {
	return e.zoom(ctx, "zoom_in", func() ([][]string, error) {
		return repeatChord(e.modifier(), "+", steps), nil
	})
}

// ZoomOut sends the zoom-out shortcut steps times to the focused window.
func (e *Engine) ZoomOut(ctx context.Context, steps int) error {
	return e.zoom(ctx, "zoom_out", func() ([][]string, error) {
		return repeatChord(e.modifier(), "-", steps), nil
	})
}

// SetZoom resets the zoom and steps to the ladder level closest to percent.
func (e *Engine) SetZoom(ctx context.Context, percent int) error {
	return e.zoom(ctx, "set_zoom", func() ([][]string, error) {
		if percent < zoomLadder[0] || percent > zoomLadder[len(zoomLadder)-1] {
			return nil, platform.Errorf(platform.CodeInvalidArgument, "zoom %d%% is outside %d%%..%d%%",
				percent, zoomLadder[0], zoomLadder[len(zoomLadder)-1])
		}
		target := closestZoom(percent)
		mod := e.modifier()
		chords := [][]string{{mod, "0"}}
		switch {
		case target > zoomReset:
			chords = append(chords, repeatChord(mod, "+", target-zoomReset)...)
		case target < zoomReset:
			chords = append(chords, repeatChord(mod, "-", zoomReset-target)...)
		}
		return chords, nil
	})
}

func (e *Engine) zoom(ctx context.Context, action string, plan func() ([][]string, error)) error {
	start := time.Now()
	err := func() error {
		chords, err := plan()
		if err != nil {
			return err
		}
		in, err := e.inputter()
		if err != nil {
			return err
		}
		for _, c := range chords {
			if err := e.pace(ctx, 1); err != nil {
				return err
			}
			c := c
			if err := e.run(ctx, func() error { return in.KeyCombo(c) }); err != nil {
				return err
			}
		}
		return nil
	}()
	e.invalidate()
	e.record(Event{Action: action, Error: errString(err)})
	e.observeAction(action, start, err)
	return err
}

func (e *Engine) modifier() string {
	return e.selectAllChord()[0]
}

func repeatChord(mod, key string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	out := make([][]string, n)
	for i := range out {
		out[i] = []string{mod, key}
	}
	return out
}

func closestZoom(percent int) int {
	best := 0
	for i, z := range zoomLadder {
		if abs(z-percent) < abs(zoomLadder[best]-percent) {
			best = i
		}
	}
	return best
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
