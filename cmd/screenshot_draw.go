package cmd

import (
	"fmt"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mj1618/desktop-automation/internal/model"
)

// LabelMode controls what text is drawn on each annotated element.
type LabelMode int

const (
	// LabelCoords draws "(x,y)" screen-absolute center coordinates.
	LabelCoords LabelMode = iota
	// LabelNames draws "Role|Name", the shorthand selector of the element.
	LabelNames
)

// ParseLabelMode converts a flag value.
func ParseLabelMode(s string) (LabelMode, error) {
	switch s {
	case "", "coords":
		return LabelCoords, nil
	case "names":
		return LabelNames, nil
	}
	return LabelCoords, fmt.Errorf("unknown label mode %q (use coords or names)", s)
}

var (
	boxColor     = color.RGBA{R: 255, G: 0, B: 0, A: 160}
	textColor    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 0, B: 0, A: 200}
)

// maxLabel bounds a label in characters of the 7x13 face.
const maxLabel = 32

// annotateTree draws the interactive nodes of tree onto img. origin is the
// screen position of the image's top-left pixel; scale converts screen
// points to image pixels.
func annotateTree(img *image.RGBA, tree *model.Node, origin image.Point, scale float64, mode LabelMode) int {
	drawn := 0
	tree.Walk(func(n *model.Node) bool {
		if n.Bounds == nil || n.Bounds.W <= 0 || n.Bounds.H <= 0 || !model.IsInteractive(n.Role) {
			return true
		}
		if n.Visible != nil && !*n.Visible {
			return true
		}
		drawNodeBox(img, n, origin, scale, mode)
		drawn++
		return true
	})
	return drawn
}

func drawNodeBox(img *image.RGBA, n *model.Node, origin image.Point, scale float64, mode LabelMode) {
	b := n.Bounds
	// Screen points to image pixels.
	x := int(float64(b.X-origin.X) * scale)
	y := int(float64(b.Y-origin.Y) * scale)
	w := int(float64(b.W) * scale)
	h := int(float64(b.H) * scale)

	drawRectangle(img, x, y, x+w, y+h, boxColor)

	var label string
	switch mode {
	case LabelNames:
		label = n.Role
		if n.Name != "" {
			label += "|" + n.Name
		}
	default:
		label = fmt.Sprintf("(%d,%d)", b.X+b.W/2, b.Y+b.H/2)
	}
	if r := []rune(label); len(r) > maxLabel {
		label = string(r[:maxLabel-1]) + "…"
	}
	drawTextWithOutline(img, label, x+w/2, y+h/2, textColor, outlineColor)
}

// scaleImage resizes img by factor with bilinear filtering. Factors outside
// (0, 1) return img unchanged.
func scaleImage(img *image.RGBA, factor float64) *image.RGBA {
	if factor <= 0 || factor >= 1 {
		return img
	}
	b := img.Bounds()
	w := max(1, int(float64(b.Dx())*factor))
	h := max(1, int(float64(b.Dy())*factor))
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// drawRectangle draws a rectangle outline clamped to the image.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	bounds := img.Bounds()
	x1, y1 = max(x1, bounds.Min.X), max(y1, bounds.Min.Y)
	x2, y2 = min(x2, bounds.Max.X), min(y2, bounds.Max.Y)
	if x2 <= x1 || y2 <= y1 {
		return
	}
	for x := x1; x < x2; x++ {
		img.Set(x, y1, c)
		img.Set(x, y2-1, c)
	}
	for y := y1; y < y2; y++ {
		img.Set(x1, y, c)
		img.Set(x2-1, y, c)
	}
}

// drawTextWithOutline draws text centred on (x, y) with a one-pixel outline.
func drawTextWithOutline(img *image.RGBA, text string, x, y int, fg, outline color.Color) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	ox := x - width/2
	oy := y + face.Ascent/2

	d := &font.Drawer{Dst: img, Face: face, Src: image.NewUniform(outline)}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			d.Dot = fixed.P(ox+dx, oy+dy)
			d.DrawString(text)
		}
	}
	d.Src = image.NewUniform(fg)
	d.Dot = fixed.P(ox, oy)
	d.DrawString(text)
}
