package linux

import (
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/jezek/xgb/xproto"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mj1618/desktop-automation/internal/platform"
)

const (
	borderWidth  = 3
	labelPadding = 3
)

// overlay is a set of override-redirect windows: four border strips and an
// optional text label.
type overlay struct {
	d       *display
	windows []xproto.Window
	once    sync.Once
}

// Close implements platform.Overlay.
func (o *overlay) Close() error {
	o.once.Do(func() {
		for _, w := range o.windows {
			xproto.DestroyWindow(o.d.conn, w)
		}
		o.d.conn.Sync()
	})
	return nil
}

func pixel(c color.RGBA) uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// borderStrips returns the four rectangles framing b from outside.
func borderStrips(b platform.Bounds, w int) []platform.Bounds {
	return []platform.Bounds{
		{X: b.X - w, Y: b.Y - w, Width: b.Width + 2*w, Height: w},
		{X: b.X - w, Y: b.Y + b.Height, Width: b.Width + 2*w, Height: w},
		{X: b.X - w, Y: b.Y, Width: w, Height: b.Height},
		{X: b.X + b.Width, Y: b.Y, Width: w, Height: b.Height},
	}
}

// labelOrigin places a w x h label around b.
func labelOrigin(b platform.Bounds, pos platform.TextPosition, w, h int) (int, int) {
	gap := borderWidth + 2
	left, right := b.X, b.X+b.Width-w
	top, bottom := b.Y-h-gap, b.Y+b.Height+gap
	midX, midY := b.X+(b.Width-w)/2, b.Y+(b.Height-h)/2
	switch pos {
	case platform.TextTopRight:
		return right, top
	case platform.TextRight:
		return b.X + b.Width + gap, midY
	case platform.TextBottomRight:
		return right, bottom
	case platform.TextBottom:
		return midX, bottom
	case platform.TextBottomLeft:
		return left, bottom
	case platform.TextLeft:
		return b.X - w - gap, midY
	case platform.TextTopLeft:
		return left, top
	case platform.TextInside:
		return midX, midY
	default:
		return midX, top
	}
}

func (d *display) createOverlayWindow(r platform.Bounds, bg uint32) (xproto.Window, error) {
	wid, err := xproto.NewWindowId(d.conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateWindowChecked(d.conn, d.screen.RootDepth, wid, d.root(),
		int16(r.X), int16(r.Y), uint16(max(r.Width, 1)), uint16(max(r.Height, 1)), 0,
		xproto.WindowClassInputOutput, d.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect, []uint32{bg, 1}).Check()
	if err != nil {
		return 0, err
	}
	xproto.MapWindow(d.conn, wid)
	return wid, nil
}

// renderLabel draws text with the built-in bitmap face and returns the
// pixels as BGRX rows ready for PutImage.
func renderLabel(text string, fg, bg color.RGBA) (data []byte, w, h int) {
	face := basicfont.Face7x13
	dr := &font.Drawer{Face: face}
	w = dr.MeasureString(text).Ceil() + 2*labelPadding
	h = face.Metrics().Height.Ceil() + 2*labelPadding
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	dr.Dst = img
	dr.Src = image.NewUniform(fg)
	dr.Dot = fixed.P(labelPadding, labelPadding+face.Metrics().Ascent.Ceil())
	dr.DrawString(text)

	data = make([]byte, w*h*4)
	for i := 0; i < w*h; i++ {
		data[i*4] = img.Pix[i*4+2]
		data[i*4+1] = img.Pix[i*4+1]
		data[i*4+2] = img.Pix[i*4]
	}
	return data, w, h
}

// Highlight implements platform.Highlighter.
func (d *display) Highlight(opts platform.HighlightOptions) (platform.Overlay, error) {
	o := &overlay{d: d}
	fail := func(err error) (platform.Overlay, error) {
		_ = o.Close()
		return nil, platform.NewPlatformError("highlight", "cannot create overlay window").WithCause(err)
	}
	for _, strip := range borderStrips(opts.Bounds, borderWidth) {
		w, err := d.createOverlayWindow(strip, pixel(opts.Color))
		if err != nil {
			return fail(err)
		}
		o.windows = append(o.windows, w)
	}

	if opts.Text != "" {
		fg := opts.Font.Color
		if fg.A == 0 {
			fg = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
		}
		data, lw, lh := renderLabel(opts.Text, fg, opts.Color)
		x, y := labelOrigin(opts.Bounds, opts.Position, lw, lh)
		w, err := d.createOverlayWindow(platform.Bounds{X: x, Y: y, Width: lw, Height: lh}, pixel(opts.Color))
		if err != nil {
			return fail(err)
		}
		o.windows = append(o.windows, w)
		gc, err := xproto.NewGcontextId(d.conn)
		if err != nil {
			return fail(err)
		}
		xproto.CreateGC(d.conn, gc, xproto.Drawable(w), 0, nil)
		err = xproto.PutImageChecked(d.conn, xproto.ImageFormatZPixmap, xproto.Drawable(w), gc,
			uint16(lw), uint16(lh), 0, 0, 0, d.screen.RootDepth, data).Check()
		xproto.FreeGC(d.conn, gc)
		if err != nil {
			return fail(err)
		}
	}
	d.conn.Sync()
	return o, nil
}
