package cmd

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mj1618/desktop-automation/internal/model"
)

func TestParseLabelMode(t *testing.T) {
	m, err := ParseLabelMode("")
	require.NoError(t, err)
	assert.Equal(t, LabelCoords, m)
	m, err = ParseLabelMode("names")
	require.NoError(t, err)
	assert.Equal(t, LabelNames, m)
	_, err = ParseLabelMode("ids")
	assert.Error(t, err)
}

func TestAnnotateTree(t *testing.T) {
	tree := &model.Node{
		Role:   model.RoleWindow,
		Bounds: &model.Rect{X: 100, Y: 100, W: 200, H: 200},
		Children: []model.Node{
			{Role: model.RoleButton, Name: "OK", Bounds: &model.Rect{X: 110, Y: 120, W: 60, H: 30}},
			{Role: model.RoleButton, Name: "Hidden", Bounds: &model.Rect{X: 110, Y: 160, W: 60, H: 30}, Visible: model.BoolPtr(false)},
			{Role: model.RoleText, Name: "Label", Bounds: &model.Rect{X: 110, Y: 200, W: 60, H: 30}},
			{Role: model.RoleButton, Name: "NoBounds"},
		},
	}

	t.Run("points", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 200, 200))
		n := annotateTree(img, tree, image.Pt(100, 100), 1, LabelCoords)
		assert.Equal(t, 1, n)
		assert.Equal(t, boxColor, img.RGBAAt(10, 20), "top-left corner of OK")
		assert.Equal(t, boxColor, img.RGBAAt(69, 49), "bottom-right corner of OK")
		assert.Zero(t, img.RGBAAt(10, 60).A, "hidden button left alone")
	})

	t.Run("hidpi", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 400, 400))
		n := annotateTree(img, tree, image.Pt(100, 100), 2, LabelNames)
		assert.Equal(t, 1, n)
		assert.Equal(t, boxColor, img.RGBAAt(20, 40))
	})
}

func TestScaleImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 50))
	assert.Same(t, img, scaleImage(img, 1))
	assert.Same(t, img, scaleImage(img, 0))
	small := scaleImage(img, 0.5)
	assert.Equal(t, image.Rect(0, 0, 50, 25), small.Bounds())
}

func TestDrawRectangle_Clamped(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	drawRectangle(img, -5, -5, 20, 20, boxColor)
	assert.Equal(t, boxColor, img.RGBAAt(0, 0))
	assert.Equal(t, boxColor, img.RGBAAt(9, 9))
	assert.Zero(t, img.RGBAAt(5, 5).A)
}
