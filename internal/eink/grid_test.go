package eink

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreviewGrid(t *testing.T) {
	imgs := []image.Image{
		uniform(20, 10, color.Black),
		uniform(10, 30, color.Black),
		uniform(20, 20, color.Black),
		uniform(20, 20, color.Black),
		uniform(20, 20, color.Black),
	}

	grid := PreviewGrid(imgs)

	// 4 columns, 2 rows of 20x30 cells with 10px padding.
	assert.Equal(t, 4*20+5*10, grid.Bounds().Dx())
	assert.Equal(t, 2*30+3*10, grid.Bounds().Dy())

	assert.Equal(t, gridBackground, grid.RGBAAt(0, 0))
	// First image is vertically centred in its 30px cell.
	assert.Equal(t, gridBackground, grid.RGBAAt(15, 12))
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, grid.RGBAAt(15, 22))
}

func TestPreviewGrid_Empty(t *testing.T) {
	assert.True(t, PreviewGrid(nil).Bounds().Empty())
}
