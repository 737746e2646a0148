package eink

import (
	"image"
	"image/color"
	"image/draw"
)

const (
	gridMaxCols = 4
	gridPadding = 10
)

var gridBackground = color.RGBA{240, 240, 240, 255}

// PreviewGrid lays images out on a grid of at most four columns, each
// centred in a cell the size of the largest image.
func PreviewGrid(images []image.Image) *image.RGBA {
	if len(images) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}

	cols := min(gridMaxCols, len(images))
	rows := (len(images) + cols - 1) / cols

	var cellW, cellH int
	for _, img := range images {
		cellW = max(cellW, img.Bounds().Dx())
		cellH = max(cellH, img.Bounds().Dy())
	}

	width := cols*cellW + (cols+1)*gridPadding
	height := rows*cellH + (rows+1)*gridPadding
	grid := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(grid, grid.Bounds(), &image.Uniform{gridBackground}, image.Point{}, draw.Src)

	for i, img := range images {
		row, col := i/cols, i%cols
		b := img.Bounds()
		x := col*cellW + (col+1)*gridPadding + (cellW-b.Dx())/2
		y := row*cellH + (row+1)*gridPadding + (cellH-b.Dy())/2
		draw.Draw(grid, image.Rect(x, y, x+b.Dx(), y+b.Dy()), img, b.Min, draw.Over)
	}
	return grid
}
