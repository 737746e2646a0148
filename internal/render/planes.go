package render

import (
	"image"
	"image/color"

	"github.com/koios/paperweather/pkg/models"
)

type ink int

const (
	inkNone ink = iota
	inkBlack
	inkRed
)

// classify maps a color onto the panel inks: strong red first, then dark
// luminance, otherwise white.
func classify(c color.Color) ink {
	r16, g16, b16, _ := c.RGBA()
	r, g, b := r16>>8, g16>>8, b16>>8
	if r > 180 && g < 100 && b < 100 {
		return inkRed
	}
	if 0.299*float64(r)+0.587*float64(g)+0.114*float64(b) < 128 {
		return inkBlack
	}
	return inkNone
}

// Reduce turns a rendered raster into a frame of width×height. Pixels
// outside the raster stay white.
func Reduce(img image.Image, width, height int) *models.RenderedFrame {
	frame := models.NewFrame(width, height)
	b := img.Bounds()
	for y := 0; y < height && y < b.Dy(); y++ {
		for x := 0; x < width && x < b.Dx(); x++ {
			switch classify(img.At(b.Min.X+x, b.Min.Y+y)) {
			case inkBlack:
				frame.Black.Ink(x, y, true)
			case inkRed:
				frame.Red.Ink(x, y, true)
			}
		}
	}
	return frame
}

// paste copies img into frame with its top-left corner at pt. Opaque pixels
// replace whatever both planes held; transparent pixels are skipped.
func paste(frame *models.RenderedFrame, img image.Image, pt image.Point) {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			if _, _, _, a := c.RGBA(); a < 0x8000 {
				continue
			}
			px, py := pt.X+x-b.Min.X, pt.Y+y-b.Min.Y
			k := classify(c)
			frame.Black.Ink(px, py, k == inkBlack)
			frame.Red.Ink(px, py, k == inkRed)
		}
	}
}

// planeFrom thresholds a grayscale drawing surface into a bit-plane.
func planeFrom(img image.Image, plane *models.BitPlane) {
	b := img.Bounds()
	for y := 0; y < plane.Height && y < b.Dy(); y++ {
		for x := 0; x < plane.Width && x < b.Dx(); x++ {
			r16, g16, b16, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			lum := 0.299*float64(r16>>8) + 0.587*float64(g16>>8) + 0.114*float64(b16>>8)
			if lum < 128 {
				plane.Ink(x, y, true)
			}
		}
	}
}
