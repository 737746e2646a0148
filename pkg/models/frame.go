package models

import (
	"fmt"
	"image"
	"image/color"
)

// Ink colors of a three-color panel.
var (
	White = color.RGBA{255, 255, 255, 255}
	Black = color.RGBA{0, 0, 0, 255}
	Red   = color.RGBA{255, 0, 0, 255}
)

// BitPlane is one ink layer. A pixel value of true means "unset" (white),
// false means the ink is applied, matching the panel's 1=white convention.
type BitPlane struct {
	Width  int
	Height int
	bits   []bool
}

// NewBitPlane creates a plane with every pixel unset.
func NewBitPlane(width, height int) *BitPlane {
	bits := make([]bool, width*height)
	for i := range bits {
		bits[i] = true
	}
	return &BitPlane{Width: width, Height: height, bits: bits}
}

// Bounds returns the plane rectangle anchored at the origin.
func (p *BitPlane) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.Width, p.Height)
}

// Inked reports whether ink is applied at (x, y). Out of range is never inked.
func (p *BitPlane) Inked(x, y int) bool {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return false
	}
	return !p.bits[y*p.Width+x]
}

// Ink applies or clears ink at (x, y). Out of range writes are ignored.
func (p *BitPlane) Ink(x, y int, on bool) {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return
	}
	p.bits[y*p.Width+x] = !on
}

// Count returns the number of inked pixels.
func (p *BitPlane) Count() int {
	n := 0
	for _, b := range p.bits {
		if !b {
			n++
		}
	}
	return n
}

// CountIn returns the number of inked pixels inside r.
func (p *BitPlane) CountIn(r image.Rectangle) int {
	r = r.Intersect(p.Bounds())
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if p.Inked(x, y) {
				n++
			}
		}
	}
	return n
}

// Gray renders the plane as an 8-bit image: 255 unset, 0 inked.
func (p *BitPlane) Gray() *image.Gray {
	img := image.NewGray(p.Bounds())
	for i, b := range p.bits {
		if b {
			img.Pix[i] = 255
		}
	}
	return img
}

// Paletted renders the plane as a two-entry paletted image, which the PNG
// encoder writes as a 1-bit file.
func (p *BitPlane) Paletted() *image.Paletted {
	img := image.NewPaletted(p.Bounds(), color.Palette{color.Black, color.White})
	for i, b := range p.bits {
		if b {
			img.Pix[i] = 1
		}
	}
	return img
}

// RenderedFrame is the pair of planes sent to the panel.
type RenderedFrame struct {
	Black *BitPlane
	Red   *BitPlane
}

// NewFrame creates an all-white frame.
func NewFrame(width, height int) *RenderedFrame {
	return &RenderedFrame{
		Black: NewBitPlane(width, height),
		Red:   NewBitPlane(width, height),
	}
}

// Validate checks plane dimensions and that no pixel carries both inks.
func (f *RenderedFrame) Validate() error {
	if f.Black == nil || f.Red == nil {
		return fmt.Errorf("frame is missing a plane")
	}
	if f.Black.Width != f.Red.Width || f.Black.Height != f.Red.Height {
		return fmt.Errorf("plane size mismatch: black %dx%d, red %dx%d",
			f.Black.Width, f.Black.Height, f.Red.Width, f.Red.Height)
	}
	for i := range f.Black.bits {
		if !f.Black.bits[i] && !f.Red.bits[i] {
			return fmt.Errorf("pixel (%d,%d) is inked on both planes", i%f.Black.Width, i/f.Black.Width)
		}
	}
	return nil
}

// ColorAt resolves the printed color of a pixel: black wins, then red.
func (f *RenderedFrame) ColorAt(x, y int) color.RGBA {
	switch {
	case f.Black.Inked(x, y):
		return Black
	case f.Red.Inked(x, y):
		return Red
	default:
		return White
	}
}

// Preview composites both planes into an RGB image.
func (f *RenderedFrame) Preview() *image.RGBA {
	img := image.NewRGBA(f.Black.Bounds())
	for y := 0; y < f.Black.Height; y++ {
		for x := 0; x < f.Black.Width; x++ {
			img.SetRGBA(x, y, f.ColorAt(x, y))
		}
	}
	return img
}

// ResolveOverlap clears red ink wherever black ink is also applied, which is
// the color the panel would print anyway.
func (f *RenderedFrame) ResolveOverlap() {
	for i := range f.Black.bits {
		if !f.Black.bits[i] {
			f.Red.bits[i] = true
		}
	}
}
