package eink

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/nfnt/resize"
	"github.com/tidbyt/gg"

	"github.com/koios/paperweather/pkg/models"
)

// halfSynodic is the age of the full moon in days.
const halfSynodic = models.SynodicMonth / 2

// moonCanvas is the side of the supersampled drawing canvas.
const moonCanvas = 200

// outlineWidth is the stroke width of the disc outline on the canvas.
const outlineWidth = 2

// MoonDisc draws the moon as seen at the given age (days since new moon),
// scaled to size×size. The result is binary: 0 for outline and shadow,
// 255 for the lit part and the background.
//
// The terminator is an orthographic projection of a sphere: for every
// scanline the shadow reaches R·cos(θ)·sin(α) past the centre, where
// θ = age/14.765·π and α is the scanline's polar angle.
func MoonDisc(age float64, size int) *image.Gray {
	age = math.Mod(age, models.SynodicMonth)
	if age < 0 {
		age += models.SynodicMonth
	}

	const radius = moonCanvas / 2
	dc := gg.NewContext(moonCanvas+2, moonCanvas+2)
	dc.SetColor(color.White)
	dc.Clear()

	dc.SetColor(color.Black)
	dc.SetLineWidth(outlineWidth)
	dc.DrawEllipse(radius+1, radius+1, radius-0.5, radius-0.5)
	dc.Stroke()

	// Shadow rows end exactly on the terminator and the limb.
	dc.SetLineCapButt()

	theta := age / halfSynodic * math.Pi
	for y := -radius; y < radius; y++ {
		alpha := math.Acos(clamp(float64(y)/radius, -1, 1))
		halfWidth := radius * math.Sin(alpha)
		shadow := radius * math.Cos(theta) * math.Sin(alpha)

		var x0, x1 float64
		if age < halfSynodic {
			x0, x1 = radius-halfWidth, radius+shadow
		} else {
			x0, x1 = radius-shadow, radius+halfWidth
		}
		if x1 <= x0 {
			continue
		}
		row := float64(radius + y + 1)
		dc.DrawLine(x0+1, row, x1+1, row)
		dc.Stroke()
	}

	scaled := resize.Resize(uint(size), uint(size), dc.Image(), resize.Lanczos3)
	return threshold(scaled, 128)
}

// Illumination returns the lit fraction of a disc produced by MoonDisc,
// measured inside the outline stroke plus one pixel of resampling margin.
func Illumination(disc *image.Gray) float64 {
	b := disc.Bounds()
	cx := float64(b.Min.X) + float64(b.Dx())/2
	cy := float64(b.Min.Y) + float64(b.Dy())/2
	stroke := outlineWidth * float64(b.Dx()) / (moonCanvas + 2)
	r := float64(b.Dx())/2 - stroke - 1

	var lit, total int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			dx, dy := float64(x)+0.5-cx, float64(y)+0.5-cy
			if dx*dx+dy*dy > r*r {
				continue
			}
			total++
			if disc.GrayAt(x, y).Y >= 128 {
				lit++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(lit) / float64(total)
}

func threshold(src image.Image, level uint8) *image.Gray {
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	for i, v := range gray.Pix {
		if v < level {
			gray.Pix[i] = 0
		} else {
			gray.Pix[i] = 255
		}
	}
	return gray
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
