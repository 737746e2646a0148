// Package eink turns full-color artwork into images a black/white/red
// e-paper panel can print, and draws the procedural moon-phase disc.
package eink

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/nfnt/resize"
)

// Palette is the set of colors every converted image is restricted to.
// Index 0 is the background.
var Palette = color.Palette{
	color.RGBA{255, 255, 255, 255},
	color.RGBA{0, 0, 0, 255},
	color.RGBA{255, 0, 0, 255},
}

const (
	indexWhite uint8 = iota
	indexBlack
	indexRed
)

// opaqueAlpha is the alpha value from which a pixel counts as drawn.
const opaqueAlpha = 128

// Options controls the classification thresholds of the converter.
type Options struct {
	// RedHueMin and RedHueMax bound the hue range, in degrees, treated as red.
	// The range is mirrored below 360 so that [0,30] also matches [330,360].
	RedHueMin float64
	RedHueMax float64
	// RedSaturationMin is the minimum saturation (0-255) of a red pixel.
	RedSaturationMin float64
	// ValueMin is the brightness floor (0-255) of a red pixel.
	ValueMin float64
	// DarkThreshold is the luminance below which a pixel is black.
	DarkThreshold int
	// OutlineWidth is the border, in pixels, drawn around light content.
	OutlineWidth int
	// AntiAlias classifies on a 2x Lanczos upscale of the input.
	AntiAlias bool
}

// DefaultOptions returns the thresholds tuned for weather icon artwork.
func DefaultOptions() Options {
	return Options{
		RedHueMin:        0,
		RedHueMax:        30,
		RedSaturationMin: 50,
		ValueMin:         50,
		DarkThreshold:    128,
		OutlineWidth:     2,
		AntiAlias:        true,
	}
}

// Converter reduces images to the three-color panel palette.
type Converter struct {
	opts Options
}

// NewConverter creates a converter with the given options.
func NewConverter(opts Options) *Converter {
	return &Converter{opts: opts}
}

// Options returns the converter configuration.
func (c *Converter) Options() Options {
	return c.opts
}

// HSV converts 8-bit RGB into hue in degrees plus saturation and value on
// a 0-255 scale.
func HSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
	maxV := max(rf, gf, bf)
	minV := min(rf, gf, bf)
	diff := maxV - minV

	switch {
	case diff == 0:
		h = 0
	case maxV == rf:
		h = mod360(60*((gf-bf)/diff) + 360)
	case maxV == gf:
		h = mod360(60*((bf-rf)/diff) + 120)
	default:
		h = mod360(60*((rf-gf)/diff) + 240)
	}

	if maxV > 0 {
		s = diff / maxV * 255
	}
	v = maxV * 255
	return h, s, v
}

func mod360(h float64) float64 {
	for h >= 360 {
		h -= 360
	}
	for h < 0 {
		h += 360
	}
	return h
}

// Luminance returns the perceptual brightness of an 8-bit RGB triple.
func Luminance(r, g, b uint8) int {
	return int(0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b))
}

// IsRed reports whether the color falls into the configured red class.
func (c *Converter) IsRed(r, g, b uint8) bool {
	h, s, v := HSV(r, g, b)
	return c.inHueRange(h) && s >= c.opts.RedSaturationMin && v >= c.opts.ValueMin
}

func (c *Converter) inHueRange(h float64) bool {
	lo, hi := c.opts.RedHueMin, c.opts.RedHueMax
	if h >= lo && h <= hi {
		return true
	}
	if hi > 360 {
		return h <= hi-360
	}
	return h >= 360-hi && h <= 360
}

// Convert classifies every pixel of src and returns a paletted image using
// only Palette colors. Transparent pixels become white background.
//
// With AntiAlias each pixel takes the majority class of its 2×2 block in
// the upscaled classification; ties keep the class found at the original
// resolution. Input already made of opaque Palette colors is returned as
// classified at the original resolution, so converting it again is a no-op.
func (c *Converter) Convert(src image.Image) *image.Paletted {
	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return image.NewPaletted(image.Rect(0, 0, width, height), Palette)
	}

	work := toNRGBA(src)
	base := c.classify(work)
	if !c.opts.AntiAlias || paletteOnly(work) {
		return base
	}

	up := toNRGBA(resize.Resize(uint(width*2), uint(height*2), work, resize.Lanczos3))
	return downsample(c.classify(up), base)
}

// paletteOnly reports whether every pixel is an opaque Palette color.
func paletteOnly(img *image.NRGBA) bool {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			if row[i+3] != 255 {
				return false
			}
			rgb := [3]uint8{row[i], row[i+1], row[i+2]}
			if rgb != [3]uint8{255, 255, 255} && rgb != [3]uint8{0, 0, 0} && rgb != [3]uint8{255, 0, 0} {
				return false
			}
		}
	}
	return true
}

// downsample reduces hi (twice the size of base) by 2×2 majority vote.
func downsample(hi, base *image.Paletted) *image.Paletted {
	w, h := base.Rect.Dx(), base.Rect.Dy()
	out := image.NewPaletted(base.Rect, Palette)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var votes [3]int
			for _, d := range [4]image.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
				votes[hi.Pix[(2*y+d.Y)*hi.Stride+2*x+d.X]]++
			}
			k := y*out.Stride + x
			out.Pix[k] = base.Pix[y*base.Stride+x]
			best, tied := uint8(0), false
			for i := uint8(1); i < 3; i++ {
				switch {
				case votes[i] > votes[best]:
					best, tied = i, false
				case votes[i] == votes[best]:
					tied = true
				}
			}
			if !tied {
				out.Pix[k] = best
			}
		}
	}
	return out
}

func (c *Converter) classify(img *image.NRGBA) *image.Paletted {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	red := make([]bool, w*h)
	black := make([]bool, w*h)
	content := make([]bool, w*h)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			r, g, b, a := img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]
			if a < opaqueAlpha {
				continue
			}
			k := y*w + x
			switch {
			case c.IsRed(r, g, b):
				red[k] = true
			case Luminance(r, g, b) < c.opts.DarkThreshold:
				black[k] = true
			default:
				content[k] = true
			}
		}
	}

	outline := Outline(content, w, h, c.opts.OutlineWidth)

	out := image.NewPaletted(image.Rect(0, 0, w, h), Palette)
	for k := range out.Pix {
		switch {
		case red[k]:
			out.Pix[k] = indexRed
		case black[k] || outline[k]:
			out.Pix[k] = indexBlack
		default:
			out.Pix[k] = indexWhite
		}
	}
	return out
}

// Outline returns the pixels gained by dilating mask with a square
// structuring element of side 2*width+1, excluding the mask itself.
func Outline(mask []bool, w, h, width int) []bool {
	out := make([]bool, len(mask))
	if width <= 0 {
		return out
	}
	dilated := dilate(mask, w, h, width)
	for k := range mask {
		out[k] = dilated[k] && !mask[k]
	}
	return out
}

// dilate is a separable max filter: a horizontal pass then a vertical one.
func dilate(mask []bool, w, h, radius int) []bool {
	horiz := make([]bool, len(mask))
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			for dx := max(0, x-radius); dx <= min(w-1, x+radius); dx++ {
				if mask[row+dx] {
					horiz[row+x] = true
					break
				}
			}
		}
	}

	out := make([]bool, len(mask))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			for dy := max(0, y-radius); dy <= min(h-1, y+radius); dy++ {
				if horiz[dy*w+x] {
					out[y*w+x] = true
					break
				}
			}
		}
	}
	return out
}

// ConvertFile reads an image file, converts it and writes a PNG to outPath.
func (c *Converter) ConvertFile(inPath, outPath string) (*image.Paletted, error) {
	src, err := decodeFile(inPath)
	if err != nil {
		return nil, err
	}

	out := c.Convert(src)
	if err := WritePNG(outPath, out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
