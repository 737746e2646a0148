package eink

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func litCount(disc *image.Gray, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if disc.GrayAt(x, y).Y >= 128 {
				n++
			}
		}
	}
	return n
}

func TestMoonDisc_Size(t *testing.T) {
	disc := MoonDisc(3, 64)
	assert.Equal(t, image.Rect(0, 0, 64, 64), disc.Bounds())
	for _, v := range disc.Pix {
		assert.Contains(t, []uint8{0, 255}, v)
	}
}

func TestMoonDisc_Phases(t *testing.T) {
	cases := []struct {
		name string
		age  float64
		want float64
	}{
		{"new", 0, 0},
		{"first quarter", 7.38, 0.5},
		{"full", 14.765, 1},
		{"last quarter", 22.15, 0.5},
		{"next new", 29.52, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Illumination(MoonDisc(tc.age, 100))
			assert.InDelta(t, tc.want, got, 0.06, "age %.2f", tc.age)
		})
	}
}

func TestMoonDisc_CrescentFollowsGeometry(t *testing.T) {
	for _, age := range []float64{3, 29.53 - 3} {
		theta := age / 14.765 * math.Pi
		want := (1 - math.Cos(theta)) / 2
		got := Illumination(MoonDisc(age, 100))
		assert.InDelta(t, want, got, 0.035, "age %.2f", age)
	}

	waxing := Illumination(MoonDisc(3, 100))
	waning := Illumination(MoonDisc(29.53-3, 100))
	assert.InDelta(t, waxing, waning, 0.02, "crescents of equal age mirror each other")
}

func TestMoonDisc_WaxingAndWaningMirror(t *testing.T) {
	left := image.Rect(10, 10, 50, 90)
	right := image.Rect(50, 10, 90, 90)

	waxing := MoonDisc(7.38, 100)
	waning := MoonDisc(22.15, 100)

	// Waxing: lit limb on the right. Waning: lit limb on the left.
	assert.Greater(t, litCount(waxing, right), litCount(waxing, left)*3)
	assert.Greater(t, litCount(waning, left), litCount(waning, right)*3)
}

func TestMoonDisc_AgeWraps(t *testing.T) {
	a := MoonDisc(3, 50)
	b := MoonDisc(3+29.53, 50)
	c := MoonDisc(3-29.53, 50)
	assert.Equal(t, a.Pix, b.Pix)
	assert.Equal(t, a.Pix, c.Pix)
}

func TestIllumination_Blank(t *testing.T) {
	white := image.NewGray(image.Rect(0, 0, 20, 20))
	for i := range white.Pix {
		white.Pix[i] = 255
	}
	assert.Equal(t, 1.0, Illumination(white))

	black := image.NewGray(image.Rect(0, 0, 20, 20))
	black.SetGray(10, 10, color.Gray{Y: 0})
	assert.Equal(t, 0.0, Illumination(black))
}
