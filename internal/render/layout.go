package render

import "image"

// Reference canvas the layout coordinates are written for.
const (
	baseWidth  = 800
	baseHeight = 480
)

// Layout places screen regions on a canvas, scaling the 800×480 reference
// coordinates to the configured size.
type Layout struct {
	Width  int
	Height int
	sx, sy float64
}

// NewLayout returns the layout for a width×height canvas.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:  width,
		Height: height,
		sx:     float64(width) / baseWidth,
		sy:     float64(height) / baseHeight,
	}
}

// At scales a reference coordinate.
func (l Layout) At(x, y int) image.Point {
	return image.Pt(int(float64(x)*l.sx+0.5), int(float64(y)*l.sy+0.5))
}

// Size scales a square artwork side, keeping the aspect ratio.
func (l Layout) Size(n int) int {
	s := min(l.sx, l.sy)
	return max(1, int(float64(n)*s+0.5))
}

// Header.
func (l Layout) Date() image.Point { return l.At(20, 15) }
func (l Layout) Time() image.Point { return l.At(20, 50) }

// Current conditions.
func (l Layout) CurrentIcon() (image.Point, int) { return l.At(20, 100), l.Size(150) }
func (l Layout) Temperature() image.Point        { return l.At(180, 110) }
func (l Layout) Description() image.Point        { return l.At(180, 210) }

// Sun and moon panel, anchored at (450, 20).
const panelX, panelY = 450, 20

func (l Layout) SunriseLabel() image.Point { return l.At(panelX, panelY+10) }
func (l Layout) Sunrise() image.Point      { return l.At(panelX, panelY+30) }
func (l Layout) SunsetLabel() image.Point  { return l.At(panelX+80, panelY+10) }
func (l Layout) Sunset() image.Point       { return l.At(panelX+80, panelY+30) }
func (l Layout) Moon() (image.Point, int)  { return l.At(panelX+200, panelY+10), l.Size(100) }
func (l Layout) MoonLabel() image.Point    { return l.At(panelX+200, panelY+110) }

// Stat returns the position of the i-th stats line.
func (l Layout) Stat(i int) image.Point { return l.At(450, 150+35*i) }

// Separator returns the endpoints of the horizontal rule and its width.
func (l Layout) Separator() (image.Point, image.Point, float64) {
	return l.At(20, 320), l.At(baseWidth-20, 320), 3 * l.sy
}

const forecastY = 340

// forecastX is the left edge of forecast column i in reference coordinates.
func (l Layout) forecastX(i int) int {
	colWidth := (baseWidth - 40) / ForecastDays
	return 20 + i*colWidth
}

func (l Layout) ForecastDay(i int) image.Point { return l.At(l.forecastX(i)+10, forecastY) }
func (l Layout) ForecastIcon(i int) (image.Point, int) {
	return l.At(l.forecastX(i)+10, forecastY+30), l.Size(60)
}
func (l Layout) ForecastMax(i int) image.Point { return l.At(l.forecastX(i)+10, forecastY+100) }
func (l Layout) ForecastMin(i int) image.Point { return l.At(l.forecastX(i)+80, forecastY+100) }

// Placeholder is where the no-data message is written.
func (l Layout) Placeholder() image.Point { return l.At(10, 10) }
