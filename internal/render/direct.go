package render

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/tidbyt/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font"

	"github.com/koios/paperweather/internal/eink"
	"github.com/koios/paperweather/internal/i18n"
	"github.com/koios/paperweather/pkg/models"
)

// IconResolver returns panel-ready artwork for a condition code.
type IconResolver interface {
	Resolve(ctx context.Context, code string, size int) (image.Image, error)
}

// Options configures a renderer.
type Options struct {
	Width  int
	Height int
	Units  string
}

// Renderer draws the screen directly onto the two planes.
type Renderer struct {
	opts   Options
	layout Layout
	fonts  *Fonts
	tr     *i18n.Translator
	icons  IconResolver
	logger *zap.Logger
}

// NewRenderer creates a direct-draw renderer. icons may be nil, in which
// case no artwork is drawn.
func NewRenderer(opts Options, fonts *Fonts, tr *i18n.Translator, icons IconResolver, logger *zap.Logger) *Renderer {
	return &Renderer{
		opts:   opts,
		layout: NewLayout(opts.Width, opts.Height),
		fonts:  fonts,
		tr:     tr,
		icons:  icons,
		logger: logger,
	}
}

// Name identifies the backend in logs and configuration.
func (r *Renderer) Name() string {
	return "direct"
}

// Render composes snap into a frame.
func (r *Renderer) Render(ctx context.Context, snap *models.WeatherSnapshot) (*models.RenderedFrame, error) {
	if snap == nil {
		return Placeholder(r.layout, r.fonts, r.tr), nil
	}
	if r.opts.Width <= 0 || r.opts.Height <= 0 {
		return nil, fmt.Errorf("invalid canvas %dx%d", r.opts.Width, r.opts.Height)
	}

	content := BuildContent(snap, r.tr, r.opts.Units)
	l := r.layout

	black := newSurface(l.Width, l.Height)
	red := newSurface(l.Width, l.Height)

	drawText(black, r.fonts.Face(Medium), content.Date, l.Date())
	drawText(black, r.fonts.Face(Large), content.Time, l.Time())

	drawText(black, r.fonts.Face(Huge), content.Temperature, l.Temperature())
	drawText(black, r.fonts.Face(Medium), content.Description, l.Description())

	drawText(black, r.fonts.Face(Small), content.SunriseLabel, l.SunriseLabel())
	drawText(black, r.fonts.Face(Medium), content.Sunrise, l.Sunrise())
	drawText(black, r.fonts.Face(Small), content.SunsetLabel, l.SunsetLabel())
	drawText(black, r.fonts.Face(Medium), content.Sunset, l.Sunset())
	drawText(black, r.fonts.Face(Small), content.MoonLabel, l.MoonLabel())

	for i, line := range content.Stats {
		drawText(black, r.fonts.Face(Medium), line, l.Stat(i))
	}

	from, to, width := l.Separator()
	black.SetLineWidth(width)
	black.DrawLine(float64(from.X), float64(from.Y)+0.5, float64(to.X), float64(to.Y)+0.5)
	black.Stroke()

	for i, col := range content.Forecast {
		drawText(black, r.fonts.Face(Medium), col.Day, l.ForecastDay(i))
		drawText(red, r.fonts.Face(Medium), col.Max, l.ForecastMax(i))
		drawText(black, r.fonts.Face(Medium), col.Min, l.ForecastMin(i))
	}

	frame := models.NewFrame(l.Width, l.Height)
	planeFrom(black.Image(), frame.Black)
	planeFrom(red.Image(), frame.Red)

	if pt, size := l.CurrentIcon(); content.Icon != "" {
		r.pasteIcon(ctx, frame, content.Icon, size, pt)
	}
	for i, col := range content.Forecast {
		if col.Icon == "" {
			continue
		}
		pt, size := l.ForecastIcon(i)
		r.pasteIcon(ctx, frame, col.Icon, size, pt)
	}

	pt, size := l.Moon()
	paste(frame, eink.MoonDisc(content.MoonAge, size), pt)

	frame.ResolveOverlap()
	return frame, nil
}

// pasteIcon draws an icon if it can be resolved; a missing icon leaves its
// area blank.
func (r *Renderer) pasteIcon(ctx context.Context, frame *models.RenderedFrame, code string, size int, pt image.Point) {
	if r.icons == nil {
		return
	}
	img, err := r.icons.Resolve(ctx, code, size)
	if err != nil {
		r.logger.Warn("Icon unavailable, leaving area blank",
			zap.String("code", code),
			zap.Int("size", size),
			zap.Error(err))
		return
	}
	paste(frame, img, pt)
}

// Placeholder is the fixed frame shown when there is no weather data.
func Placeholder(l Layout, fonts *Fonts, tr *i18n.Translator) *models.RenderedFrame {
	dc := newSurface(l.Width, l.Height)
	drawText(dc, fonts.Face(Medium), tr.T("No Weather Data Available"), l.Placeholder())

	frame := models.NewFrame(l.Width, l.Height)
	planeFrom(dc.Image(), frame.Black)
	return frame
}

func newSurface(width, height int) *gg.Context {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	return dc
}

// drawText writes s with its top-left corner at pt.
func drawText(dc *gg.Context, face font.Face, s string, pt image.Point) {
	if s == "" {
		return
	}
	dc.SetFontFace(face)
	ascent := face.Metrics().Ascent.Ceil()
	dc.DrawString(s, float64(pt.X), float64(pt.Y+ascent))
}
