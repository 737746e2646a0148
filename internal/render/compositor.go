package render

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/i18n"
	"github.com/koios/paperweather/pkg/models"
)

// Backend turns a snapshot into a frame.
type Backend interface {
	Name() string
	Render(ctx context.Context, snap *models.WeatherSnapshot) (*models.RenderedFrame, error)
}

// Compositor tries its backends in order and returns the first valid frame.
// When every backend fails, or there is no snapshot, it returns the
// placeholder frame. It never fails.
type Compositor struct {
	backends []Backend
	layout   Layout
	fonts    *Fonts
	tr       *i18n.Translator
	logger   *zap.Logger
}

// NewCompositor creates a compositor for a width×height panel.
func NewCompositor(width, height int, backends []Backend, fonts *Fonts, tr *i18n.Translator, logger *zap.Logger) *Compositor {
	return &Compositor{
		backends: backends,
		layout:   NewLayout(width, height),
		fonts:    fonts,
		tr:       tr,
		logger:   logger,
	}
}

// Render composes snap with the first backend that succeeds.
func (c *Compositor) Render(ctx context.Context, snap *models.WeatherSnapshot) *models.RenderedFrame {
	if snap == nil {
		c.logger.Warn("No weather data, rendering placeholder")
		return c.Placeholder()
	}

	var errs error
	for _, b := range c.backends {
		frame, err := b.Render(ctx, snap)
		if err == nil {
			err = c.check(frame)
		}
		if err != nil {
			c.logger.Warn("Render backend failed",
				zap.String("backend", b.Name()),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		c.logger.Debug("Rendered frame",
			zap.String("backend", b.Name()),
			zap.Int("black_pixels", frame.Black.Count()),
			zap.Int("red_pixels", frame.Red.Count()))
		return frame
	}

	c.logger.Error("All render backends failed, rendering placeholder",
		zap.Int("backends", len(c.backends)),
		zap.Error(errs))
	return c.Placeholder()
}

// Placeholder returns the no-data frame.
func (c *Compositor) Placeholder() *models.RenderedFrame {
	return Placeholder(c.layout, c.fonts, c.tr)
}

func (c *Compositor) check(frame *models.RenderedFrame) error {
	if frame == nil {
		return fmt.Errorf("backend returned no frame")
	}
	if err := frame.Validate(); err != nil {
		return err
	}
	if frame.Black.Width != c.layout.Width || frame.Black.Height != c.layout.Height {
		return fmt.Errorf("frame is %dx%d, want %dx%d",
			frame.Black.Width, frame.Black.Height, c.layout.Width, c.layout.Height)
	}
	return nil
}
