// Package pixlet is the document rendering backend: it writes the screen as
// a Starlark document and rasterises it with the pixlet engine.
package pixlet

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"tidbyt.dev/pixlet/encode"
	"tidbyt.dev/pixlet/globals"
	pixrender "tidbyt.dev/pixlet/render"
	"tidbyt.dev/pixlet/runtime"
	"tidbyt.dev/pixlet/tools"

	"github.com/koios/paperweather/internal/eink"
	"github.com/koios/paperweather/internal/i18n"
	"github.com/koios/paperweather/internal/render"
	"github.com/koios/paperweather/pkg/models"
)

const (
	scriptName = "screen.star"
	moonName   = "moon.png"
)

// renderMu guards the pixlet globals, which are process wide.
var renderMu sync.Mutex

// Processor renders screens through the pixlet runtime.
type Processor struct {
	opts    render.Options
	workDir string
	tr      *i18n.Translator
	icons   render.IconResolver
	timeout time.Duration
	logger  *zap.Logger
}

// NewProcessor creates a document backend writing its intermediate files to
// workDir. icons may be nil.
func NewProcessor(opts render.Options, workDir string, tr *i18n.Translator, icons render.IconResolver, logger *zap.Logger) *Processor {
	cache := runtime.NewInMemoryCache()
	runtime.InitHTTP(cache)
	runtime.InitCache(cache)

	return &Processor{
		opts:    opts,
		workDir: workDir,
		tr:      tr,
		icons:   icons,
		timeout: 30 * time.Second,
		logger:  logger,
	}
}

// Name identifies the backend in logs and configuration.
func (p *Processor) Name() string {
	return "document"
}

// ScriptPath is where the generated document is written each cycle.
func (p *Processor) ScriptPath() string {
	return filepath.Join(p.workDir, scriptName)
}

// MoonPath is where the moon disc of the last cycle is written.
func (p *Processor) MoonPath() string {
	return filepath.Join(p.workDir, moonName)
}

// Render composes snap as a document, rasterises it and reduces the raster
// to the two planes.
func (p *Processor) Render(ctx context.Context, snap *models.WeatherSnapshot) (*models.RenderedFrame, error) {
	if snap == nil {
		return nil, errors.New("no weather snapshot")
	}
	if err := os.MkdirAll(p.workDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}

	content := render.BuildContent(snap, p.tr, p.opts.Units)
	layout := render.NewLayout(p.opts.Width, p.opts.Height)

	images, config, err := p.assets(ctx, content, layout)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(p.ScriptPath(), Script(content, layout, images), 0644); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	raster, err := p.rasterise(ctx, config)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Document render completed",
		zap.String("script", p.ScriptPath()),
		zap.Int("images", len(images)))

	return render.Reduce(raster, p.opts.Width, p.opts.Height), nil
}

// assets resolves the artwork of content and returns its placements plus
// the applet config carrying the encoded images.
func (p *Processor) assets(ctx context.Context, content render.Content, l render.Layout) ([]Placement, map[string]string, error) {
	var images []Placement
	config := map[string]string{}

	add := func(key string, img image.Image, at image.Point, size int) error {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return fmt.Errorf("failed to encode %s: %w", key, err)
		}
		config[key] = base64.StdEncoding.EncodeToString(buf.Bytes())
		images = append(images, Placement{Key: key, At: at, Size: size})
		return nil
	}

	icon := func(key, code string, at image.Point, size int) error {
		if p.icons == nil || code == "" {
			return nil
		}
		img, err := p.icons.Resolve(ctx, code, size)
		if err != nil {
			p.logger.Warn("Icon unavailable, leaving area blank",
				zap.String("code", code),
				zap.Error(err))
			return nil
		}
		return add(key, img, at, size)
	}

	at, size := l.CurrentIcon()
	if err := icon("icon_current", content.Icon, at, size); err != nil {
		return nil, nil, err
	}
	for i, col := range content.Forecast {
		at, size := l.ForecastIcon(i)
		if err := icon(fmt.Sprintf("icon_%d", i), col.Icon, at, size); err != nil {
			return nil, nil, err
		}
	}

	at, size = l.Moon()
	moon := eink.MoonDisc(content.MoonAge, size)
	if err := eink.WritePNG(p.MoonPath(), moon); err != nil {
		p.logger.Warn("Failed to write moon disc", zap.String("path", p.MoonPath()), zap.Error(err))
	}
	if err := add("moon", moon, at, size); err != nil {
		return nil, nil, err
	}

	return images, config, nil
}

// rasterise runs the generated document and captures its first frame.
func (p *Processor) rasterise(ctx context.Context, config map[string]string) (image.Image, error) {
	applet, err := runtime.NewAppletFromFS("paperweather", tools.NewSingleFileFS(p.ScriptPath()), runtime.WithPrintDisabled())
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	renderCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	renderMu.Lock()
	defer renderMu.Unlock()

	globals.Width = p.opts.Width
	globals.Height = p.opts.Height
	pixrender.FrameWidth = p.opts.Width
	pixrender.FrameHeight = p.opts.Height

	roots, err := applet.RunWithConfig(renderCtx, config)
	if err != nil {
		return nil, fmt.Errorf("error running document: %w", err)
	}

	var frame image.Image
	capture := func(input image.Image) (image.Image, error) {
		if frame == nil {
			frame = input
		}
		return input, nil
	}
	if _, err := encode.ScreensFromRoots(roots).EncodeWebP(0, capture); err != nil {
		return nil, fmt.Errorf("error rasterising document: %w", err)
	}
	if frame == nil {
		return nil, errors.New("document produced no frames")
	}
	return frame, nil
}
