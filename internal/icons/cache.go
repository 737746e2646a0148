// Package icons resolves weather condition codes to panel-ready bitmaps,
// keeping a permanent on-disk cache of both the downloaded artwork and the
// converted result.
package icons

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/eink"
)

// ErrUnavailable signals that an icon could not be produced for this cycle.
var ErrUnavailable = errors.New("icon unavailable")

// Pipeline selects how raw artwork is reduced for the panel.
type Pipeline string

const (
	// PipelinePalette converts to black/red/white with outlines.
	PipelinePalette Pipeline = "palette"
	// PipelineThreshold flattens to white and thresholds luminance at 128.
	PipelineThreshold Pipeline = "threshold"
)

// Cache is a never-expiring icon store. Entries are written once and then
// served from disk forever; there is no revalidation against the source.
//
// Writes go through a temporary file and a rename, so a reader never sees
// a partial file. Resolve itself takes no lock and relies on the caller not
// overlapping render cycles.
type Cache struct {
	dir       string
	source    Source
	converter *eink.Converter
	pipeline  Pipeline
	logger    *zap.Logger
}

// NewCache creates a cache rooted at dir.
func NewCache(dir string, source Source, converter *eink.Converter, pipeline Pipeline, logger *zap.Logger) *Cache {
	if pipeline == "" {
		pipeline = PipelinePalette
	}
	return &Cache{
		dir:       dir,
		source:    source,
		converter: converter,
		pipeline:  pipeline,
		logger:    logger,
	}
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// RawPath is where the downloaded artwork for code is kept.
func (c *Cache) RawPath(code string) string {
	return filepath.Join(c.dir, code+".png")
}

// Path is where the processed bitmap for code at size is kept.
func (c *Cache) Path(code string, size int) string {
	suffix := "eink"
	if c.pipeline == PipelineThreshold {
		suffix = "mono"
	}
	return filepath.Join(c.dir, fmt.Sprintf("%s@%d.%s.png", code, size, suffix))
}

// Resolve returns the processed bitmap for code, scaled to size×size.
// Failures are logged and reported as ErrUnavailable.
func (c *Cache) Resolve(ctx context.Context, code string, size int) (image.Image, error) {
	if code == "" || strings.Contains(code, "..") || strings.ContainsAny(code, `/\`) {
		c.logger.Warn("Rejected icon code", zap.String("code", code))
		return nil, fmt.Errorf("%w: invalid code %q", ErrUnavailable, code)
	}

	path := c.Path(code, size)
	if img, err := readPNG(path); err == nil {
		return img, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		c.logger.Warn("Unreadable cached icon, rebuilding",
			zap.String("code", code),
			zap.String("path", path),
			zap.Error(err))
	}

	raw, err := c.raw(ctx, code)
	if err != nil {
		return nil, err
	}

	img, err := c.process(raw, size)
	if err != nil {
		c.logger.Error("Failed to process icon", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := c.write(path, buf.Bytes()); err != nil {
		c.logger.Warn("Failed to persist processed icon", zap.String("code", code), zap.Error(err))
	}

	// Decode what was written so the first and later calls agree exactly.
	return png.Decode(bytes.NewReader(buf.Bytes()))
}

// raw returns the downloaded artwork, fetching it on a cache miss.
func (c *Cache) raw(ctx context.Context, code string) (image.Image, error) {
	path := c.RawPath(code)
	if img, err := readPNG(path); err == nil {
		return img, nil
	}

	data, err := c.source.Fetch(ctx, code)
	if err != nil {
		c.logger.Error("Failed to download icon", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		c.logger.Error("Downloaded icon is not an image", zap.String("code", code), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := c.write(path, data); err != nil {
		c.logger.Warn("Failed to cache downloaded icon", zap.String("code", code), zap.Error(err))
	} else {
		c.logger.Info("Downloaded icon", zap.String("code", code))
	}
	return img, nil
}

func (c *Cache) process(raw image.Image, size int) (image.Image, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid icon size %d", size)
	}
	scaled := resize.Resize(uint(size), uint(size), raw, resize.Lanczos3)

	switch c.pipeline {
	case PipelineThreshold:
		return Threshold(scaled, 128), nil
	case PipelinePalette:
		return c.converter.Convert(scaled), nil
	default:
		return nil, fmt.Errorf("unknown icon pipeline %q", c.pipeline)
	}
}

func (c *Cache) write(path string, data []byte) error {
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, ".icon-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Threshold flattens src onto white and maps luminance below level to
// black, everything else to white.
func Threshold(src image.Image, level uint8) *image.Gray {
	b := src.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), src, b.Min, draw.Over)

	gray := image.NewGray(flat.Bounds())
	draw.Draw(gray, gray.Bounds(), flat, image.Point{}, draw.Src)
	for i, v := range gray.Pix {
		if v < level {
			gray.Pix[i] = 0
		} else {
			gray.Pix[i] = 255
		}
	}
	return gray
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}
