package display

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/eink"
	"github.com/koios/paperweather/pkg/models"
)

// Output file names written by the simulation sink.
const (
	BlackFile   = "screen_black.png"
	RedFile     = "screen_red.png"
	PreviewFile = "screen_preview.png"
)

// Simulation writes each frame as PNG files instead of driving hardware.
type Simulation struct {
	dir    string
	logger *zap.Logger
}

// NewSimulation creates a sink writing into dir.
func NewSimulation(dir string, logger *zap.Logger) *Simulation {
	return &Simulation{dir: dir, logger: logger}
}

func (s *Simulation) Name() string { return "simulation" }

func (s *Simulation) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	s.logger.Debug("Simulated display init")
	return nil
}

func (s *Simulation) Clear() error {
	s.logger.Debug("Simulated display clear")
	return nil
}

func (s *Simulation) Sleep() error {
	s.logger.Debug("Simulated display sleep")
	return nil
}

// Display writes the black plane, the red plane and a composited preview.
func (s *Simulation) Display(frame *models.RenderedFrame) error {
	if err := frame.Validate(); err != nil {
		return fmt.Errorf("invalid frame: %w", err)
	}

	outputs := []struct {
		name  string
		write func(path string) error
	}{
		{BlackFile, func(p string) error { return eink.WritePNG(p, frame.Black.Paletted()) }},
		{RedFile, func(p string) error { return eink.WritePNG(p, frame.Red.Paletted()) }},
		{PreviewFile, func(p string) error { return eink.WritePNG(p, frame.Preview()) }},
	}
	for _, out := range outputs {
		path := filepath.Join(s.dir, out.name)
		if err := out.write(path); err != nil {
			return fmt.Errorf("failed to write %s: %w", out.name, err)
		}
	}

	s.logger.Info("Simulated display updated", zap.String("dir", s.dir))
	return nil
}
