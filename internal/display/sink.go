// Package display delivers rendered frames to the panel, or to PNG files
// when no panel is attached.
package display

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/koios/paperweather/pkg/models"
)

// Sink consumes frames. Init wakes the device, Sleep powers it down between
// refreshes.
type Sink interface {
	Name() string
	Init() error
	Clear() error
	Display(frame *models.RenderedFrame) error
	Sleep() error
}

// Select initialises candidates in order and returns the first one that
// comes up. It runs once at startup; the result is the active sink.
func Select(candidates []Sink, logger *zap.Logger) (Sink, error) {
	var errs error
	for _, s := range candidates {
		if err := s.Init(); err != nil {
			logger.Warn("Display sink unavailable, trying next",
				zap.String("sink", s.Name()),
				zap.Error(err))
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		logger.Info("Using display sink", zap.String("sink", s.Name()))
		return s, nil
	}
	if errs == nil {
		errs = fmt.Errorf("no display sinks configured")
	}
	return nil, errs
}

// Fanout drives a primary sink and mirrors frames to secondary sinks.
// Secondary failures are logged and never fail the primary operation.
type Fanout struct {
	primary     Sink
	secondaries []Sink
	logger      *zap.Logger
}

// NewFanout creates a fanout sink.
func NewFanout(primary Sink, secondaries []Sink, logger *zap.Logger) *Fanout {
	return &Fanout{primary: primary, secondaries: secondaries, logger: logger}
}

func (f *Fanout) Name() string { return f.primary.Name() }

func (f *Fanout) Init() error {
	f.each("init", Sink.Init)
	return f.primary.Init()
}

func (f *Fanout) Clear() error {
	f.each("clear", Sink.Clear)
	return f.primary.Clear()
}

func (f *Fanout) Sleep() error {
	f.each("sleep", Sink.Sleep)
	return f.primary.Sleep()
}

func (f *Fanout) Display(frame *models.RenderedFrame) error {
	if err := f.primary.Display(frame); err != nil {
		return err
	}
	f.each("display", func(s Sink) error { return s.Display(frame) })
	return nil
}

func (f *Fanout) each(op string, fn func(Sink) error) {
	for _, s := range f.secondaries {
		if err := fn(s); err != nil {
			f.logger.Warn("Secondary sink failed",
				zap.String("sink", s.Name()),
				zap.String("op", op),
				zap.Error(err))
		}
	}
}
