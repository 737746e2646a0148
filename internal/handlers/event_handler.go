package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/display"
	"github.com/koios/paperweather/internal/metrics"
	"github.com/koios/paperweather/internal/weather"
	"github.com/koios/paperweather/pkg/models"
)

// Fetcher returns the current snapshot, or nil when there is no data.
type Fetcher interface {
	FetchOrNil(ctx context.Context, req weather.Request) *models.WeatherSnapshot
}

// Compositor turns a snapshot (possibly nil) into a frame. It never fails.
type Compositor interface {
	Render(ctx context.Context, snap *models.WeatherSnapshot) *models.RenderedFrame
}

// Cycle records one completed update.
type Cycle struct {
	ID          string
	Frame       *models.RenderedFrame
	Placeholder bool
	Displayed   bool
	CompletedAt time.Time
}

// UpdateHandler runs update cycles: fetch, render, display.
type UpdateHandler struct {
	fetcher    Fetcher
	compositor Compositor
	sink       display.Sink
	request    weather.Request
	metrics    *metrics.Metrics
	logger     *zap.Logger

	mu   sync.RWMutex
	last *Cycle
}

// NewUpdateHandler creates a new update handler
func NewUpdateHandler(fetcher Fetcher, compositor Compositor, sink display.Sink, req weather.Request, logger *zap.Logger) *UpdateHandler {
	return &UpdateHandler{
		fetcher:    fetcher,
		compositor: compositor,
		sink:       sink,
		request:    req,
		logger:     logger,
	}
}

// WithMetrics records every cycle in m.
func (h *UpdateHandler) WithMetrics(m *metrics.Metrics) *UpdateHandler {
	h.metrics = m
	return h
}

// Handle runs one cycle. A display failure is logged and returned; the
// rendered frame is kept either way.
func (h *UpdateHandler) Handle(ctx context.Context) (*Cycle, error) {
	started := time.Now()
	cycle := &Cycle{ID: uuid.NewString()}
	log := h.logger.With(zap.String("cycle_id", cycle.ID))
	log.Info("Starting update cycle")

	snap := h.fetcher.FetchOrNil(ctx, h.request)
	cycle.Placeholder = snap == nil
	cycle.Frame = h.compositor.Render(ctx, snap)

	err := h.sink.Display(cycle.Frame)
	if err != nil {
		log.Error("Failed to display frame", zap.String("sink", h.sink.Name()), zap.Error(err))
	}
	cycle.Displayed = err == nil
	cycle.CompletedAt = time.Now().UTC()
	h.metrics.ObserveCycle(started, cycle.Placeholder, cycle.Displayed)

	h.mu.Lock()
	h.last = cycle
	h.mu.Unlock()

	log.Info("Update cycle completed",
		zap.Bool("placeholder", cycle.Placeholder),
		zap.Bool("displayed", cycle.Displayed))
	return cycle, err
}

// Last returns the most recent cycle, or nil before the first one.
func (h *UpdateHandler) Last() *Cycle {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// Run updates once, then every interval until ctx is done. The panel sleeps
// between cycles and cycles never overlap.
func (h *UpdateHandler) Run(ctx context.Context, interval time.Duration) error {
	h.Handle(ctx)
	h.sleep()

	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Update loop stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if err := h.sink.Init(); err != nil {
			h.logger.Error("Failed to wake display", zap.String("sink", h.sink.Name()), zap.Error(err))
		} else {
			h.Handle(ctx)
		}
		h.sleep()
		timer.Reset(interval)
	}
}

func (h *UpdateHandler) sleep() {
	if err := h.sink.Sleep(); err != nil {
		h.logger.Warn("Failed to put display to sleep", zap.String("sink", h.sink.Name()), zap.Error(err))
	}
}
