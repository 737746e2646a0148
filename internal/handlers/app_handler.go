package handlers

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"

	ghandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/koios/paperweather/internal/metrics"
)

// CycleSource exposes the latest completed cycle.
type CycleSource interface {
	Last() *Cycle
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck interface {
	Name() string
	IsHealthy() bool
}

// StatusHandler serves health and the last rendered frame over HTTP.
type StatusHandler struct {
	source  CycleSource
	metrics *metrics.Metrics
	checks  []HealthCheck
	logger  *zap.Logger
}

// NewStatusHandler creates a new status handler. /metrics is served only
// when m is not nil.
func NewStatusHandler(source CycleSource, m *metrics.Metrics, logger *zap.Logger) *StatusHandler {
	return &StatusHandler{
		source:  source,
		metrics: m,
		logger:  logger,
	}
}

// WithChecks adds dependencies reported by /health.
func (h *StatusHandler) WithChecks(checks ...HealthCheck) *StatusHandler {
	h.checks = append(h.checks, checks...)
	return h
}

// RegisterRoutes registers the status routes
func (h *StatusHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/preview.png", h.handlePreview).Methods(http.MethodGet)
	r.HandleFunc("/frame/{plane:black|red}.png", h.handlePlane).Methods(http.MethodGet)
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}
}

// Router returns the routes wrapped with request logging.
func (h *StatusHandler) Router() http.Handler {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return ghandlers.LoggingHandler(zap.NewStdLog(h.logger).Writer(), r)
}

// handleHealth handles GET /health - returns service health and the last cycle
func (h *StatusHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "paperweather",
	}
	if len(h.checks) > 0 {
		deps := make(map[string]string, len(h.checks))
		for _, check := range h.checks {
			deps[check.Name()] = "healthy"
			if !check.IsHealthy() {
				deps[check.Name()] = "unhealthy"
				response["status"] = "degraded"
			}
		}
		response["dependencies"] = deps
	}
	if c := h.source.Last(); c != nil {
		response["last_cycle"] = map[string]interface{}{
			"id":           c.ID,
			"completed_at": c.CompletedAt,
			"placeholder":  c.Placeholder,
			"displayed":    c.Displayed,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}

// handlePreview handles GET /preview.png - the composited three-color frame
func (h *StatusHandler) handlePreview(w http.ResponseWriter, r *http.Request) {
	c := h.source.Last()
	if c == nil {
		http.Error(w, "No frame rendered yet", http.StatusServiceUnavailable)
		return
	}
	h.writePNG(w, c.Frame.Preview())
}

// handlePlane handles GET /frame/{plane}.png - a single 1-bit plane
func (h *StatusHandler) handlePlane(w http.ResponseWriter, r *http.Request) {
	c := h.source.Last()
	if c == nil {
		http.Error(w, "No frame rendered yet", http.StatusServiceUnavailable)
		return
	}

	plane := c.Frame.Black
	if mux.Vars(r)["plane"] == "red" {
		plane = c.Frame.Red
	}
	h.writePNG(w, plane.Paletted())
}

func (h *StatusHandler) writePNG(w http.ResponseWriter, img image.Image) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		h.logger.Error("Failed to encode frame", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}
