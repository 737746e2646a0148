// Package metrics exposes update cycle counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one process. Each instance owns its
// registry so tests can create as many as they need.
type Metrics struct {
	registry      *prometheus.Registry
	cyclesTotal   *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	placeholders  prometheus.Counter
	lastSuccess   prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paperweather_cycles_total",
			Help: "Total update cycles by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "paperweather_cycle_duration_seconds",
			Help:    "Histogram of update cycle durations, fetch to display.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40},
		}),
		placeholders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paperweather_placeholder_frames_total",
			Help: "Total frames rendered without weather data.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "paperweather_last_displayed_timestamp_seconds",
			Help: "Unix time of the last frame the display accepted.",
		}),
	}

	m.registry.MustRegister(
		m.cyclesTotal,
		m.cycleDuration,
		m.placeholders,
		m.lastSuccess,
	)
	return m
}

// ObserveCycle records one finished cycle. Safe on a nil receiver.
func (m *Metrics) ObserveCycle(started time.Time, placeholder, displayed bool) {
	if m == nil {
		return
	}
	outcome := "displayed"
	if !displayed {
		outcome = "display_failed"
	}
	m.cyclesTotal.WithLabelValues(outcome).Inc()
	m.cycleDuration.Observe(time.Since(started).Seconds())
	if placeholder {
		m.placeholders.Inc()
	}
	if displayed {
		m.lastSuccess.SetToCurrentTime()
	}
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
