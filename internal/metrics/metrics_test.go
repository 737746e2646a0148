package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveCycle(t *testing.T) {
	m := New()
	start := time.Now().Add(-time.Second)

	m.ObserveCycle(start, false, true)
	m.ObserveCycle(start, true, true)
	m.ObserveCycle(start, true, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cyclesTotal.WithLabelValues("displayed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cyclesTotal.WithLabelValues("display_failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.placeholders))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess), 0.0)
}

func TestObserveCycle_NilReceiver(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.ObserveCycle(time.Now(), true, false) })
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveCycle(time.Now(), false, true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `paperweather_cycles_total{outcome="displayed"} 1`))
	assert.Contains(t, string(body), "paperweather_cycle_duration_seconds_bucket")
}
