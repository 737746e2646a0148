package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const body = `{
  "lat": 35.68, "lon": 139.69, "timezone_offset": 32400,
  "current": {"dt": 1700000000, "temp": 21.3, "sunrise": 1699996200,
    "weather": [{"icon": "10d", "description": "light rain"}]},
  "daily": [{"dt": 1700000000, "temp": {"min": 10, "max": 20}, "moon_phase": 0.25}]
}`

func endpoint(t *testing.T, status int, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		q := r.URL.Query()
		assert.Equal(t, "key", q.Get("appid"))
		assert.Equal(t, "35.68", q.Get("lat"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "ja", q.Get("lang"))
		assert.Equal(t, "minutely", q.Get("exclude"))
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

var req = Request{Lat: 35.68, Lon: 139.69, Units: "metric", Language: "ja"}

func TestFetch(t *testing.T) {
	var hits atomic.Int32
	srv := endpoint(t, http.StatusOK, &hits)

	c := NewClient("key", []string{srv.URL + "/data/3.0/onecall"}, 0, zap.NewNop())
	snap, err := c.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 21.3, snap.Current.Temp)
	assert.Equal(t, 32400, snap.TimezoneOffset)
	assert.Equal(t, int64(1699996200), snap.Current.Sunrise)
	require.Len(t, snap.Daily, 1)
	assert.Equal(t, 0.25, snap.Daily[0].MoonPhase)
}

func TestFetch_FallsBackOnUnauthorized(t *testing.T) {
	var primaryHits, legacyHits atomic.Int32
	primary := endpoint(t, http.StatusUnauthorized, &primaryHits)
	legacy := endpoint(t, http.StatusOK, &legacyHits)

	c := NewClient("key", []string{primary.URL, legacy.URL}, 0, zap.NewNop())
	snap, err := c.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.NotNil(t, snap)
	assert.Equal(t, int32(1), primaryHits.Load())
	assert.Equal(t, int32(1), legacyHits.Load())
}

func TestFetch_OtherFailuresDoNotFallBack(t *testing.T) {
	var primaryHits, legacyHits atomic.Int32
	primary := endpoint(t, http.StatusInternalServerError, &primaryHits)
	legacy := endpoint(t, http.StatusOK, &legacyHits)

	c := NewClient("key", []string{primary.URL, legacy.URL}, 0, zap.NewNop())
	_, err := c.Fetch(context.Background(), req)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.Equal(t, int32(0), legacyHits.Load())
}

func TestFetch_RepeatedUnauthorized(t *testing.T) {
	var hits atomic.Int32
	a := endpoint(t, http.StatusUnauthorized, &hits)
	b := endpoint(t, http.StatusUnauthorized, &hits)

	c := NewClient("key", []string{a.URL, b.URL}, 0, zap.NewNop())
	_, err := c.Fetch(context.Background(), req)
	assert.True(t, errors.Is(err, ErrNoData))
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, int32(2), hits.Load())

	assert.Nil(t, c.FetchOrNil(context.Background(), req))
}

func TestFetch_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := NewClient("key", []string{srv.URL}, 0, zap.NewNop())
	_, err := c.Fetch(context.Background(), req)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestFetch_NoEndpoints(t *testing.T) {
	c := NewClient("key", nil, 0, zap.NewNop())
	_, err := c.Fetch(context.Background(), req)
	assert.True(t, errors.Is(err, ErrNoData))
}
