// Package weather fetches OneCall snapshots from OpenWeather.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/koios/paperweather/pkg/models"
)

var (
	// ErrUnauthorized is returned when an endpoint rejects the API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoData is returned when no endpoint produced a snapshot.
	ErrNoData = errors.New("no weather data")
)

// Request identifies what to fetch.
type Request struct {
	Lat      float64
	Lon      float64
	Units    string
	Language string
}

// Client queries an ordered list of endpoints. The next endpoint is tried
// only when the current one answers 401; any other failure ends the fetch.
type Client struct {
	apiKey     string
	endpoints  []string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the given endpoints.
func NewClient(apiKey string, endpoints []string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:    apiKey,
		endpoints: endpoints,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Fetch returns the snapshot for req. Errors wrap ErrNoData.
func (c *Client) Fetch(ctx context.Context, req Request) (*models.WeatherSnapshot, error) {
	var errs error
	for _, endpoint := range c.endpoints {
		snap, err := c.fetch(ctx, endpoint, req)
		if err == nil {
			c.logger.Info("Fetched weather data",
				zap.String("endpoint", endpoint),
				zap.Int("daily", len(snap.Daily)))
			return snap, nil
		}

		errs = multierr.Append(errs, fmt.Errorf("%s: %w", endpoint, err))
		if !errors.Is(err, ErrUnauthorized) {
			break
		}
		c.logger.Warn("Endpoint rejected credentials, trying next",
			zap.String("endpoint", endpoint))
	}
	if errs == nil {
		errs = errors.New("no endpoints configured")
	}
	return nil, fmt.Errorf("%w: %w", ErrNoData, errs)
}

// FetchOrNil is Fetch with failures logged and reported as a nil snapshot.
func (c *Client) FetchOrNil(ctx context.Context, req Request) *models.WeatherSnapshot {
	snap, err := c.Fetch(ctx, req)
	if err != nil {
		c.logger.Error("Failed to fetch weather data",
			zap.Float64("lat", req.Lat),
			zap.Float64("lon", req.Lon),
			zap.Error(err))
		return nil
	}
	return snap
}

func (c *Client) fetch(ctx context.Context, endpoint string, req Request) (*models.WeatherSnapshot, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(req.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(req.Lon, 'f', -1, 64))
	q.Set("units", req.Units)
	q.Set("lang", req.Language)
	q.Set("exclude", "minutely")
	q.Set("appid", c.apiKey)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return models.ParseSnapshot(body)
}
