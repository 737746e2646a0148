package icons

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Source fetches the raw PNG artwork for a condition code.
type Source interface {
	Fetch(ctx context.Context, code string) ([]byte, error)
}

// HTTPSource downloads icons from the OpenWeather image server.
type HTTPSource struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPSource creates a source for baseURL, issuing at most perSecond
// requests per second (unlimited when perSecond <= 0).
func NewHTTPSource(baseURL string, perSecond float64) *HTTPSource {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// URL returns the download location of the 4x (200px) artwork for code.
func (s *HTTPSource) URL(code string) string {
	return fmt.Sprintf("%s/%s@4x.png", s.baseURL, code)
}

// Fetch downloads the artwork. Any status other than 200 is an error.
func (s *HTTPSource) Fetch(ctx context.Context, code string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(code), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("icon server returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}
