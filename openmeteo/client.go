// Package openmeteo talks to the public Open-Meteo geocoding and forecast
// APIs. No API key is needed.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Default endpoints.
const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com"
	DefaultForecastURL  = "https://api.open-meteo.com"
)

// defaultTimeout bounds every request made with the default HTTP client.
const defaultTimeout = 30 * time.Second

// maxBodySize caps how much of a response body is decoded.
const maxBodySize = 4 << 20

// StatusError is returned for a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// clientConfig holds options shared by both clients.
type clientConfig struct {
	baseURL  string
	http     *http.Client
	logger   *zap.Logger
	count    int
	language string
}

// Option is a functional option for the Open-Meteo clients.
type Option func(*clientConfig)

// WithBaseURL overrides the API root, e.g. for a self-hosted instance.
func WithBaseURL(u string) Option {
	return func(c *clientConfig) { c.baseURL = u }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *clientConfig) {
		if h != nil {
			c.http = h
		}
	}
}

// WithTimeout sets the request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCount sets how many geocoding results to ask for (1-100).
func WithCount(n int) Option {
	return func(c *clientConfig) {
		if n > 0 && n <= 100 {
			c.count = n
		}
	}
}

// WithLanguage sets the language of returned place names.
func WithLanguage(lang string) Option {
	return func(c *clientConfig) {
		if lang != "" {
			c.language = lang
		}
	}
}

func newConfig(baseURL string, opts []Option) *clientConfig {
	cfg := &clientConfig{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: defaultTimeout},
		logger:   zap.NewNop(),
		count:    10,
		language: "en",
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// getJSON issues a GET and decodes a JSON body into v.
func (c *clientConfig) getJSON(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP GET %s: %w", u, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("open-meteo request",
		zap.String("url", u),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: u, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(v); err != nil {
		return fmt.Errorf("decoding %s: %w", u, err)
	}
	return nil
}
