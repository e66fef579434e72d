// Package noaa collects real-time space-weather data from NOAA SWPC and NASA
// DONKI. Each source is collected independently; a failing source is logged
// and left out of the result.
package noaa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/space-weather-forecaster/internal/domain"
	"github.com/couchcryptid/space-weather-forecaster/internal/observability"
)

// Fetcher retrieves the raw body behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is a Fetcher backed by a plain HTTP client with a fixed timeout.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch returns the response body. Errors never carry the request query,
// which holds the NASA API key.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", redactQuery(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", redactQuery(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("upstream API error: status %d: %s", resp.StatusCode, body)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

// redactQuery drops the query string from the URL of a *url.Error.
func redactQuery(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if base, _, found := strings.Cut(uerr.URL, "?"); found {
			uerr.URL = base + "?REDACTED"
		}
	}
	return err
}

// Fallback endpoints are retried with a short exponential backoff.
const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = time.Second
)

// Client collects every configured source.
type Client struct {
	cfg     Config
	fetcher Fetcher
	logger  *slog.Logger
	metrics *observability.Metrics
	backoff time.Duration
}

// NewClient creates a collector that fetches through an LRU-cached HTTP
// fetcher holding up to cacheSize responses.
func NewClient(cfg Config, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	fetcher := NewCachedFetcher(NewHTTPFetcher(cfg.Timeout), cacheSize, metrics)
	return NewClientWithFetcher(cfg, fetcher, logger, metrics)
}

// NewClientWithFetcher creates a collector over an arbitrary fetcher.
func NewClientWithFetcher(cfg Config, fetcher Fetcher, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		fetcher: fetcher,
		logger:  logger,
		metrics: metrics,
		backoff: initialBackoff,
	}
}

// CollectAll collects every source and returns the frames that succeeded,
// keyed by source name. It never fails as a whole.
func (c *Client) CollectAll(ctx context.Context) map[string]*domain.Frame {
	out := make(map[string]*domain.Frame)
	for _, src := range Sources(c.cfg, domain.Now()) {
		if ctx.Err() != nil {
			break
		}
		f, err := c.Collect(ctx, src)
		if err != nil {
			c.logger.Warn("source unavailable", "source", src.Name, "error", err)
			c.metrics.SourceFetches.WithLabelValues(src.Name, "error").Inc()
			continue
		}
		c.logger.Info("source collected", "source", src.Name, "records", f.Len())
		c.metrics.SourceFetches.WithLabelValues(src.Name, "success").Inc()
		out[src.Name] = f
	}
	return out
}

// Collect tries each of the source's endpoints in order and returns the
// first one that yields rows.
func (c *Client) Collect(ctx context.Context, src Source) (*domain.Frame, error) {
	var lastErr error
	backoff := c.backoff
	for i, endpoint := range src.URLs {
		if i > 0 {
			if !sleepWithContext(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}

		start := time.Now()
		body, err := c.fetcher.Fetch(ctx, endpoint)
		c.metrics.SourceAPIDuration.WithLabelValues(src.Name).Observe(time.Since(start).Seconds())
		if err != nil {
			c.logger.Debug("endpoint failed", "source", src.Name, "endpoint", i, "error", err)
			lastErr = err
			continue
		}

		f, err := Parse(body, src.TimeField, src.Numeric)
		if err != nil {
			c.logger.Debug("endpoint payload rejected", "source", src.Name, "endpoint", i, "error", err)
			lastErr = err
			continue
		}
		return f, nil
	}
	return nil, fmt.Errorf("collect %s: %w", src.Name, lastErr)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
