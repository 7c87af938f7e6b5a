package crawler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"azsales/internal/config"
	"azsales/pkg/utils"

	"golang.org/x/net/html/charset"
)

// Scraper retrieves dashboard pages over HTTP with config-driven retry logic.
type Scraper struct {
	client       *http.Client
	retryPolicy  *config.RetryPolicy
	headers      *utils.HTTPHelper
	maxBodyBytes int64
}

// NewScraper creates a new scraper instance with the default config.
func NewScraper() *Scraper {
	cfg := config.Default()

	return NewScraperWithConfig(&cfg.Source, &cfg.Retry)
}

// NewScraperWithConfig creates a new scraper with custom source settings and retry policy.
func NewScraperWithConfig(source *config.SourceConfig, retryPolicy *config.RetryPolicy) *Scraper {
	return &Scraper{
		client: &http.Client{
			Timeout: source.GetTimeout(),
		},
		retryPolicy:  retryPolicy,
		headers:      utils.NewHTTPHelper(source.UserAgent),
		maxBodyBytes: int64(source.MaxBodyKb) * 1024,
	}
}

// ScrapeWithMetrics returns (content, statusCode, duration, error).
// The body is decoded to UTF-8 according to its Content-Type.
func (s *Scraper) ScrapeWithMetrics(ctx context.Context, url string) (string, int, time.Duration, error) {
	var lastErr error

	var lastStatusCode int

	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= s.retryPolicy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := s.wait(ctx, attempt); err != nil {
				return "", lastStatusCode, totalDuration, &FetchError{URL: url, StatusCode: lastStatusCode, Err: err}
			}
		}

		startTime := time.Now()
		content, statusCode, err := s.fetchOnce(ctx, url)
		totalDuration += time.Since(startTime)
		lastStatusCode = statusCode

		if err == nil {
			return content, statusCode, totalDuration, nil
		}

		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, s.retryPolicy.MaxAttempts, err)

		if statusCode != 0 && !isRetryableStatus(statusCode) {
			break
		}
	}

	return "", lastStatusCode, totalDuration, &FetchError{URL: url, StatusCode: lastStatusCode, Err: lastErr}
}

// Scrape fetches and returns content from the given URL.
func (s *Scraper) Scrape(ctx context.Context, url string) (string, error) {
	content, _, _, err := s.ScrapeWithMetrics(ctx, url)

	return content, err
}

// ReadLocalFile reads a saved dashboard page.
func (s *Scraper) ReadLocalFile(filePath string) (string, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return "", &FetchError{URL: filePath, Err: err}
	}

	return string(content), nil
}

func (s *Scraper) fetchOnce(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = s.headers.BuildHeaders(nil)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

		return "", resp.StatusCode, fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	// Read one byte past the limit so oversized pages are rejected rather than truncated.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBodyBytes+1))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(raw)) > s.maxBodyBytes {
		return "", resp.StatusCode, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, s.maxBodyBytes)
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to detect charset: %w", err)
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to decode response body: %w", err)
	}

	return string(body), resp.StatusCode, nil
}

func (s *Scraper) wait(ctx context.Context, attempt int) error {
	delay := s.retryPolicy.GetRetryDelay(attempt)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// isRetryableStatus determines if we should retry based on HTTP status code.
func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusBadGateway:
		return true
	}

	return false
}
