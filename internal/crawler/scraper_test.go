package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"azsales/internal/config"

	"golang.org/x/text/encoding/simplifiedchinese"
)

func testScraper(maxAttempts int) *Scraper {
	return NewScraperWithConfig(
		&config.SourceConfig{UserAgent: "azsales-test", TimeoutSec: 5, MaxBodyKb: 1},
		&config.RetryPolicy{MaxAttempts: maxAttempts, InitialDelayMs: 1, MaxDelayMs: 5, BackoffMultiplier: 2},
	)
}

func TestScraper_Scrape_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "azsales-test" {
			t.Errorf("Expected configured user agent, got %q", r.Header.Get("User-Agent"))
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<p>集团合计销售</p>"))
	}))
	defer server.Close()

	content, status, _, err := testScraper(1).ScrapeWithMetrics(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	if status != http.StatusOK || !strings.Contains(content, "集团合计销售") {
		t.Errorf("Unexpected result status=%d content=%q", status, content)
	}
}

func TestScraper_Scrape_DecodesDeclaredCharset(t *testing.T) {
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("<p>本月集团合计销售</p>")
	if err != nil {
		t.Fatalf("Failed to encode fixture: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=gbk")
		_, _ = w.Write([]byte(encoded))
	}))
	defer server.Close()

	content, err := testScraper(1).Scrape(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Scrape failed: %v", err)
	}

	if !strings.Contains(content, "本月集团合计销售") {
		t.Errorf("Expected decoded UTF-8 content, got %q", content)
	}
}

func TestScraper_Scrape_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	content, err := testScraper(3).Scrape(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}

	if content != "ok" || calls.Load() != 3 {
		t.Errorf("Expected 3 calls ending in ok, got %d calls content=%q", calls.Load(), content)
	}
}

func TestScraper_Scrape_Errors(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		attempts   int
		wantCalls  int32
		wantStatus int
		wantErr    error
	}{
		{
			name:       "not found is not retried",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) },
			attempts:   3,
			wantCalls:  1,
			wantStatus: http.StatusNotFound,
			wantErr:    ErrUnexpectedStatusCode,
		},
		{
			name:       "single attempt by default",
			handler:    func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			attempts:   1,
			wantCalls:  1,
			wantStatus: http.StatusBadGateway,
			wantErr:    ErrUnexpectedStatusCode,
		},
		{
			name: "oversized body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
			},
			attempts:   1,
			wantCalls:  1,
			wantStatus: http.StatusOK,
			wantErr:    ErrBodyTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				tt.handler(w, r)
			}))
			defer server.Close()

			_, err := testScraper(tt.attempts).Scrape(context.Background(), server.URL)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Scrape() error = %v, want %v", err, tt.wantErr)
			}

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("Expected *FetchError, got %T", err)
			}

			if fetchErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", fetchErr.StatusCode, tt.wantStatus)
			}

			if calls.Load() != tt.wantCalls {
				t.Errorf("Expected %d calls, got %d", tt.wantCalls, calls.Load())
			}
		})
	}
}

func TestScraper_Scrape_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testScraper(1).Scrape(ctx, server.URL)

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected FetchError wrapping context.Canceled, got %v", err)
	}
}

func TestScraper_ReadLocalFile_Missing(t *testing.T) {
	_, err := NewScraper().ReadLocalFile("/nonexistent/dashboard.html")

	var fetchErr *FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected *FetchError, got %v", err)
	}
}
