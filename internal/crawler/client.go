package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"azsales/internal/models"
)

// Client combines the scraper and parser into the fetch stage.
type Client struct {
	scraper *Scraper
	parser  *Parser
}

// NewClient creates a new crawler client with default dependencies.
func NewClient() *Client {
	return &Client{
		scraper: NewScraper(),
		parser:  NewParser(),
	}
}

// NewClientWithDeps creates a new crawler client with injected dependencies.
func NewClientWithDeps(scraper *Scraper, parser *Parser) *Client {
	return &Client{
		scraper: scraper,
		parser:  parser,
	}
}

// FetchResult is the outcome of one fetch stage.
type FetchResult struct {
	Payload    *models.Payload
	StatusCode int
	Bytes      int
	Duration   time.Duration
}

// Fetch downloads the dashboard page and parses it.
// now anchors the report date when the page does not state one.
func (c *Client) Fetch(ctx context.Context, url string, now time.Time) (*FetchResult, error) {
	content, statusCode, duration, err := c.scraper.ScrapeWithMetrics(ctx, url)
	if err != nil {
		return nil, err
	}

	payload, err := c.parser.Parse(content, now)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Payload:    payload,
		StatusCode: statusCode,
		Bytes:      len(content),
		Duration:   duration,
	}, nil
}

// FetchFromFile parses a dashboard page saved on disk.
func (c *Client) FetchFromFile(filePath string, now time.Time) (*FetchResult, error) {
	started := time.Now()

	content, err := c.scraper.ReadLocalFile(filePath)
	if err != nil {
		return nil, err
	}

	payload, err := c.parser.Parse(content, now)
	if err != nil {
		return nil, err
	}

	return &FetchResult{
		Payload:  payload,
		Bytes:    len(content),
		Duration: time.Since(started),
	}, nil
}

// SavePayloadJSON writes the provisional payload to a JSON file for inspection.
func (c *Client) SavePayloadJSON(payload *models.Payload, outputPath string) error {
	jsonData, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if err := os.WriteFile(outputPath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}
