package crawler

import (
	"errors"
	"fmt"
)

// Crawler errors.
var (
	ErrUnexpectedStatusCode = errors.New("unexpected status code")
	ErrBodyTooLarge         = errors.New("response body exceeds limit")
	ErrLabelNotFound        = errors.New("label not found")
	ErrNumberNotFound       = errors.New("no number after label")
	ErrInvalidInlineData    = errors.New("inline data is not valid JSON")
	ErrInvalidTimestamp     = errors.New("invalid occurrence timestamp")
)

// FetchError reports that the dashboard could not be retrieved.
type FetchError struct {
	Err        error
	URL        string
	StatusCode int
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ParseError reports that the page no longer has the expected structure.
type ParseError struct {
	Err     error
	Section string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Section, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
