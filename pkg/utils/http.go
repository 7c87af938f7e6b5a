// Package utils provides common utility functions.
package utils

import "net/http"

// HTTPHelper provides HTTP utility functions.
type HTTPHelper struct {
	userAgent string
}

// NewHTTPHelper creates a new HTTP helper sending the given User-Agent.
func NewHTTPHelper(userAgent string) *HTTPHelper {
	return &HTTPHelper{userAgent: userAgent}
}

// BuildHeaders creates HTTP headers with defaults for fetching dashboard pages.
func (h *HTTPHelper) BuildHeaders(customHeaders map[string]string) http.Header {
	headers := http.Header{}

	if h.userAgent != "" {
		headers.Set("User-Agent", h.userAgent)
	}

	headers.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	headers.Set("Accept-Language", "zh-CN,zh;q=0.9")

	for key, value := range customHeaders {
		headers.Set(key, value)
	}

	return headers
}
