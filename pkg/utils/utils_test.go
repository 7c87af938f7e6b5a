package utils

import "testing"

func TestHTTPHelper_BuildHeaders(t *testing.T) {
	h := NewHTTPHelper("agent/1.0")

	headers := h.BuildHeaders(map[string]string{"Accept": "application/json"})

	if got := headers.Get("User-Agent"); got != "agent/1.0" {
		t.Errorf("User-Agent = %q", got)
	}

	if got := headers.Get("Accept"); got != "application/json" {
		t.Errorf("custom Accept should override default, got %q", got)
	}
}

func TestStringHelper(t *testing.T) {
	s := NewStringHelper()

	if got := s.NormalizeWhitespace("  门店　A \t 一号 "); got != "门店 A 一号" {
		t.Errorf("NormalizeWhitespace = %q", got)
	}

	if got := s.FirstNonEmpty("", "  ", " b ", "c"); got != "b" {
		t.Errorf("FirstNonEmpty = %q", got)
	}
}
