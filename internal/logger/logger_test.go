package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, "warn")
	log.Info("hidden")
	log.Warn("shown", "rows", 5)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record leaked through warn level: %s", out)
	}

	if !strings.Contains(out, "shown") || !strings.Contains(out, "rows=5") {
		t.Errorf("warn record missing: %s", out)
	}

	log.SetLevel("debug")
	log.Debug("now visible")

	if !strings.Contains(buf.String(), "now visible") {
		t.Error("SetLevel did not lower the threshold")
	}
}

func TestLogger_WithAndStage(t *testing.T) {
	var buf bytes.Buffer

	log := New(&buf, "info").With("run_id", "abc")
	log.Stage("fetch", time.Now(), "bytes", 10)

	out := buf.String()
	for _, want := range []string{"run_id=abc", "stage=fetch", "bytes=10", "duration="} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}
