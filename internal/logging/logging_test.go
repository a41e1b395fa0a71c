package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"error":    slog.LevelError,
		" WARN ":   slog.LevelWarn,
		"warning":  slog.LevelWarn,
		"debug":    slog.LevelDebug,
		"info":     slog.LevelInfo,
		"":         slog.LevelInfo,
		"verbose?": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := levelFromString(in); got != want {
			t.Fatalf("levelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWithWriterFormats(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	NewWithWriter(&text, "warn", "text").With("component", "pipeline").Info("hidden")
	NewWithWriter(&text, "warn", "text").With("component", "pipeline").Warn("shown", "case", "2024/001-000")
	if strings.Contains(text.String(), "hidden") {
		t.Fatalf("info record should be filtered: %s", text.String())
	}
	if !strings.Contains(text.String(), "component=pipeline") || !strings.Contains(text.String(), "case=2024/001-000") {
		t.Fatalf("unexpected text record: %s", text.String())
	}

	var js bytes.Buffer
	NewWithWriter(&js, "debug", "JSON").Debug("run finished", "failed", 2)
	var record map[string]any
	if err := json.Unmarshal(js.Bytes(), &record); err != nil {
		t.Fatalf("json record: %v", err)
	}
	if record["msg"] != "run finished" || record["failed"] != float64(2) {
		t.Fatalf("unexpected json record: %v", record)
	}
}
