package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn", FormatJSON)

	logger.Info("dropped")
	logger.Warn("kept", slog.String("wallet_id", "w1"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["msg"] != "kept" || rec["wallet_id"] != "w1" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := ParseLevel("loud"); got != slog.LevelInfo {
		t.Fatalf("expected info, got %s", got)
	}
	if got := ParseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("expected debug, got %s", got)
	}
}
