package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInitWithJSON(t *testing.T) {
	var buf bytes.Buffer
	InitWith(&buf, slog.LevelInfo, "json")

	Debug("hidden")
	Info("winner recorded", "game_id", "g1")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "winner recorded" {
		t.Errorf("unexpected msg: %v", entry["msg"])
	}
	if entry["game_id"] != "g1" {
		t.Errorf("unexpected game_id: %v", entry["game_id"])
	}
}

func TestInitWithText(t *testing.T) {
	var buf bytes.Buffer
	InitWith(&buf, slog.LevelDebug, "text")

	With("season", 2025).Debug("reseed")

	if !strings.Contains(buf.String(), "season=2025") {
		t.Errorf("expected text attrs in output, got %q", buf.String())
	}
}

func TestHelpersWithoutInit(t *testing.T) {
	Logger = nil
	// Falls back to slog.Default instead of panicking.
	Info("no init")
	Warn("no init")
	Error("no init")
}
