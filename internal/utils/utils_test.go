package utils

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "warn", true)
	logger.Info("dropped")
	logger.Warn("kept", slog.Int("records", 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected only the warning, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry["msg"] != "kept" || entry["service"] != "feedback-engine" || entry["records"] != float64(3) {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestParseTimestamp(t *testing.T) {
	got, err := ParseTimestamp("2024-05-01T10:20:30.5+05:30")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := time.Date(2024, 5, 1, 4, 50, 30, 500000000, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Fatalf("expected %v in UTC, got %v", want, got)
	}

	naive, err := ParseTimestamp("2024-05-01T10:20:30.123456")
	if err != nil {
		t.Fatalf("parse naive: %v", err)
	}
	local := time.Date(2024, 5, 1, 10, 20, 30, 123456000, time.Local)
	if !naive.Equal(local) {
		t.Fatalf("expected naive timestamps in local time, got %v", naive)
	}

	for _, bad := range []string{"", "yesterday", "2024-13-01"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestDays(t *testing.T) {
	if Days(7) != 7*24*time.Hour {
		t.Fatalf("unexpected duration %v", Days(7))
	}
}
