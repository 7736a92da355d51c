package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("decode log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLoggerCarriesContextFields(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	ctx := logg.WithRequestID(context.Background(), "req-1")
	ctx = logg.WithSessionID(ctx, "order_ABC")
	ctx = logg.WithFields(ctx, map[string]any{"attempt": 2})
	logg.Info(ctx, "settlement.start")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry["service"] != "api" {
		t.Fatalf("unexpected service %v", entry["service"])
	}
	if entry["request_id"] != "req-1" || entry["session_id"] != "order_ABC" {
		t.Fatalf("missing context fields: %v", entry)
	}
	if entry["attempt"].(float64) != 2 {
		t.Fatalf("unexpected attempt %v", entry["attempt"])
	}
}

func TestLoggerErrorIncludesStack(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf})

	logg.Error(context.Background(), "boom", errors.New("bad"))

	entries := decodeLines(t, &buf)
	if entries[0]["error"] != "bad" {
		t.Fatalf("expected error field, got %v", entries[0])
	}
	if _, ok := entries[0]["stack"]; !ok {
		t.Fatalf("expected stack on error entries")
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "api", Output: &buf, Level: zerolog.WarnLevel})

	logg.Info(context.Background(), "hidden")
	logg.Warn(context.Background(), "shown")

	entries := decodeLines(t, &buf)
	if len(entries) != 1 || entries[0]["message"] != "shown" {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"garbage": zerolog.InfoLevel,
	}
	for input, want := range cases {
		if got := ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}
