package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter("dispensary-test", &buf)
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	SetLevel("debug")

	ctx := WithRequestID(context.Background(), "req-42")
	Info(ctx).Str("unit", "7").Msg("dispensed")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-42" {
		t.Fatalf("expected request_id, got %v", entry)
	}
	if entry["service"] != "dispensary-test" {
		t.Fatalf("expected service field, got %v", entry)
	}
	if _, ok := entry["trace_id"]; ok {
		t.Fatalf("no span in context, trace_id must be absent")
	}
}

func TestSetLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	SetLevel("chatty")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", zerolog.GlobalLevel())
	}
	SetLevel("warn")
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", zerolog.GlobalLevel())
	}
}
