package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestSlogJSONIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("instrument", "rover-1")).Warn(context.Background(), "scalar parse failed",
		String("key", "Minmus"),
		Float64("fallback", 1.0),
	)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["msg"] != "scalar parse failed" {
		t.Fatalf("msg = %v", entry["msg"])
	}
	if entry["instrument"] != "rover-1" || entry["key"] != "Minmus" {
		t.Fatalf("missing fields in %v", entry)
	}
}

func TestSlogLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Output: &buf})

	log.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	log.Error(context.Background(), "kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("error line missing: %q", buf.String())
	}
}

func TestZapBackendWrites(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Backend: "zap", Output: &buf})

	log.Info(context.Background(), "tick", Int("index", 3), Bool("skipped", false))

	out := buf.String()
	if !strings.Contains(out, `"msg":"tick"`) || !strings.Contains(out, `"index":3`) {
		t.Fatalf("unexpected zap output %q", out)
	}
}

func TestLoggerFromContextFallsBackToNoop(t *testing.T) {
	if LoggerFromContext(context.Background()) == nil {
		t.Fatalf("LoggerFromContext must never return nil")
	}

	var buf bytes.Buffer
	base := New(Config{Output: &buf})
	ctx := ContextWithLogger(context.Background(), base)
	LoggerFromContext(ctx).Info(ctx, "hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("context logger not used: %q", buf.String())
	}
}

func TestWithRequestLoggerReusesID(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" {
		t.Fatalf("expected generated id")
	}
	ctx2, _ := WithRequestLogger(ctx, nil)
	if got := RequestIDFromContext(ctx2); got != id {
		t.Fatalf("request id = %q, want %q", got, id)
	}
}
