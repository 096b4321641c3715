package bridgelog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestAdapterEmitsMessageAndLevel(t *testing.T) {
	var buf bytes.Buffer
	a := Adapter{Log: zerolog.New(&buf)}

	a.Warn("heartbeat: keep-alive write failed", map[string]any{"error": "boom"})

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Fatalf("expected warn level in output, got %s", out)
	}
	if !strings.Contains(out, "heartbeat: keep-alive write failed") {
		t.Fatalf("expected message in output, got %s", out)
	}
	if !strings.Contains(out, `"error":"boom"`) {
		t.Fatalf("expected the fields map to be flattened into structured fields, got %s", out)
	}
}

func TestNewUsesDebugLevelWhenRequested(t *testing.T) {
	if lvl := New(true).GetLevel(); lvl != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", lvl)
	}
	if lvl := New(false).GetLevel(); lvl != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", lvl)
	}
}
