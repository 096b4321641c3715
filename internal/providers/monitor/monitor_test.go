package monitor

import (
	"context"
	"testing"
)

func TestAbsentProviderReportsUnavailable(t *testing.T) {
	p := Absent()
	if p.Available(context.Background()) {
		t.Fatalf("expected absent monitor to be unavailable")
	}
	if _, err := p.Status(context.Background()); err == nil {
		t.Fatalf("expected Status on absent monitor to error")
	}
}

func TestLazyMonitorInitializesOnFirstStatusCall(t *testing.T) {
	p := New()
	if !p.Available(context.Background()) {
		t.Fatalf("expected lazy monitor to always be available once constructed")
	}

	first, err := p.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !first.Running || first.LastSummary == "" {
		t.Fatalf("expected first Status call to initialize, got %+v", first)
	}

	second, err := p.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if second.LastRunAt != first.LastRunAt {
		t.Fatalf("expected Status to report the same initialized state on subsequent calls, not reinitialize")
	}
}
