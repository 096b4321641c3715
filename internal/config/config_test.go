package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("BRIDGE_TOKEN", "")
	t.Setenv("BRIDGE_PORT", "")
	t.Setenv("BRIDGE_DEBUG", "")
	t.Setenv("BRIDGE_GMAIL_TOKEN", "")
	t.Setenv("BRIDGE_GH_PATH", "")
	t.Setenv("BRIDGE_MONITOR_ENABLED", "")

	cfg := FromEnv()
	if cfg.Port != DefaultPort {
		t.Fatalf("expected default port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.Debug {
		t.Fatalf("expected debug off by default")
	}
	if cfg.StaleBudget != DefaultStaleBudget || cfg.SweepEvery != DefaultSweepEvery {
		t.Fatalf("expected default heartbeat timings, got stale=%s sweep=%s", cfg.StaleBudget, cfg.SweepEvery)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BRIDGE_TOKEN", "secret")
	t.Setenv("BRIDGE_PORT", "9999")
	t.Setenv("BRIDGE_DEBUG", "1")

	cfg := FromEnv()
	if cfg.Token != "secret" || cfg.Port != 9999 || !cfg.Debug {
		t.Fatalf("unexpected config from env: %+v", cfg)
	}
}

func TestFromEnvInvalidPortKeepsDefault(t *testing.T) {
	t.Setenv("BRIDGE_PORT", "not-a-number")
	cfg := FromEnv()
	if cfg.Port != DefaultPort {
		t.Fatalf("expected invalid BRIDGE_PORT to keep default, got %d", cfg.Port)
	}
}

func TestMergeYAMLFileMissingPathIsNotAnError(t *testing.T) {
	cfg := Config{Port: 1234}
	merged, err := MergeYAMLFile(cfg, filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected missing overlay file to not be an error, got %v", err)
	}
	if merged.Port != 1234 {
		t.Fatalf("expected config unchanged when overlay file is absent")
	}
}

func TestMergeYAMLFileOverlaysSetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	content := "allowed_origins:\n  - https://example.com\nrate_limit: 5\nstale_budget: 45s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}

	base := Config{RateLimit: DefaultRateLimit, StaleBudget: DefaultStaleBudget, SweepEvery: DefaultSweepEvery}
	merged, err := MergeYAMLFile(base, path)
	if err != nil {
		t.Fatalf("MergeYAMLFile: %v", err)
	}
	if len(merged.AllowedOrigins) != 1 || merged.AllowedOrigins[0] != "https://example.com" {
		t.Fatalf("expected allowed_origins overlay applied, got %v", merged.AllowedOrigins)
	}
	if merged.RateLimit != 5 {
		t.Fatalf("expected rate_limit overlay applied, got %d", merged.RateLimit)
	}
	if merged.StaleBudget != 45*time.Second {
		t.Fatalf("expected stale_budget overlay applied, got %s", merged.StaleBudget)
	}
	// sweep_every was not set in the overlay; the base value must survive.
	if merged.SweepEvery != DefaultSweepEvery {
		t.Fatalf("expected sweep_every to keep base default, got %s", merged.SweepEvery)
	}
}
