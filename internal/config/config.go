// Package config loads bridge configuration. Environment variables are the
// primary source (spec.md §6); an optional YAML file layers origin
// allow-list, rate-limit, heartbeat-timing and provider-location overrides on
// top (capability descriptors are not configurable from it), using the same
// yaml:"..." tag convention the
// teacher's connector.Config uses (configupgrade's versioned-upgrade
// machinery is bridgev2-specific and is not carried here — see DESIGN.md).
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort        = 3456
	DefaultStaleBudget = 30 * time.Second
	DefaultSweepEvery  = 10 * time.Second
	DefaultRateLimit   = 30
	DefaultRateWindow  = time.Minute
)

// Config is the bridge's resolved runtime configuration.
type Config struct {
	Token string
	Port  int
	Debug bool

	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      int           `yaml:"rate_limit"`
	RateWindow     time.Duration `yaml:"rate_window"`
	StaleBudget    time.Duration `yaml:"stale_budget"`
	SweepEvery     time.Duration `yaml:"sweep_every"`

	GmailBaseURL   string `yaml:"gmail_base_url"`
	GmailToken     string `yaml:"-"`
	GhBinaryPath   string `yaml:"gh_binary_path"`
	MonitorEnabled bool   `yaml:"-"`
}

// FromEnv builds a Config from the environment variables spec.md §6 names,
// applying defaults for anything unset.
func FromEnv() Config {
	cfg := Config{
		Token: os.Getenv("BRIDGE_TOKEN"),
		Port:  DefaultPort,
		Debug: os.Getenv("BRIDGE_DEBUG") != "",

		RateLimit:   DefaultRateLimit,
		RateWindow:  DefaultRateWindow,
		StaleBudget: DefaultStaleBudget,
		SweepEvery:  DefaultSweepEvery,

		GmailToken:     os.Getenv("BRIDGE_GMAIL_TOKEN"),
		GhBinaryPath:   os.Getenv("BRIDGE_GH_PATH"),
		MonitorEnabled: os.Getenv("BRIDGE_MONITOR_ENABLED") != "",
	}
	if raw := os.Getenv("BRIDGE_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil {
			cfg.Port = port
		}
	}
	return cfg
}

// MergeYAMLFile layers optional overrides from path onto cfg. A missing
// file is not an error (spec.md §7 "absence of the flag is not an error").
func MergeYAMLFile(cfg Config, path string) (Config, error) {
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	var overlay Config
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return cfg, err
	}
	if len(overlay.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = overlay.AllowedOrigins
	}
	if overlay.RateLimit > 0 {
		cfg.RateLimit = overlay.RateLimit
	}
	if overlay.RateWindow > 0 {
		cfg.RateWindow = overlay.RateWindow
	}
	if overlay.StaleBudget > 0 {
		cfg.StaleBudget = overlay.StaleBudget
	}
	if overlay.SweepEvery > 0 {
		cfg.SweepEvery = overlay.SweepEvery
	}
	if overlay.GmailBaseURL != "" {
		cfg.GmailBaseURL = overlay.GmailBaseURL
	}
	if overlay.GhBinaryPath != "" {
		cfg.GhBinaryPath = overlay.GhBinaryPath
	}
	return cfg, nil
}
