package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "dexscreener.sqlite" {
		t.Errorf("expected default store path, got %q", cfg.Store.Path)
	}
	if cfg.Poller.IntervalSec != 30.0 {
		t.Errorf("expected default poller interval 30s, got %v", cfg.Poller.IntervalSec)
	}
	if cfg.Poller.PruneMaxAgeHours != 24.0 {
		t.Errorf("expected default prune max age 24h, got %v", cfg.Poller.PruneMaxAgeHours)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file should not error, got: %v", err)
	}
	if cfg.Fetcher.BaseURL == "" {
		t.Error("expected fetcher defaults to still be applied")
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "store:\n  path: custom.sqlite\npoller:\n  interval_sec: 45\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "custom.sqlite" {
		t.Errorf("expected overridden store path, got %q", cfg.Store.Path)
	}
	if cfg.Poller.IntervalSec != 45.0 {
		t.Errorf("expected overridden poller interval, got %v", cfg.Poller.IntervalSec)
	}
	if cfg.Poller.PruneMaxAgeHours != 24.0 {
		t.Errorf("expected untouched default to survive a partial override, got %v", cfg.Poller.PruneMaxAgeHours)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SCREENERD_STORE_PATH", "from-env.sqlite")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Store.Path != "from-env.sqlite" {
		t.Errorf("expected SCREENERD_STORE_PATH to override default, got %q", cfg.Store.Path)
	}
}
