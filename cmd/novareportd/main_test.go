package main

import (
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_CACHE_HOME", t.TempDir())
	t.Setenv("NOVAREPORT_CONFIG", "")
	t.Setenv("NOVAREPORT_SERVICE_TOKEN", "svc")
	t.Setenv("PORT", "")
	t.Setenv("MIRROR_INTERVAL", "")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("Port = %q, want 8090", cfg.Port)
	}
	if cfg.Interval != 15*time.Minute {
		t.Errorf("Interval = %s, want 15m", cfg.Interval)
	}

	t.Setenv("MIRROR_INTERVAL", "1m")
	t.Setenv("PORT", "9000")
	cfg, err = loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Interval != time.Minute || cfg.Port != "9000" {
		t.Errorf("got interval %s port %s", cfg.Interval, cfg.Port)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("NOVAREPORT_CONFIG", "")

	t.Setenv("NOVAREPORT_SERVICE_TOKEN", "")
	if _, err := loadConfig(); err == nil {
		t.Error("expected error without service token")
	}

	t.Setenv("NOVAREPORT_SERVICE_TOKEN", "svc")
	t.Setenv("MIRROR_INTERVAL", "soon")
	if _, err := loadConfig(); err == nil {
		t.Error("expected error for bad interval")
	}
}
