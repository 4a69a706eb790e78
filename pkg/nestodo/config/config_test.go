package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.Path != "nestodo.db" {
		t.Errorf("Expected default database path nestodo.db, got %s", cfg.Database.Path)
	}
	if cfg.JWT.Expiration != 24*time.Hour {
		t.Errorf("Expected default JWT expiration 24h, got %s", cfg.JWT.Expiration)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("NESTODO_SERVER_PORT", "9090")
	t.Setenv("NESTODO_DATABASE_PATH", "/tmp/override.db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090 from environment, got %s", cfg.Server.Port)
	}
	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Expected overridden database path, got %s", cfg.Database.Path)
	}
}
