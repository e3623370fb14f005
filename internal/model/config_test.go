package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.BaseURL != "http://localhost:8000/api" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Display.RefreshIntervalSec != 60 {
		t.Errorf("RefreshIntervalSec = %d", cfg.Display.RefreshIntervalSec)
	}
	if cfg.Cache.Path == "" {
		t.Error("Cache.Path empty")
	}
}

func TestLoadConfigMergesWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("server:\n  base_url: https://admin.corp.example.com/api\n  username: liwei\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.BaseURL != "https://admin.corp.example.com/api" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Username != "liwei" {
		t.Errorf("Username = %q", cfg.Server.Username)
	}
	// Unspecified keys keep their defaults.
	if cfg.Display.RefreshIntervalSec != 60 {
		t.Errorf("RefreshIntervalSec = %d", cfg.Display.RefreshIntervalSec)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.Server.BaseURL = "https://example.test/api"
	cfg.Display.RefreshIntervalSec = 30

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Server.BaseURL != "https://example.test/api" {
		t.Errorf("BaseURL = %q", loaded.Server.BaseURL)
	}
	if loaded.Display.RefreshIntervalSec != 30 {
		t.Errorf("RefreshIntervalSec = %d", loaded.Display.RefreshIntervalSec)
	}
}
