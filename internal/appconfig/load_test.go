package appconfig

import (
	"os"
	"path/filepath"
	"testing"

	"pkt.systems/termmux/schema"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Rows != schema.DefaultRows || cfg.Engine.Backend != string(schema.BackendNative) {
		t.Fatalf("unexpected defaults: %+v", cfg.Engine)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "config_version: 1\nengine:\n  backend: tmux\n  rows: 50\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Backend != "tmux" || cfg.Engine.Rows != 50 {
		t.Fatalf("file values not applied: %+v", cfg.Engine)
	}
	if cfg.Engine.Cols != schema.DefaultCols {
		t.Fatalf("unset field lost its default: %+v", cfg.Engine)
	}
}

func TestLoadRejectsWrongVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("config_version: 99\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected version error")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TERMMUX_ENGINE_ROWS", "33")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Engine.Rows != 33 {
		t.Fatalf("env override not applied: rows %d", cfg.Engine.Rows)
	}
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := WriteDefault(path, false); err != nil {
		t.Fatalf("write default: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatal("expected overwrite refusal")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
}

func TestEngineConfigValidatesBackend(t *testing.T) {
	cfg, err := DefaultConfig()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	cfg.Engine.Backend = "screen"
	if _, err := cfg.EngineConfig(); err == nil {
		t.Fatal("expected invalid backend error")
	}
}
