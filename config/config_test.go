package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Include.MaxDepth != 256 {
		t.Errorf("expected MaxDepth=256, got %d", cfg.Include.MaxDepth)
	}
	if cfg.Macro.MaxExpansionDepth != 128 {
		t.Errorf("expected MaxExpansionDepth=128, got %d", cfg.Macro.MaxExpansionDepth)
	}
	if cfg.Toolchain.FasmPath != "fasm" {
		t.Errorf("expected FasmPath=fasm, got %s", cfg.Toolchain.FasmPath)
	}
	if !cfg.Toolchain.KeepAsm {
		t.Error("expected KeepAsm=true")
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()
	if path == "" {
		t.Fatal("GetConfigPath returned empty string")
	}
	if filepath.Base(path) != "loisp.toml" {
		t.Errorf("expected path to end with loisp.toml, got %s", path)
	}
}

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.Include.MaxDepth != 256 {
		t.Errorf("expected defaults when file is missing, got MaxDepth=%d", cfg.Include.MaxDepth)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loisp.toml")
	cfg := DefaultConfig()
	cfg.Toolchain.FasmPath = "/opt/fasm/fasm"
	cfg.Include.MaxDepth = 42

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("unexpected error saving: %s", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected config file to exist: %s", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error loading: %s", err)
	}
	if loaded.Toolchain.FasmPath != "/opt/fasm/fasm" {
		t.Errorf("expected FasmPath to round-trip, got %s", loaded.Toolchain.FasmPath)
	}
	if loaded.Include.MaxDepth != 42 {
		t.Errorf("expected MaxDepth to round-trip, got %d", loaded.Include.MaxDepth)
	}
}
