// Package config loads the compiler's TOML configuration, following the
// same nested-struct-with-tags, DefaultConfig/GetConfigPath/Load/Save
// shape as the teacher's own config package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config is the compiler's on-disk configuration (`loisp.toml`).
type Config struct {
	Include struct {
		SearchRoots []string `toml:"search_roots"`
		MaxDepth    int      `toml:"max_depth"`
	} `toml:"include"`

	Macro struct {
		MaxExpansionDepth int `toml:"max_expansion_depth"`
	} `toml:"macro"`

	Toolchain struct {
		FasmPath string `toml:"fasm_path"`
		KeepAsm  bool   `toml:"keep_asm"`
		Verbose  bool   `toml:"verbose"`
	} `toml:"toolchain"`

	Server struct {
		ListenAddr string `toml:"listen_addr"`
	} `toml:"server"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Include.SearchRoots = []string{"."}
	cfg.Include.MaxDepth = 256
	cfg.Macro.MaxExpansionDepth = 128
	cfg.Toolchain.FasmPath = "fasm"
	cfg.Toolchain.KeepAsm = true
	cfg.Server.ListenAddr = "127.0.0.1:4470"
	return cfg
}

// GetConfigPath returns the platform-specific config file path, creating
// its containing directory if necessary.
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "loisp")

	case "darwin", "linux":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "loisp.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "loisp")

	default:
		return "loisp.toml"
	}

	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return "loisp.toml"
	}

	return filepath.Join(configDir, "loisp.toml")
}

// Load loads configuration from the default config file.
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from path, falling back to defaults when
// the file doesn't exist.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file.
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path) // #nosec G304 -- path is either the caller-supplied config path or the platform default
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}
