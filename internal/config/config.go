// Package config loads planfactor configuration from an optional TOML
// file, falling back to defaults when the file is absent.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all runtime settings.
type Config struct {
	// DataDir is where the sqlite database lives. Supports ~ expansion.
	DataDir string `toml:"data_dir"`
	// MaxLevel caps goal tree depth (root = level 1).
	MaxLevel int `toml:"max_level"`
	// MaxClassifiers caps how many classifiers one combination run may use.
	MaxClassifiers int `toml:"max_classifiers"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:        filepath.Join(home, ".planfactor"),
		MaxLevel:       15,
		MaxClassifiers: 4,
		LogLevel:       "info",
	}
}

// DefaultPath returns the default config file location,
// ~/.planfactor/config.toml.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".planfactor", "config.toml")
}

// Load reads the TOML file at path and overlays it onto the defaults.
// A missing file is not an error; a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxLevel < 2 {
		return fmt.Errorf("max_level must be at least 2, got %d", c.MaxLevel)
	}
	if c.MaxClassifiers < 2 {
		return fmt.Errorf("max_classifiers must be at least 2, got %d", c.MaxClassifiers)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
