package config

import (
	"os"
	"path/filepath"
	"testing"
)

// --- Default ---

func TestDefault_Values(t *testing.T) {
	cfg := Default()
	if cfg.MaxLevel != 15 {
		t.Errorf("MaxLevel = %d, want 15", cfg.MaxLevel)
	}
	if cfg.MaxClassifiers != 4 {
		t.Errorf("MaxClassifiers = %d, want 4", cfg.MaxClassifiers)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir empty")
	}
}

// --- Load ---

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "max_level = 5\nlog_level = \"debug\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxLevel != 5 {
		t.Errorf("MaxLevel = %d, want 5", cfg.MaxLevel)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	// Untouched keys keep defaults.
	if cfg.MaxClassifiers != 4 {
		t.Errorf("MaxClassifiers = %d, want default 4", cfg.MaxClassifiers)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"max_level too small", "max_level = 1\n"},
		{"bad log level", "log_level = \"loud\"\n"},
		{"malformed toml", "max_level = = 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load accepted invalid config")
			}
		})
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandHome("~/x"); got != filepath.Join(home, "x") {
		t.Errorf("expandHome(~/x) = %s", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Errorf("expandHome(/abs/path) = %s", got)
	}
}
