package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("Could not get home dir: %v", err)
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "tilde expands to home",
			input:    "~/reel.log",
			expected: filepath.Join(home, "reel.log"),
		},
		{
			name:     "absolute path unchanged",
			input:    "/var/log/reel.log",
			expected: "/var/log/reel.log",
		},
		{
			name:     "relative path unchanged",
			input:    "logs/reel.log",
			expected: "logs/reel.log",
		},
		{
			name:     "empty string unchanged",
			input:    "",
			expected: "",
		},
		{
			name:     "tilde only",
			input:    "~",
			expected: home,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandPath(tt.input)
			if result != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := getConfigPaths()

	if len(paths) == 0 {
		t.Error("getConfigPaths() returned empty slice")
	}

	// Last path should be local config.toml (highest priority)
	lastPath := paths[len(paths)-1]
	if lastPath != "config.toml" {
		t.Errorf("last config path = %q, want %q", lastPath, "config.toml")
	}

	if home, err := os.UserHomeDir(); err == nil {
		expectedFirst := filepath.Join(home, ".config", "reel", "config.toml")
		if paths[0] != expectedFirst {
			t.Errorf("first config path = %q, want %q", paths[0], expectedFirst)
		}
	}
}

func TestResumeEnabled(t *testing.T) {
	var cfg Config
	if !cfg.ResumeEnabled() {
		t.Error("resume should default to true")
	}

	off := false
	cfg.Resume = &off
	if cfg.ResumeEnabled() {
		t.Error("resume = false should disable restore")
	}

	on := true
	cfg.Resume = &on
	if !cfg.ResumeEnabled() {
		t.Error("resume = true should enable restore")
	}
}

func TestLoad_BasicConfig(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	configContent := `
default_url = "https://example.com/stream.m3u8"

[mpv]
path = "~/bin/mpv"
extra_args = ["--hwdec=auto"]

[log]
level = "debug"
file = "~/reel.log"
`
	if err := os.WriteFile("config.toml", []byte(configContent), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DefaultURL != "https://example.com/stream.m3u8" {
		t.Errorf("DefaultURL = %q", cfg.DefaultURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if len(cfg.Mpv.ExtraArgs) != 1 || cfg.Mpv.ExtraArgs[0] != "--hwdec=auto" {
		t.Errorf("Mpv.ExtraArgs = %v", cfg.Mpv.ExtraArgs)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "bin", "mpv"); cfg.Mpv.Path != want {
		t.Errorf("Mpv.Path = %q, want %q", cfg.Mpv.Path, want)
	}
	if want := filepath.Join(home, "reel.log"); cfg.Log.File != want {
		t.Errorf("Log.File = %q, want %q", cfg.Log.File, want)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	if err := os.WriteFile("config.toml", []byte(""), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("Load() returned nil config")
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	tmpDir := t.TempDir()
	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("could not get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("could not change to temp directory: %v", err)
	}
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	if err := os.WriteFile("config.toml", []byte("invalid = [[["), 0o600); err != nil {
		t.Fatalf("could not write config file: %v", err)
	}

	if _, err = Load(); err == nil {
		t.Error("Load() expected error for invalid TOML, got nil")
	}
}
