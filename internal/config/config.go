package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	// DefaultURL is pre-filled in the open prompt on startup.
	DefaultURL string `koanf:"default_url"`

	// Resume restores the last playback position per URL (default: true).
	Resume *bool `koanf:"resume"`

	Mpv MpvConfig `koanf:"mpv"`
	Log LogConfig `koanf:"log"`
}

// MpvConfig controls the external mpv process used for streaming sources.
type MpvConfig struct {
	Path      string   `koanf:"path"`       // mpv binary; $PATH lookup when empty
	ExtraArgs []string `koanf:"extra_args"` // appended to the mpv command line
}

// LogConfig controls the log file. The TUI owns the terminal, so there is
// no console output option.
type LogConfig struct {
	Level string `koanf:"level"` // zerolog level name (default: "info")
	File  string `koanf:"file"`  // log file path; logging disabled when empty
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Mpv.Path = expandPath(cfg.Mpv.Path)

	return cfg, nil
}

// ResumeEnabled reports whether position restore is on, defaulting to true.
func (c *Config) ResumeEnabled() bool {
	return c.Resume == nil || *c.Resume
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/reel/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "reel", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
