// Package config holds the TOML configuration: storage endpoint,
// output area, template directory, image provider and logging.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config is the full configuration file.
type Config struct {
	Storage   StorageConfig   `toml:"storage"`
	Output    OutputConfig    `toml:"output"`
	Templates TemplatesConfig `toml:"templates"`
	Images    ImagesConfig    `toml:"images"`
	Logging   LoggingConfig   `toml:"logging"`
}

// StorageConfig points at the remote file-storage API.
type StorageConfig struct {
	BaseURL string `toml:"base_url"`
	Token   string `toml:"token"`
}

// OutputConfig controls the local export area.
type OutputConfig struct {
	Dir              string `toml:"dir"`
	BaseURL          string `toml:"base_url"`
	RetentionMinutes int    `toml:"retention_minutes"`
	Persistent       bool   `toml:"persistent"`
}

// TemplatesConfig points at the directory of default document
// templates.
type TemplatesConfig struct {
	Dir string `toml:"dir"`
}

// ImagesConfig selects and authenticates the image search provider.
type ImagesConfig struct {
	Source      string `toml:"source"`
	UnsplashKey string `toml:"unsplash_key"`
	PexelsKey   string `toml:"pexels_key"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Output: OutputConfig{
			Dir:              "output",
			BaseURL:          "http://localhost:9003/files",
			RetentionMinutes: 60,
		},
		Images:  ImagesConfig{Source: "unsplash"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Path returns the config file location.
func Path() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "fileforge", "config.toml")
}

// Load reads the config file, falling back to defaults when it does
// not exist yet.
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom reads a config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to its default location.
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

// SaveTo writes the config to an explicit path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create config: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// TemplatePath finds the first template in the templates dir with the
// given extension. Empty when none is configured or present.
func (c *Config) TemplatePath(ext string) string {
	if c.Templates.Dir == "" {
		return ""
	}
	entries, err := os.ReadDir(c.Templates.Dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), "."+ext) {
			return filepath.Join(c.Templates.Dir, e.Name())
		}
	}
	return ""
}
