package config

import (
	"fmt"
	"strings"
)

// Validate checks that the config has usable values.
func (c *Config) Validate() error {
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.Output.RetentionMinutes < 0 {
		return fmt.Errorf("output.retention_minutes must not be negative")
	}
	if c.Storage.BaseURL != "" && !strings.HasPrefix(c.Storage.BaseURL, "http") {
		return fmt.Errorf("storage.base_url must be an http(s) URL")
	}

	switch c.Images.Source {
	case "", "unsplash", "pexels":
	default:
		return fmt.Errorf("images.source must be one of: unsplash, pexels")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	return nil
}

// Redact returns a copy of the config with secrets masked for display.
func (c *Config) Redact() *Config {
	copy := *c
	copy.Storage.Token = redactKey(c.Storage.Token)
	copy.Images.UnsplashKey = redactKey(c.Images.UnsplashKey)
	copy.Images.PexelsKey = redactKey(c.Images.PexelsKey)
	return &copy
}

func redactKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
