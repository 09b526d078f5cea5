// Package config manages annotstore's tool configuration. An optional
// annotstore.toml, discovered by walking up from the working directory,
// sets defaults for flags like the catalog location and log verbosity.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	// ConfigFile is the discovered configuration file name.
	ConfigFile = "annotstore.toml"
	// DefaultCatalogFile is the run catalog written next to the config
	// file, or the working directory when no config exists.
	DefaultCatalogFile = "annotstore.db"
)

// Config represents the annotstore tool configuration.
type Config struct {
	// CatalogPath overrides where the run catalog database lives.
	CatalogPath string `toml:"catalog_path"`
	// LogLevel is the default log level (debug, info, warn, error).
	LogLevel string `toml:"log_level"`
	// LogFormat is the default log output format (text or json).
	LogFormat string `toml:"log_format"`
	path      string // directory holding the config file
}

// Default returns the configuration used when no annotstore.toml exists.
func Default() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// findConfigFile walks up from the working directory looking for
// annotstore.toml.
func findConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		configPath := filepath.Join(dir, ConfigFile)
		if info, err := os.Stat(configPath); err == nil && !info.IsDir() {
			return configPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}

// Load finds and parses the configuration. When no config file exists
// anywhere up the tree, the defaults are returned.
func Load() (*Config, error) {
	configPath, err := findConfigFile()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(configPath)
}

// LoadFile parses the configuration at an explicit path.
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = filepath.Dir(configPath)
	return cfg, nil
}

// Save writes the configuration back to its file.
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("configuration has no file to save to")
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// CatalogDatabasePath resolves the run catalog location: the configured
// path if set, otherwise the default file next to the config (or in the
// working directory without one).
func (c *Config) CatalogDatabasePath() string {
	if c.CatalogPath != "" {
		return c.CatalogPath
	}
	if c.path != "" {
		return filepath.Join(c.path, DefaultCatalogFile)
	}
	return DefaultCatalogFile
}
