// Package config loads persistent defaults for fasterq-dump from a
// YAML file. Command-line flags always override file values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glarue/fasterq-dump/internal/paths"
	"gopkg.in/yaml.v3"
)

// Config holds batch defaults that users tend to set once.
type Config struct {
	Utilities         string `yaml:"utilities"`            // all|curl|wget|prefetch|http
	KeepRawFiles      bool   `yaml:"keep_raw_files"`
	TrinityIDs        bool   `yaml:"trinity_compatible_ids"`
	Aspera            bool   `yaml:"aspera"`
	Strict            bool   `yaml:"strict"`
	LogFile           string `yaml:"log_file"`
	PrefetchMaxSizeKB int64  `yaml:"prefetch_max_size_kb"`
	ConfirmAbove      int    `yaml:"confirm_above"`   // accession count requiring a prompt
	SettleSeconds     int    `yaml:"settle_seconds"`  // pause after each conversion
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Utilities:         "all",
		LogFile:           "fasterq-dump.log",
		PrefetchMaxSizeKB: 80_000_000,
		ConfirmAbove:      25,
		SettleSeconds:     2,
	}
}

// Load reads a config file, returning defaults when it does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration, creating its directory if needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultPath locates the config file: explicit env override first,
// then a file in the working directory, then the XDG location.
func DefaultPath() string {
	if path := os.Getenv("FASTERQ_DUMP_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat("fasterq-dump.yaml"); err == nil {
		return "fasterq-dump.yaml"
	}
	return paths.ConfigFile()
}
