// Package config provides configuration loading and management for cwarden.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete cwarden configuration.
type Config struct {
	Rules  RulesConfig  `yaml:"rules"`
	Scan   ScanConfig   `yaml:"scan"`
	Output OutputConfig `yaml:"output"`
}

// RulesConfig configures rule-set discovery.
type RulesConfig struct {
	// Path is the rule-set file used when the --rules flag is absent.
	Path string `yaml:"path"`
}

// ScanConfig configures the scanning worker pool.
type ScanConfig struct {
	// Workers is the worker-pool size (0 = one per CPU).
	Workers int `yaml:"workers"`
	// Timeout is the per-file scan timeout (0 = none).
	Timeout time.Duration `yaml:"timeout"`
	// Quiet suppresses per-violation console output.
	Quiet bool `yaml:"quiet"`
}

// OutputConfig configures report generation.
type OutputConfig struct {
	// Format selects the report renderer (json, markdown, csv, html).
	Format string `yaml:"format"`
	// Dir is where timestamped reports land when no explicit output path
	// is given.
	Dir string `yaml:"dir"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Rules: RulesConfig{
			Path: "cwarden-rules.yaml",
		},
		Scan: ScanConfig{
			Workers: 0,
			Timeout: 30 * time.Second,
		},
		Output: OutputConfig{
			Format: "json",
			Dir:    "reports",
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch c.Output.Format {
	case "json", "markdown", "csv", "html":
	default:
		return fmt.Errorf("output.format must be one of json, markdown, csv, html")
	}
	if c.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative")
	}
	if c.Scan.Timeout < 0 {
		return fmt.Errorf("scan.timeout must not be negative")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
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

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Rules.Path != "" {
		c.Rules.Path = other.Rules.Path
	}

	if other.Scan.Workers != 0 {
		c.Scan.Workers = other.Scan.Workers
	}
	if other.Scan.Timeout != 0 {
		c.Scan.Timeout = other.Scan.Timeout
	}
	if other.Scan.Quiet {
		c.Scan.Quiet = true
	}

	if other.Output.Format != "" {
		c.Output.Format = other.Output.Format
	}
	if other.Output.Dir != "" {
		c.Output.Dir = other.Output.Dir
	}
}
