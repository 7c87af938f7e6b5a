// Package config provides configuration management for the sales worker.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is read when no -config flag is given and the file exists.
const DefaultConfigPath = "configs/worker.yaml"

// Environment overrides.
const (
	EnvOutputDir = "SALES_OUTPUT_DIR"
	EnvSourceURL = "SALES_SOURCE_URL"
	EnvLogLevel  = "SALES_LOG_LEVEL"
	EnvArchiveDB = "SALES_ARCHIVE_DB"
)

// Configuration validation errors.
var (
	ErrMissingSourceURL         = errors.New("source.url is required")
	ErrInvalidSourceURL         = errors.New("source.url must be an absolute http(s) URL")
	ErrInvalidTimeout           = errors.New("source.timeout_sec must be at least 1")
	ErrInvalidMaxBody           = errors.New("source.max_body_kb must be at least 1")
	ErrInvalidMaxAttempts       = errors.New("retry.max_attempts must be at least 1")
	ErrInvalidInitialDelay      = errors.New("retry.initial_delay_ms must be non-negative")
	ErrInvalidBackoffMultiplier = errors.New("retry.backoff_multiplier must be >= 1.0")
	ErrMissingOutputPath        = errors.New("output.base_path is required")
	ErrMissingArchivePath       = errors.New("archive.db_path is required when the archive is enabled")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config represents the complete worker configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Retry   RetryPolicy   `yaml:"retry"`
	Output  OutputConfig  `yaml:"output"`
	Archive ArchiveConfig `yaml:"archive"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig describes the dashboard endpoint.
type SourceConfig struct {
	URL        string `yaml:"url"`
	UserAgent  string `yaml:"user_agent"`
	TimeoutSec int    `yaml:"timeout_sec"`
	MaxBodyKb  int    `yaml:"max_body_kb"`
}

// RetryPolicy defines retry behavior.
type RetryPolicy struct {
	MaxAttempts       int     `yaml:"max_attempts"`
	InitialDelayMs    int     `yaml:"initial_delay_ms"`
	MaxDelayMs        int     `yaml:"max_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
}

// OutputConfig defines where and what the writer emits.
type OutputConfig struct {
	BasePath string `yaml:"base_path"`
	Charts   bool   `yaml:"charts"`
	Workbook bool   `yaml:"workbook"`
}

// ArchiveConfig controls the optional SQLite mirror.
type ArchiveConfig struct {
	DBPath  string `yaml:"db_path"`
	Enabled bool   `yaml:"enabled"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			URL: "https://web.azpdl.cn/sale/info",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
			TimeoutSec: 30,
			MaxBodyKb:  4096,
		},
		Retry: RetryPolicy{
			MaxAttempts:       1,
			InitialDelayMs:    500,
			MaxDelayMs:        30000,
			BackoffMultiplier: 2.0,
		},
		Output: OutputConfig{
			BasePath: "data",
			Charts:   true,
		},
		Archive: ArchiveConfig{
			DBPath: "data/sales.db",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file layered over Default.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Load resolves the effective configuration: an explicit path, else
// DefaultConfigPath when it exists, else Default. Environment overrides
// are applied last.
func Load(path string, lookup func(string) (string, bool)) (*Config, error) {
	var cfg *Config

	switch {
	case path != "":
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}

		cfg = loaded
	default:
		if _, statErr := os.Stat(DefaultConfigPath); statErr == nil {
			loaded, err := LoadConfig(DefaultConfigPath)
			if err != nil {
				return nil, err
			}

			cfg = loaded
		} else {
			cfg = Default()
		}
	}

	cfg.ApplyEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}

	if v, ok := lookup(EnvOutputDir); ok && strings.TrimSpace(v) != "" {
		c.Output.BasePath = strings.TrimSpace(v)
	}

	if v, ok := lookup(EnvSourceURL); ok && strings.TrimSpace(v) != "" {
		c.Source.URL = strings.TrimSpace(v)
	}

	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}

	if v, ok := lookup(EnvArchiveDB); ok && strings.TrimSpace(v) != "" {
		c.Archive.DBPath = strings.TrimSpace(v)
		c.Archive.Enabled = true
	}
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Source.URL) == "" {
		return ErrMissingSourceURL
	}

	u, err := url.Parse(c.Source.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSourceURL, c.Source.URL)
	}

	if c.Source.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}

	if c.Source.MaxBodyKb < 1 {
		return ErrInvalidMaxBody
	}

	if c.Retry.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}

	if c.Retry.InitialDelayMs < 0 {
		return ErrInvalidInitialDelay
	}

	if c.Retry.BackoffMultiplier < 1.0 {
		return ErrInvalidBackoffMultiplier
	}

	if strings.TrimSpace(c.Output.BasePath) == "" {
		return ErrMissingOutputPath
	}

	if c.Archive.Enabled && strings.TrimSpace(c.Archive.DBPath) == "" {
		return ErrMissingArchivePath
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	return nil
}

// GetRetryDelay calculates exponential backoff delay for attempt number.
func (rp *RetryPolicy) GetRetryDelay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}

	delayMs := float64(rp.InitialDelayMs)
	for i := 1; i < attempt; i++ {
		delayMs *= rp.BackoffMultiplier
	}

	// Cap at max delay
	if int(delayMs) > rp.MaxDelayMs {
		delayMs = float64(rp.MaxDelayMs)
	}

	return time.Duration(int(delayMs)) * time.Millisecond
}

// GetTimeout returns the per-request timeout.
func (s *SourceConfig) GetTimeout() time.Duration {
	return time.Duration(s.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Source: %s, MaxAttempts: %d, Output: %s, Archive: %t}",
		c.Source.URL,
		c.Retry.MaxAttempts,
		c.Output.BasePath,
		c.Archive.Enabled,
	)
}
