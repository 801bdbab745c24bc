// Package config loads and validates the chatd YAML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration parsed from YAML.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Compatible   CompatibleConfig   `yaml:"openai_compatible"`
	Logging      LoggingConfig      `yaml:"logging"`
	Retry        RetryConfig        `yaml:"retry"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// CapabilitiesConfig points at the remote model capability table. An empty
// source_url keeps the process on the built-in fallback table.
type CapabilitiesConfig struct {
	SourceURL string `yaml:"source_url"`
}

// CompatibleConfig configures the OpenAI-compatible route. Leaving base_url
// empty disables the route.
type CompatibleConfig struct {
	BaseURL string `yaml:"base_url"`
}

// LoggingConfig selects log verbosity: "minimal", "standard", or "verbose".
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// RetryConfig tunes the orchestrator's retry middleware.
type RetryConfig struct {
	MaxRetries int `yaml:"max_retries"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Server:  ServerConfig{Port: 8080},
		Logging: LoggingConfig{Level: "standard"},
		Retry:   RetryConfig{MaxRetries: 2},
	}
}

// Load reads YAML configuration from disk, applies defaults for omitted
// fields, and validates the result.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	switch c.Logging.Level {
	case "minimal", "standard", "verbose":
	default:
		return fmt.Errorf("logging.level must be one of minimal, standard, verbose, got %q", c.Logging.Level)
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", c.Retry.MaxRetries)
	}

	if err := validateHTTPURL("capabilities.source_url", c.Capabilities.SourceURL); err != nil {
		return err
	}
	if err := validateHTTPURL("openai_compatible.base_url", c.Compatible.BaseURL); err != nil {
		return err
	}

	return nil
}

func validateHTTPURL(field, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid URL %q: %w", field, raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s: URL %q must use http or https", field, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s: URL %q has no host", field, raw)
	}
	return nil
}
