package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
capabilities:
  source_url: https://example.com/models.json
openai_compatible:
  base_url: http://localhost:11434/v1
logging:
  level: verbose
retry:
  max_retries: 1
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Capabilities.SourceURL != "https://example.com/models.json" {
		t.Errorf("unexpected capabilities URL: %q", cfg.Capabilities.SourceURL)
	}
	if cfg.Compatible.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("unexpected compatible base URL: %q", cfg.Compatible.BaseURL)
	}
	if cfg.Logging.Level != "verbose" || cfg.Retry.MaxRetries != 1 {
		t.Errorf("unexpected config: %+v", cfg)
	}
}

func TestLoad_DefaultsForOmittedFields(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 3000
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Logging.Level != "standard" {
		t.Errorf("expected default log level, got %q", cfg.Logging.Level)
	}
	if cfg.Retry.MaxRetries != 2 {
		t.Errorf("expected default max retries, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Compatible.BaseURL != "" {
		t.Errorf("expected compatible route disabled by default, got %q", cfg.Compatible.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{"valid defaults", func(cfg *Config) {}, ""},
		{"bad port", func(cfg *Config) { cfg.Server.Port = 0 }, "server.port"},
		{"port too high", func(cfg *Config) { cfg.Server.Port = 70000 }, "server.port"},
		{"bad log level", func(cfg *Config) { cfg.Logging.Level = "debug" }, "logging.level"},
		{"negative retries", func(cfg *Config) { cfg.Retry.MaxRetries = -1 }, "max_retries"},
		{"bad capability scheme", func(cfg *Config) { cfg.Capabilities.SourceURL = "ftp://example.com/models.json" }, "http or https"},
		{"hostless compatible url", func(cfg *Config) { cfg.Compatible.BaseURL = "https://" }, "no host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
