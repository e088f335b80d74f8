// Package config loads datawizard settings from defaults, an optional YAML
// config file and DATAWIZARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DATAWIZARD_MODEL.
const EnvPrefix = "DATAWIZARD"

// Config holds every datawizard setting.
type Config struct {
	Executors string `mapstructure:"executors" yaml:"executors"`
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`

	OllamaHost     string  `mapstructure:"ollama_host" yaml:"ollama_host"`
	HTTPTimeoutSec int     `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	MaxTokens      int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature" yaml:"temperature"`

	// SampleBytes bounds the dataset excerpt placed in prompts.
	SampleBytes int `mapstructure:"sample_bytes" yaml:"sample_bytes"`
	MockDelayMs int `mapstructure:"mock_delay_ms" yaml:"mock_delay_ms"`

	BatchConcurrency int `mapstructure:"batch_concurrency" yaml:"batch_concurrency"`

	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string `mapstructure:"log_format" yaml:"log_format"`
	MetricsAddr string `mapstructure:"metrics_addr" yaml:"metrics_addr"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"executors":         "mock",
		"provider":          "openrouter",
		"model":             "openai/gpt-4o-mini",
		"api_key":           "",
		"base_url":          "https://openrouter.ai/api/v1",
		"ollama_host":       "http://127.0.0.1:11434",
		"http_timeout_sec":  60,
		"max_tokens":        2048,
		"temperature":       0.2,
		"sample_bytes":      8192,
		"mock_delay_ms":     1000,
		"batch_concurrency": 4,
		"log_level":         "warn",
		"log_format":        "text",
		"metrics_addr":      "",
	}
}

// ConfigFiles returns the candidate config file locations in lookup order:
// the working directory first, then the user's home.
func ConfigFiles(dir string) []string {
	out := []string{
		filepath.Join(dir, "datawizard.yaml"),
		filepath.Join(dir, "datawizard.yml"),
	}
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, DefaultPath(home))
	}
	return out
}

// DefaultPath is the config file written by Save when no path is given.
func DefaultPath(home string) string {
	return filepath.Join(home, ".datawizard", "config.yaml")
}

// Load resolves the configuration. Precedence: env > config file > defaults.
// cfgFile, when set, must exist; otherwise the first file found by
// ConfigFiles(dir) is used, if any. The second return value is the file that
// was read, or "".
func Load(cfgFile, dir string) (*Config, string, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	for k, val := range Defaults() {
		v.SetDefault(k, val)
	}

	used := cfgFile
	if used == "" {
		for _, path := range ConfigFiles(dir) {
			if _, err := os.Stat(path); err == nil {
				used = path
				break
			}
		}
	}
	if used != "" {
		v.SetConfigFile(used)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, "", fmt.Errorf("config: read %s: %w", used, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, "", fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, "", err
	}
	return &c, used, nil
}

// Validate checks the enumerated and numeric settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Executors != "mock" && c.Executors != "live" {
		errs = append(errs, fmt.Errorf("executors must be mock or live, got %q", c.Executors))
	}
	if c.Provider != "openrouter" && c.Provider != "ollama" && c.Provider != "auto" {
		errs = append(errs, fmt.Errorf("provider must be openrouter, ollama or auto, got %q", c.Provider))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.HTTPTimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("http_timeout_sec must be positive, got %d", c.HTTPTimeoutSec))
	}
	if c.SampleBytes <= 0 {
		errs = append(errs, fmt.Errorf("sample_bytes must be positive, got %d", c.SampleBytes))
	}
	if c.MockDelayMs < 0 {
		errs = append(errs, fmt.Errorf("mock_delay_ms must not be negative, got %d", c.MockDelayMs))
	}
	if c.BatchConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("batch_concurrency must be positive, got %d", c.BatchConcurrency))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// HTTPTimeout is HTTPTimeoutSec as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// MockDelay is MockDelayMs as a duration.
func (c *Config) MockDelay() time.Duration {
	return time.Duration(c.MockDelayMs) * time.Millisecond
}

// Redacted returns a copy with the API key masked.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "****"
	}
	return c
}

// Save writes c as YAML to path, creating parent directories. An empty path
// writes to DefaultPath in the user's home.
func Save(c *Config, path string) (string, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("config: resolve home dir: %w", err)
		}
		path = DefaultPath(home)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("config: mkdir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("config: marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return "", fmt.Errorf("config: write: %w", err)
	}
	return path, nil
}
