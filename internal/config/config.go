// File path: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Azure holds the Azure OpenAI connection settings. All four values must be
// present for the Azure provider to be selected.
type Azure struct {
	Endpoint   string `json:"endpoint"`
	APIKey     string `json:"-"`
	APIVersion string `json:"api_version"`
	Deployment string `json:"deployment"`
}

// Configured reports whether any Azure setting is present.
func (a Azure) Configured() bool {
	return a.Endpoint != "" || a.APIKey != "" || a.APIVersion != "" || a.Deployment != ""
}

// Complete reports whether every Azure setting is present.
func (a Azure) Complete() bool {
	return a.Endpoint != "" && a.APIKey != "" && a.APIVersion != "" && a.Deployment != ""
}

// Config captures the runtime settings for the modernization service.
type Config struct {
	Azure Azure `json:"azure"`

	OllamaHost  string `json:"ollama_host"`
	OllamaModel string `json:"ollama_model"`

	ChunkSize    int           `json:"chunk_size"`
	MaxTokens    int           `json:"max_tokens"`
	MaxRetries   int           `json:"max_retries"`
	RetryBackoff time.Duration `json:"-"`
}

// Merge overlays non-zero settings from the override onto the base configuration.
func (c Config) Merge(override Config) Config {
	result := c
	if override.Azure.Configured() {
		result.Azure = override.Azure
	}
	if override.OllamaHost != "" {
		result.OllamaHost = override.OllamaHost
	}
	if override.OllamaModel != "" {
		result.OllamaModel = override.OllamaModel
	}
	if override.ChunkSize > 0 {
		result.ChunkSize = override.ChunkSize
	}
	if override.MaxTokens > 0 {
		result.MaxTokens = override.MaxTokens
	}
	if override.MaxRetries > 0 {
		result.MaxRetries = override.MaxRetries
	}
	if override.RetryBackoff > 0 {
		result.RetryBackoff = override.RetryBackoff
	}
	return result
}

// Load reads the configuration from the environment and applies defaults.
// Azure settings are all-or-nothing: a partial set is a configuration error.
func Load() (Config, error) {
	cfg := Config{
		Azure: Azure{
			Endpoint:   cleanEnv("AZURE_OPENAI_ENDPOINT"),
			APIKey:     cleanEnv("AZURE_OPENAI_API_KEY"),
			APIVersion: cleanEnv("AZURE_OPENAI_API_VERSION"),
			Deployment: cleanEnv("AZURE_OPENAI_DEPLOYMENT_NAME"),
		},
		OllamaHost:  cleanEnv("OLLAMA_HOST"),
		OllamaModel: cleanEnv("OLLAMA_MODEL"),
	}
	if cfg.Azure.Configured() && !cfg.Azure.Complete() {
		return Config{}, errors.New("azure openai environment variables are not configured correctly")
	}
	if raw := cleanEnv("MODERNIZER_CHUNK_SIZE"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse MODERNIZER_CHUNK_SIZE: %w", err)
		}
		if value > 0 {
			cfg.ChunkSize = value
		}
	}
	if raw := cleanEnv("MODERNIZER_MAX_TOKENS"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse MODERNIZER_MAX_TOKENS: %w", err)
		}
		if value > 0 {
			cfg.MaxTokens = value
		}
	}
	if raw := cleanEnv("MODERNIZER_MAX_RETRIES"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse MODERNIZER_MAX_RETRIES: %w", err)
		}
		if value > 0 {
			cfg.MaxRetries = value
		}
	}
	if raw := cleanEnv("MODERNIZER_RETRY_BACKOFF"); raw != "" {
		value, err := time.ParseDuration(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse MODERNIZER_RETRY_BACKOFF: %w", err)
		}
		if value > 0 {
			cfg.RetryBackoff = value
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 15000
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 12000
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 2 * time.Second
	}
}

// cleanEnv trims whitespace and surrounding quotes from an environment value.
// Deployment values pasted from portal snippets often carry stray quotes.
func cleanEnv(name string) string {
	value := strings.TrimSpace(os.Getenv(name))
	value = strings.Trim(value, `"`)
	value = strings.Trim(value, `'`)
	return value
}
