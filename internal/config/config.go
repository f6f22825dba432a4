// Package config loads engine configuration from TOML with sensible
// defaults for local use.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration.
type Config struct {
	LLM     LLMConfig     `toml:"llm"`
	Retry   RetryConfig   `toml:"retry"`
	Chat    ChatConfig    `toml:"chat"`
	Memory  MemoryConfig  `toml:"memory"`
	Service ServiceConfig `toml:"service"`
}

// LLMConfig selects the model backend.
type LLMConfig struct {
	Provider   string `toml:"provider"` // "openai" or "stub"
	Model      string `toml:"model"`
	BaseURL    string `toml:"base_url"`
	APIKeyEnv  string `toml:"api_key_env"`
	EmbedModel string `toml:"embed_model"`
}

// RetryConfig bounds retries around gateway calls.
type RetryConfig struct {
	MaxAttempts           int `toml:"max_attempts"`
	InitialBackoffSeconds int `toml:"initial_backoff_seconds"`
	MaxBackoffSeconds     int `toml:"max_backoff_seconds"`
}

// ChatConfig shapes the dialogue loop.
type ChatConfig struct {
	WindowSize      int    `toml:"window_size"`
	MaxExchanges    int    `toml:"max_exchanges"`
	AssistantRole   string `toml:"assistant_role"`
	UserRole        string `toml:"user_role"`
	WithTaskSpecify bool   `toml:"with_task_specify"`
	WithTaskPlanner bool   `toml:"with_task_planner"`
}

// MemoryConfig configures the optional long-term memory store.
type MemoryConfig struct {
	Enabled   bool   `toml:"enabled"`
	Path      string `toml:"path"`
	Dimension int    `toml:"dimension"`
}

// ServiceConfig configures the HTTP job service.
type ServiceConfig struct {
	Listen    string `toml:"listen"`
	StorePath string `toml:"store_path"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "openai",
			Model:      "gpt-4o-mini",
			BaseURL:    "https://api.openai.com/v1",
			APIKeyEnv:  "OPENAI_API_KEY",
			EmbedModel: "text-embedding-3-small",
		},
		Retry: RetryConfig{
			MaxAttempts:           5,
			InitialBackoffSeconds: 5,
			MaxBackoffSeconds:     60,
		},
		Chat: ChatConfig{
			WindowSize:    30,
			MaxExchanges:  50,
			AssistantRole: "Programmer",
			UserRole:      "Product Manager",
		},
		Memory: MemoryConfig{
			Path:      "duet_memory.db",
			Dimension: 1536,
		},
		Service: ServiceConfig{
			Listen: ":8080",
		},
	}
}

// LoadFile reads TOML configuration from path over the defaults. A
// missing file is not an error; defaults apply.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// GetAPIKey resolves the backend API key from the configured
// environment variable.
func (c *Config) GetAPIKey() (string, error) {
	key := os.Getenv(c.LLM.APIKeyEnv)
	if key == "" && c.LLM.Provider != "stub" {
		return "", fmt.Errorf("%s is not set", c.LLM.APIKeyEnv)
	}
	return key, nil
}
