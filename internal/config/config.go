// Package config loads certagent's YAML configuration and provider credentials.
package config

import "fmt"

// Defaults shared by Defaults and applyDefaults.
const (
	DefaultProvider          = "groq"
	DefaultGroqBaseURL       = "https://api.groq.com/openai/v1"
	DefaultModel             = "openai/gpt-oss-20b"
	DefaultWaitTimeout       = 60
	DefaultLLMTimeout        = 120
	DefaultMaxToolIterations = 5
	DefaultAgentID           = "default"
	DefaultAgentName         = "certagent"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = DefaultProvider
	}
	if cfg.LLM.BaseURL == "" && cfg.LLM.Provider == DefaultProvider {
		cfg.LLM.BaseURL = DefaultGroqBaseURL
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultModel
	}
	if cfg.LLM.TimeoutSeconds == 0 {
		cfg.LLM.TimeoutSeconds = DefaultLLMTimeout
	}
	if cfg.Agent.ID == "" {
		cfg.Agent.ID = DefaultAgentID
	}
	if cfg.Agent.Name == "" {
		cfg.Agent.Name = DefaultAgentName
	}
	if cfg.Agent.MaxToolIterations == 0 {
		cfg.Agent.MaxToolIterations = DefaultMaxToolIterations
	}
	if cfg.Browser.WaitTimeoutSeconds == 0 {
		cfg.Browser.WaitTimeoutSeconds = DefaultWaitTimeout
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Style == "" {
		cfg.Logging.Style = "pretty"
	}
}
