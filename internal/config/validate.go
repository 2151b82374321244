package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	validProviders := []string{"groq", "openai"}
	if cfg.LLM.Provider != "" && !slices.Contains(validProviders, cfg.LLM.Provider) {
		issues = append(issues, ValidationIssue{
			Path:    "llm.provider",
			Message: fmt.Sprintf("must be one of %v, got %q", validProviders, cfg.LLM.Provider),
		})
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		issues = append(issues, ValidationIssue{Path: "llm.model", Message: "model is required"})
	}
	if cfg.LLM.MaxTokens < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "llm.maxTokens",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.LLM.MaxTokens),
		})
	}
	if t := cfg.LLM.Temperature; t != nil && (*t < 0 || *t > 2) {
		issues = append(issues, ValidationIssue{
			Path:    "llm.temperature",
			Message: fmt.Sprintf("must be 0-2, got %.2f", *t),
		})
	}

	if cfg.Agent.MaxToolIterations < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxToolIterations",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Agent.MaxToolIterations),
		})
	}

	if cfg.Agent.MaxHistory < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "agent.maxHistory",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Agent.MaxHistory),
		})
	}

	if cfg.Browser.WaitTimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "browser.waitTimeoutSeconds",
			Message: fmt.Sprintf("must not be negative, got %d", cfg.Browser.WaitTimeoutSeconds),
		})
	}

	for i, c := range cfg.Certifications.Seed {
		if strings.TrimSpace(c.Category) == "" {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("certifications.seed[%d].category", i),
				Message: "category is required",
			})
		}
		if c.Points < 0 {
			issues = append(issues, ValidationIssue{
				Path:    fmt.Sprintf("certifications.seed[%d].points", i),
				Message: fmt.Sprintf("must not be negative, got %g", c.Points),
			})
		}
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validStyles := []string{"pretty", "json"}
	if cfg.Logging.Style != "" && !slices.Contains(validStyles, cfg.Logging.Style) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.style",
			Message: fmt.Sprintf("must be one of %v, got %q", validStyles, cfg.Logging.Style),
		})
	}

	return issues
}
