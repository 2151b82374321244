package config

import "github.com/soyeahso/certagent/internal/domain"

// Config is the root configuration for certagent.
type Config struct {
	LLM            LLMConfig            `yaml:"llm,omitempty"`
	Agent          AgentConfig          `yaml:"agent,omitempty"`
	Store          StoreConfig          `yaml:"store,omitempty"`
	Browser        BrowserConfig        `yaml:"browser,omitempty"`
	Certifications CertificationsConfig `yaml:"certifications,omitempty"`
	Logging        LoggingConfig        `yaml:"logging,omitempty"`
}

// LLMConfig selects the hosted chat model the agent talks to.
// The API key is never read from this file; see Credentials.
type LLMConfig struct {
	Provider       string   `yaml:"provider,omitempty"` // "groq" | "openai"
	BaseURL        string   `yaml:"baseUrl,omitempty"`
	Model          string   `yaml:"model,omitempty"`
	Fallbacks      []string `yaml:"fallbacks,omitempty"`
	MaxTokens      int      `yaml:"maxTokens,omitempty"`
	Temperature    *float64 `yaml:"temperature,omitempty"`
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
}

// AgentConfig controls the tool-calling loop.
type AgentConfig struct {
	ID                string `yaml:"id,omitempty"`
	Name              string `yaml:"name,omitempty"`
	ExtraPrompt       string `yaml:"extraPrompt,omitempty"`
	MaxToolIterations int    `yaml:"maxToolIterations,omitempty"`
	MaxHistory        int    `yaml:"maxHistory,omitempty"` // trailing session messages sent back; 0 keeps all
}

// StoreConfig locates the certification lookup database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"` // empty means <data dir>/certifications_data.db
}

// BrowserConfig controls the headless browser used for badge pages.
type BrowserConfig struct {
	Bin                string          `yaml:"bin,omitempty"` // Chrome/Chromium binary; empty lets rod locate or download one
	Headless           *bool           `yaml:"headless,omitempty"`
	WaitTimeoutSeconds int             `yaml:"waitTimeoutSeconds,omitempty"`
	Flags              []string        `yaml:"flags,omitempty"` // extra launcher flags, e.g. "--lang=en-US"
	Selectors          SelectorsConfig `yaml:"selectors,omitempty"`
}

// IsHeadless reports the headless setting, defaulting to true.
func (b BrowserConfig) IsHeadless() bool {
	return b.Headless == nil || *b.Headless
}

// SelectorsConfig overrides the CSS selectors used on badge pages.
// Empty fields keep the built-in Credly selectors.
type SelectorsConfig struct {
	Header string `yaml:"header,omitempty"`
	Issuer string `yaml:"issuer,omitempty"`
	Holder string `yaml:"holder,omitempty"`
	Dates  string `yaml:"dates,omitempty"`
}

// CertificationsConfig overrides the starter tiers written on first init.
type CertificationsConfig struct {
	Seed []domain.Certification `yaml:"seed,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	Style string `yaml:"style,omitempty"` // "pretty" | "json"
	File  string `yaml:"file,omitempty"`
}
