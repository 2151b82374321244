package llm

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/soyeahso/certagent/internal/config"
	"github.com/soyeahso/certagent/internal/logging"
)

// ProviderError is returned when an LLM provider fails.
type ProviderError struct {
	Provider string
	Message  string
	Code     int   // HTTP status code (401, 429, 500, etc.)
	Err      error // underlying cause, if any
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Registry manages LLM provider clients and resolves model references to clients.
type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client // provider name → client
	aliases  map[string]string // model alias → provider name
	fallback string            // default provider name
	log      *logging.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(log *logging.Logger) *Registry {
	return &Registry{
		clients:  make(map[string]Client),
		aliases:  make(map[string]string),
		log:      log.Sub("llm.registry"),
	}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	r.log.Info().Str("provider", name).Msg("registered LLM provider")
}

// Alias maps a model name/alias to a provider.
// e.g., Alias("openai/gpt-oss-20b", "groq") routes that model to the groq provider.
func (r *Registry) Alias(model, provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[model] = provider
}

// SetFallback sets the default provider used when no model/provider match is found.
func (r *Registry) SetFallback(provider string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = provider
}

// Resolve returns the Client for the given model reference.
// Resolution order: exact provider name → alias → fallback.
func (r *Registry) Resolve(model string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Direct provider name match
	if c, ok := r.clients[model]; ok {
		return c, nil
	}

	// Alias lookup
	if provider, ok := r.aliases[model]; ok {
		if c, ok := r.clients[provider]; ok {
			return c, nil
		}
	}

	// Fallback
	if r.fallback != "" {
		if c, ok := r.clients[r.fallback]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("no LLM provider for model %q", model)
}

// List returns all registered provider names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for n := range r.clients {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NewRegistryFromConfig registers the configured OpenAI-compatible provider
// and routes the primary model and every fallback model to it.
func NewRegistryFromConfig(cfg config.LLMConfig, creds config.Credentials, log *logging.Logger) *Registry {
	reg := NewRegistry(log)

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = config.DefaultProvider
	}

	baseURL := cfg.BaseURL
	if creds.BaseURL != "" {
		baseURL = creds.BaseURL
	}

	client := NewOpenAIClient(OpenAIConfig{
		Name:       provider,
		APIKey:     creds.APIKey,
		BaseURL:    baseURL,
		Model:      cfg.Model,
		Timeout:    time.Duration(cfg.TimeoutSeconds) * time.Second,
		MaxRetries: 2,
	})
	reg.Register(provider, client)
	reg.SetFallback(provider)

	for _, model := range append([]string{cfg.Model}, cfg.Fallbacks...) {
		if model != "" {
			reg.Alias(model, provider)
		}
	}
	return reg
}
