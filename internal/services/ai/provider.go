package ai

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Generator produces free-form text for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ProviderConfig carries the settings a provider factory needs.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
	Debug   bool
}

// ProviderFactory creates a Generator from its configuration
type ProviderFactory func(cfg ProviderConfig) (Generator, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a registry with the built-in providers registered.
func NewProviderRegistry() *ProviderRegistry {
	r := &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
	RegisterOpenAI(r)
	return r
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, cfg ProviderConfig) (Generator, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(cfg)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}

// NewProviderClient builds a Client for the named provider. An empty API key yields a
// disabled client rather than an error so the app runs without AI.
func NewProviderClient(name string, cfg ProviderConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return NewClient(nil, cfg.Timeout, cfg.Logger), nil
	}
	if name == "" {
		name = "openai"
	}
	gen, err := NewProviderRegistry().GetProvider(name, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("ai_provider_configured",
			zap.String("provider", name),
			zap.String("model", cfg.Model),
			zap.String("api_key", SanitizeAPIKey(cfg.APIKey)),
		)
	}
	return NewClient(gen, cfg.Timeout, cfg.Logger), nil
}
