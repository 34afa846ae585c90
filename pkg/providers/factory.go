package providers

import (
	"os"

	"github.com/prompterlab/fedopt/pkg/config"
	"github.com/prompterlab/fedopt/pkg/core"
	"github.com/prompterlab/fedopt/pkg/errors"
)

// New creates a provider from one backend config entry.
func New(cfg config.ProviderConfig) (core.Provider, error) {
	switch cfg.Name {
	case "anthropic":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		return NewAnthropicProvider(apiKey, cfg.Model, cfg.BaseURL)
	case "ollama":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model)
	default:
		return nil, errors.WithFields(
			errors.New(errors.InvalidConfiguration, "unsupported provider"),
			errors.Fields{"provider": cfg.Name})
	}
}

// FromConfig builds the configured provider chain: the primary backend,
// wrapped with the fallback backend when one is configured.
func FromConfig(cfg config.ProvidersConfig) (core.Provider, error) {
	primary, err := New(cfg.Primary)
	if err != nil {
		return nil, err
	}
	if cfg.Fallback == nil {
		return primary, nil
	}

	secondary, err := New(*cfg.Fallback)
	if err != nil {
		return nil, err
	}
	return NewFallbackProvider(primary, secondary), nil
}
