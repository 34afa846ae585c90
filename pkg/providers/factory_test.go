package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompterlab/fedopt/pkg/config"
	"github.com/prompterlab/fedopt/pkg/errors"
)

func TestNewUnsupportedProvider(t *testing.T) {
	_, err := New(config.ProviderConfig{Name: "openai", Model: "gpt-4o"})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidConfiguration))
}

func TestFromConfigPrimaryOnly(t *testing.T) {
	p, err := FromConfig(config.ProvidersConfig{
		Primary: config.ProviderConfig{Name: "ollama", Model: "llava"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.ProviderName())
}

func TestFromConfigWithFallback(t *testing.T) {
	p, err := FromConfig(config.ProvidersConfig{
		Primary:  config.ProviderConfig{Name: "anthropic", Model: "claude-3-5-haiku-latest", APIKey: "test-key"},
		Fallback: &config.ProviderConfig{Name: "ollama", Model: "llava"},
	})
	require.NoError(t, err)
	assert.Equal(t, "anthropic+ollama", p.ProviderName())
}
