// Package config loads and validates the fedopt configuration from YAML.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prompterlab/fedopt/pkg/errors"
)

// Duration wraps time.Duration so YAML configs accept values like
// "500ms" or "2s" as well as bare nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return errors.Wrap(err, errors.InvalidConfiguration, "invalid duration")
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return errors.Wrap(err, errors.InvalidConfiguration, "invalid duration")
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the complete configuration for the fedopt system.
type Config struct {
	// Logging configuration
	Logging LoggingConfig `yaml:"logging,omitempty" validate:"omitempty"`

	// Storage configuration
	Storage StorageConfig `yaml:"storage" validate:"required"`

	// Provider configuration
	Providers ProvidersConfig `yaml:"providers" validate:"required"`

	// Optimization configuration
	FPO FPOConfig `yaml:"fpo" validate:"required"`

	// Sample source configuration
	Samples SamplesConfig `yaml:"samples" validate:"required"`

	// Queue configuration
	Queue QueueConfig `yaml:"queue,omitempty" validate:"omitempty"`

	// HTTP configuration
	HTTP HTTPConfig `yaml:"http,omitempty" validate:"omitempty"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Severity threshold (DEBUG, INFO, WARN, ERROR)
	Level string `yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`

	// Optional log file; console output is always on
	File string `yaml:"file,omitempty"`
}

// StorageConfig holds persistent storage configuration.
type StorageConfig struct {
	// Path to the SQLite database file
	Path string `yaml:"path" validate:"required"`
}

// ProviderConfig represents configuration for one generation backend.
type ProviderConfig struct {
	// Provider name (anthropic, ollama)
	Name string `yaml:"name" validate:"required,oneof=anthropic ollama"`

	// Model ID (e.g. claude-3-5-haiku-latest, llava)
	Model string `yaml:"model" validate:"required"`

	// API key; falls back to the provider's environment variable
	APIKey string `yaml:"api_key,omitempty"`

	// Base URL override
	BaseURL string `yaml:"base_url,omitempty"`
}

// ProvidersConfig selects the primary backend and an optional fallback
// that is tried when the primary fails.
type ProvidersConfig struct {
	Primary  ProviderConfig  `yaml:"primary" validate:"required"`
	Fallback *ProviderConfig `yaml:"fallback,omitempty" validate:"omitempty"`
}

// SeedTemplate is one generation-0 prompt template.
type SeedTemplate struct {
	Name string `yaml:"name" validate:"required"`
	Text string `yaml:"text" validate:"required"`
}

// FPOConfig holds the optimization parameters.
type FPOConfig struct {
	// Hard upper bound on population size
	MaxPopulation int `yaml:"max_population" validate:"min=2"`

	// Default evolution cadence for enqueued runs; 0 disables evolution
	EvolutionEvery int `yaml:"evolution_every" validate:"min=0"`

	// Enables the single-parent mutation variant
	MutationEnabled bool `yaml:"mutation_enabled,omitempty"`

	// Minimum delay between consecutive provider calls
	MinCallInterval Duration `yaml:"min_call_interval,omitempty" validate:"min=0"`

	// Generation-0 templates created at bootstrap
	Seeds []SeedTemplate `yaml:"seeds" validate:"min=1,dive"`

	// Federated evaluation partitions
	Domains []string `yaml:"domains" validate:"min=1,dive,required"`
}

// SamplesConfig holds sample source configuration.
type SamplesConfig struct {
	// Root directory with one subdirectory per domain
	Root string `yaml:"root" validate:"required"`
}

// QueueConfig holds job queue configuration.
type QueueConfig struct {
	// How often idle category workers poll for new items
	PollInterval Duration `yaml:"poll_interval,omitempty" validate:"min=0"`

	// How many categories may have work in flight concurrently
	MaxConcurrentCategories int `yaml:"max_concurrent_categories,omitempty" validate:"omitempty,min=1,max=16"`
}

// HTTPConfig holds the HTTP listener configuration.
type HTTPConfig struct {
	Addr string `yaml:"addr,omitempty"`
}

// Load reads, merges over defaults, and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidConfiguration, "failed to read config file")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, errors.InvalidConfiguration, "failed to parse config file")
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
