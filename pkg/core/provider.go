package core

import (
	"context"
	"time"
)

// Response is the result of a provider call.
type Response struct {
	Content string
	Latency time.Duration
	// Any provider-specific metadata
	Metadata map[string]interface{}
}

// Describer produces a textual description of a media sample, steered by
// an instruction template. Implementations translate backend failures into
// errors carrying the ProviderFailed code; callers recover those locally
// as a zero score rather than aborting a run.
type Describer interface {
	Describe(ctx context.Context, mediaPath, instruction string, opts ...GenerateOption) (*Response, error)
	ProviderName() string
}

// Synthesizer generates free-form text from a prompt. The evolution engine
// uses it to recombine parent templates into new candidates.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string, opts ...GenerateOption) (*Response, error)
	ProviderName() string
}

// Provider is a backend that can both describe media and synthesize text.
type Provider interface {
	Describer
	Synthesizer
}

// GenerateOption represents an option for a provider call.
type GenerateOption func(*GenerateOptions)

// GenerateOptions holds configuration for provider calls.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// NewGenerateOptions creates a new GenerateOptions with default values.
func NewGenerateOptions() *GenerateOptions {
	return &GenerateOptions{
		MaxTokens:   1024,
		Temperature: 0.7,
	}
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
	}
}
