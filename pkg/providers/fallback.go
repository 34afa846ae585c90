package providers

import (
	"context"
	"fmt"

	"github.com/prompterlab/fedopt/pkg/core"
	"github.com/prompterlab/fedopt/pkg/logging"
)

// FallbackProvider tries a primary backend and, when it fails, retries
// the same call once against a secondary backend. Only the final error
// is surfaced; callers see a single provider.
type FallbackProvider struct {
	primary   core.Provider
	secondary core.Provider
	logger    *logging.Logger
}

func NewFallbackProvider(primary, secondary core.Provider) *FallbackProvider {
	return &FallbackProvider{
		primary:   primary,
		secondary: secondary,
		logger:    logging.GetLogger(),
	}
}

func (f *FallbackProvider) ProviderName() string {
	return fmt.Sprintf("%s+%s", f.primary.ProviderName(), f.secondary.ProviderName())
}

func (f *FallbackProvider) Describe(ctx context.Context, mediaPath, instruction string, opts ...core.GenerateOption) (*core.Response, error) {
	resp, err := f.primary.Describe(logging.WithProvider(ctx, f.primary.ProviderName()), mediaPath, instruction, opts...)
	if err == nil {
		return resp, nil
	}
	f.logger.Warn(ctx, "primary provider %s failed, falling back to %s: %v",
		f.primary.ProviderName(), f.secondary.ProviderName(), err)
	return f.secondary.Describe(logging.WithProvider(ctx, f.secondary.ProviderName()), mediaPath, instruction, opts...)
}

func (f *FallbackProvider) Synthesize(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.Response, error) {
	resp, err := f.primary.Synthesize(logging.WithProvider(ctx, f.primary.ProviderName()), prompt, opts...)
	if err == nil {
		return resp, nil
	}
	f.logger.Warn(ctx, "primary provider %s failed, falling back to %s: %v",
		f.primary.ProviderName(), f.secondary.ProviderName(), err)
	return f.secondary.Synthesize(logging.WithProvider(ctx, f.secondary.ProviderName()), prompt, opts...)
}
