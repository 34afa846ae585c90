// Package testutil provides shared test doubles.
package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/prompterlab/fedopt/pkg/core"
	"github.com/prompterlab/fedopt/pkg/samples"
)

// MockProvider is a testify mock implementing core.Provider.
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Describe(ctx context.Context, mediaPath, instruction string, opts ...core.GenerateOption) (*core.Response, error) {
	args := m.Called(ctx, mediaPath, instruction)
	if resp, ok := args.Get(0).(*core.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) Synthesize(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.Response, error) {
	args := m.Called(ctx, prompt)
	if resp, ok := args.Get(0).(*core.Response); ok {
		return resp, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockProvider) ProviderName() string {
	return "mock"
}

// MockSource is a testify mock implementing samples.Source.
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Sample(ctx context.Context, domain string) (*samples.Sample, error) {
	args := m.Called(ctx, domain)
	if s, ok := args.Get(0).(*samples.Sample); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

// StaticSource serves a fixed sample per domain without mock bookkeeping.
type StaticSource struct {
	Samples map[string]*samples.Sample
}

func (s *StaticSource) Sample(ctx context.Context, domain string) (*samples.Sample, error) {
	return s.Samples[domain], nil
}
