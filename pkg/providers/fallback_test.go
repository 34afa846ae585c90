package providers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prompterlab/fedopt/internal/testutil"
	"github.com/prompterlab/fedopt/pkg/core"
	"github.com/prompterlab/fedopt/pkg/errors"
)

func TestFallbackUsesPrimaryFirst(t *testing.T) {
	primary := new(testutil.MockProvider)
	secondary := new(testutil.MockProvider)
	primary.On("Synthesize", mock.Anything, "hello").
		Return(&core.Response{Content: "from primary"}, nil)

	f := NewFallbackProvider(primary, secondary)
	resp, err := f.Synthesize(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, "from primary", resp.Content)
	secondary.AssertNotCalled(t, "Synthesize", mock.Anything, mock.Anything)
}

func TestFallbackOnPrimaryFailure(t *testing.T) {
	primary := new(testutil.MockProvider)
	secondary := new(testutil.MockProvider)
	primary.On("Describe", mock.Anything, "a.jpg", "describe").
		Return(nil, errors.New(errors.ProviderFailed, "quota exhausted"))
	secondary.On("Describe", mock.Anything, "a.jpg", "describe").
		Return(&core.Response{Content: "from secondary"}, nil)

	f := NewFallbackProvider(primary, secondary)
	resp, err := f.Describe(context.Background(), "a.jpg", "describe")

	require.NoError(t, err)
	assert.Equal(t, "from secondary", resp.Content)
	primary.AssertNumberOfCalls(t, "Describe", 1)
	secondary.AssertNumberOfCalls(t, "Describe", 1)
}

func TestFallbackSurfacesSecondaryError(t *testing.T) {
	primary := new(testutil.MockProvider)
	secondary := new(testutil.MockProvider)
	primary.On("Synthesize", mock.Anything, "hello").
		Return(nil, errors.New(errors.ProviderFailed, "primary down"))
	secondary.On("Synthesize", mock.Anything, "hello").
		Return(nil, errors.New(errors.ProviderFailed, "secondary down"))

	f := NewFallbackProvider(primary, secondary)
	_, err := f.Synthesize(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "secondary down")
}

func TestFallbackProviderName(t *testing.T) {
	f := NewFallbackProvider(new(testutil.MockProvider), new(testutil.MockProvider))
	assert.Equal(t, "mock+mock", f.ProviderName())
}
