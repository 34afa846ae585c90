package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompterlab/fedopt/pkg/core"
	"github.com/prompterlab/fedopt/pkg/errors"
)

func TestOllamaRequiresModel(t *testing.T) {
	_, err := NewOllamaProvider("", "")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.InvalidConfiguration))
}

func TestOllamaSynthesize(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaResponse{Response: "generated text", Done: true})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llava")
	require.NoError(t, err)

	resp, err := p.Synthesize(context.Background(), "write something", core.WithMaxTokens(64))
	require.NoError(t, err)

	assert.Equal(t, "generated text", resp.Content)
	assert.Equal(t, "llava", got.Model)
	assert.Equal(t, "write something", got.Prompt)
	assert.False(t, got.Stream)
	assert.Equal(t, 64, got.Options.NumPredict)
}

func TestOllamaDescribeImageAttachment(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "sample.png")
	require.NoError(t, os.WriteFile(mediaPath, []byte("fake png bytes"), 0o644))

	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaResponse{Response: "a description", Done: true})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llava")
	require.NoError(t, err)

	resp, err := p.Describe(context.Background(), mediaPath, "describe this image")
	require.NoError(t, err)

	assert.Equal(t, "a description", resp.Content)
	assert.Equal(t, "describe this image", got.Prompt)
	require.Len(t, got.Images, 1)
	assert.NotEmpty(t, got.Images[0])
}

func TestOllamaDescribeTextSample(t *testing.T) {
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(mediaPath, []byte("the document body"), 0o644))

	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(ollamaResponse{Response: "summary", Done: true})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3")
	require.NoError(t, err)

	_, err = p.Describe(context.Background(), mediaPath, "summarize")
	require.NoError(t, err)

	assert.Empty(t, got.Images)
	assert.Contains(t, got.Prompt, "summarize")
	assert.Contains(t, got.Prompt, "the document body")
}

func TestOllamaServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "missing")
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ProviderFailed))
}

func TestOllamaDescribeMissingMedia(t *testing.T) {
	p, err := NewOllamaProvider("http://localhost:1", "llava")
	require.NoError(t, err)

	_, err = p.Describe(context.Background(), "/does/not/exist.jpg", "describe")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ProviderFailed))
}
