package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prompterlab/fedopt/pkg/core"
	"github.com/prompterlab/fedopt/pkg/errors"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// OllamaProvider implements core.Provider against an Ollama server's
// generate endpoint. Multimodal models (llava, bakllava) accept images
// as base64 attachments.
type OllamaProvider struct {
	endpoint string
	model    string
	client   *http.Client
}

func NewOllamaProvider(endpoint, model string) (*OllamaProvider, error) {
	if model == "" {
		return nil, errors.New(errors.InvalidConfiguration, "ollama model is required")
	}
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	return &OllamaProvider{
		endpoint: endpoint,
		model:    model,
		client:   &http.Client{Timeout: 10 * time.Minute},
	}, nil
}

func (o *OllamaProvider) ProviderName() string {
	return "ollama"
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Images  []string      `json:"images,omitempty"`
	Options ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (o *OllamaProvider) Describe(ctx context.Context, mediaPath, instruction string, opts ...core.GenerateOption) (*core.Response, error) {
	m, err := loadMedia(mediaPath)
	if err != nil {
		return nil, err
	}

	req := ollamaRequest{
		Model:  o.model,
		Prompt: instruction,
		Stream: false,
	}
	if m.MimeType != "" {
		req.Images = []string{base64.StdEncoding.EncodeToString(m.Data)}
	} else {
		req.Prompt = instruction + "\n\n" + m.Text
	}

	return o.generate(ctx, req, opts...)
}

func (o *OllamaProvider) Synthesize(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.Response, error) {
	return o.generate(ctx, ollamaRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
	}, opts...)
}

func (o *OllamaProvider) generate(ctx context.Context, req ollamaRequest, opts ...core.GenerateOption) (*core.Response, error) {
	options := core.NewGenerateOptions()
	for _, opt := range opts {
		opt(options)
	}
	req.Options = ollamaOptions{
		NumPredict:  options.MaxTokens,
		Temperature: options.Temperature,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ProviderFailed, "failed to encode ollama request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/api/generate", o.endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ProviderFailed, "failed to build ollama request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ProviderFailed, "ollama call failed"),
			errors.Fields{"model": o.model})
	}
	defer resp.Body.Close()
	latency := time.Since(start)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errors.WithFields(
			errors.New(errors.ProviderFailed, "ollama returned non-200 status"),
			errors.Fields{"status": resp.StatusCode, "body": string(msg)})
	}

	var parsed ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(err, errors.InvalidResponse, "failed to decode ollama response")
	}

	return &core.Response{
		Content: parsed.Response,
		Latency: latency,
	}, nil
}
