package providers

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/prompterlab/fedopt/pkg/core"
	"github.com/prompterlab/fedopt/pkg/errors"
	"github.com/prompterlab/fedopt/pkg/logging"
)

// AnthropicProvider implements core.Provider on the official Anthropic SDK.
type AnthropicProvider struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropicProvider creates a provider for the given model. baseURL is
// optional and overrides the default API endpoint.
func NewAnthropicProvider(apiKey, model, baseURL string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.InvalidConfiguration, "anthropic API key is required")
	}
	if model == "" {
		return nil, errors.New(errors.InvalidConfiguration, "anthropic model is required")
	}

	clientOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(baseURL))
	}

	client := anthropic.NewClient(clientOpts...)
	return &AnthropicProvider{
		client: &client,
		model:  anthropic.Model(model),
	}, nil
}

func (a *AnthropicProvider) ProviderName() string {
	return "anthropic"
}

func (a *AnthropicProvider) Describe(ctx context.Context, mediaPath, instruction string, opts ...core.GenerateOption) (*core.Response, error) {
	m, err := loadMedia(mediaPath)
	if err != nil {
		return nil, err
	}

	blocks := []anthropic.ContentBlockParamUnion{}
	if m.MimeType != "" {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfImage: &anthropic.ImageBlockParam{
				Source: anthropic.ImageBlockParamSourceUnion{
					OfBase64: &anthropic.Base64ImageSourceParam{
						Data:      base64.StdEncoding.EncodeToString(m.Data),
						MediaType: anthropic.Base64ImageSourceMediaType(m.MimeType),
					},
				},
			},
		})
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfText: &anthropic.TextBlockParam{Text: instruction},
		})
	} else {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfText: &anthropic.TextBlockParam{Text: instruction + "\n\n" + m.Text},
		})
	}

	messages := []anthropic.MessageParam{{
		Role:    anthropic.MessageParamRoleUser,
		Content: blocks,
	}}

	return a.complete(ctx, messages, opts...)
}

func (a *AnthropicProvider) Synthesize(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.Response, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
	}
	return a.complete(ctx, messages, opts...)
}

func (a *AnthropicProvider) complete(ctx context.Context, messages []anthropic.MessageParam, opts ...core.GenerateOption) (*core.Response, error) {
	logger := logging.GetLogger()
	options := core.NewGenerateOptions()
	for _, opt := range opts {
		opt(options)
	}

	start := time.Now()
	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   int64(options.MaxTokens),
		Temperature: anthropic.Float(options.Temperature),
	})
	latency := time.Since(start)

	if err != nil {
		var apiErr *anthropic.Error
		if stderrors.As(err, &apiErr) {
			logger.Error(ctx, "Anthropic API error: status code %d", apiErr.StatusCode)
		}
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ProviderFailed, "anthropic call failed"),
			errors.Fields{"model": string(a.model)})
	}

	if message == nil || len(message.Content) == 0 {
		return nil, errors.New(errors.InvalidResponse, "received empty response from Anthropic API")
	}

	var text string
	if block := message.Content[0]; block.Type == "text" {
		text = block.Text
	}

	return &core.Response{
		Content: text,
		Latency: latency,
		Metadata: map[string]interface{}{
			"input_tokens":  message.Usage.InputTokens,
			"output_tokens": message.Usage.OutputTokens,
		},
	}, nil
}
