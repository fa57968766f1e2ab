package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// ErrAPIKeyNotSet is returned by OpenAI adapters built without a key.
var ErrAPIKeyNotSet = errors.New("OpenAI API key is not configured")

func newOpenAIClient(apiKey, baseURL string, extra []option.RequestOption) openai.Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(append(opts, extra...)...)
}

// OpenAIText generates article bodies with the chat completions API.
type OpenAIText struct {
	client openai.Client
	apiKey string
	model  string
}

// NewOpenAIText creates a text generator. An empty baseURL uses the public API.
func NewOpenAIText(apiKey, model, baseURL string, opts ...option.RequestOption) *OpenAIText {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIText{client: newOpenAIClient(apiKey, baseURL, opts), apiKey: apiKey, model: model}
}

func (c *OpenAIText) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", ErrAPIKeyNotSet
	}

	completion, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("AI text generation failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("AI returned no completion choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// DallE generates featured images with the OpenAI images API.
type DallE struct {
	client openai.Client
	apiKey string
}

func NewDallE(apiKey, baseURL string, opts ...option.RequestOption) *DallE {
	return &DallE{client: newOpenAIClient(apiKey, baseURL, opts), apiKey: apiKey}
}

// Generate ignores style; the style is already described in the prompt.
func (d *DallE) Generate(ctx context.Context, prompt, _ string) (Image, error) {
	if d.apiKey == "" {
		return Image{}, ErrAPIKeyNotSet
	}

	resp, err := d.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModelDallE3,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return Image{}, fmt.Errorf("DALL-E generation failed: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return Image{}, fmt.Errorf("DALL-E returned no image data")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return Image{}, fmt.Errorf("decode DALL-E image: %w", err)
	}
	return Image{Data: data, MIME: "image/png"}, nil
}

// compile-time checks
var (
	_ TextGenerator  = (*OpenAIText)(nil)
	_ ImageGenerator = (*DallE)(nil)
)
