package generation

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ErrUnavailable marks a generation failure the generator absorbs by
// falling back to the extractive template.
var ErrUnavailable = errors.New("generation unavailable")

// OpenAIProvider generates answers through an OpenAI-compatible chat API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	temperature float32
}

// OpenAIConfig configures the remote generation provider.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
}

// NewOpenAIProvider creates the remote provider. As with embedding, a
// missing key defers failure to call time so the pipeline can degrade.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.2
	}
	p := &OpenAIProvider{model: model, temperature: temperature}
	if cfg.APIKey != "" {
		p.client = openai.NewClientWithConfig(clientConfig)
	}
	return p
}

// Name returns the identifier of this provider implementation.
func (p *OpenAIProvider) Name() string { return "openai" }

// Generate runs a single chat completion for the prompt.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if p.client == nil {
		return "", fmt.Errorf("no API key configured: %w", ErrUnavailable)
	}
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		MaxTokens:   maxTokens,
		Temperature: p.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %v: %w", err, ErrUnavailable)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", ErrUnavailable)
	}
	return resp.Choices[0].Message.Content, nil
}
