package embedding

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider embeds queries through an OpenAI-compatible embeddings API.
type OpenAIProvider struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// OpenAIConfig configures the remote embedding provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOpenAIProvider creates the remote provider. A missing API key is not an
// error at construction time: Embed reports ErrUnavailable instead, so the
// pipeline starts and degrades rather than refusing to boot.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 8 * time.Second
	}
	p := &OpenAIProvider{
		model:   model,
		timeout: timeout,
	}
	if cfg.APIKey != "" {
		p.client = openai.NewClientWithConfig(clientConfig)
	}
	return p
}

// Name returns the identifier of this provider implementation.
func (p *OpenAIProvider) Name() string { return "openai" }

// Embed requests a single embedding vector. All failure modes fold into
// ErrUnavailable; retry policy belongs to the orchestrator, which has none.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if p.client == nil {
		return nil, fmt.Errorf("no API key configured: %w", ErrUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{capQuery(text)},
		Model: openai.EmbeddingModel(p.model),
	})
	if err != nil {
		return nil, fmt.Errorf("create embeddings: %v: %w", err, ErrUnavailable)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response: %w", ErrUnavailable)
	}
	vec := make([]float64, len(resp.Data[0].Embedding))
	for i, f := range resp.Data[0].Embedding {
		vec[i] = float64(f)
	}
	return vec, nil
}
