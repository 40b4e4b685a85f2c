package domain

import "context"

// EmbeddingProvider converts free text into a numeric vector representation.
// Implementations must honor ctx cancellation and bound their own latency;
// unavailability is reported as an error wrapping the embedding package's
// sentinel, never by panicking or blocking.
type EmbeddingProvider interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float64, error)
}

// GenerationProvider produces free text from a prompt, spending at most
// maxTokens on the completion.
type GenerationProvider interface {
	Name() string
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// MessageStore persists chat messages for a user.
type MessageStore interface {
	Save(ctx context.Context, msg ChatMessage) (ChatMessage, error)
	History(ctx context.Context, userID string, limit int) ([]ChatMessage, error)
}
