// Package service wires the retrieval pipeline together: query validation,
// message persistence, embedding with lexical fallback, ranking, and answer
// generation. Apart from invalid input, a request always produces an answer.
package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"legalrag/internal/corpus"
	"legalrag/internal/domain"
	"legalrag/internal/embedding"
	"legalrag/internal/generation"
	"legalrag/internal/ranking"
)

// ErrInvalidQuery is the only error a caller sees: the query was empty
// after trimming. Everything else degrades inside the pipeline.
var ErrInvalidQuery = errors.New("invalid query")

// MaxQueryChars caps the accepted query length.
const MaxQueryChars = 1000

// Exchange is the outcome of one answered query.
type Exchange struct {
	UserMessage      domain.ChatMessage
	AssistantMessage domain.ChatMessage
	Confidence       float64
	Sources          []domain.SourceRef
}

// Assistant is the pipeline entry point.
type Assistant struct {
	corpus    *corpus.Corpus
	embedder  domain.EmbeddingProvider
	ranker    *ranking.Ranker
	generator *generation.Generator
	store     domain.MessageStore
	topK      int
	logger    *log.Logger
}

// Option customizes an Assistant.
type Option func(*Assistant)

// WithTopK overrides the number of passages retrieved per query.
func WithTopK(k int) Option {
	return func(a *Assistant) {
		if k > 0 {
			a.topK = k
		}
	}
}

// WithEmbedder sets the embedding provider; nil means lexical ranking only.
func WithEmbedder(p domain.EmbeddingProvider) Option {
	return func(a *Assistant) { a.embedder = p }
}

// WithStore sets the message persistence collaborator; nil disables it.
func WithStore(s domain.MessageStore) Option {
	return func(a *Assistant) { a.store = s }
}

// New assembles the pipeline over an already loaded corpus.
func New(c *corpus.Corpus, ranker *ranking.Ranker, generator *generation.Generator, logger *log.Logger, opts ...Option) *Assistant {
	a := &Assistant{
		corpus:    c,
		ranker:    ranker,
		generator: generator,
		topK:      ranking.DefaultTopK,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Answer runs the full pipeline for one query. The stages are sequential:
// validate, persist, retrieve (vector mode when an embedding arrives,
// lexical otherwise), generate, persist. External outages surface only as
// lower confidence and shorter source lists, never as request failures.
func (a *Assistant) Answer(ctx context.Context, userID, query string) (*Exchange, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidQuery
	}
	query = truncateRunes(query, MaxQueryChars)

	userMsg := a.persist(ctx, userID, "user", query)

	results := a.retrieve(ctx, query)
	answer := a.generator.Generate(ctx, query, results)
	answer.Sources = sourceRefs(results)

	assistantMsg := a.persist(ctx, userID, "assistant", answer.Text)

	a.logger.Info("answered query",
		"user", userID, "results", len(results), "confidence", answer.Confidence)

	return &Exchange{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Confidence:       answer.Confidence,
		Sources:          answer.Sources,
	}, nil
}

// retrieve picks the best available ranking mode. An explicit section
// reference wins outright; otherwise vector mode runs when both a query
// vector and a populated index exist, and lexical mode covers the rest.
func (a *Assistant) retrieve(ctx context.Context, query string) []domain.RetrievalResult {
	if results := a.ranker.LookupSection(query, a.topK); len(results) > 0 {
		a.logger.Debug("direct section lookup hit", "results", len(results))
		return results
	}
	if a.embedder != nil && a.corpus.HasVectors() {
		vec, err := a.embedder.Embed(ctx, query)
		if err == nil {
			switch {
			case len(vec) != a.corpus.Dimension():
				// An incomparable vector means the embedder and the index
				// were built in different spaces; ranking with it would be
				// confidently wrong rather than degraded.
				a.logger.Warn("query vector dimension mismatch, lexical fallback",
					"got", len(vec), "want", a.corpus.Dimension())
			case !isZeroVector(vec):
				return a.ranker.RankVector(vec, a.topK)
			}
		} else if errors.Is(err, embedding.ErrUnavailable) || ctx.Err() != nil {
			// Expected degraded path, not an error condition.
			a.logger.Debug("embedding unavailable, lexical fallback", "err", err)
		} else {
			a.logger.Warn("unexpected embedding failure, lexical fallback", "err", err)
		}
	}
	return a.ranker.RankLexical(query, a.topK)
}

// persist records one message through the store collaborator. Store outages
// must not fail the request; the answer still goes back to the user.
func (a *Assistant) persist(ctx context.Context, userID, role, body string) domain.ChatMessage {
	msg := domain.ChatMessage{
		UserID:    userID,
		Role:      role,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if a.store == nil {
		return msg
	}
	saved, err := a.store.Save(ctx, msg)
	if err != nil {
		a.logger.Warn("message persistence failed", "role", role, "err", err)
		return msg
	}
	return saved
}

func sourceRefs(results []domain.RetrievalResult) []domain.SourceRef {
	refs := make([]domain.SourceRef, 0, len(results))
	for _, r := range results {
		refs = append(refs, domain.SourceRef{
			ID:     r.ID,
			Title:  r.Title,
			Score:  r.Score,
			Source: r.Source,
		})
	}
	return refs
}

// truncateRunes caps s at limit bytes without splitting a multi-byte rune.
func truncateRunes(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

func isZeroVector(vec []float64) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}
