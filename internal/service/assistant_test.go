package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/corpus"
	"legalrag/internal/domain"
	"legalrag/internal/embedding"
	"legalrag/internal/generation"
	"legalrag/internal/ranking"
)

type fakeEmbedder struct {
	vec   []float64
	err   error
	delay time.Duration
	calls int
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(ctx context.Context, _ string) ([]float64, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("embed: %v: %w", ctx.Err(), embedding.ErrUnavailable)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type memStore struct {
	mu   sync.Mutex
	msgs []domain.ChatMessage
	err  error
}

func (s *memStore) Save(_ context.Context, msg domain.ChatMessage) (domain.ChatMessage, error) {
	if s.err != nil {
		return domain.ChatMessage{}, s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = fmt.Sprintf("msg-%d", len(s.msgs))
	s.msgs = append(s.msgs, msg)
	return msg, nil
}

func (s *memStore) History(_ context.Context, userID string, _ int) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range s.msgs {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func testCorpus() *corpus.Corpus {
	docs := []domain.Document{
		{ID: 0, Title: "IPC Section 378: Theft", Text: "theft dishonest property section 378", Source: "IPC Dataset", Category: "IPC"},
		{ID: 1, Title: "Bail Guide - Part 1", Text: "bail is the conditional release of an accused person", Source: "bail_guide.md", Category: "Legal Guide"},
		{ID: 2, Title: "FIR Guide - Part 1", Text: "an fir is the first information report filed with police", Source: "fir_guide.md", Category: "Legal Guide"},
	}
	vectors := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	return corpus.New(docs, vectors)
}

func newAssistant(c *corpus.Corpus, opts ...Option) *Assistant {
	ranker := ranking.New(c, ranking.DefaultBoosts())
	generator := generation.New(nil, generation.DefaultConfig(), quietLogger())
	return New(c, ranker, generator, quietLogger(), opts...)
}

func TestEmptyQueryRejectedBeforePipelineRuns(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float64{1, 0, 0}}
	store := &memStore{}
	a := newAssistant(testCorpus(), WithEmbedder(embedder), WithStore(store))

	_, err := a.Answer(context.Background(), "u1", "   \n\t  ")
	require.ErrorIs(t, err, ErrInvalidQuery)
	assert.Zero(t, embedder.calls, "embedder must not run for invalid queries")
	assert.Empty(t, store.msgs, "nothing may be persisted for invalid queries")
}

func TestVectorModeUsedWhenEmbeddingSucceeds(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float64{0, 1, 0}}
	a := newAssistant(testCorpus(), WithEmbedder(embedder))

	ex, err := a.Answer(context.Background(), "u1", "how does conditional release work")
	require.NoError(t, err)
	require.NotEmpty(t, ex.Sources)
	assert.Equal(t, 1, ex.Sources[0].ID, "query vector identical to doc 1 must rank it first")
	assert.InDelta(t, 1.0, ex.Sources[0].Score, 1e-9)
}

func TestEmbeddingUnavailableFallsBackToLexical(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("down: %w", embedding.ErrUnavailable)}
	a := newAssistant(testCorpus(), WithEmbedder(embedder))

	ex, err := a.Answer(context.Background(), "u1", "what section covers theft")
	require.NoError(t, err)
	require.NotEmpty(t, ex.Sources)
	assert.Equal(t, 0, ex.Sources[0].ID)
	assert.Greater(t, ex.Sources[0].Score, 0.0)
}

func TestDimensionMismatchFallsBackToLexical(t *testing.T) {
	// An embedder from a different vector space (5 dims against the 3-dim
	// index) must not be ranked with; cosine over a truncated vector would
	// return confidently wrong documents instead of the degraded path.
	embedder := &fakeEmbedder{vec: []float64{0.1, 0.2, 0.9, 0.4, 0.3}}
	a := newAssistant(testCorpus(), WithEmbedder(embedder))

	ex, err := a.Answer(context.Background(), "u1", "what covers theft of property")
	require.NoError(t, err)
	require.NotEmpty(t, ex.Sources)
	assert.Equal(t, 0, ex.Sources[0].ID, "lexical mode must rank the theft document first")
	assert.Equal(t, 1, embedder.calls)
}

func TestLexicalFallbackIsDeterministic(t *testing.T) {
	embedder := &fakeEmbedder{err: fmt.Errorf("down: %w", embedding.ErrUnavailable)}
	a := newAssistant(testCorpus(), WithEmbedder(embedder))

	first, err := a.Answer(context.Background(), "u1", "theft of property")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		next, err := a.Answer(context.Background(), "u1", "theft of property")
		require.NoError(t, err)
		assert.Equal(t, first.Sources, next.Sources)
	}
}

func TestSlowEmbedderDoesNotHangThePipeline(t *testing.T) {
	// The embedder stalls until its context deadline; the orchestrator must
	// come back on the lexical path well before the stall would end.
	embedder := &fakeEmbedder{delay: time.Minute}
	a := newAssistant(testCorpus(), WithEmbedder(embedder))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	ex, err := a.Answer(ctx, "u1", "what section covers theft")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	require.NotEmpty(t, ex.Sources)
	assert.Equal(t, 0, ex.Sources[0].ID)
}

func TestEmptyCorpusReturnsNoContextAnswer(t *testing.T) {
	a := newAssistant(corpus.New(nil, nil))

	ex, err := a.Answer(context.Background(), "u1", "what is theft")
	require.NoError(t, err)
	assert.Empty(t, ex.Sources)
	assert.Equal(t, generation.ConfidenceNoContext, ex.Confidence)
	assert.Contains(t, ex.AssistantMessage.Body, generation.Disclaimer)
}

func TestSectionLookupShortCircuitsEmbedding(t *testing.T) {
	embedder := &fakeEmbedder{vec: []float64{1, 0, 0}}
	a := newAssistant(testCorpus(), WithEmbedder(embedder))

	ex, err := a.Answer(context.Background(), "u1", "explain ipc 378")
	require.NoError(t, err)
	require.NotEmpty(t, ex.Sources)
	assert.Equal(t, 0, ex.Sources[0].ID)
	assert.Equal(t, 1.0, ex.Sources[0].Score)
	assert.Zero(t, embedder.calls, "explicit section references skip embedding")
}

func TestBothMessagesPersisted(t *testing.T) {
	store := &memStore{}
	a := newAssistant(testCorpus(), WithStore(store))

	ex, err := a.Answer(context.Background(), "u7", "what is theft")
	require.NoError(t, err)

	require.Len(t, store.msgs, 2)
	assert.Equal(t, "user", store.msgs[0].Role)
	assert.Equal(t, "what is theft", store.msgs[0].Body)
	assert.Equal(t, "assistant", store.msgs[1].Role)
	assert.Equal(t, ex.AssistantMessage.Body, store.msgs[1].Body)
	assert.Equal(t, "u7", store.msgs[1].UserID)
}

func TestStoreFailureDoesNotFailTheRequest(t *testing.T) {
	store := &memStore{err: fmt.Errorf("disk full")}
	a := newAssistant(testCorpus(), WithStore(store))

	ex, err := a.Answer(context.Background(), "u1", "what is theft")
	require.NoError(t, err)
	assert.NotEmpty(t, ex.AssistantMessage.Body)
}

func TestOverLongQueryTrimmedNotRejected(t *testing.T) {
	long := "theft "
	for len(long) < 3*MaxQueryChars {
		long += "theft property dishonest "
	}
	a := newAssistant(testCorpus())

	ex, err := a.Answer(context.Background(), "u1", long)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(ex.UserMessage.Body), MaxQueryChars)
}

func TestOverLongMultibyteQueryTrimmedOnRuneBoundary(t *testing.T) {
	a := newAssistant(testCorpus())
	long := "theft " + strings.Repeat("न", MaxQueryChars)

	ex, err := a.Answer(context.Background(), "u1", long)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(ex.UserMessage.Body), MaxQueryChars)
	assert.True(t, utf8.ValidString(ex.UserMessage.Body))
}

func TestAnswerAlwaysCarriesDisclaimer(t *testing.T) {
	a := newAssistant(testCorpus())
	for _, q := range []string{"what is theft", "how does bail work", "unrelated gibberish zzz"} {
		ex, err := a.Answer(context.Background(), "u1", q)
		require.NoError(t, err)
		assert.Contains(t, ex.AssistantMessage.Body, generation.Disclaimer, "query %q", q)
	}
}
