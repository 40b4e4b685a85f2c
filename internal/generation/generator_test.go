package generation

import (
	"context"
	"io"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legalrag/internal/domain"
)

type fakeProvider struct {
	text    string
	err     error
	prompts []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(_ context.Context, prompt string, _ int) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.text, f.err
}

func quietLogger() *log.Logger { return log.New(io.Discard) }

func contexts() []domain.RetrievalResult {
	return []domain.RetrievalResult{
		{ID: 0, Title: "IPC Section 378: Theft", Text: "Whoever intends to take dishonestly any movable property commits theft.", Score: 0.9},
		{ID: 1, Title: "Theft Guide - Part 1", Text: "Theft complaints are filed at the local police station.", Score: 0.5},
	}
}

func TestGenerativePathCarriesDisclaimer(t *testing.T) {
	provider := &fakeProvider{text: "Theft is covered by Section 378."}
	g := New(provider, DefaultConfig(), quietLogger())

	answer := g.Generate(context.Background(), "what is theft", contexts())

	assert.Contains(t, answer.Text, "Theft is covered by Section 378.")
	assert.Contains(t, answer.Text, Disclaimer)
	assert.Equal(t, ConfidenceGenerative, answer.Confidence)
}

func TestPromptContainsContextsAndQuery(t *testing.T) {
	provider := &fakeProvider{text: "ok"}
	g := New(provider, DefaultConfig(), quietLogger())

	g.Generate(context.Background(), "what is theft", contexts())

	require.Len(t, provider.prompts, 1)
	prompt := provider.prompts[0]
	assert.Contains(t, prompt, "IPC Section 378: Theft")
	assert.Contains(t, prompt, "Question: what is theft")
	assert.Contains(t, prompt, "legal professional")
}

func TestPromptBudgetDropsLowestRankedFirst(t *testing.T) {
	provider := &fakeProvider{text: "ok"}
	cfg := DefaultConfig()
	cfg.MaxContextChars = 40
	g := New(provider, cfg, quietLogger())

	g.Generate(context.Background(), "q", contexts())

	require.Len(t, provider.prompts, 1)
	prompt := provider.prompts[0]
	assert.Contains(t, prompt, "Whoever intends")
	assert.NotContains(t, prompt, "police station")
}

func TestPromptTruncationKeepsValidUTF8(t *testing.T) {
	provider := &fakeProvider{text: "ok"}
	cfg := DefaultConfig()
	cfg.MaxContextChars = 50
	g := New(provider, cfg, quietLogger())

	ctxs := []domain.RetrievalResult{
		{ID: 0, Title: "Devanagari", Text: strings.Repeat("न", 100), Score: 0.9},
	}
	g.Generate(context.Background(), "q", ctxs)

	require.Len(t, provider.prompts, 1)
	assert.True(t, utf8.ValidString(provider.prompts[0]))
}

func TestExtractiveTruncationKeepsValidUTF8(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtractChars = 50
	g := New(nil, cfg, quietLogger())

	ctxs := []domain.RetrievalResult{
		{ID: 0, Title: "Devanagari", Text: strings.Repeat("न", 100), Score: 0.9},
	}
	answer := g.Generate(context.Background(), "q", ctxs)
	assert.True(t, utf8.ValidString(answer.Text))
}

func TestProviderErrorFallsBackToExtractive(t *testing.T) {
	provider := &fakeProvider{err: ErrUnavailable}
	g := New(provider, DefaultConfig(), quietLogger())

	answer := g.Generate(context.Background(), "what is theft", contexts())

	assert.Contains(t, answer.Text, "Whoever intends")
	assert.Contains(t, answer.Text, Disclaimer)
	assert.Equal(t, ConfidenceExtractive, answer.Confidence)
}

func TestBlankCompletionFallsBackToExtractive(t *testing.T) {
	provider := &fakeProvider{text: "   "}
	g := New(provider, DefaultConfig(), quietLogger())

	answer := g.Generate(context.Background(), "what is theft", contexts())
	assert.Equal(t, ConfidenceExtractive, answer.Confidence)
}

func TestNilProviderUsesExtractive(t *testing.T) {
	g := New(nil, DefaultConfig(), quietLogger())

	answer := g.Generate(context.Background(), "what is theft", contexts())
	assert.Equal(t, ConfidenceExtractive, answer.Confidence)
	assert.Contains(t, answer.Text, "IPC Section 378: Theft")
}

func TestExtractiveLeadInsMatchQuerySubject(t *testing.T) {
	g := New(nil, DefaultConfig(), quietLogger())
	ctxs := contexts()

	cases := []struct {
		query string
		want  string
	}{
		{"how does bail work", "Regarding bail"},
		{"which section applies here", "relevant legal section"},
		{"how do I file an fir", "filing an FIR"},
		{"help me understand theft", "Based on the legal documents"},
	}
	for _, tc := range cases {
		answer := g.Generate(context.Background(), tc.query, ctxs)
		assert.Contains(t, answer.Text, tc.want, "query %q", tc.query)
	}
}

func TestNoContextsReturnsFixedMessage(t *testing.T) {
	provider := &fakeProvider{text: "should never be called"}
	g := New(provider, DefaultConfig(), quietLogger())

	answer := g.Generate(context.Background(), "anything", nil)

	assert.Empty(t, provider.prompts, "generation provider must not be invoked without contexts")
	assert.Contains(t, answer.Text, "could not find relevant information")
	assert.Contains(t, answer.Text, Disclaimer)
	assert.Equal(t, ConfidenceNoContext, answer.Confidence)
}

func TestConfidenceOrderingAcrossTiers(t *testing.T) {
	ctxs := contexts()

	generative := New(&fakeProvider{text: "answer"}, DefaultConfig(), quietLogger()).
		Generate(context.Background(), "q", ctxs)
	extractive := New(&fakeProvider{err: ErrUnavailable}, DefaultConfig(), quietLogger()).
		Generate(context.Background(), "q", ctxs)
	empty := New(nil, DefaultConfig(), quietLogger()).
		Generate(context.Background(), "q", nil)

	assert.Greater(t, generative.Confidence, extractive.Confidence)
	assert.Greater(t, extractive.Confidence, empty.Confidence)
}

func TestExtractiveTruncatesAtWordBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtractChars = 30
	g := New(nil, cfg, quietLogger())

	answer := g.Generate(context.Background(), "q", contexts())
	body := strings.Split(answer.Text, "\n\n")[0]
	assert.Contains(t, body, "...")
	assert.NotContains(t, body, "commits theft")
}
