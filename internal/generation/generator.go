// Package generation composes the final answer from retrieved passages,
// degrading from grounded generation to extractive templating to a fixed
// no-context message. It never fails a request.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"legalrag/internal/domain"
)

// Disclaimer is appended to every answer the assistant produces.
const Disclaimer = "Note: This is general legal information, not legal advice. Please consult a qualified legal professional for your specific situation."

// Confidence tiers. These are coarse, explainable scalars, not calibrated
// probabilities; only their ordering is load-bearing.
const (
	ConfidenceGenerative = 0.8
	ConfidenceExtractive = 0.55
	ConfidenceNoContext  = 0.3
)

const systemInstruction = `You are a legal assistant. Answer the question using ONLY the legal document excerpts provided below. If the excerpts do not fully answer the question, say so plainly. Flag any uncertainty. Always recommend consulting a legal professional for specific cases. Explain in simple language.`

const noContextMessage = "I could not find relevant information in the legal knowledge base for your question. You can ask me about filing an FIR, bail procedures, or specific IPC sections, or consult a legal professional directly."

// Config bounds the generative call.
type Config struct {
	// MaxContextChars is the budget for retrieved passages in the prompt;
	// lowest-ranked contexts are dropped first when over budget.
	MaxContextChars int
	// MaxOutputTokens caps the completion length.
	MaxOutputTokens int
	// Timeout bounds the provider call.
	Timeout time.Duration
	// ExtractChars is the length of the passage prefix used by the
	// extractive fallback.
	ExtractChars int
}

// DefaultConfig returns the standard generation bounds.
func DefaultConfig() Config {
	return Config{
		MaxContextChars: 1000,
		MaxOutputTokens: 256,
		Timeout:         12 * time.Second,
		ExtractChars:    300,
	}
}

// Generator turns (query, contexts) into an Answer.
type Generator struct {
	provider domain.GenerationProvider
	cfg      Config
	logger   *log.Logger
}

// New creates a Generator. A nil provider means every answer takes the
// extractive path, which is the designed behavior for installs without a
// generation backend.
func New(provider domain.GenerationProvider, cfg Config, logger *log.Logger) *Generator {
	if cfg.MaxContextChars == 0 {
		cfg = DefaultConfig()
	}
	return &Generator{provider: provider, cfg: cfg, logger: logger}
}

// Generate composes an answer from the retrieved contexts. Provider failures
// degrade to the extractive template; absent contexts short-circuit to the
// fixed no-context message. The disclaimer always rides along.
func (g *Generator) Generate(ctx context.Context, query string, contexts []domain.RetrievalResult) domain.Answer {
	if len(contexts) == 0 {
		return domain.Answer{
			Text:       withDisclaimer(noContextMessage),
			Confidence: ConfidenceNoContext,
		}
	}
	if g.provider != nil {
		if answer, ok := g.generateGrounded(ctx, query, contexts); ok {
			return answer
		}
	}
	return g.extractive(query, contexts)
}

func (g *Generator) generateGrounded(ctx context.Context, query string, contexts []domain.RetrievalResult) (domain.Answer, bool) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	prompt := g.buildPrompt(query, contexts)
	text, err := g.provider.Generate(ctx, prompt, g.cfg.MaxOutputTokens)
	if err != nil {
		g.logger.Debug("generation provider failed, using extractive fallback",
			"provider", g.provider.Name(), "err", err)
		return domain.Answer{}, false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Answer{}, false
	}
	return domain.Answer{
		Text:       withDisclaimer(text),
		Confidence: ConfidenceGenerative,
	}, true
}

// buildPrompt enumerates the contexts under the system instruction, spending
// the character budget on higher-ranked passages first.
func (g *Generator) buildPrompt(query string, contexts []domain.RetrievalResult) string {
	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\nExcerpts:\n")
	budget := g.cfg.MaxContextChars
	for i, c := range contexts {
		if budget <= 0 {
			break
		}
		text := truncateRunes(c.Text, budget)
		budget -= len(text)
		fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, c.Title, text)
	}
	b.WriteString("Question: ")
	b.WriteString(query)
	return b.String()
}

// extractive answers with a prefix of the best passage behind a lead-in
// phrase chosen from the query's subject.
func (g *Generator) extractive(query string, contexts []domain.RetrievalResult) domain.Answer {
	top := contexts[0]
	excerpt := wordPrefix(top.Text, g.cfg.ExtractChars)
	text := fmt.Sprintf("%s %s (Source: %s)", leadIn(query), excerpt, top.Title)
	return domain.Answer{
		Text:       withDisclaimer(text),
		Confidence: ConfidenceExtractive,
	}
}

func leadIn(query string) string {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(q, "bail"):
		return "Regarding bail, the most relevant provision I found says:"
	case strings.Contains(q, "section"):
		return "The relevant legal section states:"
	case strings.Contains(q, "fir"):
		return "On filing an FIR, the knowledge base says:"
	default:
		return "Based on the legal documents I found:"
	}
}

// wordPrefix truncates at a word boundary near limit.
func wordPrefix(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	cut := truncateRunes(text, limit)
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
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

func withDisclaimer(text string) string {
	return strings.TrimSpace(text) + "\n\n" + Disclaimer
}
