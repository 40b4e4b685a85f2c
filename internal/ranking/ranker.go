// Package ranking scores corpus documents against a query and returns the
// top-K matches. Two interchangeable modes exist: cosine similarity over the
// precomputed embedding matrix, and lexical token-overlap as the fallback
// when no query vector is available.
package ranking

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"legalrag/internal/corpus"
	"legalrag/internal/domain"
)

// DefaultTopK is used when the caller passes a non-positive topK.
const DefaultTopK = 3

// MaxResultTextChars bounds the passage text carried in a result.
const MaxResultTextChars = 800

// Boosts are the additive lexical-score heuristics. The values are the
// weights the production corpus was tuned with; they are fields rather than
// constants so tests can isolate each term.
type Boosts struct {
	// Phrase is added when the document contains the raw lowercased query.
	Phrase float64
	// Statutory is added when the query mentions "section" and the
	// document's category equals StatutoryCategory.
	Statutory float64
	// StatutoryCategory marks penal-code content, "IPC" by default.
	StatutoryCategory string
}

// DefaultBoosts returns the standard boost weights.
func DefaultBoosts() Boosts {
	return Boosts{Phrase: 0.3, Statutory: 0.2, StatutoryCategory: "IPC"}
}

// Ranker scores every document in the corpus against a query.
type Ranker struct {
	corpus *corpus.Corpus
	boosts Boosts
}

// New creates a Ranker over the given corpus.
func New(c *corpus.Corpus, boosts Boosts) *Ranker {
	return &Ranker{corpus: c, boosts: boosts}
}

var (
	wordPattern    = regexp.MustCompile(`\w+`)
	sectionPattern = regexp.MustCompile(`(?i)(?:ipc|section)\s*(\d+)`)
)

// RankVector ranks all documents by cosine similarity against the query
// vector and returns the top-K. Results are sorted descending by score with
// ties broken by corpus order, so repeated calls are deterministic.
func (r *Ranker) RankVector(queryVec []float64, topK int) []domain.RetrievalResult {
	if !r.corpus.HasVectors() {
		return nil
	}
	docs := r.corpus.Documents()
	results := make([]domain.RetrievalResult, 0, len(docs))
	for i, d := range docs {
		score := cosine(queryVec, r.corpus.Vector(i))
		results = append(results, newResult(d, score))
	}
	return takeTop(results, topK)
}

// RankLexical ranks documents by Jaccard token overlap with the additive
// phrase and statutory boosts. Documents with zero score are dropped before
// truncation: no overlap means no result, even below the quota.
func (r *Ranker) RankLexical(query string, topK int) []domain.RetrievalResult {
	queryLower := strings.ToLower(query)
	queryTokens := tokenSet(queryLower)
	mentionsSection := strings.Contains(queryLower, "section")

	results := make([]domain.RetrievalResult, 0, r.corpus.Len())
	for _, d := range r.corpus.Documents() {
		docText := strings.ToLower(d.Text + " " + d.Title)
		score := jaccard(queryTokens, tokenSet(docText))
		if strings.Contains(docText, queryLower) {
			score += r.boosts.Phrase
		}
		if mentionsSection && d.Category == r.boosts.StatutoryCategory {
			score += r.boosts.Statutory
		}
		if score <= 0 {
			continue
		}
		results = append(results, newResult(d, score))
	}
	return takeTop(results, topK)
}

// LookupSection resolves an explicit section reference ("IPC 378",
// "section 420") to the documents whose titles name that section. A hit
// short-circuits similarity search; scores are pinned to 1 since the match
// is exact. Returns nil when the query names no section or nothing matches.
func (r *Ranker) LookupSection(query string, topK int) []domain.RetrievalResult {
	m := sectionPattern.FindStringSubmatch(query)
	if m == nil {
		return nil
	}
	titlePattern, err := regexp.Compile(fmt.Sprintf(`(?i)(?:^|\b)(?:Section|IPC)\s*%s(?:\b|$)`, m[1]))
	if err != nil {
		return nil
	}
	var results []domain.RetrievalResult
	for _, d := range r.corpus.Documents() {
		if titlePattern.MatchString(d.Title) {
			results = append(results, newResult(d, 1.0))
		}
	}
	return takeTop(results, topK)
}

func newResult(d domain.Document, score float64) domain.RetrievalResult {
	text := d.Text
	if len(text) > MaxResultTextChars {
		cut := MaxResultTextChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}
	return domain.RetrievalResult{
		ID:     d.ID,
		Title:  d.Title,
		Text:   text,
		Source: d.Source,
		Score:  score,
	}
}

// takeTop sorts descending by score and truncates. The input is in corpus
// order and the sort is stable, so equal scores keep lower ids first.
func takeTop(results []domain.RetrievalResult, topK int) []domain.RetrievalResult {
	if topK <= 0 {
		topK = DefaultTopK
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > len(results) {
		topK = len(results)
	}
	return results[:topK]
}

// cosine computes dot(a,b)/(|a||b|), defined as 0 when either norm is 0.
func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
	}
	for _, v := range a {
		na += v * v
	}
	for _, v := range b {
		nb += v * v
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// tokenSet lowercases, strips non-word characters, and drops tokens of
// length <= 2 — short function words never carry retrieval signal here.
func tokenSet(text string) map[string]struct{} {
	tokens := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if len(t) <= 2 {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
