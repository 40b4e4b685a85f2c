package embedding

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"legalrag/internal/corpus"
)

// TFIDFProvider is the local, in-process embedder. It computes TF-IDF
// vectors in the vocabulary the index snapshot was built with, so query
// vectors are directly comparable with the precomputed document matrix.
type TFIDFProvider struct {
	vocabulary map[string]int
	idf        []float64
	dimension  int
}

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// NewTFIDFProvider binds the provider to a vocabulary snapshot. A nil
// vocabulary yields a provider whose Embed reports ErrUnavailable.
func NewTFIDFProvider(vocab *corpus.Vocabulary) *TFIDFProvider {
	p := &TFIDFProvider{}
	if vocab == nil || len(vocab.Terms) == 0 {
		return p
	}
	p.vocabulary = make(map[string]int, len(vocab.Terms))
	for i, term := range vocab.Terms {
		p.vocabulary[term] = i
	}
	p.idf = vocab.IDF
	p.dimension = len(vocab.Terms)
	return p
}

// Name returns the identifier of this provider implementation.
func (p *TFIDFProvider) Name() string { return "tfidf" }

// Dimension returns the vocabulary size, which is the vector dimensionality.
func (p *TFIDFProvider) Dimension() int { return p.dimension }

// Embed computes the L2-normalized TF-IDF vector for the text.
func (p *TFIDFProvider) Embed(_ context.Context, text string) ([]float64, error) {
	if p.dimension == 0 {
		return nil, fmt.Errorf("no vocabulary snapshot: %w", ErrUnavailable)
	}
	vec := make([]float64, p.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range tokenize(capQuery(text)) {
		if idx, ok := p.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * p.idf[idx]
	}
	normalize(vec)
	return vec, nil
}

// FitTFIDF builds a vocabulary with smoothed IDF values over the corpus
// texts and returns it with one vector per text. Used by the index builder.
func FitTFIDF(texts []string) (*corpus.Vocabulary, [][]float64, error) {
	if len(texts) == 0 {
		return nil, nil, fmt.Errorf("empty corpus for TF-IDF fit")
	}
	df := make(map[string]int)
	for _, text := range texts {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil, nil, fmt.Errorf("no tokens found in corpus")
	}
	sort.Strings(terms)

	vocab := &corpus.Vocabulary{Terms: terms, IDF: make([]float64, len(terms))}
	n := float64(len(texts))
	for i, term := range terms {
		vocab.IDF[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	provider := NewTFIDFProvider(vocab)
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := provider.Embed(context.Background(), text)
		if err != nil {
			return nil, nil, err
		}
		vectors[i] = vec
	}
	return vocab, vectors, nil
}

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func normalize(vec []float64) {
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return
	}
	for i := range vec {
		vec[i] /= norm
	}
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to",
		"of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were",
		"be", "been", "being", "it", "this", "that", "these", "those", "from",
		"up", "down", "over", "under", "again", "further", "than", "so", "such",
		"into", "about", "between", "through", "during", "before", "after",
		"above", "below", "out", "off", "own", "same", "too", "very", "can",
		"will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
