// Package corpus loads the static legal-document snapshot and its
// precomputed embedding matrix into an immutable in-memory index.
package corpus

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"legalrag/internal/domain"
)

// Corpus is the read-only retrieval index: documents ordered by id plus the
// positionally aligned embedding matrix. It is built once at startup and
// shared by every request; nothing mutates it afterwards.
type Corpus struct {
	docs    []domain.Document
	vectors [][]float64
	dim     int
	vocab   *Vocabulary
}

// Vocabulary is the TF-IDF term space the embedding matrix was built in.
// It is only present when the index was produced by the local embedder.
type Vocabulary struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

type snapshotDoc struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	Source   string `json:"source"`
	Category string `json:"category,omitempty"`
}

// Load reads the docstore, embedding, and vocabulary snapshots. Every
// failure degrades instead of erroring: a missing or corrupt docstore yields
// an empty corpus, a missing or misaligned embedding matrix yields a corpus
// that only supports lexical ranking. The pipeline never fails a request
// because a snapshot is absent.
func Load(docstorePath, embeddingsPath, vocabPath string, logger *log.Logger) *Corpus {
	c := &Corpus{}

	docs, err := loadDocstore(docstorePath)
	if err != nil {
		logger.Warn("corpus unavailable, continuing with empty index",
			"path", docstorePath, "err", err)
		return c
	}
	c.docs = docs

	vectors, err := loadEmbeddings(embeddingsPath)
	if err != nil {
		logger.Warn("embedding index unavailable, lexical ranking only",
			"path", embeddingsPath, "err", err)
	} else if len(vectors) != len(docs) {
		logger.Warn("embedding index misaligned with corpus, dropping vectors",
			"docs", len(docs), "vectors", len(vectors))
	} else {
		c.vectors = vectors
		if len(vectors) > 0 {
			c.dim = len(vectors[0])
		}
	}

	if vocabPath != "" {
		vocab, err := loadVocabulary(vocabPath)
		if err != nil {
			logger.Debug("vocabulary snapshot not loaded", "path", vocabPath, "err", err)
		} else {
			c.vocab = vocab
		}
	}

	logger.Info("corpus loaded",
		"documents", len(c.docs), "vectors", len(c.vectors), "dimension", c.dim)
	return c
}

// New builds a corpus directly from documents and vectors. Intended for the
// index builder and tests; positional alignment is the caller's problem here
// and is enforced the same way Load enforces it.
func New(docs []domain.Document, vectors [][]float64) *Corpus {
	c := &Corpus{docs: docs}
	if len(vectors) == len(docs) {
		c.vectors = vectors
		if len(vectors) > 0 {
			c.dim = len(vectors[0])
		}
	}
	return c
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.docs) }

// Documents returns all documents in id order. Callers must not mutate.
func (c *Corpus) Documents() []domain.Document { return c.docs }

// Vector returns the embedding for the document at position i, or nil when
// the index carries no vectors.
func (c *Corpus) Vector(i int) []float64 {
	if i < 0 || i >= len(c.vectors) {
		return nil
	}
	return c.vectors[i]
}

// HasVectors reports whether vector-mode ranking is possible at all.
func (c *Corpus) HasVectors() bool { return len(c.vectors) > 0 }

// Dimension returns the embedding dimensionality, 0 without vectors.
func (c *Corpus) Dimension() int { return c.dim }

// Vocab returns the TF-IDF vocabulary snapshot, or nil.
func (c *Corpus) Vocab() *Vocabulary { return c.vocab }

func loadDocstore(path string) ([]domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read docstore")
	}
	var raw map[string]snapshotDoc
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "parse docstore")
	}
	docs := make([]domain.Document, 0, len(raw))
	for key, d := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, errors.Wrapf(err, "non-integer document id %q", key)
		}
		docs = append(docs, domain.Document{
			ID:       id,
			Title:    d.Title,
			Text:     d.Text,
			Source:   d.Source,
			Category: d.Category,
		})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	// Ids must serialize positions so that vectors[i] belongs to docs[i].
	for i, d := range docs {
		if d.ID != i {
			return nil, errors.Errorf("document ids not contiguous: want %d, got %d", i, d.ID)
		}
	}
	return docs, nil
}

func loadEmbeddings(path string) ([][]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read embeddings")
	}
	var vectors [][]float64
	if err := json.Unmarshal(data, &vectors); err != nil {
		return nil, errors.Wrap(err, "parse embeddings")
	}
	for i, v := range vectors {
		if len(v) != len(vectors[0]) {
			return nil, errors.Errorf("vector %d has dimension %d, want %d", i, len(v), len(vectors[0]))
		}
	}
	return vectors, nil
}

func loadVocabulary(path string) (*Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read vocabulary")
	}
	var v Vocabulary
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errors.Wrap(err, "parse vocabulary")
	}
	if len(v.Terms) != len(v.IDF) {
		return nil, errors.Errorf("vocabulary terms/idf length mismatch: %d vs %d", len(v.Terms), len(v.IDF))
	}
	return &v, nil
}
