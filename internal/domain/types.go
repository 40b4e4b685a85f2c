package domain

import "time"

// Document is a single corpus entry: one statute section or one chunk of a
// legal guide. Documents are immutable after the corpus snapshot is loaded.
type Document struct {
	ID       int
	Title    string
	Text     string
	Source   string
	Category string
}

// RetrievalResult is a scored match produced for a single query.
// Text is truncated for transport to the generator and the UI.
type RetrievalResult struct {
	ID     int
	Title  string
	Text   string
	Source string
	Score  float64
}

// SourceRef identifies a retrieved document for answer attribution.
type SourceRef struct {
	ID     int
	Title  string
	Score  float64
	Source string
}

// Answer is the final composed response for one query.
type Answer struct {
	Text       string
	Confidence float64
	Sources    []SourceRef
}

// ChatMessage is one side of a persisted exchange.
type ChatMessage struct {
	ID        string
	UserID    string
	Role      string // "user" or "assistant"
	Body      string
	CreatedAt time.Time
}
