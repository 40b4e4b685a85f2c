// Package chunker splits long legal guides into retrieval-sized passages.
package chunker

import (
	"regexp"
	"strings"
)

// GuideChunker produces sentence-aligned chunks bounded by a character
// budget, with a short character overlap carried between adjacent chunks so
// context is not cut mid-thought.
type GuideChunker struct {
	maxChars     int
	overlapChars int
	splitter     *regexp.Regexp
}

// New creates a chunker. Non-positive arguments fall back to the budgets
// the corpus snapshots were built with (800-char chunks, 50-char overlap).
func New(maxChars, overlapChars int) *GuideChunker {
	if maxChars <= 0 {
		maxChars = 800
	}
	if overlapChars < 0 {
		overlapChars = 50
	}
	return &GuideChunker{
		maxChars:     maxChars,
		overlapChars: overlapChars,
		splitter:     regexp.MustCompile(`[.!?]+`),
	}
}

// Chunk splits text into passages. Short texts come back as a single chunk;
// blank texts yield none.
func (c *GuideChunker) Chunk(text string) []string {
	var chunks []string
	var current string
	for _, sentence := range c.splitter.Split(text, -1) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		switch {
		case current == "":
			current = sentence
		case len(current)+len(sentence)+2 <= c.maxChars:
			current += ". " + sentence
		default:
			chunks = append(chunks, current)
			overlap := current
			if len(overlap) > c.overlapChars {
				overlap = overlap[len(overlap)-c.overlapChars:]
			}
			current = overlap + ". " + sentence
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
