// Package embedding provides query embedders: a remote OpenAI-compatible
// provider and a local TF-IDF provider operating in the snapshot vocabulary.
package embedding

import (
	"errors"
	"unicode/utf8"
)

// ErrUnavailable marks an embedding failure the pipeline is expected to
// absorb: provider not configured, remote error, timeout, or an unusable
// response. Callers test with errors.Is and fall back to lexical ranking.
var ErrUnavailable = errors.New("embedding unavailable")

// MaxQueryChars caps the text sent to any provider.
const MaxQueryChars = 1000

// capQuery bounds the text at MaxQueryChars bytes on a rune boundary.
func capQuery(text string) string {
	if len(text) <= MaxQueryChars {
		return text
	}
	cut := MaxQueryChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
