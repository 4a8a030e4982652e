// Package chunker splits long documents into bounded, overlapping segments
// for per-chunk generation.
package chunker

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Sizes are measured in characters (runes).
const (
	TextSize      = 1024
	TextOverlap   = 100
	FilingSize    = 8192
	FilingOverlap = 128
)

// Splitter turns a document into chunks.
type Splitter interface {
	Split(text string) []string
}

// Recursive wraps langchaingo's RecursiveCharacter splitter. It prefers to
// break on paragraph, line, sentence and word boundaries, in that order.
type Recursive struct {
	s textsplitter.RecursiveCharacter
}

// New returns a Recursive splitter. Non-positive size falls back to
// TextSize; overlap is clamped to [0, size).
func New(size, overlap int) Recursive {
	if size <= 0 {
		size = TextSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return Recursive{
		s: textsplitter.NewRecursiveCharacter(
			textsplitter.WithSeparators([]string{"\n\n", "\n", ". ", " ", ""}),
			textsplitter.WithChunkSize(size),
			textsplitter.WithChunkOverlap(overlap),
		),
	}
}

// ForText is the splitter for free text and PDFs.
func ForText() Recursive { return New(TextSize, TextOverlap) }

// ForFiling is the splitter for 10-K/10-Q items.
func ForFiling() Recursive { return New(FilingSize, FilingOverlap) }

// Split returns the chunks of text. Blank input yields no chunks. If the
// underlying splitter fails the whole text is returned as one chunk.
func (r Recursive) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts, err := r.s.SplitText(text)
	if err != nil || len(parts) == 0 {
		return []string{text}
	}

	out := parts[:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitAll splits every text and concatenates the chunks in order.
func SplitAll(s Splitter, texts []string) []string {
	var out []string
	for _, t := range texts {
		out = append(out, s.Split(t)...)
	}
	return out
}
