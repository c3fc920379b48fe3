// Package tokenizer turns extracted page texts into the flat token stream the
// row scanner walks.
package tokenizer

import "strings"

// noise is the set of bracket and punctuation runes stripped from both ends of
// a token before it is classified.
const noise = "[]{}(),;:"

// Stream is the ordered token sequence of one PDF.
type Stream struct {
	// Tokens holds every whitespace-separated run of every page, in page order.
	Tokens []string

	// PageStarts holds the index into Tokens where each page begins.
	// Pages that contribute no tokens still get an entry.
	PageStarts []int
}

// Tokenize splits each page on whitespace and concatenates the pages.
func Tokenize(pages []string) Stream {
	s := Stream{PageStarts: make([]int, 0, len(pages))}
	for _, page := range pages {
		s.PageStarts = append(s.PageStarts, len(s.Tokens))
		s.Tokens = append(s.Tokens, strings.Fields(page)...)
	}
	return s
}

// Len returns the number of tokens in the stream.
func (s Stream) Len() int {
	return len(s.Tokens)
}

// PageEnd returns the exclusive end of the page containing token i.
// It returns Len() when i is on the last page.
func (s Stream) PageEnd(i int) int {
	for _, start := range s.PageStarts {
		if start > i {
			return start
		}
	}
	return len(s.Tokens)
}

// Truncate returns a copy of the stream limited to the first n tokens.
func (s Stream) Truncate(n int) Stream {
	if n >= len(s.Tokens) {
		return s
	}
	out := Stream{Tokens: s.Tokens[:n]}
	for _, start := range s.PageStarts {
		if start < n {
			out.PageStarts = append(out.PageStarts, start)
		}
	}
	return out
}

// Clean strips surrounding whitespace and bracket/punctuation noise.
// The original token is not modified.
func Clean(tok string) string {
	return strings.Trim(strings.TrimSpace(tok), noise)
}
