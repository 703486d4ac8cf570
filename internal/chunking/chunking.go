// Package chunking splits document text into overlapping segments sized
// for retrieval.
package chunking

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Defaults used when a document is ingested without explicit settings.
const (
	DefaultSize    = 500
	DefaultOverlap = 100
)

// Chunk is one segment of a source text.
type Chunk struct {
	Position int    // 0-based order within the document
	Offset   int    // byte offset of Text in the source
	Text     string // exact source substring
}

// End returns the byte offset one past the chunk.
func (c Chunk) End() int {
	return c.Offset + len(c.Text)
}

// Splitter cuts text into windows of at most Size runes. Consecutive
// chunks share roughly Overlap runes.
type Splitter struct {
	size    int
	overlap int
}

// New creates a Splitter. overlap must be non-negative and smaller than size.
func New(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Default returns a Splitter with DefaultSize and DefaultOverlap.
func Default() *Splitter {
	return &Splitter{size: DefaultSize, overlap: DefaultOverlap}
}

// Size returns the maximum chunk length in runes.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the target overlap in runes.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the chunks of text in order. Empty text yields nil.
//
// Each window ends at the last paragraph break, else the last sentence
// end, else the last whitespace, else a hard cut. A breakpoint only counts
// when it lies more than Overlap runes into the window, so every step
// makes progress.
func (s *Splitter) Split(text string) []Chunk {
	if text == "" {
		return nil
	}

	// offsets[i] is the byte offset of rune i; offsets[n] == len(text).
	// Ranging over the string keeps each invalid byte at width 1, so chunk
	// texts stay exact source substrings even for non-UTF-8 input.
	n := utf8.RuneCountInString(text)
	runes := make([]rune, 0, n)
	offsets := make([]int, 0, n+1)
	for i, r := range text {
		runes = append(runes, r)
		offsets = append(offsets, i)
	}
	offsets = append(offsets, len(text))

	var chunks []Chunk
	emit := func(from, to int) {
		chunks = append(chunks, Chunk{
			Position: len(chunks),
			Offset:   offsets[from],
			Text:     text[offsets[from]:offsets[to]],
		})
	}

	start := 0
	for {
		end := start + s.size
		if end >= n {
			emit(start, n)
			return chunks
		}

		cut := s.cut(runes, start, end)
		emit(start, cut)

		next := snapToWord(runes, cut-s.overlap, cut)
		if next <= start {
			next = start + 1
		}
		start = next
	}
}

// cut picks the end of the window [start, end). Candidates must lie past
// floor so that the next start still advances.
func (s *Splitter) cut(runes []rune, start, end int) int {
	floor := start + s.overlap

	for i := end - 2; i+2 > floor && i >= start; i-- {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i + 2
		}
	}
	for i := end - 2; i+2 > floor && i >= start; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 2
		}
	}
	for i := end - 1; i+1 > floor && i >= start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

// snapToWord moves from forward to the start of the next word, staying
// below limit. When no word starts in the range, from is returned.
func snapToWord(runes []rune, from, limit int) int {
	if from <= 0 {
		return 0
	}
	for i := from; i < limit; i++ {
		if unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return from
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// Split cuts text with the default splitter.
func Split(text string) []Chunk {
	return Default().Split(text)
}

// Texts returns the chunk texts in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// Reconstruct rebuilds the source text from chunks ordered by position,
// dropping the overlapping prefix of each chunk.
func Reconstruct(chunks []Chunk) string {
	var b strings.Builder
	covered := 0
	for _, c := range chunks {
		if c.End() <= covered {
			continue
		}
		skip := covered - c.Offset
		if skip < 0 {
			skip = 0
		}
		b.WriteString(c.Text[skip:])
		covered = c.End()
	}
	return b.String()
}
