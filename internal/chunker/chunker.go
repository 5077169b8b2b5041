// Package chunker splits normalized document text into overlapping chunks.
package chunker

import (
	"fmt"

	"github.com/kailas-cloud/docqa/internal/domain"
)

// Chunker splits text into overlapping rune-based chunks of bounded size.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. size and overlap are rune counts; overlap must be
// positive and strictly less than size or the chunker cannot terminate.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", size, domain.ErrInvalidConfig)
	}
	if overlap <= 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in (0, %d), got %d: %w", size, overlap, domain.ErrInvalidConfig)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into ordered chunks. Each chunk holds at most size runes;
// consecutive chunk starts are exactly size-overlap runes apart, so start
// offsets are strictly increasing and the union of chunks covers the whole
// text. Chunk ends snap back to the nearest sentence or paragraph break when
// one falls inside the overlap window, never below the next chunk's start.
// Output is deterministic for identical input and configuration.
func (c *Chunker) Chunk(text string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []domain.Chunk{{Seq: 0, Start: 0, End: len(runes), Text: text}}
	}

	step := c.size - c.overlap
	chunks := make([]domain.Chunk, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		last := end >= len(runes)
		if last {
			end = len(runes)
		} else {
			// floor = start+step keeps coverage: the next chunk starts there.
			end = snapToBreak(runes, start+step, end)
		}
		chunks = append(chunks, domain.Chunk{
			Seq:   len(chunks),
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})
		if last {
			break
		}
	}
	return chunks
}

// snapToBreak searches (floor, end] backward for a sentence or line break and
// returns the position just after it, or end when the window has none.
func snapToBreak(runes []rune, floor, end int) int {
	for i := end - 1; i > floor; i-- {
		switch runes[i] {
		case '\n':
			return i + 1
		case '.', '!', '?':
			// Sentence end only when followed by whitespace or text end.
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				return i + 1
			}
		}
	}
	return end
}
