// Package chunking splits document text into overlapping windows for
// embedding. Windows prefer to end at sentence boundaries so retrieval
// never surfaces mid-sentence fragments.
package chunking

import (
	"errors"
	"strings"
	"unicode"
)

// ErrInvalidWindow is returned when chunkSize and overlap do not satisfy
// chunkSize > overlap >= 0.
var ErrInvalidWindow = errors.New("chunk size must be greater than overlap, overlap must be non-negative")

// boundaryLookback is how far back from the window end a sentence
// terminator is honoured.
const boundaryLookback = 100

// Piece is one window of the source text.
// Start and End are rune offsets of the untrimmed window.
type Piece struct {
	Index int
	Text  string
	Start int
	End   int
}

// Split cuts text into windows of at most chunkSize runes, each new
// window starting overlap runes before the previous one ended.
//
// When a window does not reach the end of the text it backs up to the
// nearest preceding sentence terminator (".", "!", "?") followed by
// whitespace, looking at most boundaryLookback runes back. If the
// backed-up boundary would not advance past the window start the cut is
// forced at the full window so the walk always terminates.
//
// Split is deterministic and has no side effects. Empty or all-space
// windows are dropped; empty text yields no pieces.
func Split(text string, chunkSize, overlap int) ([]Piece, error) {
	if chunkSize <= 0 || overlap < 0 || chunkSize <= overlap {
		return nil, ErrInvalidWindow
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	var pieces []Piece

	start := 0
	for start < len(runes) {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			if b := sentenceBoundary(runes, start, end); b > start {
				end = b
			}
		}

		trimmed := strings.TrimSpace(string(runes[start:end]))
		if trimmed != "" {
			pieces = append(pieces, Piece{
				Index: len(pieces),
				Text:  trimmed,
				Start: start,
				End:   end,
			})
		}

		if end == len(runes) {
			break
		}

		next := end - overlap
		if next <= start {
			// Guarantee progress even when the boundary backed up
			// into the overlap region.
			next = end
		}
		start = next
	}

	return pieces, nil
}

// sentenceBoundary returns the cut position just past the last sentence
// terminator followed by whitespace within the window's tail, or -1.
func sentenceBoundary(runes []rune, start, end int) int {
	lo := end - boundaryLookback
	if lo < start {
		lo = start
	}
	for i := end - 1; i >= lo; i-- {
		if isTerminator(runes[i]) && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			if i+2 > end {
				return end
			}
			return i + 2
		}
	}
	return -1
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
