// Package chunker splits text into overlapping fixed-size windows,
// snapping chunk boundaries to sentence-ending punctuation when one is
// found close to the cut point.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadConfig indicates a size/overlap combination that cannot make
// forward progress.
var ErrBadConfig = errors.New("invalid chunker configuration")

// lookback is how far behind the tentative cut point Split searches for
// sentence-ending punctuation before giving up and hard-cutting.
const lookback = 100

// Chunker produces overlapping windows of at most Size characters with
// Overlap characters shared between adjacent chunks. Split is a pure
// function of its input; the same text always yields the same chunks.
type Chunker struct {
	size    int
	overlap int
}

// New validates size > 0 and 0 <= overlap < size.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrBadConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got overlap=%d size=%d", ErrBadConfig, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split walks the text with a cursor, emitting trimmed non-empty
// windows. When a window does not reach the end of the text, the cut
// point snaps back to the last '.', '!' or '?' within the lookback
// range so chunks tend to end on sentence boundaries.
//
// Offsets are rune indices, never byte offsets, so a cut can never
// land inside a multi-byte character.
//
// The cursor advances to end-overlap from the tentative (possibly
// snapped) end, not from the clipped one, and keeps walking while it
// is inside the text. A final window longer than size-overlap is
// therefore followed by shorter trailing windows of its tail.
//
// The cursor must strictly increase every iteration. Sentence snapping
// can pull the cut point back far enough that end-overlap would not
// advance the cursor; that combination fails with ErrBadConfig instead
// of looping forever.
func (c *Chunker) Split(text string) ([]string, error) {
	runes := []rune(text)

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end < len(runes) {
			end = snapToSentence(runes, start, end)
		}

		cut := end
		if cut > len(runes) {
			cut = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:cut])); chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - c.overlap
		if next <= start {
			return nil, fmt.Errorf("%w: cursor stalled at %d (end=%d overlap=%d)", ErrBadConfig, start, end, c.overlap)
		}
		start = next
	}

	return chunks, nil
}

// snapToSentence searches backward from end down to max(start, end-lookback)
// for the last sentence-ending character and returns the index just past
// it. If none is found the tentative end stands (hard cut).
func snapToSentence(runes []rune, start, end int) int {
	limit := end - lookback
	if limit < start {
		limit = start
	}
	for i := end; i > limit; i-- {
		switch runes[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return end
}
