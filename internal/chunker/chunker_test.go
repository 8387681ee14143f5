package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

// TestSplit_ShortText verifies a text shorter than the chunk size comes
// back as a single trimmed chunk.
func TestSplit_ShortText(t *testing.T) {
	text := "  " + strings.Repeat("a", 46) + "  " // 50 chars with padding

	c, err := New(1000, 200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != strings.TrimSpace(text) {
		t.Errorf("chunk should equal trimmed input, got %q", chunks[0])
	}
}

// TestSplit_SentenceBoundary verifies the cut snaps back to sentence
// punctuation inside the lookback window.
func TestSplit_SentenceBoundary(t *testing.T) {
	text := "Sentence one. Sentence two. Sentence three."

	c, err := New(20, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	want := []string{"Sentence one.", "Sentence two.", "Sentence three."}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: got %q, want %q", i, chunks[i], want[i])
		}
	}
}

// TestSplit_ExactOverlap verifies the exact window boundaries when no
// sentence snapping happens: full windows share the configured overlap
// and the cursor keeps advancing through the tail of the final window.
func TestSplit_ExactOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 250; i++ {
		b.WriteByte(byte('a' + i%26)) // no punctuation, no whitespace
	}
	text := b.String()

	c, err := New(100, 20)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	want := []string{text[0:100], text[80:180], text[160:250], text[240:250]}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d: got %q, want %q", i, chunks[i], want[i])
		}
	}
}

// TestSplit_TrailingWindows verifies that a final window longer than
// size-overlap is followed by trailing windows of its tail rather than
// ending the walk early.
func TestSplit_TrailingWindows(t *testing.T) {
	text := strings.Repeat("z", 2500)

	c, err := New(1000, 200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	wantLens := []int{1000, 1000, 900, 100}
	if len(chunks) != len(wantLens) {
		t.Fatalf("expected %d chunks, got %d", len(wantLens), len(chunks))
	}
	for i, n := range wantLens {
		if len(chunks[i]) != n {
			t.Errorf("chunk %d: got length %d, want %d", i, len(chunks[i]), n)
		}
	}
}

// TestSplit_MultiByteRunes verifies cuts land on character boundaries,
// never inside a multi-byte encoding.
func TestSplit_MultiByteRunes(t *testing.T) {
	text := "a" + strings.Repeat("é", 600)

	c, err := New(100, 20)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, chunk := range chunks {
		if !utf8.ValidString(chunk) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, chunk)
		}
	}
	if got := utf8.RuneCountInString(chunks[0]); got != 100 {
		t.Errorf("first chunk should hold 100 runes, got %d", got)
	}
}

// TestSplit_Idempotent verifies Split is a pure function of its inputs.
func TestSplit_Idempotent(t *testing.T) {
	text := "First point. Second point! A question? Plain trailing text without punctuation"

	c, err := New(30, 0)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	first, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	second, err := c.Split(text)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("runs disagree on chunk count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs: %q vs %q", i, first[i], second[i])
		}
	}
}

// TestSplit_Terminates runs a grid of configurations and checks the
// basic properties: termination, non-empty chunks, substrings of the
// input.
func TestSplit_Terminates(t *testing.T) {
	texts := []string{
		"",
		"short",
		strings.Repeat("word. ", 100),
		strings.Repeat("z", 1000),
		"One sentence only, quite long, with commas but no terminal punctuation at all",
	}
	configs := []struct{ size, overlap int }{
		{10, 0}, {10, 3}, {50, 10}, {1000, 200}, {7, 6},
	}

	for _, text := range texts {
		for _, cfg := range configs {
			c, err := New(cfg.size, cfg.overlap)
			if err != nil {
				t.Fatalf("New(%d, %d) failed: %v", cfg.size, cfg.overlap, err)
			}
			chunks, err := c.Split(text)
			if err != nil {
				// The cursor guard may legitimately reject snap-heavy
				// combinations; that is termination too.
				if !errors.Is(err, ErrBadConfig) {
					t.Errorf("Split(size=%d overlap=%d) unexpected error: %v", cfg.size, cfg.overlap, err)
				}
				continue
			}
			for i, chunk := range chunks {
				if chunk == "" {
					t.Errorf("Split(size=%d overlap=%d) chunk %d is empty", cfg.size, cfg.overlap, i)
				}
				if !strings.Contains(text, chunk) {
					t.Errorf("Split(size=%d overlap=%d) chunk %d not a substring", cfg.size, cfg.overlap, i)
				}
			}
		}
	}
}

// TestSplit_EmptyText verifies empty input yields zero chunks.
func TestSplit_EmptyText(t *testing.T) {
	c, err := New(1000, 200)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	chunks, err := c.Split("")
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

// TestNew_InvalidConfig verifies constructor validation.
func TestNew_InvalidConfig(t *testing.T) {
	cases := []struct{ size, overlap int }{
		{0, 0},
		{-5, 0},
		{10, -1},
		{10, 10},
		{10, 15},
	}
	for _, tc := range cases {
		if _, err := New(tc.size, tc.overlap); !errors.Is(err, ErrBadConfig) {
			t.Errorf("New(%d, %d) should fail with ErrBadConfig, got %v", tc.size, tc.overlap, err)
		}
	}
}

// TestSplit_CursorGuard verifies that sentence snapping which would
// stall the cursor fails fast instead of looping forever.
func TestSplit_CursorGuard(t *testing.T) {
	// Punctuation at index 100 pulls the cut back to 101; with overlap
	// 110 the next start would be negative.
	text := strings.Repeat("b", 100) + "." + strings.Repeat("b", 300)

	c, err := New(120, 110)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := c.Split(text); !errors.Is(err, ErrBadConfig) {
		t.Errorf("expected ErrBadConfig for stalled cursor, got %v", err)
	}
}
