package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitShortTextSingleChunk(t *testing.T) {
	s := NewSplitter(100, 20)

	chunks := s.Split("hello world")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "hello world" {
		t.Fatalf("unexpected chunk: %q", chunks[0])
	}
}

func TestSplitEmptyText(t *testing.T) {
	s := NewSplitter(100, 20)

	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
	if got := s.Split("   \n\n  "); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	s := NewSplitter(50, 0)

	para1 := strings.Repeat("a", 30)
	para2 := strings.Repeat("b", 30)
	chunks := s.Split(para1 + "\n\n" + para2)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if chunks[0] != para1 {
		t.Fatalf("first chunk lost paragraph boundary: %q", chunks[0])
	}
	if chunks[1] != para2 {
		t.Fatalf("second chunk lost paragraph boundary: %q", chunks[1])
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s := NewSplitter(80, 10)

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("some sentence about retrieval. ")
	}

	for _, chunk := range s.Split(b.String()) {
		if n := utf8.RuneCountInString(chunk); n > 80 {
			t.Fatalf("chunk exceeds size: %d runes", n)
		}
	}
}

func TestSplitOverlapSeedsNextChunk(t *testing.T) {
	s := NewSplitter(20, 5)

	chunks := s.Split("aaaaaaaaaa bbbbbbbbbb cccccccccc")
	want := []string{
		"aaaaaaaaaa",
		"aaaa bbbbbbbbbb",
		"bbbb cccccccccc",
	}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d: %v", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Fatalf("chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

func TestSplitUnsplittableTextPassesThroughWhole(t *testing.T) {
	s := NewSplitter(25, 5)

	// No separator occurs anywhere, so the oversized text survives as
	// one chunk instead of being cut mid-token.
	text := strings.Repeat("x", 70)
	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected a single pass-through chunk, got %d: %v", len(chunks), chunks)
	}
	if utf8.RuneCountInString(chunks[0]) != 70 {
		t.Fatalf("pass-through chunk must keep its full length, got %d", utf8.RuneCountInString(chunks[0]))
	}
}

func TestSplitRecursesIntoFinerSeparators(t *testing.T) {
	s := NewSplitter(30, 0)

	// One paragraph far above chunk size forces sentence, then word
	// level splitting.
	text := "First sentence here. Second sentence here. Third sentence goes on and on here."
	chunks := s.Split(text)

	if len(chunks) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d: %v", len(chunks), chunks)
	}
	for _, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > 30 {
			t.Fatalf("chunk exceeds size after recursion: %q", chunk)
		}
	}
}

func TestNewSplitterNormalizesBadConfig(t *testing.T) {
	s := NewSplitter(0, -5)
	if s.ChunkSize != 1000 {
		t.Fatalf("expected default chunk size, got %d", s.ChunkSize)
	}
	if s.Overlap != 0 {
		t.Fatalf("expected zero overlap, got %d", s.Overlap)
	}

	s = NewSplitter(100, 100)
	if s.Overlap != 20 {
		t.Fatalf("expected overlap clamp, got %d", s.Overlap)
	}
}
