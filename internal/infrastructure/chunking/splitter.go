package chunking

import (
	"strings"
	"unicode/utf8"
)

var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// Splitter breaks text into chunks of at most ChunkSize runes. It
// prefers splitting on coarse separators first and recurses into finer
// ones only for fragments that are still too large. Consecutive chunks
// share up to Overlap trailing runes.
type Splitter struct {
	ChunkSize int
	Overlap   int

	separators []string
}

func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		separators: defaultSeparators,
	}
}

func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := s.splitWith(text, s.separators)
	out := make([]string, 0, len(raw))
	for _, chunk := range raw {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

func (s *Splitter) splitWith(text string, separators []string) []string {
	if utf8.RuneCountInString(text) <= s.ChunkSize {
		return []string{text}
	}
	// No separator left to split on: the oversized fragment goes out
	// whole rather than being cut mid-token. Never dropped, never
	// recursed further.
	if len(separators) == 0 {
		return []string{text}
	}

	separator := separators[0]
	remaining := separators[1:]
	if !strings.Contains(text, separator) {
		return s.splitWith(text, remaining)
	}

	pieces := splitKeepSeparator(text, separator)

	var (
		chunks []string
		buf    strings.Builder
		bufLen int
	)
	emit := func(seedOverlap bool) {
		if bufLen == 0 {
			return
		}
		chunk := buf.String()
		chunks = append(chunks, chunk)
		buf.Reset()
		bufLen = 0
		if seedOverlap && s.Overlap > 0 {
			tail := tailRunes(chunk, s.Overlap)
			buf.WriteString(tail)
			bufLen = utf8.RuneCountInString(tail)
		}
	}

	for _, piece := range pieces {
		pieceLen := utf8.RuneCountInString(piece)

		if pieceLen > s.ChunkSize {
			// A single fragment that does not fit gets re-split with
			// the finer separators; the running buffer flushes first.
			emit(false)
			chunks = append(chunks, s.splitWith(piece, remaining)...)
			continue
		}

		if bufLen > 0 && bufLen+pieceLen > s.ChunkSize {
			emit(true)
		}
		buf.WriteString(piece)
		bufLen += pieceLen
	}
	emit(false)

	return chunks
}

func splitKeepSeparator(text, separator string) []string {
	parts := strings.Split(text, separator)
	out := make([]string, 0, len(parts))
	for i, part := range parts {
		if i < len(parts)-1 {
			part += separator
		}
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func tailRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
