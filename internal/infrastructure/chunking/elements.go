package chunking

import (
	"strings"
	"unicode/utf8"
)

type elementKind int

const (
	elementHeading elementKind = iota
	elementParagraph
)

type element struct {
	kind elementKind
	text string
}

// ElementChunker groups markdown structure before sizing: a heading is
// glued to the content that follows it, and whole elements are packed
// into chunks so a split never lands mid-paragraph. Oversized groups
// fall back to the recursive splitter.
type ElementChunker struct {
	splitter *Splitter
}

func NewElementChunker(splitter *Splitter) *ElementChunker {
	return &ElementChunker{splitter: splitter}
}

func (c *ElementChunker) Split(text string) []string {
	elements := partition(text)
	if len(elements) == 0 {
		return nil
	}

	var (
		out    []string
		group  strings.Builder
		length int
	)
	flush := func() {
		if length == 0 {
			return
		}
		out = append(out, strings.TrimSpace(group.String()))
		group.Reset()
		length = 0
	}

	for _, el := range elements {
		block := el.text
		elLen := utf8.RuneCountInString(block)

		if elLen > c.splitter.ChunkSize {
			flush()
			out = append(out, c.splitter.Split(block)...)
			continue
		}

		// A heading opens a new section; anything that no longer fits
		// closes the current chunk.
		if el.kind == elementHeading || (length > 0 && length+elLen+2 > c.splitter.ChunkSize) {
			flush()
		}

		if length > 0 {
			group.WriteString("\n\n")
			length += 2
		}
		group.WriteString(block)
		length += elLen
	}
	flush()

	return out
}

// partition splits markdown into heading and paragraph elements.
// Paragraphs are blank-line separated; a heading line is its own
// element.
func partition(text string) []element {
	lines := strings.Split(text, "\n")

	var (
		out []element
		par []string
	)
	flushParagraph := func() {
		if len(par) == 0 {
			return
		}
		joined := strings.TrimSpace(strings.Join(par, "\n"))
		if joined != "" {
			out = append(out, element{kind: elementParagraph, text: joined})
		}
		par = par[:0]
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushParagraph()
		case isHeading(trimmed):
			flushParagraph()
			out = append(out, element{kind: elementHeading, text: trimmed})
		default:
			par = append(par, line)
		}
	}
	flushParagraph()

	return out
}

func isHeading(line string) bool {
	if !strings.HasPrefix(line, "#") {
		return false
	}
	hashes := 0
	for _, r := range line {
		if r == '#' {
			hashes++
			continue
		}
		return r == ' ' && hashes <= 6
	}
	return false
}
