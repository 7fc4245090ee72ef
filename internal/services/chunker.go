package services

import (
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
)

// TextChunker splits resume text into overlapping windows small enough to embed.
type TextChunker struct {
	maxChunkSize int
	overlap      int
}

func NewTextChunker(maxChunkSize, overlap int) *TextChunker {
	if maxChunkSize <= 0 {
		maxChunkSize = defaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}
	return &TextChunker{maxChunkSize: maxChunkSize, overlap: overlap}
}

// Chunk packs paragraphs into chunks of at most maxChunkSize runes. Paragraphs
// that are too long on their own are packed sentence by sentence. Each new
// chunk starts with the tail of the previous one.
func (tc *TextChunker) Chunk(text string) []string {
	var (
		chunks  []string
		current strings.Builder
	)

	add := func(piece, sep string) {
		pieceLen := utf8.RuneCountInString(piece)
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+len(sep)+pieceLen > tc.maxChunkSize {
			prev := current.String()
			chunks = append(chunks, prev)
			current.Reset()

			tail := lastRunes(prev, tc.overlap)
			if tail != "" && utf8.RuneCountInString(tail)+len(sep)+pieceLen <= tc.maxChunkSize {
				current.WriteString(tail)
			}
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(piece)
	}

	for _, para := range splitParagraphs(text) {
		if utf8.RuneCountInString(para) <= tc.maxChunkSize {
			add(para, "\n\n")
			continue
		}
		for _, sentence := range splitIntoSentences(para) {
			add(sentence, " ")
		}
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitParagraphs treats blank lines as separators; single-spaced text falls
// back to one paragraph per line.
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	if len(raw) == 1 {
		raw = strings.Split(text, "\n")
	}

	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitIntoSentences(text string) []string {
	sentences := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var result []string
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	return result
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
