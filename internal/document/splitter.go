package document

import (
	"fmt"
	"unicode"
)

// Splitter cuts document text into fixed-size chunks with overlap.
// Sizes are in runes. When possible the cut point is moved back to the
// nearest word boundary so chunks do not split words.
type Splitter struct {
	ChunkSize int // maximum chunk length in runes
	Overlap   int // runes carried over between consecutive chunks
}

// DefaultSplitter matches the chunking used by the demo and the daemon when
// no sizes are configured.
func DefaultSplitter() *Splitter {
	return &Splitter{ChunkSize: 512, Overlap: 64}
}

// Split chunks every document and returns the chunks in document order.
func (s *Splitter) Split(docs []Document) ([]Chunk, error) {
	if s.ChunkSize <= 0 {
		return nil, fmt.Errorf("document: chunk size must be positive, got %d", s.ChunkSize)
	}
	if s.Overlap < 0 || s.Overlap >= s.ChunkSize {
		return nil, fmt.Errorf("document: overlap %d incompatible with chunk size %d", s.Overlap, s.ChunkSize)
	}

	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, s.splitOne(doc)...)
	}
	return chunks, nil
}

func (s *Splitter) splitOne(doc Document) []Chunk {
	runes := []rune(doc.Text)
	if len(runes) <= s.ChunkSize {
		return []Chunk{{Path: doc.Path, Offset: 0, Text: doc.Text}}
	}

	var chunks []Chunk
	start := 0
	for start < len(runes) {
		end := start + s.ChunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = wordBoundary(runes, start, end)
		}
		chunks = append(chunks, Chunk{
			Path:   doc.Path,
			Offset: start,
			Text:   string(runes[start:end]),
		})
		if end == len(runes) {
			break
		}
		next := end - s.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// wordBoundary walks end back to the last space after start; if the chunk
// would collapse to nothing it keeps the hard cut.
func wordBoundary(runes []rune, start, end int) int {
	for i := end; i > start; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
