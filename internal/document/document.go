// Package document loads plain-text documents and splits them into chunks
// suitable for embedding and retrieval.
package document

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Document is one loaded source file.
type Document struct {
	Path string
	Text string
}

// Chunk is a retrievable slice of a document.
type Chunk struct {
	Path   string // source file path
	Offset int    // rune offset into the source text
	Text   string
}

// LoadDir reads every regular file with a text extension from dir, sorted by
// path for deterministic ordering. An empty or missing directory yields an
// error from the filesystem or zero documents respectively; the caller
// decides whether zero documents is acceptable.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("document: read dir: %w", err)
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !isTextFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("document: read %s: %w", path, err)
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		docs = append(docs, Document{Path: path, Text: text})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func isTextFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".text":
		return true
	}
	return false
}
