package document

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadDirReadsTextFilesSorted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "second document")
	writeFile(t, dir, "a.txt", "first document")
	writeFile(t, dir, "notes.md", "markdown notes")
	writeFile(t, dir, "image.png", "binary-ish")
	writeFile(t, dir, "empty.txt", "   ")

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	if !strings.HasSuffix(docs[0].Path, "a.txt") || docs[0].Text != "first document" {
		t.Fatalf("unexpected first document %+v", docs[0])
	}
	if !strings.HasSuffix(docs[1].Path, "b.txt") {
		t.Fatalf("unexpected second document %+v", docs[1])
	}
}

func TestLoadDirMissing(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestLoadDirEmptyYieldsZeroDocuments(t *testing.T) {
	docs, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	s := &Splitter{ChunkSize: 100, Overlap: 10}
	chunks, err := s.Split([]Document{{Path: "x.txt", Text: "short text"}})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "short text" || chunks[0].Offset != 0 {
		t.Fatalf("unexpected chunks %+v", chunks)
	}
}

func TestSplitCoversWholeTextWithOverlap(t *testing.T) {
	words := make([]string, 200)
	for i := range words {
		words[i] = "word"
	}
	text := strings.Join(words, " ")

	s := &Splitter{ChunkSize: 120, Overlap: 20}
	chunks, err := s.Split([]Document{{Path: "x.txt", Text: text}})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	runes := []rune(text)
	for i, c := range chunks {
		if len([]rune(c.Text)) > 120 {
			t.Fatalf("chunk %d exceeds size: %d runes", i, len([]rune(c.Text)))
		}
		if got := string(runes[c.Offset : c.Offset+len([]rune(c.Text))]); got != c.Text {
			t.Fatalf("chunk %d offset mismatch", i)
		}
	}
	last := chunks[len(chunks)-1]
	if last.Offset+len([]rune(last.Text)) != len(runes) {
		t.Fatalf("chunks do not cover document end")
	}
}

func TestSplitRejectsBadParameters(t *testing.T) {
	if _, err := (&Splitter{ChunkSize: 0}).Split(nil); err == nil {
		t.Fatalf("expected error for zero chunk size")
	}
	if _, err := (&Splitter{ChunkSize: 10, Overlap: 10}).Split(nil); err == nil {
		t.Fatalf("expected error for overlap >= chunk size")
	}
}
