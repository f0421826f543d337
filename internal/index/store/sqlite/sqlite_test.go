package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/streamdex/streamdex/internal/document"
	"github.com/streamdex/streamdex/internal/index/store"
)

func testSnapshot() store.Snapshot {
	return store.Snapshot{
		EmbedderSignature: "hash:256",
		Dimension:         3,
		Chunks: []document.Chunk{
			{Path: "a.txt", Offset: 0, Text: "first chunk"},
			{Path: "a.txt", Offset: 11, Text: "second chunk"},
		},
		Vectors: [][]float32{
			{0.1, 0.2, 0.3},
			{0.4, 0.5, 0.6},
		},
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	if err := s.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.EmbedderSignature != "hash:256" || loaded.Dimension != 3 {
		t.Fatalf("unexpected meta %+v", loaded)
	}
	if len(loaded.Chunks) != 2 || len(loaded.Vectors) != 2 {
		t.Fatalf("unexpected sizes: %d chunks, %d vectors", len(loaded.Chunks), len(loaded.Vectors))
	}
	if loaded.Chunks[1].Text != "second chunk" || loaded.Chunks[1].Offset != 11 {
		t.Fatalf("unexpected chunk %+v", loaded.Chunks[1])
	}
	if loaded.Vectors[0][1] != 0.2 || loaded.Vectors[1][2] != 0.6 {
		t.Fatalf("unexpected vectors %v", loaded.Vectors)
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	if err := s.Save(ctx, testSnapshot()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	replacement := store.Snapshot{
		EmbedderSignature: "hash:128",
		Dimension:         2,
		Chunks:            []document.Chunk{{Path: "b.txt", Text: "only chunk"}},
		Vectors:           [][]float32{{1, 0}},
	}
	if err := s.Save(ctx, replacement); err != nil {
		t.Fatalf("Save replacement: %v", err)
	}

	loaded, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Chunks) != 1 || loaded.EmbedderSignature != "hash:128" {
		t.Fatalf("replacement not applied: %+v", loaded)
	}
}

func TestLoadEmptyStore(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	loaded, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Chunks) != 0 || loaded.EmbedderSignature != "" {
		t.Fatalf("expected zero snapshot, got %+v", loaded)
	}
}

func TestSaveMismatchedSnapshot(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "index.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	bad := store.Snapshot{
		Chunks:  []document.Chunk{{Path: "a", Text: "a"}},
		Vectors: nil,
	}
	if err := s.Save(context.Background(), bad); err == nil {
		t.Fatalf("expected error for mismatched snapshot")
	}
}
