// Package store defines persistence for built vector indexes.
package store

import (
	"context"

	"github.com/streamdex/streamdex/internal/document"
)

// Snapshot is the persisted form of an index: chunks and their vectors in
// matching order, plus the embedder signature used to produce them so a
// loaded snapshot is never searched with an incompatible embedder.
type Snapshot struct {
	EmbedderSignature string
	Dimension         int
	Chunks            []document.Chunk
	Vectors           [][]float32
}

// Store persists and restores index snapshots.
type Store interface {
	// Save replaces the stored snapshot with the given one.
	Save(ctx context.Context, snap Snapshot) error
	// Load returns the stored snapshot. An empty store returns a zero
	// snapshot with no error.
	Load(ctx context.Context) (Snapshot, error)
	Close() error
}
