// Package rag re-exports the query engine's primary types so downstream
// integrations can embed retrieval-augmented generation without importing
// internal packages.
package rag

import (
	"context"
	"io"

	"github.com/streamdex/streamdex/internal/callback"
	"github.com/streamdex/streamdex/internal/document"
	"github.com/streamdex/streamdex/internal/embedding"
	"github.com/streamdex/streamdex/internal/engine"
	"github.com/streamdex/streamdex/internal/index"
	"github.com/streamdex/streamdex/internal/llm"
	"github.com/streamdex/streamdex/internal/llm/loopback"
)

type Sink = callback.Sink
type SinkFunc = callback.SinkFunc
type BufferSink = callback.BufferSink
type WriterSink = callback.WriterSink

type Document = document.Document
type Chunk = document.Chunk
type Splitter = document.Splitter

type Embedder = embedding.Embedder

type Backend = llm.Backend
type Usage = llm.Usage

type Index = index.Index
type ScoredChunk = index.ScoredChunk

type Engine = engine.Engine
type EngineConfig = engine.Config
type QueryOptions = engine.QueryOptions
type Response = engine.Response
type Source = engine.Source

var (
	ErrEmptyQuestion = engine.ErrEmptyQuestion
	ErrNoDocuments   = index.ErrNoDocuments
	ErrEmptyIndex    = index.ErrEmptyIndex
)

// NewEngine delegates to the internal constructor.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	return engine.New(cfg)
}

// BuildIndex chunks and embeds docs with the default splitter and the
// offline hash embedder. Callers needing a different embedder should use
// the Index type directly.
func BuildIndex(ctx context.Context, docs []Document) (*Index, error) {
	return index.Build(ctx, docs, document.DefaultSplitter(), embedding.NewHashEmbedder(0))
}

// NewLoopbackBackend returns the deterministic offline backend.
func NewLoopbackBackend() Backend {
	return loopback.New()
}

// NewWriterSink streams fragments to w as they arrive.
func NewWriterSink(w io.Writer) *WriterSink {
	return callback.NewWriterSink(w)
}

// Tee fans each fragment out to every supplied sink in order.
func Tee(sinks ...Sink) Sink {
	return callback.Tee(sinks...)
}

// NewHashEmbedder returns the offline feature-hashing embedder.
func NewHashEmbedder(dimension int) *embedding.HashEmbedder {
	return embedding.NewHashEmbedder(dimension)
}

// DefaultSplitter returns the default chunking configuration.
func DefaultSplitter() *Splitter {
	return document.DefaultSplitter()
}
