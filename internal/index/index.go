// Package index provides an in-memory cosine-similarity vector index over
// document chunks.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/streamdex/streamdex/internal/document"
	"github.com/streamdex/streamdex/internal/embedding"
)

// ErrNoDocuments is returned when an index build is attempted over an empty
// document set. An empty index cannot answer queries, so the failure happens
// at build time rather than at the first query.
var ErrNoDocuments = errors.New("index: no documents to index")

// ErrEmptyIndex is returned when a search runs against an index holding no
// chunks (e.g. loaded from an empty store).
var ErrEmptyIndex = errors.New("index: empty index")

// embedBatchSize bounds how many chunks are embedded per call to keep
// request payloads reasonable for HTTP embedders.
const embedBatchSize = 64

// ScoredChunk pairs a retrieved chunk with its similarity score.
type ScoredChunk struct {
	Chunk document.Chunk
	Score float32
}

// Index holds chunks and their embeddings in parallel slices;
// chunks[i] corresponds to vectors[i]. Vectors are L2-normalized at build or
// load time so similarity is a plain dot product.
type Index struct {
	chunks   []document.Chunk
	vectors  [][]float32
	embedder embedding.Embedder
}

// Build chunks the documents, embeds every chunk, and returns a ready index.
func Build(ctx context.Context, docs []document.Document, splitter *document.Splitter, embedder embedding.Embedder) (*Index, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	if splitter == nil {
		splitter = document.DefaultSplitter()
	}

	chunks, err := splitter.Split(docs)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrNoDocuments
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}
		batch, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("index: embed chunks %d-%d: %w", start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("index: embedder returned %d vectors for %d chunks", len(batch), end-start)
		}
		vectors = append(vectors, batch...)
	}
	for _, v := range vectors {
		normalize(v)
	}

	return &Index{chunks: chunks, vectors: vectors, embedder: embedder}, nil
}

// FromParts reconstructs an index from persisted chunks and vectors.
func FromParts(chunks []document.Chunk, vectors [][]float32, embedder embedding.Embedder) (*Index, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("index: %d chunks but %d vectors", len(chunks), len(vectors))
	}
	for _, v := range vectors {
		normalize(v)
	}
	return &Index{chunks: chunks, vectors: vectors, embedder: embedder}, nil
}

// Len reports the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Chunks returns the indexed chunks in index order.
func (ix *Index) Chunks() []document.Chunk { return ix.chunks }

// Vectors returns the normalized embedding vectors in index order.
func (ix *Index) Vectors() [][]float32 { return ix.vectors }

// Search embeds the query and returns the topK most similar chunks, highest
// score first. Ties and ordering are deterministic: equal scores keep index
// order.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]ScoredChunk, error) {
	if ix.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	if topK <= 0 {
		topK = 1
	}
	if topK > ix.Len() {
		topK = ix.Len()
	}

	qvecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("index: embed query: %w", err)
	}
	if len(qvecs) != 1 {
		return nil, fmt.Errorf("index: embedder returned %d vectors for 1 query", len(qvecs))
	}
	qvec := qvecs[0]
	normalize(qvec)

	scored := make([]ScoredChunk, ix.Len())
	for i, v := range ix.vectors {
		scored[i] = ScoredChunk{Chunk: ix.chunks[i], Score: dot(qvec, v)}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored[:topK], nil
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 || sum == 1 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
