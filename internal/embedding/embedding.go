// Package embedding defines the embedder contract used by the vector index.
package embedding

import "context"

// Embedder converts texts into fixed-dimension vectors. Implementations must
// return one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}
