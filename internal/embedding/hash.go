package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Ensure HashEmbedder implements Embedder.
var _ Embedder = (*HashEmbedder)(nil)

// HashEmbedder produces deterministic embeddings by feature-hashing word
// unigrams and bigrams into a fixed-dimension vector. It needs no network or
// model weights, which makes it the offline default for demos and tests.
// Vectors are L2-normalized so cosine similarity reduces to a dot product.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder with the given dimension.
// Non-positive dimensions fall back to 256.
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = 256
	}
	return &HashEmbedder{dim: dim}
}

func (e *HashEmbedder) Dimension() int { return e.dim }

// Embed hashes each text independently.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.embedOne(text)
	}
	return out, nil
}

func (e *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)
	words := tokenize(text)
	for i, w := range words {
		bump(vec, w, e.dim)
		if i+1 < len(words) {
			bump(vec, w+" "+words[i+1], e.dim)
		}
	}
	normalize(vec)
	return vec
}

func bump(vec []float32, feature string, dim int) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum32()
	idx := int(sum % uint32(dim))
	// Use one hash bit as the sign to keep collisions from only adding up.
	if sum&0x80000000 != 0 {
		vec[idx]--
	} else {
		vec[idx]++
	}
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
