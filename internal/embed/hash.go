package embed

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/ppiankov/backcheck/internal/index"
	"github.com/ppiankov/backcheck/internal/text"
)

// DefaultDimension matches the 384-dim sentence encoders used upstream
const DefaultDimension = 384

// HashEmbedder is an offline, deterministic bag-of-features embedder.
// Content words, five-letter stems and word bigrams are hashed into signed
// buckets and the result is L2-normalized.
type HashEmbedder struct {
	dim int
}

var _ Embedder = (*HashEmbedder)(nil)

// NewHashEmbedder creates a hash embedder; dim <= 0 uses DefaultDimension
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &HashEmbedder{dim: dim}
}

// Embed hashes the features of s
func (h *HashEmbedder) Embed(_ context.Context, s string) ([]float32, error) {
	return h.vector(s), nil
}

// EmbedBatch embeds each text independently
func (h *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

// Model returns the pseudo model name
func (h *HashEmbedder) Model() string {
	return fmt.Sprintf("hash-%d", h.dim)
}

// Dimension returns the vector size
func (h *HashEmbedder) Dimension() int {
	return h.dim
}

func (h *HashEmbedder) vector(s string) []float32 {
	v := make([]float32, h.dim)
	tokens := text.ContentTokens(s)
	for i, tok := range tokens {
		h.add(v, "w:"+tok, 1.0)
		if len(tok) > 5 {
			h.add(v, "s:"+tok[:5], 0.5)
		}
		if i > 0 {
			h.add(v, "b:"+tokens[i-1]+"_"+tok, 0.5)
		}
	}
	return index.Normalize(v)
}

func (h *HashEmbedder) add(v []float32, feature string, weight float32) {
	f := fnv.New64a()
	_, _ = f.Write([]byte(feature))
	sum := f.Sum64()
	bucket := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	v[bucket] += weight
}
