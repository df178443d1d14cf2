package embed

import (
	"context"
	"encoding/binary"
	"math"
	"strconv"
	"time"

	"github.com/ppiankov/backcheck/internal/cache"
)

// CachedEmbedder memoizes another embedder's vectors in a cache.Cache.
// Keys include the model name and dimension, so switching models never
// serves stale vectors.
type CachedEmbedder struct {
	inner Embedder
	store cache.Cache
	ttl   time.Duration
}

var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder wraps inner; ttl 0 uses the cache default
func NewCachedEmbedder(inner Embedder, store cache.Cache, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, store: store, ttl: ttl}
}

// Embed returns a cached vector or computes and stores one
func (c *CachedEmbedder) Embed(ctx context.Context, s string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{s})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch sends only cache misses to the inner embedder
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, t := range texts {
		if raw, ok := c.store.Get(c.key(t)); ok {
			if v, ok := decodeVector(raw, c.inner.Dimension()); ok {
				out[i] = v
				continue
			}
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
		_ = c.store.Set(c.key(texts[i]), encodeVector(vecs[j]), c.ttl)
	}
	return out, nil
}

// Model returns the inner model name
func (c *CachedEmbedder) Model() string {
	return c.inner.Model()
}

// Dimension returns the inner dimension
func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

func (c *CachedEmbedder) key(s string) string {
	return cache.Key("embed", c.inner.Model(), strconv.Itoa(c.inner.Dimension()), s)
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte, dim int) ([]float32, bool) {
	if len(b)%4 != 0 || (dim > 0 && len(b) != 4*dim) {
		return nil, false
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, true
}
