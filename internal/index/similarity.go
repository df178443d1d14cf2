// Package index is an in-memory, per-document vector index over chunk embeddings.
package index

import "math"

// CosineSimilarity returns dot(a,b) / (|a||b|), clamped to [-1, 1].
// A zero vector scores 0 against anything; mismatched lengths score 0.
// Norms are accumulated in float64, so any non-zero float32 vector has a
// positive norm and scores exactly 1 against itself.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / math.Sqrt(na*nb)
	if sim > 1 {
		return 1
	}
	if sim < -1 {
		return -1
	}
	return sim
}

// Normalize scales v to unit length in place; zero vectors are left alone
func Normalize(v []float32) []float32 {
	var n float64
	for _, x := range v {
		n += float64(x) * float64(x)
	}
	if n == 0 {
		return v
	}
	inv := 1 / math.Sqrt(n)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}
