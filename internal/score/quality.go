// Package score computes evidence quality for retrieval candidates.
package score

import (
	"slices"
	"sort"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/text"
)

// QualityScorer combines similarity with cheap lexical signals
type QualityScorer struct {
	weights model.QualityWeights
}

// NewQualityScorer creates a scorer; zero weights fall back to the defaults
func NewQualityScorer(weights model.QualityWeights) *QualityScorer {
	if weights == (model.QualityWeights{}) {
		weights = model.DefaultQualityWeights()
	}
	return &QualityScorer{weights: weights}
}

// Weights returns the weights in use
func (s *QualityScorer) Weights() model.QualityWeights {
	return s.weights
}

// Score returns a copy of candidates with QualityScore and Factors filled in.
// Candidates must be in retrieval rank order; rank drives the position factor.
//
//	quality = w.sim*similarity + w.entity*entity_overlap + w.density*content_density + w.pos*position
func (s *QualityScorer) Score(candidates []model.EvidenceItem, entities []string) []model.EvidenceItem {
	out := slices.Clone(candidates)
	if len(out) == 0 {
		return out
	}

	counts := make([]int, len(out))
	for i, c := range out {
		counts[i] = len(text.ContentTokens(c.Text()))
	}
	median := Median(counts)

	for i := range out {
		f := model.QualityFactors{
			EntityOverlap:  EntityOverlap(out[i].Text(), entities),
			ContentDensity: ContentDensity(counts[i], median),
			PositionFactor: PositionFactor(i, len(out)),
		}
		out[i].Factors = f
		out[i].QualityScore = clamp01(s.weights.Similarity*out[i].Similarity +
			s.weights.EntityOverlap*f.EntityOverlap +
			s.weights.ContentDensity*f.ContentDensity +
			s.weights.Position*f.PositionFactor)
	}
	return out
}

// EntityOverlap is the fraction of entities that appear in body
func EntityOverlap(body string, entities []string) float64 {
	if len(entities) == 0 {
		return 0
	}
	words := text.Words(body)
	found := 0
	for _, e := range entities {
		if e != "" && text.ContainsTerm(words, e) {
			found++
		}
	}
	return float64(found) / float64(len(entities))
}

// ContentDensity is 1 for chunks at or above the median count of
// information-bearing tokens, and proportionally less below it
func ContentDensity(count int, median float64) float64 {
	if median <= 0 {
		if count > 0 {
			return 1
		}
		return 0
	}
	return clamp01(float64(count) / median)
}

// PositionFactor favors earlier-ranked candidates: 1 for rank 0, falling
// linearly towards 0 for the last
func PositionFactor(rank, n int) float64 {
	if n <= 0 || rank < 0 || rank >= n {
		return 0
	}
	return 1 - float64(rank)/float64(n)
}

// Median of xs; 0 for an empty slice
func Median(xs []int) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := slices.Clone(xs)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return float64(sorted[mid])
	}
	return float64(sorted[mid-1]+sorted[mid]) / 2
}

// SortByQuality orders items by quality descending. Ties fall back to
// similarity, then to narrative order.
func SortByQuality(items []model.EvidenceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.QualityScore != b.QualityScore {
			return a.QualityScore > b.QualityScore
		}
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		return a.Chunk.SequenceIndex < b.Chunk.SequenceIndex
	})
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
