package retrieve

import (
	"strings"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/score"
	"github.com/ppiankov/backcheck/internal/text"
)

const (
	causalStep = 0.05
	causalCap  = 0.15
)

// RerankCausal boosts items containing causal language by causalStep per
// distinct marker, up to causalCap, and re-sorts by quality.
func RerankCausal(items []model.EvidenceItem, markers []string) []model.EvidenceItem {
	out := make([]model.EvidenceItem, len(items))
	copy(out, items)
	for i := range out {
		n := CountMarkers(out[i].Text(), markers)
		if n == 0 {
			continue
		}
		b := min(causalCap, causalStep*float64(n))
		out[i].Factors.CausalBoost = b
		out[i].QualityScore = min(1, out[i].QualityScore+b)
	}
	score.SortByQuality(out)
	return out
}

// CountMarkers counts the distinct markers present in body
func CountMarkers(body string, markers []string) int {
	words := text.Words(body)
	n := 0
	for _, m := range markers {
		if m = strings.TrimSpace(m); m != "" && text.ContainsPhrase(words, m) {
			n++
		}
	}
	return n
}

// Groups holds evidence split by narrative third, each in input order
type Groups struct {
	Early  []model.EvidenceItem `json:"early"`
	Middle []model.EvidenceItem `json:"middle"`
	Late   []model.EvidenceItem `json:"late"`
}

// Counts returns the size of each group
func (g Groups) Counts() (early, middle, late int) {
	return len(g.Early), len(g.Middle), len(g.Late)
}

// GroupByPosition buckets items by their Position; perBucket > 0 caps each group
func GroupByPosition(items []model.EvidenceItem, perBucket int) Groups {
	var g Groups
	add := func(dst *[]model.EvidenceItem, it model.EvidenceItem) {
		if perBucket <= 0 || len(*dst) < perBucket {
			*dst = append(*dst, it)
		}
	}
	for _, it := range items {
		switch it.Position {
		case model.PositionMiddle:
			add(&g.Middle, it)
		case model.PositionLate:
			add(&g.Late, it)
		default:
			add(&g.Early, it)
		}
	}
	return g
}
