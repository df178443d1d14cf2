// Package judge turns evidence and semantic signals into a Judgment, either
// by rule or by asking a completion service, falling back to the rules.
package judge

import (
	"github.com/ppiankov/backcheck/internal/model"
)

// Rule names the heuristic branch that produced a decision
type Rule string

// Rules in priority order; the first match wins
const (
	RuleContradiction   Rule = "strong-contradiction"
	RuleStrongSupport   Rule = "strong-support"
	RuleModerateSupport Rule = "moderate-support"
	RuleWeakSupport     Rule = "weak-support"
	RuleLowSimilarity   Rule = "low-similarity"
	RuleAmbiguous       Rule = "ambiguous"
	RuleNoEvidence      Rule = "no-evidence"
)

// noEvidenceConfidence sits inside the [0.50, 0.75] band for an empty evidence set
const noEvidenceConfidence = 0.55

// Stats summarizes an evidence set for the decision table
type Stats struct {
	Count                int     `json:"count"`
	AvgSimilarity        float64 `json:"avg_similarity"`
	MaxSimilarity        float64 `json:"max_similarity"`
	HighQualityRatio     float64 `json:"high_quality_ratio"`
	VeryHighQualityRatio float64 `json:"very_high_quality_ratio"`
}

// ComputeStats derives the table inputs; quality ratios count items strictly
// above the configured thresholds
func ComputeStats(evidence []model.EvidenceItem, cfg model.JudgeConfig) Stats {
	s := Stats{Count: len(evidence)}
	if len(evidence) == 0 {
		return s
	}
	var sum float64
	high, veryHigh := 0, 0
	for i, e := range evidence {
		sum += e.Similarity
		if i == 0 || e.Similarity > s.MaxSimilarity {
			s.MaxSimilarity = e.Similarity
		}
		if e.QualityScore > cfg.HighQuality {
			high++
		}
		if e.QualityScore > cfg.VeryHighQuality {
			veryHigh++
		}
	}
	n := float64(len(evidence))
	s.AvgSimilarity = sum / n
	s.HighQualityRatio = float64(high) / n
	s.VeryHighQualityRatio = float64(veryHigh) / n
	return s
}

// Decision is the outcome of the heuristic table
type Decision struct {
	Prediction int
	Confidence float64
	Rule       Rule
	Stats      Stats
}

// Heuristic is the rule-based judge. It needs no external service and is
// deterministic for identical inputs.
type Heuristic struct {
	cfg model.JudgeConfig
}

// NewHeuristic creates a heuristic judge with the given thresholds
func NewHeuristic(cfg model.JudgeConfig) *Heuristic {
	return &Heuristic{cfg: cfg}
}

// Decide applies the decision table
func (h *Heuristic) Decide(evidence []model.EvidenceItem, report model.SemanticReport) Decision {
	c := h.cfg
	s := ComputeStats(evidence, c)
	d := Decision{Stats: s}

	switch {
	case report.HasStrongContradiction():
		d.Prediction, d.Rule = 0, RuleContradiction
		d.Confidence = clamp(0.85+s.VeryHighQualityRatio*0.10, 0, 0.95)

	case s.Count == 0:
		d.Prediction, d.Rule = 0, RuleNoEvidence
		d.Confidence = noEvidenceConfidence

	case s.AvgSimilarity > c.StrongSimilarity && s.HighQualityRatio > c.StrongRatio:
		d.Prediction, d.Rule = 1, RuleStrongSupport
		d.Confidence = clamp(0.82+min(0.13, (s.MaxSimilarity-c.StrongSimilarity)*0.5), 0, 0.95)

	case s.AvgSimilarity > c.ModerateSimilarity && s.HighQualityRatio > c.ModerateRatio:
		d.Prediction, d.Rule = 1, RuleModerateSupport
		d.Confidence = clamp(0.78+min(0.12, (s.MaxSimilarity-c.ModerateSimilarity)*0.5), 0.78, 0.90)

	case s.AvgSimilarity > c.WeakSimilarity && len(report.Contradictions) == 0:
		d.Prediction, d.Rule = 1, RuleWeakSupport
		d.Confidence = clamp(0.72+min(0.12, (s.MaxSimilarity-c.WeakSimilarity)*0.4), 0.72, 0.84)

	case s.AvgSimilarity < c.LowSimilarity:
		d.Prediction, d.Rule = 0, RuleLowSimilarity
		d.Confidence = clamp(0.55+min(0.15, (c.LowSimilarity-s.AvgSimilarity)*0.5), 0.55, 0.70)

	default:
		// More support or causal linkage lowers confidence in "inconsistent"
		d.Prediction, d.Rule = 0, RuleAmbiguous
		d.Confidence = clamp(0.75-0.15*report.SupportScore-0.10*report.CausalConsistency, 0.50, 0.75)
	}
	return d
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
