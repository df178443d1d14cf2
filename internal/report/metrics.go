package report

import (
	"github.com/ppiankov/backcheck/internal/model"
)

// highConfidence is the threshold counted by Metrics.HighConfidence
const highConfidence = 0.80

// Metrics describes the prediction distribution of one run
type Metrics struct {
	Total          int            `json:"total"`
	Failed         int            `json:"failed"`
	Consistent     int            `json:"consistent"`   // prediction 1
	Inconsistent   int            `json:"inconsistent"` // prediction 0
	AvgConfidence  float64        `json:"avg_confidence"`
	AvgConsistent  float64        `json:"avg_confidence_consistent"`
	AvgInconsist   float64        `json:"avg_confidence_inconsistent"`
	HighConfidence int            `json:"high_confidence"` // confidence > 0.80
	ByMethod       map[string]int `json:"by_method"`
	ByRule         map[string]int `json:"by_rule,omitempty"`
}

// ConsistentRate is the share of judged cases predicted consistent
func (m Metrics) ConsistentRate() float64 {
	judged := m.Consistent + m.Inconsistent
	if judged == 0 {
		return 0
	}
	return float64(m.Consistent) / float64(judged)
}

// ComputeMetrics aggregates outcomes; failed cases count only toward Total and Failed
func ComputeMetrics(outcomes []model.Outcome) Metrics {
	m := Metrics{
		Total:    len(outcomes),
		ByMethod: make(map[string]int),
		ByRule:   make(map[string]int),
	}

	var sum, sum1, sum0 float64
	for _, o := range outcomes {
		if o.Failed() {
			m.Failed++
			continue
		}
		j := o.Evaluation.Judgment
		sum += j.Confidence
		if j.Prediction == 1 {
			m.Consistent++
			sum1 += j.Confidence
		} else {
			m.Inconsistent++
			sum0 += j.Confidence
		}
		if j.Confidence > highConfidence {
			m.HighConfidence++
		}
		m.ByMethod[string(j.Method)]++
		if j.Rule != "" {
			m.ByRule[j.Rule]++
		}
	}

	if judged := m.Consistent + m.Inconsistent; judged > 0 {
		m.AvgConfidence = sum / float64(judged)
	}
	if m.Consistent > 0 {
		m.AvgConsistent = sum1 / float64(m.Consistent)
	}
	if m.Inconsistent > 0 {
		m.AvgInconsist = sum0 / float64(m.Inconsistent)
	}
	return m
}

// Change is a story whose prediction differs between two runs
type Change struct {
	StoryID     string  `json:"story_id"`
	PredictionA int     `json:"prediction_a"`
	PredictionB int     `json:"prediction_b"`
	ConfidenceA float64 `json:"confidence_a"`
	ConfidenceB float64 `json:"confidence_b"`
}

// Comparison contrasts two runs
type Comparison struct {
	A             Metrics  `json:"a"`
	B             Metrics  `json:"b"`
	Shared        int      `json:"shared"` // stories judged in both runs
	Agreements    int      `json:"agreements"`
	AgreementRate float64  `json:"agreement_rate"`
	Changes       []Change `json:"changes"`
}

// Compare computes metrics for both runs and their agreement on shared stories.
// Changes are listed in the order of run b.
func Compare(a, b []model.Outcome) Comparison {
	c := Comparison{A: ComputeMetrics(a), B: ComputeMetrics(b)}

	judgedA := make(map[string]model.Judgment, len(a))
	for _, o := range a {
		if !o.Failed() {
			judgedA[o.Case.StoryID] = o.Evaluation.Judgment
		}
	}
	for _, o := range b {
		if o.Failed() {
			continue
		}
		ja, ok := judgedA[o.Case.StoryID]
		if !ok {
			continue
		}
		jb := o.Evaluation.Judgment
		c.Shared++
		if ja.Prediction == jb.Prediction {
			c.Agreements++
			continue
		}
		c.Changes = append(c.Changes, Change{
			StoryID:     o.Case.StoryID,
			PredictionA: ja.Prediction,
			PredictionB: jb.Prediction,
			ConfidenceA: ja.Confidence,
			ConfidenceB: jb.Confidence,
		})
	}
	if c.Shared > 0 {
		c.AgreementRate = float64(c.Agreements) / float64(c.Shared)
	}
	return c
}
