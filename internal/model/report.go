package model

// ContradictionKind distinguishes antonym hits from negation patterns
type ContradictionKind string

const (
	ContradictionAntonym  ContradictionKind = "antonym"
	ContradictionNegation ContradictionKind = "negation"
)

// Strength grades a contradiction signal
type Strength string

const (
	StrengthStrong Strength = "strong"
	StrengthWeak   Strength = "weak"
)

// ContradictionSignal is a detected mismatch between a claim and an evidence item
type ContradictionSignal struct {
	Kind          ContradictionKind `json:"kind"`
	Strength      Strength          `json:"strength"`
	ClaimTerm     string            `json:"claim_term"`    // Term found on the claim side
	EvidenceTerm  string            `json:"evidence_term"` // Antonym or negated keyword on the evidence side
	ClaimText     string            `json:"claim_text"`
	EvidenceChunk string            `json:"evidence_chunk"` // ChunkID of the evidence item
	Similarity    float64           `json:"similarity"`
}

// SemanticReport aggregates claim-level semantic signals for one evaluation
type SemanticReport struct {
	Claims            []Claim               `json:"claims"`
	Contradictions    []ContradictionSignal `json:"contradictions"`
	SupportScore      float64               `json:"support_score"`      // [0,1]
	CausalConsistency float64               `json:"causal_consistency"` // [0,1]
	ClaimsSupported   int                   `json:"claims_supported"`
}

// HasStrongContradiction reports whether any strong contradiction was detected
func (r SemanticReport) HasStrongContradiction() bool {
	for _, c := range r.Contradictions {
		if c.Strength == StrengthStrong {
			return true
		}
	}
	return false
}

// StrongContradictions returns only the strong signals, in detection order
func (r SemanticReport) StrongContradictions() []ContradictionSignal {
	var out []ContradictionSignal
	for _, c := range r.Contradictions {
		if c.Strength == StrengthStrong {
			out = append(out, c)
		}
	}
	return out
}
