package model

// EvidenceItem is a retrieved chunk annotated relative to a backstory
type EvidenceItem struct {
	Chunk        Chunk          `json:"chunk"`
	Similarity   float64        `json:"similarity"`    // Max cosine similarity over all queries
	QualityScore float64        `json:"quality_score"` // Weighted quality in [0,1]
	Position     PositionBucket `json:"position"`
	SourceQuery  string         `json:"source_query"` // Query that produced Similarity
	Factors      QualityFactors `json:"factors"`      // Transparent inputs to QualityScore
}

// QualityFactors records every term of the quality formula for one item
type QualityFactors struct {
	EntityOverlap  float64 `json:"entity_overlap"`
	ContentDensity float64 `json:"content_density"`
	PositionFactor float64 `json:"position_factor"`
	CharacterBoost float64 `json:"character_boost,omitempty"`
	CausalBoost    float64 `json:"causal_boost,omitempty"`
}

// Text returns the evidence chunk text
func (e EvidenceItem) Text() string {
	return e.Chunk.Text
}
