package model

// Claim is an atomic, independently verifiable assertion from a backstory
type Claim struct {
	Text       string     `json:"text"`
	Type       ClaimType  `json:"type"`
	Importance Importance `json:"importance"`
	Entities   []string   `json:"entities,omitempty"`  // Lowercased proper nouns
	Actions    []string   `json:"actions,omitempty"`   // Lowercased main verbs
	Keywords   []string   `json:"keywords,omitempty"`  // Lowercased content tokens
	Heuristic  string     `json:"heuristic,omitempty"` // Which classification rule matched (e.g., "kinship:mother")
}

// ClaimType categorizes the nature of the claim
type ClaimType string

const (
	ClaimTypeTrait        ClaimType = "trait"        // Character attributes ("was brave")
	ClaimTypeEvent        ClaimType = "event"        // Things that happened ("was born", "sailed")
	ClaimTypeMotivation   ClaimType = "motivation"   // Reasons and drives ("because", "to avenge")
	ClaimTypeRelationship ClaimType = "relationship" // Ties to other people ("her mother")
)

// Importance weights a claim in support scoring
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// Weight returns the support-score weight for the importance level
func (i Importance) Weight() float64 {
	switch i {
	case ImportanceHigh:
		return 1.0
	case ImportanceMedium:
		return 0.6
	case ImportanceLow:
		return 0.3
	default:
		return 0
	}
}

// Anchors returns the terms used to locate the claim in evidence:
// entities and actions, or content keywords when neither was found
func (c Claim) Anchors() []string {
	if len(c.Entities)+len(c.Actions) == 0 {
		return c.Keywords
	}
	out := make([]string, 0, len(c.Entities)+len(c.Actions))
	out = append(out, c.Entities...)
	out = append(out, c.Actions...)
	return out
}
