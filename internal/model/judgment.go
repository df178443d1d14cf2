package model

// JudgeMethod identifies which path produced a judgment
type JudgeMethod string

const (
	MethodHeuristic JudgeMethod = "heuristic"
	MethodLLM       JudgeMethod = "llm"
)

// Judgment is the final decision for one backstory/document pair
type Judgment struct {
	StoryID    string      `json:"story_id"`
	Prediction int         `json:"prediction"` // 1 consistent, 0 inconsistent
	Confidence float64     `json:"confidence"` // [0,1]
	Rationale  string      `json:"rationale"`
	Method     JudgeMethod `json:"method"`
	Rule       string      `json:"rule,omitempty"` // Heuristic rule that fired
}
