package model

import "time"

// Case is one backstory to check against one novel
type Case struct {
	StoryID    string `json:"story_id"`
	DocumentID string `json:"document_id"`
	Backstory  string `json:"backstory"`
	Character  string `json:"character,omitempty"`
}

// Evaluation is a judgment with every intermediate result that produced it
type Evaluation struct {
	Judgment   Judgment       `json:"judgment"`
	DocumentID string         `json:"document_id"`
	Character  string         `json:"character,omitempty"`
	Claims     []Claim        `json:"claims"`
	Evidence   []EvidenceItem `json:"evidence"`
	Report     SemanticReport `json:"semantic_report"`
	Duration   time.Duration  `json:"duration"`
}

// Outcome is what a batch run recorded for one case: an evaluation or an error
type Outcome struct {
	Case       Case          `json:"case"`
	Evaluation *Evaluation   `json:"evaluation,omitempty"`
	Err        error         `json:"-"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// Failed reports whether the case produced no judgment
func (o Outcome) Failed() bool {
	return o.Evaluation == nil
}
