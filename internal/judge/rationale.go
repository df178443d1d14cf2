package judge

import (
	"fmt"
	"strings"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/retrieve"
	"github.com/ppiankov/backcheck/internal/text"
)

const snippetLen = 160

// Rationale explains a heuristic decision in two to four sentences, quoting
// the one or two passages that drove it
func Rationale(d Decision, evidence []model.EvidenceItem, report model.SemanticReport) string {
	var parts []string
	s := d.Stats

	switch d.Rule {
	case RuleContradiction:
		sig := report.StrongContradictions()[0]
		parts = append(parts, fmt.Sprintf("The backstory asserts %q, but the novel describes %q in a closely related passage.", sig.ClaimTerm, sig.EvidenceTerm))
		if e, ok := findChunk(evidence, sig.EvidenceChunk); ok {
			parts = append(parts, fmt.Sprintf("The text reads: %q.", text.Snippet(e.Text(), snippetLen)))
		}
		if n := len(report.StrongContradictions()); n > 1 {
			parts = append(parts, fmt.Sprintf("%d direct contradictions were found in total, so the backstory cannot hold.", n))
		} else {
			parts = append(parts, "This direct contradiction makes the backstory inconsistent with the narrative.")
		}

	case RuleNoEvidence:
		parts = append(parts,
			"No passage in the novel could be retrieved for this backstory.",
			"Without corroborating text the backstory is treated as inconsistent, with low confidence.")

	case RuleStrongSupport, RuleModerateSupport, RuleWeakSupport:
		strength := map[Rule]string{RuleStrongSupport: "closely", RuleModerateSupport: "reasonably well", RuleWeakSupport: "loosely"}[d.Rule]
		parts = append(parts, fmt.Sprintf("%d retrieved passages match the backstory %s (average similarity %.2f) and none contradict it.", s.Count, strength, s.AvgSimilarity))
		parts = append(parts, quoteTop(evidence)...)
		if where := dominantPosition(evidence); where != "" {
			parts = append(parts, fmt.Sprintf("Most of this evidence comes from the %s part of the novel.", where))
		}

	case RuleLowSimilarity:
		parts = append(parts, fmt.Sprintf("The closest passages are only weakly related to the backstory (average similarity %.2f).", s.AvgSimilarity))
		if len(evidence) > 0 {
			parts = append(parts, fmt.Sprintf("The best match, %q, does not address its claims.", text.Snippet(evidence[0].Text(), snippetLen)))
		}
		parts = append(parts, "The novel offers nothing that supports the backstory.")

	default:
		parts = append(parts, fmt.Sprintf("The evidence is mixed: %d passages with average similarity %.2f cover %d of %d claims.", s.Count, s.AvgSimilarity, report.ClaimsSupported, len(report.Claims)))
		parts = append(parts, quoteTop(evidence[:min(1, len(evidence))])...)
		parts = append(parts, "Absent strong support the backstory is judged inconsistent.")
	}

	if len(parts) > 4 {
		parts = parts[:4]
	}
	return strings.Join(parts, " ")
}

func quoteTop(evidence []model.EvidenceItem) []string {
	var out []string
	for i, e := range evidence {
		if i == 2 {
			break
		}
		lead := "For example"
		if i == 1 {
			lead = "Also"
		}
		out = append(out, fmt.Sprintf("%s: %q.", lead, text.Snippet(e.Text(), snippetLen)))
	}
	return out
}

func dominantPosition(evidence []model.EvidenceItem) model.PositionBucket {
	if len(evidence) < 2 {
		return ""
	}
	early, middle, late := retrieve.GroupByPosition(evidence, 0).Counts()
	half := len(evidence) / 2
	switch {
	case early > half:
		return model.PositionEarly
	case middle > half:
		return model.PositionMiddle
	case late > half:
		return model.PositionLate
	}
	return ""
}

func findChunk(evidence []model.EvidenceItem, chunkID string) (model.EvidenceItem, bool) {
	for _, e := range evidence {
		if e.Chunk.ChunkID == chunkID {
			return e, true
		}
	}
	return model.EvidenceItem{}, false
}
