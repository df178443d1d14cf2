package judge

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/retrieve"
)

// SystemPrompt frames every judgment request
const SystemPrompt = "You are an expert literary analyst who checks whether a character backstory is consistent with a novel. You answer only in the required format."

// ErrMalformedResponse is returned when a completion does not follow the
// JUDGMENT / CONFIDENCE / REASONING protocol
var ErrMalformedResponse = errors.New("malformed judgment response")

// BuildPrompt renders the judgment request: backstory, ranked evidence, the
// semantic report when present, and the decision-threshold table
func BuildPrompt(backstory string, evidence []model.EvidenceItem, report *model.SemanticReport, maxEvidence int) string {
	if maxEvidence <= 0 {
		maxEvidence = 10
	}
	var b strings.Builder

	b.WriteString("Decide whether the proposed character backstory is causally and logically consistent with the novel.\n\n")
	b.WriteString("BACKSTORY TO EVALUATE:\n")
	b.WriteString(strings.TrimSpace(backstory))
	b.WriteString("\n\nEVIDENCE FROM NOVEL (most relevant first):\n")

	if len(evidence) == 0 {
		b.WriteString("(no passages were retrieved)\n")
	}
	for i, e := range evidence {
		if i == maxEvidence {
			fmt.Fprintf(&b, "... %d more passages omitted\n", len(evidence)-maxEvidence)
			break
		}
		fmt.Fprintf(&b, "[Evidence %d] (Relevance: %.2f, Position: %s)\n%s\n\n", i+1, e.Similarity, e.Position, strings.TrimSpace(e.Text()))
	}

	if report != nil {
		b.WriteString("\nSEMANTIC ANALYSIS:\n")
		fmt.Fprintf(&b, "- Support score: %.2f (%d of %d claims found in the evidence)\n", report.SupportScore, report.ClaimsSupported, len(report.Claims))
		fmt.Fprintf(&b, "- Causal consistency: %.2f\n", report.CausalConsistency)
		if len(report.Contradictions) == 0 {
			b.WriteString("- Contradictions: none detected\n")
		}
		for _, c := range report.Contradictions {
			fmt.Fprintf(&b, "- %s contradiction (%s): backstory %q vs novel %q\n", c.Strength, c.Kind, c.ClaimTerm, c.EvidenceTerm)
		}
		early, middle, late := retrieve.GroupByPosition(evidence, 0).Counts()
		fmt.Fprintf(&b, "- Narrative position of evidence: %d early, %d middle, %d late\n", early, middle, late)
	}

	b.WriteString(`
GUIDELINES:
1. Focus on causal consistency: would the narrated events still make sense if this backstory were true?
2. Distinguish NOT MENTIONED (neutral, may be consistent) from CONTRADICTED (inconsistent).
3. Consider character development, motivations and the world's established rules.
4. Base your judgment on several passages, not a single one.

DECISION THRESHOLDS:
- Direct contradiction in facts, timeline or traits: JUDGMENT 0, CONFIDENCE 0.85-0.95
- Clear support from several relevant passages: JUDGMENT 1, CONFIDENCE 0.82-0.95
- Moderate support, nothing contradicting: JUDGMENT 1, CONFIDENCE 0.72-0.90
- Little relevant evidence: JUDGMENT 0, CONFIDENCE 0.55-0.70
- Mixed or ambiguous evidence: JUDGMENT 0, CONFIDENCE 0.50-0.75

REQUIRED OUTPUT FORMAT (exactly three lines):
JUDGMENT: 0 or 1
CONFIDENCE: a number between 0.0 and 1.0
REASONING: 3-4 sentences citing specific evidence
`)
	return b.String()
}

// Response is a parsed completion
type Response struct {
	Prediction int
	Confidence float64
	Reasoning  string
}

var (
	judgmentLine   = regexp.MustCompile(`(?im)^[\s*_#-]*JUDGMENT[\s*_]*:[\s*_]*([01])\b`)
	confidenceLine = regexp.MustCompile(`(?im)^[\s*_#-]*CONFIDENCE[\s*_]*:[\s*_]*([0-9]*\.?[0-9]+)`)
	reasoningLine  = regexp.MustCompile(`(?i)^[\s*_#-]*REASONING[\s*_]*:(.*)$`)
)

// ParseResponse extracts the three protocol fields. A missing or invalid
// field is an error; nothing is guessed.
func ParseResponse(raw string) (Response, error) {
	var r Response

	m := judgmentLine.FindStringSubmatch(raw)
	if m == nil {
		return r, fmt.Errorf("%w: no JUDGMENT line", ErrMalformedResponse)
	}
	r.Prediction = int(m[1][0] - '0')

	m = confidenceLine.FindStringSubmatch(raw)
	if m == nil {
		return r, fmt.Errorf("%w: no CONFIDENCE line", ErrMalformedResponse)
	}
	conf, err := strconv.ParseFloat(m[1], 64)
	if err != nil || conf < 0 || conf > 1 {
		return r, fmt.Errorf("%w: confidence %q out of range", ErrMalformedResponse, m[1])
	}
	r.Confidence = conf

	reasoning := ""
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		if mm := reasoningLine.FindStringSubmatch(line); mm != nil {
			reasoning = collectReasoning(mm[1], lines[i+1:])
			break
		}
	}
	if reasoning == "" {
		return r, fmt.Errorf("%w: empty REASONING", ErrMalformedResponse)
	}
	r.Reasoning = reasoning
	return r, nil
}

// collectReasoning joins the REASONING line with following lines up to the
// first blank line
func collectReasoning(first string, rest []string) string {
	parts := []string{strings.Trim(first, " *\t\r")}
	for _, line := range rest {
		line = strings.TrimSpace(line)
		if line == "" {
			break
		}
		parts = append(parts, line)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
