// Package semantic checks claims against retrieved evidence: antonym and
// negation contradictions, support coverage and causal language.
package semantic

import (
	"log/slog"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/text"
)

// Options tunes contradiction detection
type Options struct {
	NegationMinSimilarity float64 // weak signals need similarity strictly above this
	AntonymMinSimilarity  float64 // strong signals need similarity at or above this
	NegationWindow        int     // tokens before a keyword searched for a negation
	Logger                *slog.Logger
}

// OptionsFromModel converts configuration
func OptionsFromModel(cfg model.SemanticConfig) Options {
	return Options{
		NegationMinSimilarity: cfg.NegationMinSimilarity,
		AntonymMinSimilarity:  cfg.AntonymMinSimilarity,
		NegationWindow:        cfg.NegationWindow,
	}
}

// Analyzer produces a SemanticReport; safe for concurrent use
type Analyzer struct {
	lex    Lexicon
	opts   Options
	logger *slog.Logger
}

// NewAnalyzer copies lex so later changes by the caller cannot leak in
func NewAnalyzer(lex Lexicon, opts Options) *Analyzer {
	if opts.NegationWindow <= 0 {
		opts.NegationWindow = 2
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{lex: lex.normalized(), opts: opts, logger: logger}
}

type preparedEvidence struct {
	item   model.EvidenceItem
	tokens []string
}

// Analyze runs every check over the claim/evidence cross product
func (a *Analyzer) Analyze(claims []model.Claim, evidence []model.EvidenceItem) model.SemanticReport {
	report := model.SemanticReport{
		Claims:         claims,
		Contradictions: []model.ContradictionSignal{},
	}
	if len(claims) == 0 {
		return report
	}

	prepared := make([]preparedEvidence, len(evidence))
	for i, e := range evidence {
		prepared[i] = preparedEvidence{item: e, tokens: text.Words(e.Text())}
	}

	for _, c := range claims {
		claimTokens := text.Words(c.Text)
		for _, e := range prepared {
			report.Contradictions = append(report.Contradictions, a.antonyms(c, claimTokens, e)...)
			if sig, ok := a.negation(c, claimTokens, e); ok {
				report.Contradictions = append(report.Contradictions, sig)
			}
		}
	}

	report.SupportScore, report.ClaimsSupported = a.support(claims, prepared)
	report.CausalConsistency = a.causal(claims, prepared)

	a.logger.Debug("semantic analysis",
		"claims", len(claims),
		"evidence", len(evidence),
		"contradictions", len(report.Contradictions),
		"support", report.SupportScore,
		"causal", report.CausalConsistency)
	return report
}

// antonyms flags a strong contradiction when the claim asserts one side of a
// pair and relevant evidence the other. Negated claim terms are skipped.
func (a *Analyzer) antonyms(c model.Claim, claimTokens []string, e preparedEvidence) []model.ContradictionSignal {
	if e.item.Similarity < a.opts.AntonymMinSimilarity {
		return nil
	}
	var out []model.ContradictionSignal
	seen := make(map[string]bool)
	check := func(claimTerm, evidenceTerm string) {
		i := text.IndexTerm(claimTokens, claimTerm)
		if i < 0 || a.negatedAt(claimTokens, i) {
			return
		}
		if !text.ContainsTerm(e.tokens, evidenceTerm) {
			return
		}
		key := claimTerm + "/" + evidenceTerm
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, model.ContradictionSignal{
			Kind:          model.ContradictionAntonym,
			Strength:      model.StrengthStrong,
			ClaimTerm:     claimTerm,
			EvidenceTerm:  evidenceTerm,
			ClaimText:     c.Text,
			EvidenceChunk: e.item.Chunk.ChunkID,
			Similarity:    e.item.Similarity,
		})
	}
	for _, p := range a.lex.AntonymPairs {
		check(p.A, p.B)
		check(p.B, p.A)
	}
	return out
}

// negation flags a weak contradiction when highly similar evidence negates
// a claim keyword the claim itself states positively.
func (a *Analyzer) negation(c model.Claim, claimTokens []string, e preparedEvidence) (model.ContradictionSignal, bool) {
	if e.item.Similarity <= a.opts.NegationMinSimilarity {
		return model.ContradictionSignal{}, false
	}
	for _, kw := range keywordsOf(c) {
		if ci := text.IndexTerm(claimTokens, kw); ci >= 0 && a.negatedAt(claimTokens, ci) {
			continue
		}
		for i, tok := range e.tokens {
			if !text.MatchTerm(tok, kw) {
				continue
			}
			if neg, ok := a.negationNear(e.tokens, i); ok {
				return model.ContradictionSignal{
					Kind:          model.ContradictionNegation,
					Strength:      model.StrengthWeak,
					ClaimTerm:     kw,
					EvidenceTerm:  neg,
					ClaimText:     c.Text,
					EvidenceChunk: e.item.Chunk.ChunkID,
					Similarity:    e.item.Similarity,
				}, true
			}
		}
	}
	return model.ContradictionSignal{}, false
}

func keywordsOf(c model.Claim) []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range [][]string{c.Actions, c.Keywords, c.Entities} {
		for _, k := range group {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out
}

// negationNear looks for a negation in the window before position i and
// directly after it ("was not", "never sailed", "sailed never")
func (a *Analyzer) negationNear(tokens []string, i int) (string, bool) {
	lo := max(0, i-a.opts.NegationWindow)
	for j := lo; j < i; j++ {
		if a.lex.isNegation(tokens[j]) {
			return tokens[j], true
		}
	}
	if i+1 < len(tokens) && a.lex.isNegation(tokens[i+1]) {
		return tokens[i+1], true
	}
	return "", false
}

func (a *Analyzer) negatedAt(tokens []string, i int) bool {
	_, neg := a.negationNear(tokens, i)
	return neg
}

// support returns the importance-weighted share of claims found in evidence.
// A claim counts as found when one evidence item holds at least half of its
// anchor terms (entities and actions, else keywords).
func (a *Analyzer) support(claims []model.Claim, evidence []preparedEvidence) (float64, int) {
	var total, supported float64
	count := 0
	for _, c := range claims {
		w := c.Importance.Weight()
		total += w
		if supportedBy(c, evidence) >= 0 {
			supported += w
			count++
		}
	}
	if total == 0 {
		return 0, count
	}
	return clamp01(supported / total), count
}

// supportedBy returns the index of the first evidence item supporting c, or -1
func supportedBy(c model.Claim, evidence []preparedEvidence) int {
	anchors := c.Anchors()
	if len(anchors) == 0 {
		return -1
	}
	need := (len(anchors) + 1) / 2
	for i, e := range evidence {
		if supports(anchors, need, e.tokens) {
			return i
		}
	}
	return -1
}

func supports(anchors []string, need int, tokens []string) bool {
	hits := 0
	for _, anchor := range anchors {
		if text.ContainsTerm(tokens, anchor) {
			hits++
			if hits >= need {
				return true
			}
		}
	}
	return false
}

// causal counts causal markers in evidence that supports some claim,
// normalized by the number of high-importance claims
func (a *Analyzer) causal(claims []model.Claim, evidence []preparedEvidence) float64 {
	high := 0
	for _, c := range claims {
		if c.Importance == model.ImportanceHigh {
			high++
		}
	}

	markers := 0
	for _, e := range evidence {
		for _, c := range claims {
			anchors := c.Anchors()
			if len(anchors) == 0 || !supports(anchors, (len(anchors)+1)/2, e.tokens) {
				continue
			}
			markers += len(a.lex.hasCausalMarker(e.tokens))
			break
		}
	}
	return clamp01(float64(markers) / float64(max(1, high)))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
