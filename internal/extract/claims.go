// Package extract decomposes a backstory into atomic, typed claims.
package extract

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/text"
)

var (
	parenthetical = regexp.MustCompile(`\(([^()]*)\)`)
	clauseEnd     = regexp.MustCompile(`[.;!?]+`)
	conjunction   = regexp.MustCompile(`(?i)(,?\s+)\b(and|but|yet)\b(\s+)`)
)

// Options tunes decomposition
type Options struct {
	MinClauseWords int // shorter fragments merge into the previous clause
	MaxClaims      int
}

// DefaultOptions returns the standard 3-word minimum and 5-claim cap
func DefaultOptions() Options {
	return Options{MinClauseWords: 3, MaxClaims: 5}
}

// Decomposer splits backstories into atomic claims
type Decomposer struct {
	opts Options
}

// NewDecomposer creates a decomposer
func NewDecomposer(opts Options) *Decomposer {
	if opts.MinClauseWords <= 0 {
		opts.MinClauseWords = 1
	}
	if opts.MaxClaims <= 0 {
		opts.MaxClaims = DefaultOptions().MaxClaims
	}
	return &Decomposer{opts: opts}
}

type clause struct {
	text        string
	subordinate bool
}

// Decompose returns the claims of backstory in reading order.
// A non-empty backstory always yields at least one claim.
func (d *Decomposer) Decompose(backstory string) ([]model.Claim, error) {
	backstory = text.CollapseSpace(backstory)
	if strings.Trim(backstory, " .;,!?()") == "" {
		return nil, model.ErrEmptyBackstory
	}

	// Parenthetical asides become low-importance claims after the main clauses
	var asides []clause
	main := parenthetical.ReplaceAllStringFunc(backstory, func(m string) string {
		if inner := strings.TrimSpace(m[1 : len(m)-1]); inner != "" {
			asides = append(asides, clause{text: inner, subordinate: true})
		}
		return " "
	})

	var clauses []clause
	for _, sentence := range clauseEnd.Split(main, -1) {
		clauses = append(clauses, d.splitSentence(sentence)...)
	}
	clauses = append(clauses, asides...)

	var claims []model.Claim
	for _, c := range clauses {
		if text.WordCount(c.text) < d.opts.MinClauseWords {
			continue
		}
		claims = append(claims, buildClaim(c))
	}

	if len(claims) == 0 {
		claims = append(claims, buildClaim(clause{text: strings.Trim(backstory, " .;")}))
	}

	claims = dedupeClaims(claims)
	return d.cap(claims), nil
}

// splitSentence breaks one sentence on coordinating conjunctions and on a
// leading subordinate clause ("When he was ten, ...").
func (d *Decomposer) splitSentence(sentence string) []clause {
	sentence = strings.Trim(sentence, " ,:")
	if sentence == "" {
		return nil
	}

	var parts []string
	last := 0
	for _, m := range conjunction.FindAllStringSubmatchIndex(sentence, -1) {
		left := sentence[last:m[0]]
		right := sentence[m[1]:]
		if joinsNames(left, right) {
			continue
		}
		parts = append(parts, left)
		last = m[1]
	}
	parts = append(parts, sentence[last:])

	var out []clause
	for _, p := range parts {
		p = strings.Trim(p, " ,:")
		if p == "" {
			continue
		}
		// Fragments too short to stand alone rejoin the previous clause
		if len(out) > 0 && text.WordCount(p) < d.opts.MinClauseWords {
			out[len(out)-1].text += " and " + p
			continue
		}
		out = append(out, splitSubordinate(p)...)
	}
	return out
}

// splitSubordinate separates a leading subordinate clause ending in a comma
func splitSubordinate(p string) []clause {
	first := strings.ToLower(firstWord(p))
	if !subordinators[first] {
		return []clause{{text: p}}
	}
	i := strings.IndexByte(p, ',')
	if i < 0 {
		return []clause{{text: p, subordinate: true}}
	}
	sub := strings.TrimSpace(p[:i])
	rest := strings.TrimSpace(p[i+1:])
	if rest == "" {
		return []clause{{text: sub, subordinate: true}}
	}
	return []clause{{text: sub, subordinate: true}, {text: rest}}
}

// joinsNames reports whether "and" sits between two capitalized words ("Tom and Jerry")
func joinsNames(left, right string) bool {
	fields := strings.Fields(left)
	if len(fields) == 0 {
		return false
	}
	return isCapitalized(fields[len(fields)-1]) && isCapitalized(firstWord(right))
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return strings.Trim(fields[0], ",;:\"'")
}

func isCapitalized(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return unicode.IsUpper(r)
}

func buildClaim(c clause) model.Claim {
	lower := strings.ToLower(c.text)
	words := text.Words(c.text)

	claimType, heuristic := classify(lower, words)
	return model.Claim{
		Text:       c.text,
		Type:       claimType,
		Importance: importance(c, lower, words),
		Entities:   entities(c.text),
		Actions:    actions(words),
		Keywords:   text.Tokenize(c.text),
		Heuristic:  heuristic,
	}
}

func importance(c clause, lower string, words []string) model.Importance {
	if c.subordinate {
		return model.ImportanceLow
	}
	for _, h := range hedges {
		if strings.Contains(h, " ") {
			if strings.Contains(lower, h) {
				return model.ImportanceMedium
			}
		} else if slices.Contains(words, h) {
			return model.ImportanceMedium
		}
	}
	return model.ImportanceHigh
}

// classify assigns the first matching type: motivation, relationship, trait, event
func classify(lower string, words []string) (model.ClaimType, string) {
	for _, m := range motivationMarkers {
		if text.ContainsPhrase(words, m) {
			return model.ClaimTypeMotivation, "motivation:" + m
		}
	}
	for _, w := range words {
		if relationshipNouns[w] {
			return model.ClaimTypeRelationship, "kinship:" + w
		}
	}
	for i, w := range words {
		if !copulas[w] {
			continue
		}
		for _, next := range words[i+1 : min(i+4, len(words))] {
			if isTrait(next) {
				return model.ClaimTypeTrait, "trait:" + next
			}
		}
	}
	for _, w := range words {
		if isAction(w) {
			return model.ClaimTypeEvent, "event:" + w
		}
	}
	return model.ClaimTypeEvent, "default"
}

func isTrait(w string) bool {
	if traitAdjectives[w] {
		return true
	}
	if len(w) < 6 {
		return false
	}
	for _, suf := range traitSuffixes {
		if strings.HasSuffix(w, suf) {
			return true
		}
	}
	return false
}

func isAction(w string) bool {
	if irregularVerbs[w] {
		return true
	}
	return len(w) > 4 && strings.HasSuffix(w, "ed") && !notVerbs[w] && !traitAdjectives[w]
}

// actions returns main verbs in order, plus the verb of any "to <verb>" infinitive
func actions(words []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(w string) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	for i, w := range words {
		if isAction(w) {
			add(w)
			continue
		}
		if i > 0 && words[i-1] == "to" && len(w) > 2 && !text.IsStopword(w) && !relationshipNouns[w] {
			add(w)
		}
	}
	return out
}

// entities returns lowercased capitalized tokens that name people or places
func entities(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for i, tok := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '-'
	}) {
		tok = strings.Trim(tok, "'-")
		if utf8.RuneCountInString(tok) < 2 || !isCapitalized(tok) {
			continue
		}
		lower := strings.ToLower(tok)
		if nonEntities[lower] || text.IsStopword(lower) || seen[lower] {
			continue
		}
		if i == 0 && (isAction(lower) || strings.HasSuffix(lower, "ing") || strings.HasSuffix(lower, "ly")) {
			continue
		}
		seen[lower] = true
		out = append(out, lower)
	}
	return out
}

// cap keeps at most MaxClaims claims, dropping the least important last
// claims first, and preserves reading order.
func (d *Decomposer) cap(claims []model.Claim) []model.Claim {
	if len(claims) <= d.opts.MaxClaims {
		return claims
	}
	idx := make([]int, len(claims))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		return rank(claims[a].Importance) - rank(claims[b].Importance)
	})
	keep := idx[:d.opts.MaxClaims]
	slices.Sort(keep)

	out := make([]model.Claim, 0, len(keep))
	for _, i := range keep {
		out = append(out, claims[i])
	}
	return out
}

func rank(i model.Importance) int {
	switch i {
	case model.ImportanceHigh:
		return 0
	case model.ImportanceMedium:
		return 1
	default:
		return 2
	}
}

// dedupeClaims removes duplicate claims
func dedupeClaims(claims []model.Claim) []model.Claim {
	seen := make(map[string]bool)
	var unique []model.Claim

	for _, claim := range claims {
		key := strings.ToLower(strings.TrimSpace(claim.Text))
		if !seen[key] {
			seen[key] = true
			unique = append(unique, claim)
		}
	}

	return unique
}
