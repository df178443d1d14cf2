package text

import (
	"strings"
	"unicode"
)

// stopwords contains common English words excluded from keyword matching.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "his": true, "hers": true, "their": true, "our": true,
	"there": true, "these": true, "those": true, "all": true, "any": true,
	"very": true, "also": true, "just": true, "yet": true, "once": true,
	"after": true, "before": true, "while": true, "though": true, "because": true,
	"over": true, "under": true, "near": true, "again": true, "himself": true,
	"herself": true, "itself": true, "themselves": true, "one": true, "some": true,
}

// IsStopword reports whether the lowercase word carries no content
func IsStopword(w string) bool {
	return stopwords[w]
}

// Words splits text into lowercase word tokens in order, duplicates kept.
// Inner apostrophes stay attached so contractions like "didn't" survive.
func Words(s string) []string {
	var out []string
	var cur strings.Builder

	flush := func() {
		w := strings.Trim(cur.String(), "'")
		if w != "" {
			out = append(out, w)
		}
		cur.Reset()
	}

	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			cur.WriteRune(r)
		case r == '\'' || r == '’':
			cur.WriteRune('\'')
		default:
			flush()
		}
	}
	flush()
	return out
}

// Tokenize splits text into unique lowercase non-stopword tokens.
func Tokenize(s string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, w := range ContentTokens(s) {
		if seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// ContentTokens returns the information-bearing words of s, in order.
func ContentTokens(s string) []string {
	var out []string
	for _, w := range Words(s) {
		if len(w) < 2 || stopwords[w] || strings.Contains(w, "'") {
			continue
		}
		out = append(out, w)
	}
	return out
}

// WordCount counts whitespace-separated words
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// ContainsTerm reports whether any token equals term, or starts with it when
// term is long enough to act as a stem ("wealth" matches "wealthy").
func ContainsTerm(tokens []string, term string) bool {
	return IndexTerm(tokens, term) >= 0
}

// IndexTerm returns the position of the first token matching term, or -1
func IndexTerm(tokens []string, term string) int {
	for i, tok := range tokens {
		if MatchTerm(tok, term) {
			return i
		}
	}
	return -1
}

// MatchTerm compares a single token against a lexicon term
func MatchTerm(token, term string) bool {
	if token == term {
		return true
	}
	return len(term) >= 5 && strings.HasPrefix(token, term)
}

// ContainsPhrase reports whether a (possibly multi-word) phrase occurs in the
// token stream as consecutive words.
func ContainsPhrase(tokens []string, phrase string) bool {
	parts := strings.Fields(strings.ToLower(phrase))
	if len(parts) == 0 {
		return false
	}
	if len(parts) == 1 {
		for _, tok := range tokens {
			if tok == parts[0] {
				return true
			}
		}
		return false
	}
	for i := 0; i+len(parts) <= len(tokens); i++ {
		match := true
		for j, p := range parts {
			if tokens[i+j] != p {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
