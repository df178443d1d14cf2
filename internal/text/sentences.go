package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sentence is one sentence and the span of source text it owns.
// Spans returned by SplitSentences tile the input: each Start equals the
// previous End, the first Start is 0 and the last End is len(text).
type Sentence struct {
	Text  string // Trimmed sentence text
	Start int    // Byte offset where the span begins
	End   int    // Byte offset one past the span (includes trailing whitespace)
	Words int
}

var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "st": true,
	"jr": true, "sr": true, "prof": true, "rev": true, "capt": true,
	"col": true, "gen": true, "lt": true, "mt": true, "vs": true,
	"etc": true, "no": true, "vol": true, "ch": true, "messrs": true,
}

// SplitSentences splits text on terminal punctuation and paragraph breaks,
// keeping honorific abbreviations and initials inside their sentence.
func SplitSentences(s string) []Sentence {
	var out []Sentence
	start := 0

	emit := func(end int) {
		body := strings.TrimSpace(s[start:end])
		if body == "" {
			return
		}
		out = append(out, Sentence{Text: body, Start: start, End: end, Words: len(strings.Fields(body))})
		start = end
	}

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])

		switch {
		case r == '.' || r == '!' || r == '?':
			j := i + size
			for j < len(s) {
				next, n := utf8.DecodeRuneInString(s[j:])
				if !isTerminator(next) && !isCloser(next) {
					break
				}
				j += n
			}
			if j < len(s) {
				next, _ := utf8.DecodeRuneInString(s[j:])
				if !unicode.IsSpace(next) {
					i = j
					continue
				}
			}
			if r == '.' && j == i+size && isAbbreviation(s[start:i]) {
				i = j
				continue
			}
			emit(skipSpace(s, j))
			i = start
			if i < j {
				i = j
			}

		case r == '\n' && strings.HasPrefix(s[i:], "\n\n"):
			end := skipSpace(s, i)
			if strings.TrimSpace(s[start:i]) != "" {
				emit(end)
			}
			i = end

		default:
			i += size
		}
	}

	if start < len(s) {
		if strings.TrimSpace(s[start:]) != "" {
			emit(len(s))
		} else if len(out) > 0 {
			out[len(out)-1].End = len(s)
		}
	}
	return out
}

func skipSpace(s string, i int) int {
	for i < len(s) {
		r, n := utf8.DecodeRuneInString(s[i:])
		if !unicode.IsSpace(r) {
			break
		}
		i += n
	}
	return i
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isCloser(r rune) bool {
	switch r {
	case '"', '\'', '”', '’', ')', ']':
		return true
	}
	return false
}

// isAbbreviation reports whether the text before a period ends in a known
// abbreviation or a single-letter initial.
func isAbbreviation(before string) bool {
	fields := strings.Fields(before)
	if len(fields) == 0 {
		return false
	}
	last := strings.TrimLeftFunc(fields[len(fields)-1], func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if utf8.RuneCountInString(last) == 1 {
		r, _ := utf8.DecodeRuneInString(last)
		return unicode.IsUpper(r)
	}
	return abbreviations[strings.ToLower(last)]
}
