package semantic

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/backcheck/internal/text"
)

// AntonymPair is two terms that cannot both describe the same fact
type AntonymPair struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// Lexicon is the word-level knowledge the analyzer relies on.
// It is built once at startup and copied into each Analyzer.
type Lexicon struct {
	AntonymPairs  []AntonymPair `yaml:"antonym_pairs"`
	CausalMarkers []string      `yaml:"causal_markers"`
	Negations     []string      `yaml:"negations"`
}

// DefaultLexicon returns the built-in tables
func DefaultLexicon() Lexicon {
	return Lexicon{
		AntonymPairs: []AntonymPair{
			{"wealthy", "poverty"}, {"wealth", "poverty"}, {"rich", "poor"},
			{"wealth", "impoverished"}, {"aristocrat", "peasant"}, {"noble", "commoner"},
			{"loved", "hated"}, {"affection", "hatred"}, {"adored", "despised"},
			{"brave", "cowardly"}, {"courageous", "fearful"}, {"valor", "fear"},
			{"strong", "weak"}, {"powerful", "powerless"}, {"vigor", "frail"},
			{"dead", "alive"}, {"died", "survived"}, {"deceased", "living"},
			{"murdered", "survived"}, {"killed", "lived"}, {"fatal", "survival"},
			{"trusted", "betrayed"}, {"loyal", "traitor"}, {"faithful", "disloyal"},
			{"helped", "harmed"}, {"assistance", "sabotage"}, {"educated", "illiterate"},
			{"married", "unmarried"}, {"free", "imprisoned"}, {"generous", "miserly"},
			{"honest", "deceitful"}, {"healthy", "sickly"},
		},
		CausalMarkers: []string{
			"because", "therefore", "thus", "hence", "consequently", "as a result",
			"due to", "caused by", "led to", "resulted in", "caused", "motivated",
			"driven by", "compelled", "forced", "prevented", "had to", "so that",
			"in order to", "forbade",
		},
		Negations: []string{"not", "never", "no", "nor", "neither", "without", "n't"},
	}
}

// LoadLexicon reads a YAML lexicon; empty sections fall back to the defaults
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}

	def := DefaultLexicon()
	if len(lex.AntonymPairs) == 0 {
		lex.AntonymPairs = def.AntonymPairs
	}
	if len(lex.CausalMarkers) == 0 {
		lex.CausalMarkers = def.CausalMarkers
	}
	if len(lex.Negations) == 0 {
		lex.Negations = def.Negations
	}
	if err := lex.Validate(); err != nil {
		return Lexicon{}, fmt.Errorf("invalid lexicon %s: %w", path, err)
	}
	return lex.normalized(), nil
}

// Validate rejects blank terms and self-antonyms
func (l Lexicon) Validate() error {
	var errs []error
	for i, p := range l.AntonymPairs {
		a, b := strings.TrimSpace(p.A), strings.TrimSpace(p.B)
		if a == "" || b == "" {
			errs = append(errs, fmt.Errorf("antonym pair %d has a blank term", i))
		} else if strings.EqualFold(a, b) {
			errs = append(errs, fmt.Errorf("antonym pair %d pairs %q with itself", i, a))
		}
	}
	for i, m := range l.CausalMarkers {
		if strings.TrimSpace(m) == "" {
			errs = append(errs, fmt.Errorf("causal marker %d is blank", i))
		}
	}
	return errors.Join(errs...)
}

// normalized returns a deep, lowercased copy
func (l Lexicon) normalized() Lexicon {
	out := Lexicon{
		AntonymPairs:  make([]AntonymPair, len(l.AntonymPairs)),
		CausalMarkers: make([]string, len(l.CausalMarkers)),
		Negations:     make([]string, len(l.Negations)),
	}
	for i, p := range l.AntonymPairs {
		out.AntonymPairs[i] = AntonymPair{A: strings.ToLower(strings.TrimSpace(p.A)), B: strings.ToLower(strings.TrimSpace(p.B))}
	}
	for i, m := range l.CausalMarkers {
		out.CausalMarkers[i] = strings.ToLower(strings.TrimSpace(m))
	}
	for i, n := range l.Negations {
		out.Negations[i] = strings.ToLower(strings.TrimSpace(n))
	}
	return out
}

func (l Lexicon) isNegation(tok string) bool {
	for _, n := range l.Negations {
		if n == "n't" {
			if strings.HasSuffix(tok, "n't") {
				return true
			}
		} else if tok == n {
			return true
		}
	}
	return false
}

func (l Lexicon) hasCausalMarker(tokens []string) []string {
	var found []string
	for _, m := range l.CausalMarkers {
		if slices.Contains(found, m) {
			continue
		}
		if strings.Contains(m, " ") {
			if text.ContainsPhrase(tokens, m) {
				found = append(found, m)
			}
		} else if slices.Contains(tokens, m) {
			found = append(found, m)
		}
	}
	return found
}
