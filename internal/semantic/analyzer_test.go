package semantic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/backcheck/internal/extract"
	"github.com/ppiankov/backcheck/internal/model"
)

func evidence(id, body string, sim float64) model.EvidenceItem {
	return model.EvidenceItem{
		Chunk:      model.Chunk{ChunkID: id, Text: body},
		Similarity: sim,
	}
}

func claimsOf(t *testing.T, backstory string) []model.Claim {
	t.Helper()
	claims, err := extract.NewDecomposer(extract.DefaultOptions()).Decompose(backstory)
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	return claims
}

func newAnalyzer() *Analyzer {
	return NewAnalyzer(DefaultLexicon(), OptionsFromModel(model.DefaultConfig().Semantic))
}

func TestDefaultLexiconSize(t *testing.T) {
	lex := DefaultLexicon()
	if len(lex.AntonymPairs) < 20 {
		t.Errorf("expected at least 20 antonym pairs, got %d", len(lex.AntonymPairs))
	}
	if err := lex.Validate(); err != nil {
		t.Errorf("default lexicon invalid: %v", err)
	}
}

func TestAntonymContradiction(t *testing.T) {
	a := newAnalyzer()
	claims := claimsOf(t, "He was born into immense wealth")
	ev := []model.EvidenceItem{
		evidence("c1", "His childhood was one of grinding poverty in the slums of the port.", 0.72),
		evidence("c2", "The family shared one room and often went hungry in poverty.", 0.68),
	}

	report := a.Analyze(claims, ev)
	if !report.HasStrongContradiction() {
		t.Fatalf("expected strong contradiction, got %+v", report.Contradictions)
	}
	sig := report.StrongContradictions()[0]
	if sig.Kind != model.ContradictionAntonym || sig.ClaimTerm != "wealth" || sig.EvidenceTerm != "poverty" {
		t.Errorf("unexpected signal: %+v", sig)
	}
	if sig.EvidenceChunk != "c1" {
		t.Errorf("EvidenceChunk = %s, want c1", sig.EvidenceChunk)
	}
}

func TestAntonymSkipsIrrelevantAndNegatedClaims(t *testing.T) {
	a := newAnalyzer()

	// Low similarity evidence is not relevant enough
	report := a.Analyze(claimsOf(t, "He was born into immense wealth"),
		[]model.EvidenceItem{evidence("c1", "poverty everywhere", 0.20)})
	if report.HasStrongContradiction() {
		t.Error("low-similarity evidence must not produce a strong contradiction")
	}

	// A claim that negates the term agrees with the antonym
	report = a.Analyze(claimsOf(t, "He was never wealthy as a boy"),
		[]model.EvidenceItem{evidence("c1", "He grew up in poverty.", 0.80)})
	if report.HasStrongContradiction() {
		t.Errorf("negated claim term must not contradict: %+v", report.Contradictions)
	}
}

func TestNegationContradiction(t *testing.T) {
	a := newAnalyzer()
	claims := claimsOf(t, "She learned to sail as a girl")

	tests := []struct {
		name string
		body string
		sim  float64
		want bool
	}{
		{"negated keyword", "She never learned to sail, and feared the water all her life.", 0.80, true},
		{"contraction", "She didn't sail; the sea terrified her.", 0.70, true},
		{"similarity too low", "She never learned to sail.", 0.60, false},
		{"no negation", "She learned to sail from her uncle.", 0.90, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := a.Analyze(claims, []model.EvidenceItem{evidence("c", tt.body, tt.sim)})
			var weak int
			for _, s := range report.Contradictions {
				if s.Strength == model.StrengthWeak && s.Kind == model.ContradictionNegation {
					weak++
				}
			}
			if (weak > 0) != tt.want {
				t.Errorf("weak contradictions = %d, want present=%v", weak, tt.want)
			}
		})
	}
}

func TestSupportScore(t *testing.T) {
	a := newAnalyzer()
	claims := []model.Claim{
		{Text: "Edmond sailed to Smyrna", Importance: model.ImportanceHigh, Entities: []string{"edmond", "smyrna"}, Actions: []string{"sailed"}},
		{Text: "Edmond loved Mercedes", Importance: model.ImportanceLow, Entities: []string{"edmond", "mercedes"}, Actions: []string{"loved"}},
	}
	ev := []model.EvidenceItem{
		evidence("c1", "Edmond had sailed from Smyrna with a cargo of silk.", 0.8),
	}

	report := a.Analyze(claims, ev)
	// High claim (weight 1.0) supported; low claim (0.3) has only 1 of 3 anchors
	want := 1.0 / 1.3
	if diff := report.SupportScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("SupportScore = %v, want %v", report.SupportScore, want)
	}
	if report.ClaimsSupported != 1 {
		t.Errorf("ClaimsSupported = %d, want 1", report.ClaimsSupported)
	}
}

func TestCausalConsistency(t *testing.T) {
	a := newAnalyzer()
	claims := []model.Claim{
		{Text: "Edmond was imprisoned", Importance: model.ImportanceHigh, Entities: []string{"edmond"}, Actions: []string{"imprisoned"}},
		{Text: "Edmond escaped", Importance: model.ImportanceHigh, Entities: []string{"edmond"}, Actions: []string{"escaped"}},
	}
	ev := []model.EvidenceItem{
		evidence("c1", "Edmond was imprisoned because Danglars wrote a letter, and this led to his ruin.", 0.8),
		evidence("c2", "Because of the storm, the harbor closed.", 0.5), // causal but supports nothing
	}

	report := a.Analyze(claims, ev)
	// c1 carries two markers ("because", "led to"); two high claims
	if report.CausalConsistency != 1.0 {
		t.Errorf("CausalConsistency = %v, want 1.0", report.CausalConsistency)
	}

	report = a.Analyze(claims, ev[1:])
	if report.CausalConsistency != 0 {
		t.Errorf("unsupporting evidence must not count, got %v", report.CausalConsistency)
	}
}

func TestAnalyzeEmptyInputs(t *testing.T) {
	a := newAnalyzer()
	report := a.Analyze(claimsOf(t, "He sailed to Smyrna"), nil)
	if report.SupportScore != 0 || report.CausalConsistency != 0 || len(report.Contradictions) != 0 {
		t.Errorf("empty evidence should produce a zero report, got %+v", report)
	}
	report = a.Analyze(nil, []model.EvidenceItem{evidence("c", "text", 0.9)})
	if report.SupportScore != 0 {
		t.Errorf("no claims should produce zero support, got %v", report.SupportScore)
	}
}

func TestAnalyzerDeterministic(t *testing.T) {
	a := newAnalyzer()
	claims := claimsOf(t, "He was brave and loyal to the king. He died young.")
	ev := []model.EvidenceItem{
		evidence("c1", "The cowardly knight fled the field and survived.", 0.7),
		evidence("c2", "He was a traitor who never served the king.", 0.75),
	}
	first := a.Analyze(claims, ev)
	for i := 0; i < 5; i++ {
		again := a.Analyze(claims, ev)
		if len(again.Contradictions) != len(first.Contradictions) || again.SupportScore != first.SupportScore {
			t.Fatal("analysis is not deterministic")
		}
		for j := range again.Contradictions {
			if again.Contradictions[j] != first.Contradictions[j] {
				t.Fatal("contradiction order is not deterministic")
			}
		}
	}
}

func TestAnalyzerCopiesLexicon(t *testing.T) {
	lex := DefaultLexicon()
	a := NewAnalyzer(lex, Options{AntonymMinSimilarity: 0})
	lex.AntonymPairs[0] = AntonymPair{A: "zzz", B: "yyy"}
	lex.AntonymPairs[1] = AntonymPair{A: "zzz", B: "yyy"}

	report := a.Analyze(
		[]model.Claim{{Text: "He was wealthy", Importance: model.ImportanceHigh}},
		[]model.EvidenceItem{evidence("c", "poverty", 0.9)},
	)
	if !report.HasStrongContradiction() {
		t.Error("mutating the caller's lexicon must not affect the analyzer")
	}
}

func TestLoadLexicon(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lexicon.yaml")
	content := "antonym_pairs:\n  - {a: Sober, b: Drunk}\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadLexicon(path)
	if err != nil {
		t.Fatalf("LoadLexicon: %v", err)
	}
	if len(lex.AntonymPairs) != 1 || lex.AntonymPairs[0].A != "sober" {
		t.Errorf("pairs = %+v", lex.AntonymPairs)
	}
	if len(lex.CausalMarkers) == 0 || len(lex.Negations) == 0 {
		t.Error("missing sections should fall back to defaults")
	}

	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("antonym_pairs:\n  - {a: same, b: SAME}\n"), 0o644)
	if _, err := LoadLexicon(bad); err == nil {
		t.Error("expected validation error for self-antonym")
	}
	if _, err := LoadLexicon(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
