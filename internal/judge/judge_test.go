package judge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ppiankov/backcheck/internal/llm"
	"github.com/ppiankov/backcheck/internal/model"
)

func ev(id, body string, sim, quality float64) model.EvidenceItem {
	return model.EvidenceItem{
		Chunk:        model.Chunk{ChunkID: id, Text: body},
		Similarity:   sim,
		QualityScore: quality,
		Position:     model.PositionEarly,
	}
}

func strongSignal(chunkID string) model.ContradictionSignal {
	return model.ContradictionSignal{
		Kind:          model.ContradictionAntonym,
		Strength:      model.StrengthStrong,
		ClaimTerm:     "wealth",
		EvidenceTerm:  "poverty",
		EvidenceChunk: chunkID,
		Similarity:    0.72,
	}
}

func scenarioA() ([]model.EvidenceItem, model.SemanticReport) {
	evidence := []model.EvidenceItem{
		ev("c1", "His childhood was spent in grinding poverty in the slums.", 0.72, 0.78),
		ev("c2", "The boy begged for bread; poverty marked all his early years.", 0.69, 0.70),
	}
	report := model.SemanticReport{
		Claims:         []model.Claim{{Text: "He was born into immense wealth"}},
		Contradictions: []model.ContradictionSignal{strongSignal("c1")},
	}
	return evidence, report
}

func scenarioB() []model.EvidenceItem {
	var evidence []model.EvidenceItem
	for i := 0; i < 10; i++ {
		q := 0.80
		if i >= 7 {
			q = 0.50
		}
		evidence = append(evidence, ev("b", "She learned to sail in the little boats of the harbor.", 0.74, q))
	}
	return evidence
}

func TestHeuristic_ScenarioA_Contradiction(t *testing.T) {
	evidence, report := scenarioA()
	d := NewHeuristic(model.DefaultJudgeConfig()).Decide(evidence, report)
	if d.Prediction != 0 || d.Rule != RuleContradiction {
		t.Fatalf("got prediction %d rule %s", d.Prediction, d.Rule)
	}
	if d.Confidence < 0.85 || d.Confidence > 0.95 {
		t.Errorf("confidence %v outside [0.85, 0.95]", d.Confidence)
	}
}

func TestHeuristic_ScenarioB_StrongSupport(t *testing.T) {
	d := NewHeuristic(model.DefaultJudgeConfig()).Decide(scenarioB(), model.SemanticReport{})
	if d.Prediction != 1 || d.Rule != RuleStrongSupport {
		t.Fatalf("got prediction %d rule %s (stats %+v)", d.Prediction, d.Rule, d.Stats)
	}
	if d.Confidence < 0.82 || d.Confidence > 0.95 {
		t.Errorf("confidence %v outside [0.82, 0.95]", d.Confidence)
	}
}

func TestHeuristic_ScenarioC_NoEvidence(t *testing.T) {
	d := NewHeuristic(model.DefaultJudgeConfig()).Decide(nil, model.SemanticReport{})
	if d.Prediction != 0 || d.Rule != RuleNoEvidence {
		t.Fatalf("got prediction %d rule %s", d.Prediction, d.Rule)
	}
	if d.Confidence < 0.50 || d.Confidence > 0.75 {
		t.Errorf("confidence %v outside [0.50, 0.75]", d.Confidence)
	}
}

func TestHeuristic_Rules(t *testing.T) {
	uniform := func(n int, sim, quality float64) []model.EvidenceItem {
		out := make([]model.EvidenceItem, n)
		for i := range out {
			out[i] = ev("x", "text", sim, quality)
		}
		return out
	}
	weak := model.SemanticReport{Contradictions: []model.ContradictionSignal{{Strength: model.StrengthWeak, Kind: model.ContradictionNegation}}}

	tests := []struct {
		name     string
		evidence []model.EvidenceItem
		report   model.SemanticReport
		rule     Rule
		pred     int
		lo, hi   float64
	}{
		{"moderate support", uniform(4, 0.68, 0.70), model.SemanticReport{}, RuleModerateSupport, 1, 0.78, 0.90},
		{"weak support", uniform(4, 0.62, 0.50), model.SemanticReport{}, RuleWeakSupport, 1, 0.72, 0.84},
		{"weak support blocked by weak contradiction", uniform(4, 0.62, 0.50), weak, RuleAmbiguous, 0, 0.50, 0.75},
		{"low similarity", uniform(3, 0.20, 0.20), model.SemanticReport{}, RuleLowSimilarity, 0, 0.55, 0.70},
		{"ambiguous", uniform(3, 0.50, 0.40), model.SemanticReport{}, RuleAmbiguous, 0, 0.50, 0.75},
	}
	h := NewHeuristic(model.DefaultJudgeConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := h.Decide(tt.evidence, tt.report)
			if d.Rule != tt.rule || d.Prediction != tt.pred {
				t.Fatalf("got rule %s prediction %d, want %s %d", d.Rule, d.Prediction, tt.rule, tt.pred)
			}
			if d.Confidence < tt.lo || d.Confidence > tt.hi {
				t.Errorf("confidence %v outside [%v, %v]", d.Confidence, tt.lo, tt.hi)
			}
		})
	}
}

func TestHeuristic_Ordering(t *testing.T) {
	h := NewHeuristic(model.DefaultJudgeConfig())

	// A strong contradiction overrides otherwise strong support
	_, report := scenarioA()
	if d := h.Decide(scenarioB(), report); d.Rule != RuleContradiction || d.Prediction != 0 {
		t.Errorf("contradiction must win over support, got %s", d.Rule)
	}

	// Support outranks the no-evidence default
	strong := h.Decide(scenarioB(), model.SemanticReport{})
	none := h.Decide(nil, model.SemanticReport{})
	if strong.Prediction != 1 || none.Prediction != 0 {
		t.Errorf("strong=%d none=%d", strong.Prediction, none.Prediction)
	}
}

func TestHeuristic_AmbiguousSupportLowersConfidence(t *testing.T) {
	h := NewHeuristic(model.DefaultJudgeConfig())
	evidence := []model.EvidenceItem{ev("a", "text", 0.50, 0.40)}

	low := h.Decide(evidence, model.SemanticReport{SupportScore: 0})
	high := h.Decide(evidence, model.SemanticReport{SupportScore: 1, CausalConsistency: 1})
	if low.Prediction != 0 || high.Prediction != 0 {
		t.Fatal("ambiguous evidence must predict 0")
	}
	if high.Confidence >= low.Confidence {
		t.Errorf("support should lower confidence: low=%v high=%v", low.Confidence, high.Confidence)
	}
	if high.Confidence < 0.50 {
		t.Errorf("confidence below floor: %v", high.Confidence)
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	h := NewHeuristic(model.DefaultJudgeConfig())
	evidence, report := scenarioA()
	first := h.Decide(evidence, report)
	for i := 0; i < 10; i++ {
		if got := h.Decide(evidence, report); got != first {
			t.Fatalf("decision changed: %+v vs %+v", got, first)
		}
	}
}

func TestRationale(t *testing.T) {
	h := NewHeuristic(model.DefaultJudgeConfig())

	evidence, report := scenarioA()
	r := Rationale(h.Decide(evidence, report), evidence, report)
	if !strings.Contains(r, "poverty") || !strings.Contains(r, "slums") {
		t.Errorf("contradiction rationale should quote the evidence: %s", r)
	}

	support := scenarioB()
	r = Rationale(h.Decide(support, model.SemanticReport{}), support, model.SemanticReport{})
	if !strings.Contains(r, "sail") {
		t.Errorf("support rationale should quote a passage: %s", r)
	}
	if n := strings.Count(r, ". "); n < 1 || n > 3 {
		t.Errorf("expected 2-4 sentences, got %q", r)
	}

	r = Rationale(h.Decide(nil, model.SemanticReport{}), nil, model.SemanticReport{})
	if r == "" {
		t.Error("empty rationale for no evidence")
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Response
		wantErr bool
	}{
		{
			name: "plain",
			raw:  "JUDGMENT: 1\nCONFIDENCE: 0.88\nREASONING: She sails in chapter two. Nothing contradicts it.",
			want: Response{Prediction: 1, Confidence: 0.88, Reasoning: "She sails in chapter two. Nothing contradicts it."},
		},
		{
			name: "markdown and multi-line reasoning",
			raw:  "Here is my answer.\n**JUDGMENT:** 0\n**CONFIDENCE:** .9\n**REASONING:** He is poor.\nThe text says so.\n\nExtra notes.",
			want: Response{Prediction: 0, Confidence: 0.9, Reasoning: "He is poor. The text says so."},
		},
		{name: "missing judgment", raw: "CONFIDENCE: 0.5\nREASONING: x", wantErr: true},
		{name: "bad judgment", raw: "JUDGMENT: 2\nCONFIDENCE: 0.5\nREASONING: x", wantErr: true},
		{name: "confidence out of range", raw: "JUDGMENT: 1\nCONFIDENCE: 85\nREASONING: x", wantErr: true},
		{name: "missing reasoning", raw: "JUDGMENT: 1\nCONFIDENCE: 0.5", wantErr: true},
		{name: "prose only", raw: "The backstory is inconsistent.", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedResponse) {
					t.Fatalf("expected ErrMalformedResponse, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseResponse: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	evidence, report := scenarioA()
	p := BuildPrompt("He was born into immense wealth", evidence, &report, 1)

	for _, want := range []string{
		"He was born into immense wealth",
		"[Evidence 1] (Relevance: 0.72",
		"1 more passages omitted",
		"strong contradiction (antonym)",
		"JUDGMENT: 0 or 1",
		"DECISION THRESHOLDS",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if strings.Contains(p, "[Evidence 2]") {
		t.Error("evidence cap not applied")
	}

	if p := BuildPrompt("x", nil, nil, 10); strings.Contains(p, "SEMANTIC ANALYSIS") || !strings.Contains(p, "no passages") {
		t.Error("prompt without report or evidence is wrong")
	}
}

func newJudge(p llm.Provider, mode string) *Judge {
	cfg := model.DefaultJudgeConfig()
	cfg.Mode = mode
	return New(Options{Config: cfg, Provider: p})
}

func TestJudge_LLMSuccess(t *testing.T) {
	m := llm.NewMockProvider(llm.MockReply{Text: "JUDGMENT: 1\nCONFIDENCE: 0.91\nREASONING: The passages show her sailing."})
	j := newJudge(m, ModeAuto)

	got := j.Decide(context.Background(), "s1", "She learned to sail", scenarioB(), model.SemanticReport{})
	if got.Method != model.MethodLLM || got.Prediction != 1 || got.Confidence != 0.91 {
		t.Fatalf("unexpected judgment %+v", got)
	}
	if got.StoryID != "s1" || got.Rationale != "The passages show her sailing." {
		t.Errorf("unexpected fields %+v", got)
	}
	if !strings.Contains(m.LastPrompt(), "She learned to sail") {
		t.Error("prompt did not include the backstory")
	}
}

func TestJudge_Fallback(t *testing.T) {
	timeout := &llm.ServiceError{Provider: "mock", Kind: llm.ErrTimeout}
	auth := &llm.ServiceError{Provider: "mock", Kind: llm.ErrAuth}
	ok := "JUDGMENT: 1\nCONFIDENCE: 0.9\nREASONING: Fine."

	tests := []struct {
		name      string
		replies   []llm.MockReply
		calls     int
		method    model.JudgeMethod
		heuristic bool
	}{
		{"malformed reply is not retried", []llm.MockReply{{Text: "I think it is consistent."}}, 1, model.MethodHeuristic, true},
		{"retryable error retried once", []llm.MockReply{{Err: timeout}}, 2, model.MethodHeuristic, true},
		{"auth error not retried", []llm.MockReply{{Err: auth}}, 1, model.MethodHeuristic, true},
		{"retry succeeds", []llm.MockReply{{Err: timeout}, {Text: ok}}, 2, model.MethodLLM, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := llm.NewMockProvider(tt.replies...)
			evidence, report := scenarioA()
			got := newJudge(m, ModeAuto).Decide(context.Background(), "s", "He was born into immense wealth", evidence, report)

			if m.Calls() != tt.calls {
				t.Errorf("calls = %d, want %d", m.Calls(), tt.calls)
			}
			if got.Method != tt.method {
				t.Fatalf("method = %s, want %s", got.Method, tt.method)
			}
			if tt.heuristic {
				// The fallback must match a heuristic-only judge exactly
				want := newJudge(nil, ModeHeuristic).Decide(context.Background(), "s", "He was born into immense wealth", evidence, report)
				if got != want {
					t.Errorf("fallback %+v differs from heuristic %+v", got, want)
				}
			}
		})
	}
}

func TestJudge_Modes(t *testing.T) {
	ok := llm.MockReply{Text: "JUDGMENT: 0\nCONFIDENCE: 0.6\nREASONING: Nothing found."}

	m := llm.NewMockProvider(ok)
	got := newJudge(m, ModeHeuristic).Decide(context.Background(), "s", "b", scenarioB(), model.SemanticReport{})
	if m.Calls() != 0 || got.Method != model.MethodHeuristic {
		t.Errorf("heuristic mode called the provider: %d", m.Calls())
	}

	m = llm.NewMockProvider(ok)
	got = newJudge(m, ModeAuto).Decide(context.Background(), "s", "b", nil, model.SemanticReport{})
	if m.Calls() != 0 || got.Rule != string(RuleNoEvidence) {
		t.Errorf("auto mode should skip the LLM without evidence: calls=%d rule=%s", m.Calls(), got.Rule)
	}

	m = llm.NewMockProvider(ok)
	got = newJudge(m, ModeLLM).Decide(context.Background(), "s", "b", nil, model.SemanticReport{})
	if m.Calls() != 1 || got.Method != model.MethodLLM {
		t.Errorf("llm mode should call even without evidence: calls=%d method=%s", m.Calls(), got.Method)
	}
}

func TestJudge_CancelledContextFallsBack(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := llm.NewMockProvider(llm.MockReply{Text: "JUDGMENT: 1\nCONFIDENCE: 0.9\nREASONING: x"})
	got := newJudge(m, ModeAuto).Decide(ctx, "s", "b", scenarioB(), model.SemanticReport{})
	if got.Method != model.MethodHeuristic {
		t.Errorf("cancelled context should end in the heuristic, got %s", got.Method)
	}
	if m.Calls() != 0 {
		t.Errorf("provider called %d times after cancellation", m.Calls())
	}
}
