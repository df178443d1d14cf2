package judge

import (
	"context"
	"log/slog"
	"time"

	"github.com/ppiankov/backcheck/internal/llm"
	"github.com/ppiankov/backcheck/internal/model"
)

// Judge modes
const (
	ModeAuto      = "auto"      // LLM when configured and evidence exists
	ModeLLM       = "llm"       // LLM when configured, even without evidence
	ModeHeuristic = "heuristic" // never call the LLM
)

type state int

const (
	stateAttemptLLM state = iota
	stateAttemptHeuristic
	stateDone
)

// Options configures a Judge
type Options struct {
	Config      model.JudgeConfig
	Provider    llm.Provider  // nil disables the LLM path
	CallTimeout time.Duration // deadline per completion attempt
	Logger      *slog.Logger
}

// Judge runs the two-path state machine
//
//	AttemptLLM --ok--> Done
//	AttemptLLM --fail--> AttemptHeuristic --> Done
//
// Every call to Decide ends in exactly one Judgment.
type Judge struct {
	cfg       model.JudgeConfig
	provider  llm.Provider
	heuristic *Heuristic
	timeout   time.Duration
	logger    *slog.Logger
}

// New creates a judge
func New(opts Options) *Judge {
	if opts.Config.Mode == "" {
		opts.Config.Mode = ModeAuto
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Judge{
		cfg:       opts.Config,
		provider:  opts.Provider,
		heuristic: NewHeuristic(opts.Config),
		timeout:   opts.CallTimeout,
		logger:    logger,
	}
}

// UsesLLM reports whether the LLM path is enabled
func (j *Judge) UsesLLM() bool {
	return j.provider != nil && j.cfg.Mode != ModeHeuristic
}

// Decide produces the judgment for one backstory
func (j *Judge) Decide(ctx context.Context, storyID, backstory string, evidence []model.EvidenceItem, report model.SemanticReport) model.Judgment {
	var out model.Judgment

	st := stateAttemptHeuristic
	if j.UsesLLM() && (len(evidence) > 0 || j.cfg.Mode == ModeLLM) {
		st = stateAttemptLLM
	}

	for st != stateDone {
		switch st {
		case stateAttemptLLM:
			resp, err := j.attemptLLM(ctx, backstory, evidence, &report)
			if err != nil {
				j.logger.Warn("LLM judgment failed, using heuristic",
					"story_id", storyID, "provider", j.provider.Name(), "error", err)
				st = stateAttemptHeuristic
				continue
			}
			out = model.Judgment{
				Prediction: resp.Prediction,
				Confidence: clamp(resp.Confidence, 0, 1),
				Rationale:  resp.Reasoning,
				Method:     model.MethodLLM,
			}
			st = stateDone

		case stateAttemptHeuristic:
			d := j.heuristic.Decide(evidence, report)
			out = model.Judgment{
				Prediction: d.Prediction,
				Confidence: clamp(d.Confidence, 0, 1),
				Rationale:  Rationale(d, evidence, report),
				Method:     model.MethodHeuristic,
				Rule:       string(d.Rule),
			}
			st = stateDone
		}
	}

	out.StoryID = storyID
	j.logger.Debug("judgment",
		"story_id", storyID,
		"prediction", out.Prediction,
		"confidence", out.Confidence,
		"method", out.Method,
		"rule", out.Rule)
	return out
}

// attemptLLM calls the provider at most 1+MaxRetries times (MaxRetries is
// capped at 1), retrying only retryable service errors. A malformed reply is
// not retried.
func (j *Judge) attemptLLM(ctx context.Context, backstory string, evidence []model.EvidenceItem, report *model.SemanticReport) (Response, error) {
	req := llm.CompletionRequest{
		System: SystemPrompt,
		Prompt: BuildPrompt(backstory, evidence, report, j.cfg.MaxEvidenceInPrompt),
	}
	attempts := 1 + min(max(j.cfg.MaxRetries, 0), 1)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		callCtx, cancel := context.WithTimeout(ctx, j.timeout)
		resp, err := j.provider.Complete(callCtx, req)
		cancel()
		if err == nil {
			return ParseResponse(resp.Text)
		}
		lastErr = err
		if !llm.IsRetryable(err) {
			break
		}
		j.logger.Debug("retrying completion", "attempt", i+1, "error", err)
	}
	return Response{}, lastErr
}
