package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ppiankov/backcheck/internal/model"
)

// Evaluator judges one case against an indexed document
type Evaluator interface {
	EvaluateDetailed(ctx context.Context, storyID, documentID, backstory, character string) (*model.Evaluation, error)
}

// EvalJob evaluates a single case
type EvalJob struct {
	Index     int
	Case      model.Case
	Evaluator Evaluator
}

// Execute runs the case; a panic inside the evaluator fails only this case
func (j *EvalJob) Execute(ctx context.Context) (res Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("evaluate %s: panic: %v", j.Case.StoryID, r)
			res = &EvalResult{Index: j.Index, Outcome: failed(j.Case, err, time.Since(start))}
		}
	}()

	c := j.Case
	ev, err := j.Evaluator.EvaluateDetailed(ctx, c.StoryID, c.DocumentID, c.Backstory, c.Character)
	if err != nil {
		return &EvalResult{Index: j.Index, Outcome: failed(c, err, time.Since(start))}
	}
	return &EvalResult{
		Index:   j.Index,
		Outcome: model.Outcome{Case: c, Evaluation: ev, Duration: time.Since(start)},
	}
}

func failed(c model.Case, err error, d time.Duration) model.Outcome {
	return model.Outcome{Case: c, Err: err, Error: err.Error(), Duration: d}
}

// EvalResult carries an outcome and the case's position in the input
type EvalResult struct {
	Index   int
	Outcome model.Outcome
}

// GetError returns the case error, if any
func (r *EvalResult) GetError() error {
	return r.Outcome.Err
}

// BatchOptions configures a BatchProcessor
type BatchOptions struct {
	Workers         int
	CheckpointEvery int                         // 0 disables checkpoints
	OnCheckpoint    func([]model.Outcome) error // completed outcomes so far, in input order
	OnOutcome       func(done, total int, o model.Outcome)
	Logger          *slog.Logger
}

// BatchResult summarizes a batch run
type BatchResult struct {
	Outcomes  []model.Outcome // completed cases, in input order
	Succeeded int
	Failed    int
	Skipped   int // cases never started because the run was cancelled
	Cancelled bool
	Duration  time.Duration
}

// BatchProcessor evaluates many independent cases concurrently
type BatchProcessor struct {
	evaluator Evaluator
	opts      BatchOptions
	logger    *slog.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(evaluator Evaluator, opts BatchOptions) *BatchProcessor {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor{evaluator: evaluator, opts: opts, logger: logger}
}

// Process evaluates cases until done or ctx is cancelled. Cancellation is
// observed between cases; cases already running finish and are reported.
// A failed case never aborts the batch.
func (b *BatchProcessor) Process(ctx context.Context, cases []model.Case) *BatchResult {
	start := time.Now()
	res := &BatchResult{}
	if len(cases) == 0 {
		res.Outcomes = []model.Outcome{}
		return res
	}

	pool := NewPool(ctx, b.opts.Workers)
	pool.Start()

	jobs := make([]Job, len(cases))
	for i, c := range cases {
		jobs[i] = &EvalJob{Index: i, Case: c, Evaluator: b.evaluator}
	}
	pool.Feed(jobs)

	done := make([]*model.Outcome, len(cases))
	completed := 0
	for r := range pool.Results() {
		er := r.(*EvalResult)
		o := er.Outcome
		done[er.Index] = &o
		completed++

		if o.Failed() {
			res.Failed++
			b.logger.Warn("case failed", "story_id", o.Case.StoryID, "document", o.Case.DocumentID, "error", o.Err)
		} else {
			res.Succeeded++
		}
		if b.opts.OnOutcome != nil {
			b.opts.OnOutcome(completed, len(cases), o)
		}
		if b.opts.CheckpointEvery > 0 && b.opts.OnCheckpoint != nil && completed%b.opts.CheckpointEvery == 0 {
			if err := b.opts.OnCheckpoint(collect(done)); err != nil {
				b.logger.Warn("checkpoint failed", "completed", completed, "error", err)
			}
		}
	}

	res.Outcomes = collect(done)
	res.Skipped = pool.Skipped()
	res.Cancelled = ctx.Err() != nil && res.Skipped > 0
	res.Duration = time.Since(start)

	b.logger.Info("batch finished",
		"cases", len(cases),
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"skipped", res.Skipped,
		"duration", res.Duration.Round(time.Millisecond))
	return res
}

func collect(done []*model.Outcome) []model.Outcome {
	out := make([]model.Outcome, 0, len(done))
	for _, o := range done {
		if o != nil {
			out = append(out, *o)
		}
	}
	return out
}
