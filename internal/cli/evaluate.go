package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/backcheck/internal/dataset"
	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/pipeline"
	"github.com/ppiankov/backcheck/internal/report"
	"github.com/ppiankov/backcheck/internal/store"
	"github.com/ppiankov/backcheck/internal/worker"
)

var (
	dataDir   string
	novelsDir string
	testFile  string
	outputDir string
	runName   string
	noStore   bool
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Judge every backstory of a test file against its novel",
	Long: `Evaluate indexes every novel referenced by the test file once, then judges
each backstory in parallel and writes:

  results.csv           story_id,prediction,rationale[,confidence]
  results_partial.csv   checkpoint rewritten every --checkpoint-every cases
  results_details.json  judgments with metrics and the effective config

The run is also recorded in the run history (see 'backcheck runs').
Ctrl-C stops between cases; finished cases are still written.

Example:
  backcheck evaluate --data-dir ./data
  backcheck evaluate --data-dir ./data --llm-provider openai --llm-model gpt-4o-mini
  backcheck evaluate --test-file test.csv --novels-dir books --workers 8 --include-confidence`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	d := model.DefaultConfig()
	f := evaluateCmd.Flags()
	f.StringVar(&dataDir, "data-dir", "./data", "directory containing novels/ and test.csv")
	f.StringVar(&novelsDir, "novels-dir", "", "directory of novel .txt files (default: <data-dir>/novels)")
	f.StringVar(&testFile, "test-file", "", "test CSV (default: <data-dir>/test.csv)")
	f.StringVarP(&outputDir, "output", "o", "./results", "output directory")
	f.StringVar(&runName, "run-name", "", "name recorded in the run history")
	f.BoolVar(&noStore, "no-store", false, "do not record the run in the run history")
	f.Int("workers", d.Batch.Workers, "cases evaluated concurrently")
	f.Int("checkpoint-every", d.Batch.CheckpointEvery, "rewrite results_partial.csv every N completed cases (0 disables)")
	f.Bool("include-confidence", d.Batch.IncludeConfidence, "add a confidence column to results.csv")
	addEngineFlags(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := engineConfig(cmd, map[string]string{
		"workers":            "batch.workers",
		"checkpoint-every":   "batch.checkpoint_every",
		"include-confidence": "batch.include_confidence",
	})
	if err != nil {
		return err
	}
	if novelsDir == "" {
		novelsDir = filepath.Join(dataDir, "novels")
	}
	if testFile == "" {
		testFile = filepath.Join(dataDir, "test.csv")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cases, err := dataset.LoadCases(testFile)
	if err != nil {
		return err
	}
	novels, err := dataset.LoadNovels(novelsDir)
	if err != nil {
		return err
	}
	used, missing := dataset.Referenced(novels, cases)

	banner("backcheck evaluation")
	fmt.Fprintf(os.Stderr, "  Test file:    %s (%d cases)\n", testFile, len(cases))
	fmt.Fprintf(os.Stderr, "  Novels:       %s (%d referenced)\n", novelsDir, len(used))
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Batch.Workers)
	fmt.Fprintf(os.Stderr, "  Embeddings:   %s\n", cfg.Embedding.Provider)
	if cfg.LLM.Provider != "" {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s (judge mode %s)\n", cfg.LLM.Provider, cfg.LLM.Model, cfg.Judge.Mode)
	} else {
		fmt.Fprintf(os.Stderr, "  LLM:          none (heuristic judge)\n")
	}
	fmt.Fprintln(os.Stderr)
	if len(missing) > 0 {
		logger.Warn("novels referenced by the test file were not found; their cases will fail",
			"missing", strings.Join(missing, ","))
	}

	engine, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Indexing %d novels...\n", len(used))
	for _, n := range used {
		doc, err := n.Load()
		if err != nil {
			logger.Warn("skipping novel", "novel", n.ID, "error", err)
			continue
		}
		stats, err := engine.BuildIndex(ctx, n.ID, doc)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("interrupted while indexing: %w", ctx.Err())
			}
			logger.Warn("indexing failed; cases for this novel will fail", "novel", n.ID, "error", err)
			continue
		}
		fmt.Fprintf(os.Stderr, "✓ %s: %d chunks, %d words (%s)\n",
			n.ID, stats.Chunks, stats.Words, stats.Duration.Round(time.Millisecond))
	}
	fmt.Fprintln(os.Stderr)

	runs, run := openRunHistory(ctx, cfg)
	if runs != nil {
		defer func() { _ = runs.Close() }()
	}
	saveCtx := context.WithoutCancel(ctx)

	partialPath := filepath.Join(outputDir, "results_partial.csv")
	processor := worker.NewBatchProcessor(engine, worker.BatchOptions{
		Workers:         cfg.Batch.Workers,
		CheckpointEvery: cfg.Batch.CheckpointEvery,
		OnCheckpoint: func(done []model.Outcome) error {
			if runs != nil {
				if err := runs.SaveOutcomes(saveCtx, run.ID, done); err != nil {
					logger.Warn("run history checkpoint failed", "error", err)
				}
			}
			return report.WriteCSVFile(partialPath, done, cfg.Batch.IncludeConfidence)
		},
		OnOutcome: printOutcome,
		Logger:    logger,
	})

	fmt.Fprintf(os.Stderr, "⚙️  Evaluating %d cases with %d workers...\n\n", len(cases), cfg.Batch.Workers)
	res := processor.Process(ctx, cases)

	resultsPath := filepath.Join(outputDir, "results.csv")
	if err := report.WriteCSVFile(resultsPath, res.Outcomes, cfg.Batch.IncludeConfidence); err != nil {
		return err
	}
	metrics := report.ComputeMetrics(res.Outcomes)
	redacted := cfg.Redacted()
	details := report.Details{
		RunID:       run.ID,
		Name:        run.Name,
		GeneratedAt: time.Now().UTC(),
		Config:      &redacted,
		Metrics:     metrics,
		Outcomes:    res.Outcomes,
	}
	if err := report.WriteJSONFile(filepath.Join(outputDir, "results_details.json"), details); err != nil {
		return err
	}
	if res.Skipped == 0 {
		_ = os.Remove(partialPath)
	}

	if runs != nil {
		status := store.StatusCompleted
		if res.Cancelled {
			status = store.StatusCancelled
		}
		if err := runs.SaveOutcomes(saveCtx, run.ID, res.Outcomes); err != nil {
			logger.Warn("saving run history failed", "error", err)
		} else if err := runs.FinishRun(saveCtx, run.ID, status); err != nil {
			logger.Warn("finishing run failed", "error", err)
		}
	}

	fmt.Fprintln(os.Stderr)
	title := "Evaluation complete"
	if res.Cancelled {
		title = fmt.Sprintf("Evaluation interrupted (%d cases skipped)", res.Skipped)
	}
	if err := report.Summary(cmd.OutOrStdout(), title, metrics, res.Duration); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "\nResults saved to: %s\n", resultsPath)
	if run.ID != "" {
		fmt.Fprintf(os.Stderr, "Run recorded as %s (%s)\n", run.Name, run.ID)
	}

	if res.Cancelled {
		return errors.New("evaluation interrupted")
	}
	return nil
}

// openRunHistory opens the store and records a new run. Failures only
// disable the history; they never stop an evaluation.
func openRunHistory(ctx context.Context, cfg model.Config) (*store.Store, store.Run) {
	if noStore || !cfg.Store.Enabled {
		return nil, store.Run{}
	}
	s, err := store.Open(cfg.Store.Path)
	if err != nil {
		logger.Warn("run history disabled", "error", err)
		return nil, store.Run{}
	}
	redacted := cfg.Redacted()
	run, err := s.CreateRun(ctx, runName, &redacted)
	if err != nil {
		logger.Warn("run history disabled", "error", err)
		_ = s.Close()
		return nil, store.Run{}
	}
	return s, run
}

func printOutcome(done, total int, o model.Outcome) {
	if o.Failed() {
		fmt.Fprintf(os.Stderr, "✗ [%d/%d] %s: %s\n", done, total, o.Case.StoryID, o.Error)
		return
	}
	j := o.Evaluation.Judgment
	path := string(j.Method)
	if j.Rule != "" {
		path += "/" + j.Rule
	}
	fmt.Fprintf(os.Stderr, "✓ [%d/%d] %s: %d (%.2f, %s)\n", done, total, o.Case.StoryID, j.Prediction, j.Confidence, path)
}

func banner(title string) {
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  %s\n", title)
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
}
