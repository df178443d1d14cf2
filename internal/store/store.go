// Package store keeps the history of batch runs in SQLite so runs can be
// listed and compared later.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	status       TEXT NOT NULL,
	started_at   TEXT NOT NULL,
	finished_at  TEXT,
	config_json  TEXT
);

CREATE TABLE IF NOT EXISTS outcomes (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id       TEXT NOT NULL,
	seq          INTEGER NOT NULL,
	story_id     TEXT NOT NULL,
	document_id  TEXT NOT NULL,
	character    TEXT,
	prediction   INTEGER,
	confidence   REAL,
	method       TEXT,
	rule         TEXT,
	rationale    TEXT,
	error        TEXT,
	duration_ms  INTEGER NOT NULL DEFAULT 0,
	UNIQUE (run_id, story_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_outcomes_run ON outcomes(run_id, seq);
`

// timeLayout has fixed width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run statuses
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

var (
	ErrRunNotFound  = errors.New("run not found")
	ErrAmbiguousRun = errors.New("run reference is ambiguous")
)

// Run is one recorded batch evaluation
type Run struct {
	ID         string    `json:"run_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	Cases      int       `json:"cases"`
	Failed     int       `json:"failed"`
}

// Store manages run history in SQLite
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and runs migrations
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps :memory: databases and pragmas consistent.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON", schema} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records the start of a run. An empty name defaults to the
// start timestamp.
func (s *Store) CreateRun(ctx context.Context, name string, cfg *model.Config) (Run, error) {
	now := time.Now().UTC()
	if strings.TrimSpace(name) == "" {
		name = now.Format("20060102-150405")
	}
	run := Run{
		ID:        uuid.New().String(),
		Name:      name,
		Status:    StatusRunning,
		StartedAt: now,
	}

	var cfgJSON sql.NullString
	if cfg != nil {
		data, err := json.Marshal(cfg)
		if err != nil {
			return Run{}, fmt.Errorf("marshal config: %w", err)
		}
		cfgJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, name, status, started_at, config_json) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Status, now.Format(timeLayout), cfgJSON,
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// SaveOutcome records one case result. Saving the same story twice in a
// run replaces the earlier row.
func (s *Store) SaveOutcome(ctx context.Context, runID string, seq int, o model.Outcome) error {
	return saveOutcome(ctx, s.db, runID, seq, o)
}

// SaveOutcomes records a batch of results in one transaction, numbering
// them in slice order.
func (s *Store) SaveOutcomes(ctx context.Context, runID string, outcomes []model.Outcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, o := range outcomes {
		if err := saveOutcome(ctx, tx, runID, i, o); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func saveOutcome(ctx context.Context, db execer, runID string, seq int, o model.Outcome) error {
	var (
		prediction sql.NullInt64
		confidence sql.NullFloat64
		method     sql.NullString
		rule       sql.NullString
		rationale  sql.NullString
		errText    sql.NullString
	)
	if o.Failed() {
		msg := o.Error
		if msg == "" && o.Err != nil {
			msg = o.Err.Error()
		}
		errText = sql.NullString{String: msg, Valid: true}
	} else {
		j := o.Evaluation.Judgment
		prediction = sql.NullInt64{Int64: int64(j.Prediction), Valid: true}
		confidence = sql.NullFloat64{Float64: j.Confidence, Valid: true}
		method = sql.NullString{String: string(j.Method), Valid: true}
		rule = sql.NullString{String: j.Rule, Valid: j.Rule != ""}
		rationale = sql.NullString{String: j.Rationale, Valid: true}
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, seq, story_id, document_id, character, prediction, confidence, method, rule, rationale, error, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, story_id) DO UPDATE SET
			seq = excluded.seq, document_id = excluded.document_id, character = excluded.character,
			prediction = excluded.prediction, confidence = excluded.confidence, method = excluded.method,
			rule = excluded.rule, rationale = excluded.rationale, error = excluded.error,
			duration_ms = excluded.duration_ms`,
		runID, seq, o.Case.StoryID, o.Case.DocumentID, o.Case.Character,
		prediction, confidence, method, rule, rationale, errText, o.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome %s: %w", o.Case.StoryID, err)
	}
	return nil
}

// FinishRun sets the final status of a run
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE run_id = ?`,
		status, time.Now().UTC().Format(timeLayout), runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

const runColumns = `
	r.run_id, r.name, r.status, r.started_at, r.finished_at,
	(SELECT COUNT(*) FROM outcomes o WHERE o.run_id = r.run_id),
	(SELECT COUNT(*) FROM outcomes o WHERE o.run_id = r.run_id AND o.error IS NOT NULL)`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Status, &started, &finished, &r.Cases, &r.Failed); err != nil {
		return Run{}, err
	}
	var err error
	if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if finished.Valid {
		if r.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
			return Run{}, fmt.Errorf("parse finished_at: %w", err)
		}
	}
	return r, nil
}

// ListRuns returns every run, newest first
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT`+runColumns+` FROM runs r ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun resolves a run by full ID, unique ID prefix, or name. A name shared
// by several runs resolves to the newest of them.
func (s *Store) GetRun(ctx context.Context, ref string) (Run, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Run{}, fmt.Errorf("%w: empty reference", ErrRunNotFound)
	}

	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT`+runColumns+` FROM runs r WHERE r.run_id = ?`, ref))
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("query run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT`+runColumns+` FROM runs r WHERE r.run_id LIKE ? ESCAPE '\'`, escapeLike(ref)+"%")
	if err != nil {
		return Run{}, fmt.Errorf("query run prefix: %w", err)
	}
	var matches []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return Run{}, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, r)
	}
	_ = rows.Close()
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
	default:
		return Run{}, fmt.Errorf("%w: %q matches %d runs", ErrAmbiguousRun, ref, len(matches))
	}

	r, err = scanRun(s.db.QueryRowContext(ctx,
		`SELECT`+runColumns+` FROM runs r WHERE r.name = ? ORDER BY r.started_at DESC LIMIT 1`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}
	if err != nil {
		return Run{}, fmt.Errorf("query run name: %w", err)
	}
	return r, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Outcomes returns a run's results in the order they were saved. Restored
// evaluations carry only the judgment.
func (s *Store) Outcomes(ctx context.Context, runID string) ([]model.Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT story_id, document_id, character, prediction, confidence, method, rule, rationale, error, duration_ms
		 FROM outcomes WHERE run_id = ? ORDER BY seq, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Outcome
	for rows.Next() {
		var (
			o          model.Outcome
			character  sql.NullString
			prediction sql.NullInt64
			confidence sql.NullFloat64
			method     sql.NullString
			rule       sql.NullString
			rationale  sql.NullString
			errText    sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&o.Case.StoryID, &o.Case.DocumentID, &character, &prediction, &confidence,
			&method, &rule, &rationale, &errText, &durationMS); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Case.Character = character.String
		o.Duration = time.Duration(durationMS) * time.Millisecond

		if errText.Valid {
			o.Error = errText.String
			o.Err = errors.New(errText.String)
		} else {
			o.Evaluation = &model.Evaluation{
				DocumentID: o.Case.DocumentID,
				Character:  o.Case.Character,
				Duration:   o.Duration,
				Judgment: model.Judgment{
					StoryID:    o.Case.StoryID,
					Prediction: int(prediction.Int64),
					Confidence: confidence.Float64,
					Rationale:  rationale.String,
					Method:     model.JudgeMethod(method.String),
					Rule:       rule.String,
				},
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Metrics computes the prediction distribution of a run
func (s *Store) Metrics(ctx context.Context, ref string) (Run, report.Metrics, error) {
	run, err := s.GetRun(ctx, ref)
	if err != nil {
		return Run{}, report.Metrics{}, err
	}
	outcomes, err := s.Outcomes(ctx, run.ID)
	if err != nil {
		return Run{}, report.Metrics{}, err
	}
	return run, report.ComputeMetrics(outcomes), nil
}

// Compare contrasts two runs given by ID, ID prefix or name
func (s *Store) Compare(ctx context.Context, refA, refB string) (Run, Run, report.Comparison, error) {
	var (
		runs     [2]Run
		outcomes [2][]model.Outcome
	)
	for i, ref := range []string{refA, refB} {
		r, err := s.GetRun(ctx, ref)
		if err != nil {
			return Run{}, Run{}, report.Comparison{}, err
		}
		o, err := s.Outcomes(ctx, r.ID)
		if err != nil {
			return Run{}, Run{}, report.Comparison{}, err
		}
		runs[i], outcomes[i] = r, o
	}
	return runs[0], runs[1], report.Compare(outcomes[0], outcomes[1]), nil
}
