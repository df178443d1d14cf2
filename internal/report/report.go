// Package report writes batch results: the results CSV, JSON details and
// terminal summaries.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/text"
)

// Row is one line of the results CSV
type Row struct {
	StoryID    string
	Prediction int
	Rationale  string
	Confidence float64
}

// RowFor converts an outcome into a results row. A failed case is written
// as prediction 0 with the error as its rationale, so every input story
// appears in the output.
func RowFor(o model.Outcome) Row {
	if o.Failed() {
		msg := o.Error
		if msg == "" && o.Err != nil {
			msg = o.Err.Error()
		}
		return Row{
			StoryID:   o.Case.StoryID,
			Rationale: "Evaluation failed: " + strings.TrimSuffix(text.CollapseSpace(msg), ".") + ".",
		}
	}
	j := o.Evaluation.Judgment
	return Row{
		StoryID:    o.Case.StoryID,
		Prediction: j.Prediction,
		Rationale:  text.CollapseSpace(j.Rationale),
		Confidence: j.Confidence,
	}
}

// WriteCSV writes story_id,prediction,rationale[,confidence]
func WriteCSV(w io.Writer, outcomes []model.Outcome, includeConfidence bool) error {
	cw := csv.NewWriter(w)

	header := []string{"story_id", "prediction", "rationale"}
	if includeConfidence {
		header = append(header, "confidence")
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, o := range outcomes {
		r := RowFor(o)
		rec := []string{r.StoryID, strconv.Itoa(r.Prediction), r.Rationale}
		if includeConfidence {
			rec = append(rec, strconv.FormatFloat(r.Confidence, 'f', 3, 64))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the results CSV atomically to path
func WriteCSVFile(path string, outcomes []model.Outcome, includeConfidence bool) error {
	return writeAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, outcomes, includeConfidence)
	})
}

// Details is the JSON companion of the results CSV
type Details struct {
	RunID       string          `json:"run_id,omitempty"`
	Name        string          `json:"name,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
	Config      *model.Config   `json:"config,omitempty"`
	Metrics     Metrics         `json:"metrics"`
	Outcomes    []model.Outcome `json:"outcomes"`
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteJSONFile writes v as indented JSON atomically to path
func WriteJSONFile(path string, v any) error {
	return writeAtomic(path, func(w io.Writer) error {
		return WriteJSON(w, v)
	})
}

// writeAtomic writes through a temp file in the same directory and renames
// it into place, so a crash never leaves a truncated results file.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
