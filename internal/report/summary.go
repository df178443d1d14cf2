package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/text"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F780FF"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6272A4")).Width(22)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E9E9F4"))
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#50FA7B")).Bold(true)
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555")).Bold(true)
	noteStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD")).Italic(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6272A4")).
			Padding(0, 1)
	headerCell = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F780FF")).Padding(0, 1)
	cell       = lipgloss.NewStyle().Padding(0, 1)
)

func line(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

func percent(n, total int) string {
	if total == 0 {
		return "0"
	}
	return fmt.Sprintf("%d (%.0f%%)", n, 100*float64(n)/float64(total))
}

func counts(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, " ")
}

// Summary renders run metrics as a boxed block
func Summary(w io.Writer, title string, m Metrics, elapsed time.Duration) error {
	judged := m.Consistent + m.Inconsistent
	lines := []string{
		titleStyle.Render(title),
		"",
		line("Cases", fmt.Sprintf("%d", m.Total)),
		line("Consistent (1)", percent(m.Consistent, judged)),
		line("Inconsistent (0)", percent(m.Inconsistent, judged)),
		line("Avg confidence", fmt.Sprintf("%.3f", m.AvgConfidence)),
		line("Avg conf. 1 / 0", fmt.Sprintf("%.3f / %.3f", m.AvgConsistent, m.AvgInconsist)),
		line("Confidence > 0.80", percent(m.HighConfidence, judged)),
		line("Judge path", counts(m.ByMethod)),
	}
	if len(m.ByRule) > 0 {
		lines = append(lines, line("Heuristic rules", counts(m.ByRule)))
	}
	if m.Failed > 0 {
		lines = append(lines, labelStyle.Render("Failed")+badStyle.Render(fmt.Sprintf("%d", m.Failed)))
	}
	if elapsed > 0 {
		lines = append(lines, line("Elapsed", elapsed.Round(time.Millisecond).String()))
	}
	_, err := fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	return err
}

// RenderComparison prints two runs side by side with their agreement
func RenderComparison(w io.Writer, nameA, nameB string, c Comparison) error {
	rows := [][]string{
		{"cases", fmt.Sprint(c.A.Total), fmt.Sprint(c.B.Total)},
		{"failed", fmt.Sprint(c.A.Failed), fmt.Sprint(c.B.Failed)},
		{"consistent", fmt.Sprint(c.A.Consistent), fmt.Sprint(c.B.Consistent)},
		{"inconsistent", fmt.Sprint(c.A.Inconsistent), fmt.Sprint(c.B.Inconsistent)},
		{"consistent rate", fmt.Sprintf("%.1f%%", 100*c.A.ConsistentRate()), fmt.Sprintf("%.1f%%", 100*c.B.ConsistentRate())},
		{"avg confidence", fmt.Sprintf("%.3f", c.A.AvgConfidence), fmt.Sprintf("%.3f", c.B.AvgConfidence)},
		{"confidence > 0.80", fmt.Sprint(c.A.HighConfidence), fmt.Sprint(c.B.HighConfidence)},
		{"llm judgments", fmt.Sprint(c.A.ByMethod[string(model.MethodLLM)]), fmt.Sprint(c.B.ByMethod[string(model.MethodLLM)])},
		{"heuristic judgments", fmt.Sprint(c.A.ByMethod[string(model.MethodHeuristic)]), fmt.Sprint(c.B.ByMethod[string(model.MethodHeuristic)])},
	}
	if err := Table(w, []string{"metric", nameA, nameB}, rows); err != nil {
		return err
	}

	agreement := fmt.Sprintf("Agreement on %d shared stories: %d (%.1f%%)", c.Shared, c.Agreements, 100*c.AgreementRate)
	if _, err := fmt.Fprintln(w, noteStyle.Render(agreement)); err != nil {
		return err
	}
	for _, ch := range c.Changes {
		if _, err := fmt.Fprintf(w, "  %s: %d (%.2f) -> %d (%.2f)\n",
			ch.StoryID, ch.PredictionA, ch.ConfidenceA, ch.PredictionB, ch.ConfidenceB); err != nil {
			return err
		}
	}
	return nil
}

// Table renders rows under headers with aligned columns
func Table(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, r := range rows {
		for i := range min(len(r), len(widths)) {
			widths[i] = max(widths[i], lipgloss.Width(r[i]))
		}
	}

	render := func(style lipgloss.Style, cells []string) string {
		out := make([]string, len(widths))
		for i := range widths {
			v := ""
			if i < len(cells) {
				v = cells[i]
			}
			out[i] = style.Width(widths[i] + 2).Render(v)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, out...)
	}

	if _, err := fmt.Fprintln(w, render(headerCell, headers)); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := fmt.Fprintln(w, render(cell, r)); err != nil {
			return err
		}
	}
	return nil
}

// RenderEvaluation prints one evaluation: the judgment, then claims,
// evidence and semantic signals when verbose.
func RenderEvaluation(w io.Writer, ev *model.Evaluation, verbose bool) error {
	j := ev.Judgment
	verdict := goodStyle.Render("CONSISTENT (1)")
	if j.Prediction == 0 {
		verdict = badStyle.Render("INCONSISTENT (0)")
	}
	path := string(j.Method)
	if j.Rule != "" {
		path += " / " + j.Rule
	}

	lines := []string{
		titleStyle.Render("Story " + j.StoryID + " vs " + ev.DocumentID),
		"",
		labelStyle.Render("Prediction") + verdict,
		line("Confidence", fmt.Sprintf("%.2f", j.Confidence)),
		line("Judge path", path),
		line("Evidence items", fmt.Sprint(len(ev.Evidence))),
		"",
		lipgloss.NewStyle().Width(90).Render(j.Rationale),
	}
	if _, err := fmt.Fprintln(w, boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))); err != nil {
		return err
	}
	if !verbose {
		return nil
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Claims") + "\n")
	for i, c := range ev.Claims {
		fmt.Fprintf(&b, "  %d. [%s/%s] %s\n", i+1, c.Type, c.Importance, c.Text)
	}
	b.WriteString("\n" + titleStyle.Render("Evidence") + "\n")
	for i, e := range ev.Evidence {
		fmt.Fprintf(&b, "  %d. %s  sim=%.3f quality=%.3f position=%s\n     %s\n",
			i+1, e.Chunk.ChunkID, e.Similarity, e.QualityScore, e.Position, text.Snippet(e.Text(), 200))
	}
	r := ev.Report
	b.WriteString("\n" + titleStyle.Render("Semantic analysis") + "\n")
	fmt.Fprintf(&b, "  support=%.2f causal=%.2f supported_claims=%d/%d\n",
		r.SupportScore, r.CausalConsistency, r.ClaimsSupported, len(r.Claims))
	for _, c := range r.Contradictions {
		fmt.Fprintf(&b, "  %s %s: %q vs %q (%s, sim=%.2f)\n",
			c.Strength, c.Kind, c.ClaimTerm, c.EvidenceTerm, c.EvidenceChunk, c.Similarity)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
