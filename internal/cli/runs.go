package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/backcheck/internal/report"
	"github.com/ppiankov/backcheck/internal/store"
)

var runsJSON bool

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded evaluation runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		runs, err := s.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		if runsJSON {
			return report.WriteJSON(cmd.OutOrStdout(), runs)
		}
		if len(runs) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet. Run 'backcheck evaluate' first.")
			return err
		}

		rows := make([][]string, 0, len(runs))
		for _, r := range runs {
			finished := "-"
			if !r.FinishedAt.IsZero() {
				finished = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
			}
			rows = append(rows, []string{
				r.ID[:8], r.Name, r.Status,
				r.StartedAt.Local().Format("2006-01-02 15:04"),
				finished, strconv.Itoa(r.Cases), strconv.Itoa(r.Failed),
			})
		}
		return report.Table(cmd.OutOrStdout(),
			[]string{"id", "name", "status", "started", "took", "cases", "failed"}, rows)
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run>",
	Short: "Show the prediction metrics of one run",
	Long:  `A run is given by its ID, a unique ID prefix, or its name (the newest run with that name).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		run, m, err := s.Metrics(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if runsJSON {
			return report.WriteJSON(cmd.OutOrStdout(), map[string]any{"run": run, "metrics": m})
		}
		var took time.Duration
		if !run.FinishedAt.IsZero() {
			took = run.FinishedAt.Sub(run.StartedAt)
		}
		return report.Summary(cmd.OutOrStdout(), fmt.Sprintf("%s (%s, %s)", run.Name, run.ID[:8], run.Status), m, took)
	},
}

// compareCmd represents the compare command
var compareCmd = &cobra.Command{
	Use:   "compare <runA> <runB>",
	Short: "Compare prediction distributions of two runs",
	Long: `Compare shows prediction counts, confidence and judge paths of two recorded
runs side by side, with their agreement on the stories both judged.

Example:
  backcheck compare heuristic-baseline llm-gpt4o`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer func() { _ = s.Close() }()

		a, b, c, err := s.Compare(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		if runsJSON {
			return report.WriteJSON(cmd.OutOrStdout(), map[string]any{"a": a, "b": b, "comparison": c})
		}
		return report.RenderComparison(cmd.OutOrStdout(), a.Name, b.Name, c)
	},
}

func openStore() (*store.Store, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if !cfg.Store.Enabled {
		return nil, errors.New("run history is disabled (store.enabled: false)")
	}
	return store.Open(cfg.Store.Path)
}

func init() {
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(compareCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsCmd.PersistentFlags().BoolVar(&runsJSON, "json", false, "print JSON")
	compareCmd.Flags().BoolVar(&runsJSON, "json", false, "print JSON")
}
