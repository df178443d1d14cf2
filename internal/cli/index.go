package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/backcheck/internal/dataset"
	"github.com/ppiankov/backcheck/internal/pipeline"
	"github.com/ppiankov/backcheck/internal/report"
)

var (
	indexWindows []string
	indexJSON    bool
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index <novel.txt>...",
	Short: "Build indexes for novels and print chunk statistics",
	Long: `Index chunks and embeds each novel the way evaluate does, then prints the
chunk count, word count and timing. Nothing is written.

--window size:overlap may be repeated to compare chunking settings.

Example:
  backcheck index data/novels/*.txt
  backcheck index monte_cristo.txt --window 1000:200 --window 500:100`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringArrayVar(&indexWindows, "window", nil, "chunk window as size:overlap in words (repeatable)")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "print statistics as JSON")
	addEngineFlags(indexCmd)
}

type window struct {
	size, overlap int
}

func parseWindow(s string) (window, error) {
	size, overlap, ok := strings.Cut(s, ":")
	if !ok {
		return window{}, fmt.Errorf("invalid window %q (want size:overlap)", s)
	}
	w := window{}
	var err error
	if w.size, err = strconv.Atoi(strings.TrimSpace(size)); err != nil {
		return window{}, fmt.Errorf("invalid window size %q", size)
	}
	if w.overlap, err = strconv.Atoi(strings.TrimSpace(overlap)); err != nil {
		return window{}, fmt.Errorf("invalid window overlap %q", overlap)
	}
	return w, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := engineConfig(cmd, nil)
	if err != nil {
		return err
	}

	var windows []window
	for _, s := range indexWindows {
		w, err := parseWindow(s)
		if err != nil {
			return err
		}
		windows = append(windows, w)
	}

	engine, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var all []pipeline.IndexStats
	rows := [][]string{}
	for _, path := range args {
		n := dataset.Novel{ID: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), Path: path}
		doc, err := n.Load()
		if err != nil {
			return err
		}

		if len(windows) == 0 {
			stats, err := engine.BuildIndex(ctx, n.ID, doc)
			if err != nil {
				return err
			}
			all = append(all, stats)
			rows = append(rows, statsRow(stats, fmt.Sprintf("%d:%d", cfg.Chunking.SizeWords, cfg.Chunking.OverlapWords)))
			continue
		}
		for _, w := range windows {
			stats, err := engine.BuildIndexWith(ctx, n.ID, doc, w.size, w.overlap)
			if err != nil {
				return fmt.Errorf("window %d:%d: %w", w.size, w.overlap, err)
			}
			all = append(all, stats)
			rows = append(rows, statsRow(stats, fmt.Sprintf("%d:%d", w.size, w.overlap)))
		}
	}

	if indexJSON {
		return report.WriteJSON(cmd.OutOrStdout(), all)
	}
	return report.Table(cmd.OutOrStdout(),
		[]string{"novel", "window", "chunks", "words", "dimension", "duration"}, rows)
}

func statsRow(s pipeline.IndexStats, window string) []string {
	return []string{
		s.DocumentID,
		window,
		strconv.Itoa(s.Chunks),
		strconv.Itoa(s.Words),
		strconv.Itoa(s.Dimension),
		s.Duration.Round(time.Millisecond).String(),
	}
}
