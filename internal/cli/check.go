package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/backcheck/internal/pipeline"
	"github.com/ppiankov/backcheck/internal/report"
)

var (
	checkNovel         string
	checkBackstory     string
	checkBackstoryFile string
	checkCharacter     string
	checkStoryID       string
	checkJSON          bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Judge a single backstory against one novel",
	Long: `Check indexes one novel and judges one backstory against it, printing the
judgment together with the extracted claims, the retrieved evidence and the
semantic analysis.

Example:
  backcheck check --novel data/novels/monte_cristo.txt --character "Edmond Dantes" \
    --backstory "Edmond grew up in Marseille and trained as a sailor."
  backcheck check --novel castaways.txt --backstory-file story.txt --json`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkNovel, "novel", "", "novel text file (required)")
	checkCmd.Flags().StringVar(&checkBackstory, "backstory", "", "backstory text")
	checkCmd.Flags().StringVar(&checkBackstoryFile, "backstory-file", "", "read the backstory from a file")
	checkCmd.Flags().StringVar(&checkCharacter, "character", "", "character the backstory is about")
	checkCmd.Flags().StringVar(&checkStoryID, "story-id", "check", "story ID used in the judgment")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the full evaluation as JSON")
	_ = checkCmd.MarkFlagRequired("novel")
	addEngineFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := engineConfig(cmd, nil)
	if err != nil {
		return err
	}

	backstory := checkBackstory
	if checkBackstoryFile != "" {
		if backstory != "" {
			return errors.New("use either --backstory or --backstory-file, not both")
		}
		data, err := os.ReadFile(checkBackstoryFile)
		if err != nil {
			return fmt.Errorf("read backstory: %w", err)
		}
		backstory = string(data)
	}

	data, err := os.ReadFile(checkNovel)
	if err != nil {
		return fmt.Errorf("read novel: %w", err)
	}
	docID := strings.TrimSuffix(filepath.Base(checkNovel), filepath.Ext(checkNovel))

	engine, err := pipeline.FromConfig(cfg, logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if _, err := engine.BuildIndex(ctx, docID, string(data)); err != nil {
		return err
	}

	ev, err := engine.EvaluateDetailed(ctx, checkStoryID, docID, backstory, checkCharacter)
	if err != nil {
		return err
	}
	if checkJSON {
		return report.WriteJSON(cmd.OutOrStdout(), ev)
	}
	return report.RenderEvaluation(cmd.OutOrStdout(), ev, true)
}
