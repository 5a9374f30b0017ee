package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"dkb/internal/config"
	"dkb/internal/eval"
)

var (
	generateLimit       int
	generateMaxCommits  int
	generateMinCoChange int
	generateOutput      string
)

var querysetCmd = &cobra.Command{
	Use:   "queryset",
	Short: "Manage evaluation query sets",
}

var querysetGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a labeled query set from git history",
	Long: `Mine git history for labeled queries: files that repeatedly change
together become temporal queries, and commit subjects become semantic
queries labeled with the files their commit touched.

Examples:
  dkb queryset generate --limit 50
  dkb queryset generate --min-co-change 5 --output .dkb/querysets/strict.json`,
	RunE: runQuerysetGenerate,
}

func init() {
	querysetGenerateCmd.Flags().IntVar(&generateLimit, "limit", 50, "Maximum records to emit")
	querysetGenerateCmd.Flags().IntVar(&generateMaxCommits, "max-commits", 500, "How many commits to mine")
	querysetGenerateCmd.Flags().IntVar(&generateMinCoChange, "min-co-change", 3,
		"Minimum co-change count for a temporal record")
	querysetGenerateCmd.Flags().StringVar(&generateOutput, "output", "", "Output path (default from config)")
	querysetCmd.AddCommand(querysetGenerateCmd)
	rootCmd.AddCommand(querysetCmd)
}

func runQuerysetGenerate(cmd *cobra.Command, args []string) error {
	logger := newLogger("human")
	repoRoot := mustGetRepoRoot()

	opts := eval.DefaultGenerateOptions(repoRoot)
	opts.Limit = generateLimit
	opts.MaxCommits = generateMaxCommits
	opts.MinCoChange = generateMinCoChange

	qs, err := eval.GenerateQuerySet(opts, logger)
	if err != nil {
		return err
	}

	output := generateOutput
	if output == "" {
		cfg, err := config.LoadConfig(repoRoot)
		if err != nil {
			cfg = config.DefaultConfig()
		}
		output = cfg.Eval.QuerySetPath
	}

	if err := qs.Save(output); err != nil {
		return err
	}

	fmt.Printf("Wrote %d queries to %s\n", len(qs.Queries), output)
	return nil
}
