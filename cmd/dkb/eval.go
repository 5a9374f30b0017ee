package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dkb/internal/config"
	"dkb/internal/eval"
)

var (
	evalQuerySet string
	evalFormat   string
	evalMax      int
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate retrieval quality against a labeled query set",
	Long: `Run a labeled query set through the engine under the unified
configuration and one single-source ablation per source, and report
precision@5 and precision@10 against a random-ranking baseline.

Examples:
  dkb eval
  dkb eval --queryset .dkb/querysets/default.json
  dkb eval --format json > report.json`,
	RunE: runEval,
}

func init() {
	evalCmd.Flags().StringVar(&evalQuerySet, "queryset", "", "Query set file (JSON or YAML)")
	evalCmd.Flags().StringVar(&evalFormat, "format", "human", "Output format (json, human)")
	evalCmd.Flags().IntVar(&evalMax, "max-queries", 0, "Cap the number of queries evaluated (0 = all)")
	rootCmd.AddCommand(evalCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	logger := newLogger(evalFormat)
	repoRoot := mustGetRepoRoot()

	cfg, err := config.LoadConfig(repoRoot)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	path := evalQuerySet
	if path == "" {
		path = cfg.Eval.QuerySetPath
	}
	qs, err := eval.LoadQuerySet(path)
	if err != nil {
		printFixes(err)
		return err
	}

	maxQueries := evalMax
	if maxQueries == 0 {
		maxQueries = cfg.Eval.MaxQueries
	}
	if maxQueries > 0 && len(qs.Queries) > maxQueries {
		qs.Queries = qs.Queries[:maxQueries]
	}

	engine := mustGetEngine(repoRoot, logger)
	db := mustGetDB(repoRoot, logger)
	poolSize, err := db.CountDocuments()
	if err != nil {
		return fmt.Errorf("failed to size candidate pool: %w", err)
	}

	report, err := eval.NewHarness(engine, logger).Run(newContext(), qs, poolSize)
	if err != nil {
		return err
	}

	if evalFormat == "json" {
		out, err := eval.MarshalReport(report)
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Fprint(os.Stdout, eval.FormatReport(report))
	return nil
}
