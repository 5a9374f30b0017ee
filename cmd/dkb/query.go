package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dkb/internal/config"
	"dkb/internal/retrieval"
)

var (
	queryLimit   int
	querySources []string
	queryFormat  string
	queryVerbose bool
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Query the knowledge base",
	Long: `Run a query across all available retrieval sources and fuse their
rankings into a single result list.

Examples:
  dkb query "why does the sync worker retry"
  dkb query "what changes with internal/sync/worker.go" --sources temporal
  dkb query "auth middleware" --limit 5 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "n", 0, "Maximum results (default from config)")
	queryCmd.Flags().StringSliceVar(&querySources, "sources", nil,
		"Restrict to specific sources (semantic, lexical, temporal, belief, persona)")
	queryCmd.Flags().StringVar(&queryFormat, "format", "human", "Output format (json, human)")
	queryCmd.Flags().BoolVarP(&queryVerbose, "verbose", "v", false, "Show per-source contributions")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	start := time.Now()
	logger := newLogger(queryFormat)

	filter, err := parseSourceFilter(querySources)
	if err != nil {
		return err
	}

	repoRoot := mustGetRepoRoot()
	engine := mustGetEngine(repoRoot, logger)

	limit := queryLimit
	if limit <= 0 {
		if cfg, err := config.LoadConfig(repoRoot); err == nil {
			limit = cfg.Retrieval.DefaultLimit
		}
	}

	response, err := engine.Query(newContext(), args[0], retrieval.Options{
		Limit:        limit,
		SourceFilter: filter,
	})
	if err != nil {
		printFixes(err)
		return err
	}

	if queryFormat == "json" {
		out, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	printHumanResults(response, queryVerbose)
	fmt.Printf("\n(Query took %dms)\n", time.Since(start).Milliseconds())
	return nil
}

func parseSourceFilter(names []string) ([]retrieval.SourceName, error) {
	if len(names) == 0 {
		return nil, nil
	}
	filter := make([]retrieval.SourceName, 0, len(names))
	for _, raw := range names {
		name := retrieval.SourceName(strings.ToLower(strings.TrimSpace(raw)))
		if !retrieval.ValidSourceName(name) {
			return nil, fmt.Errorf("unknown source %q (valid: %s)",
				raw, joinSourceNames(retrieval.AllSourceNames()))
		}
		filter = append(filter, name)
	}
	return filter, nil
}

func joinSourceNames(names []retrieval.SourceName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

func printHumanResults(response *retrieval.Response, verbose bool) {
	if len(response.Results) == 0 {
		fmt.Println("No results.")
	}

	for i, r := range response.Results {
		fmt.Printf("%2d. %s  (score %.4f, sources: %s)\n",
			i+1, r.DocID, r.FusedScore, joinSourceNames(r.Sources))
		fmt.Printf("    %s\n", truncate(r.Content, 120))
		if verbose {
			for _, name := range r.Sources {
				c := r.Contributions[name]
				fmt.Printf("    %-10s rank %d, rrf %.4f, raw %.4f\n",
					name, c.Rank+1, c.RRFScore, c.RawScore)
			}
		}
	}

	if verbose {
		fmt.Println("\nSources:")
		for _, rep := range response.Reports {
			line := fmt.Sprintf("  %-10s %-12s %d results in %dms",
				rep.Source, rep.Status, rep.ResultCount, rep.DurationMs)
			if rep.Error != "" {
				line += "  (" + rep.Error + ")"
			}
			fmt.Fprintln(os.Stdout, line)
		}
	}
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
