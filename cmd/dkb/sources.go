package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dkb/internal/retrieval"
)

var sourcesFormat string

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List retrieval sources and their availability",
	RunE:  runSources,
}

func init() {
	sourcesCmd.Flags().StringVar(&sourcesFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(sourcesCmd)
}

type sourceListing struct {
	Name      retrieval.SourceName `json:"name"`
	Available bool                 `json:"available"`
	Documents int                  `json:"documents"`
}

// sourceTables maps each source to the table backing it, for counts.
var sourceTables = map[retrieval.SourceName]string{
	retrieval.SourceSemantic: "document_embeddings",
	retrieval.SourceLexical:  "documents",
	retrieval.SourceTemporal: "co_changes",
	retrieval.SourceBelief:   "beliefs",
	retrieval.SourcePersona:  "persona_observations",
}

func runSources(cmd *cobra.Command, args []string) error {
	logger := newLogger(sourcesFormat)
	repoRoot := mustGetRepoRoot()
	engine := mustGetEngine(repoRoot, logger)
	db := mustGetDB(repoRoot, logger)

	available := make(map[retrieval.SourceName]bool)
	for _, name := range engine.AvailableSources() {
		available[name] = true
	}

	listings := make([]sourceListing, 0, len(engine.SourceNames()))
	for _, name := range engine.SourceNames() {
		listings = append(listings, sourceListing{
			Name:      name,
			Available: available[name],
			Documents: db.CountRows(sourceTables[name]),
		})
	}

	if sourcesFormat == "json" {
		out, err := json.MarshalIndent(listings, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	for _, l := range listings {
		state := "unavailable"
		if l.Available {
			state = "available"
		}
		fmt.Printf("%-10s %-12s %d documents\n", l.Name, state, l.Documents)
	}
	return nil
}
