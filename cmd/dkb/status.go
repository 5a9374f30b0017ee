package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"dkb/internal/retrieval"
	"dkb/internal/storage"
	"dkb/internal/version"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show dkb system status",
	Long:  "Display the knowledge database state and per-source availability",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the full system status for CLI output
type statusReport struct {
	Version    string                 `json:"version"`
	DBPath     string                 `json:"dbPath"`
	Documents  int                    `json:"documents"`
	Embeddings int                    `json:"embeddings"`
	Sources    []sourceListing        `json:"sources"`
	Available  []retrieval.SourceName `json:"available"`
	Healthy    bool                   `json:"healthy"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	logger := newLogger(statusFormat)
	repoRoot := mustGetRepoRoot()

	if !storage.Exists(repoRoot) {
		fmt.Println("Not initialized. Run 'dkb init' first.")
		return nil
	}

	engine := mustGetEngine(repoRoot, logger)
	db := mustGetDB(repoRoot, logger)

	docs, err := db.CountDocuments()
	if err != nil {
		return err
	}
	embeddings, err := db.CountEmbeddings()
	if err != nil {
		return err
	}

	available := engine.AvailableSources()
	availSet := make(map[retrieval.SourceName]bool, len(available))
	for _, name := range available {
		availSet[name] = true
	}
	var listings []sourceListing
	for _, name := range engine.SourceNames() {
		listings = append(listings, sourceListing{Name: name, Available: availSet[name]})
	}

	report := statusReport{
		Version:    version.Version,
		DBPath:     db.Path(),
		Documents:  docs,
		Embeddings: embeddings,
		Sources:    listings,
		Available:  available,
		Healthy:    len(available) > 0,
	}

	if statusFormat == "json" {
		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("dkb %s\n", version.Info())
	fmt.Printf("Database:   %s\n", report.DBPath)
	fmt.Printf("Documents:  %d (%d embedded)\n", report.Documents, report.Embeddings)
	fmt.Println("Sources:")
	for _, l := range report.Sources {
		state := "unavailable"
		if l.Available {
			state = "available"
		}
		fmt.Printf("  %-10s %s\n", l.Name, state)
	}
	if !report.Healthy {
		fmt.Println("\nNo sources are available. Queries will fail until data is added.")
	}
	return nil
}
