package main

import (
	"dkb/internal/version"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dkb",
	Short: "DKB - Developer Knowledge Base",
	Long: `DKB (Developer Knowledge Base) is a local retrieval engine over the knowledge
a repository accumulates: session notes, beliefs, git co-change history, and
cross-project working habits. It fans queries out to independent retrieval
sources and fuses their rankings with reciprocal rank fusion.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("dkb version {{.Version}}\n")
}
