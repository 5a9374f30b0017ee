package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"dkb/internal/export"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the knowledge base as a compressed snapshot",
	Long: `Write a zstd-compressed JSON snapshot of the knowledge database,
suitable for moving between machines or attaching to an issue.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportDir, "out", "", "Output directory (default .dkb/exports)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	logger := newLogger("human")
	repoRoot := mustGetRepoRoot()
	db := mustGetDB(repoRoot, logger)

	dir := exportDir
	if dir == "" {
		dir = filepath.Join(repoRoot, ".dkb", "exports")
	}

	path, err := export.Write(db, dir)
	if err != nil {
		return err
	}

	fmt.Printf("Snapshot written to %s\n", path)
	return nil
}
