package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"dkb/internal/config"
	"dkb/internal/storage"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize dkb for this repository",
	Long: `Create the .dkb directory with an empty knowledge database, a default
config.json, and a project.toml descriptor.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize config even if .dkb exists")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	logger := newLogger("human")
	repoRoot := mustGetRepoRoot()

	if storage.Exists(repoRoot) && !initForce {
		fmt.Println("Already initialized. Use --force to rewrite config files.")
		return nil
	}

	db, err := storage.Open(repoRoot, logger)
	if err != nil {
		return fmt.Errorf("failed to create knowledge database: %w", err)
	}
	defer db.Close()

	cfg := config.DefaultConfig()
	cfg.RepoRoot = repoRoot
	if err := cfg.Save(repoRoot); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	project := config.DefaultProject(filepath.Base(repoRoot))
	if err := project.Save(repoRoot); err != nil {
		return fmt.Errorf("failed to write project descriptor: %w", err)
	}

	fmt.Printf("Initialized dkb in %s\n", filepath.Join(repoRoot, ".dkb"))
	fmt.Println("Next steps:")
	fmt.Println("  dkb status                      # check source availability")
	fmt.Println("  dkb queryset generate           # mine git history for eval queries")
	return nil
}
