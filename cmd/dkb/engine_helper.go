package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"dkb/internal/config"
	"dkb/internal/errors"
	"dkb/internal/logging"
	"dkb/internal/retrieval"
	"dkb/internal/sources"
	"dkb/internal/storage"
)

var (
	engineOnce   sync.Once
	sharedEngine *retrieval.Engine
	sharedDB     *storage.DB
	engineErr    error
)

// getEngine returns a shared query engine over all enabled sources.
// The engine is lazily initialized on first use.
func getEngine(repoRoot string, logger *logging.Logger) (*retrieval.Engine, *storage.DB, error) {
	engineOnce.Do(func() {
		if !storage.Exists(repoRoot) {
			engineErr = errors.New(errors.NotInitialized,
				"no knowledge database found, run 'dkb init' first", nil)
			return
		}

		cfg, err := config.LoadConfig(repoRoot)
		if err != nil {
			logger.Warn("Failed to load config, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = config.DefaultConfig()
		}

		db, err := storage.Open(repoRoot, logger)
		if err != nil {
			engineErr = fmt.Errorf("failed to open database: %w", err)
			return
		}
		sharedDB = db

		sharedEngine = buildEngine(repoRoot, db, cfg, logger)
	})

	return sharedEngine, sharedDB, engineErr
}

// buildEngine wires the enabled sources into an engine.
func buildEngine(repoRoot string, db *storage.DB, cfg *config.Config, logger *logging.Logger) *retrieval.Engine {
	engineCfg := retrieval.Config{
		RRFK:             cfg.Retrieval.RRFK,
		FetchMultiplier:  cfg.Retrieval.FetchMultiplier,
		TimeoutPerSource: time.Duration(cfg.Retrieval.SourceTimeoutMs) * time.Millisecond,
	}
	if len(cfg.Retrieval.Weights) > 0 {
		engineCfg.Weights = make(map[retrieval.SourceName]float64, len(cfg.Retrieval.Weights))
		for name, w := range cfg.Retrieval.Weights {
			engineCfg.Weights[retrieval.SourceName(name)] = w
		}
	}

	engine := retrieval.NewEngine(engineCfg, logger)

	if cfg.Sources.Semantic.Enabled {
		project, err := config.LoadProject(repoRoot)
		if err != nil {
			logger.Warn("Failed to load project descriptor", map[string]interface{}{
				"error": err.Error(),
			})
			project = config.DefaultProject(filepath.Base(repoRoot))
		}
		embedder := sources.NewOllamaEmbedder(
			cfg.Sources.Semantic.EmbedderURL, project.Embeddings.Model)
		engine.Register(sources.NewSemanticSource(db, embedder))
	}
	if cfg.Sources.Lexical.Enabled {
		engine.Register(sources.NewLexicalSource(db))
	}
	if cfg.Sources.Temporal.Enabled {
		engine.Register(sources.NewTemporalSource(db))
	}
	if cfg.Sources.Belief.Enabled {
		engine.Register(sources.NewBeliefSource(db))
	}
	if cfg.Sources.Persona.Enabled {
		dir := cfg.Sources.Persona.Dir
		if dir == "" {
			dir = sources.DefaultPersonaDir()
		}
		engine.Register(sources.NewPersonaSource(dir, logger))
	}

	return engine
}

// mustGetEngine returns the shared engine or exits on error.
func mustGetEngine(repoRoot string, logger *logging.Logger) *retrieval.Engine {
	engine, _, err := getEngine(repoRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing engine: %v\n", err)
		printFixes(err)
		os.Exit(1)
	}
	return engine
}

// mustGetDB returns the shared database or exits on error.
func mustGetDB(repoRoot string, logger *logging.Logger) *storage.DB {
	_, db, err := getEngine(repoRoot, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		printFixes(err)
		os.Exit(1)
	}
	return db
}

// printFixes surfaces suggested fix commands for coded errors.
func printFixes(err error) {
	var coded *errors.Error
	if !stderrors.As(err, &coded) || len(coded.SuggestedFixes) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "\nSuggested fixes:")
	for _, fix := range coded.SuggestedFixes {
		fmt.Fprintf(os.Stderr, "  %s  # %s\n", fix.Command, fix.Description)
	}
}

// getRepoRoot returns the repository root directory.
func getRepoRoot() (string, error) {
	return os.Getwd()
}

// mustGetRepoRoot returns the repository root or exits on error.
func mustGetRepoRoot() string {
	repoRoot, err := getRepoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return repoRoot
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// newLogger creates a logger with the specified format. Verbosity can be
// raised per invocation with DKB_LOG_LEVEL=debug.
func newLogger(format string) *logging.Logger {
	logFormat := logging.HumanFormat
	if format == "json" {
		logFormat = logging.JSONFormat
	}
	level := logging.InfoLevel
	if env := os.Getenv("DKB_LOG_LEVEL"); env != "" {
		level = logging.ParseLevel(env)
	}
	return logging.NewLogger(logging.Config{
		Format: logFormat,
		Level:  level,
	})
}
