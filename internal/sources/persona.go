package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"dkb/internal/logging"
	"dkb/internal/retrieval"
	"dkb/internal/storage"
)

// PersonaManifest describes a persona store. It lives next to the
// persona database as manifest.toml.
type PersonaManifest struct {
	Name     string   `toml:"name"`
	Projects []string `toml:"projects"`
}

// PersonaSource surfaces cross-project observations about how the user
// works. Unlike every other source it reads from a store shared across
// repositories, by default ~/.dkb/persona/.
type PersonaSource struct {
	dir      string
	logger   *logging.Logger
	manifest PersonaManifest

	db *storage.DB
}

// DefaultPersonaDir returns the shared persona store location.
func DefaultPersonaDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".dkb", "persona")
}

// NewPersonaSource opens the persona store at dir. A missing store is
// not an error; the source simply reports itself unavailable.
func NewPersonaSource(dir string, logger *logging.Logger) *PersonaSource {
	s := &PersonaSource{dir: dir, logger: logger}
	if dir == "" {
		return s
	}

	dbPath := filepath.Join(dir, "persona.db")
	if _, err := os.Stat(dbPath); err != nil {
		return s
	}

	db, err := storage.OpenPath(dbPath, logger)
	if err != nil {
		logger.Warn("failed to open persona store", map[string]interface{}{
			"path":  dbPath,
			"error": err.Error(),
		})
		return s
	}
	s.db = db

	manifestPath := filepath.Join(dir, "manifest.toml")
	if _, err := toml.DecodeFile(manifestPath, &s.manifest); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to read persona manifest", map[string]interface{}{
			"path":  manifestPath,
			"error": err.Error(),
		})
	}

	return s
}

func (s *PersonaSource) Name() retrieval.SourceName {
	return retrieval.SourcePersona
}

func (s *PersonaSource) IsAvailable() bool {
	return s.db != nil && s.db.TableHasRows("persona_observations")
}

func (s *PersonaSource) Query(ctx context.Context, text string, limit int) ([]retrieval.Result, error) {
	if s.db == nil {
		return nil, fmt.Errorf("persona store is not open")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	observations, err := s.db.SearchPersonaObservations(text, limit)
	if err != nil {
		return nil, err
	}

	results := make([]retrieval.Result, len(observations))
	for i, obs := range observations {
		results[i] = retrieval.Result{
			DocID:   fmt.Sprintf("persona:%s:%d", obs.Origin, obs.ObservedAt),
			Content: obs.Content,
			Source:  retrieval.SourcePersona,
			// Relevance falls off with list position; the store orders
			// by recency so rank position carries the signal
			RawScore: 1.0 / float64(i+1),
			Metadata: retrieval.Metadata{
				Timestamp: obs.ObservedAt,
				EventType: "persona_observation",
			},
		}
	}
	return results, nil
}

// Close releases the persona database handle.
func (s *PersonaSource) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
