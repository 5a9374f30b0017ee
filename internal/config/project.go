package config

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// Project is the .dkb/project.toml descriptor. It names the repository
// and the embedding model whose vectors the semantic source searches.
type Project struct {
	Name       string           `toml:"name"`
	Embeddings EmbeddingsConfig `toml:"embeddings"`
}

// EmbeddingsConfig names the embedding model backing the vector columns.
type EmbeddingsConfig struct {
	Model     string `toml:"model"`
	Dimension int    `toml:"dimension"`
}

// DefaultProject returns the descriptor written by `dkb init`.
func DefaultProject(name string) *Project {
	return &Project{
		Name: name,
		Embeddings: EmbeddingsConfig{
			Model:     "nomic-embed-text",
			Dimension: 768,
		},
	}
}

// LoadProject reads .dkb/project.toml. A missing file yields the default
// descriptor so a fresh checkout still resolves a model name.
func LoadProject(repoRoot string) (*Project, error) {
	path := filepath.Join(repoRoot, ".dkb", "project.toml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultProject(filepath.Base(repoRoot)), nil
		}
		return nil, fmt.Errorf("failed to read project descriptor: %w", err)
	}

	var p Project
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse project descriptor: %w", err)
	}

	if p.Embeddings.Model == "" {
		p.Embeddings.Model = "nomic-embed-text"
	}
	if p.Embeddings.Dimension <= 0 {
		p.Embeddings.Dimension = 768
	}

	return &p, nil
}

// Save writes the descriptor to .dkb/project.toml.
func (p *Project) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".dkb")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := toml.Marshal(p)
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "project.toml"), data, 0644)
}
