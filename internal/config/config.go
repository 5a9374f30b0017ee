// Package config loads dkb configuration.
// Application settings live in .dkb/config.json (viper); the project
// descriptor .dkb/project.toml names the repo and its embedding model.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete dkb configuration
type Config struct {
	Version  int    `json:"version" mapstructure:"version"`
	RepoRoot string `json:"repoRoot" mapstructure:"repoRoot"`

	Retrieval RetrievalConfig `json:"retrieval" mapstructure:"retrieval"`
	Sources   SourcesConfig   `json:"sources" mapstructure:"sources"`
	Eval      EvalConfig      `json:"eval" mapstructure:"eval"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
}

// RetrievalConfig contains fusion parameters
type RetrievalConfig struct {
	// RRFK is the reciprocal-rank-fusion damping constant
	RRFK int `json:"rrfK" mapstructure:"rrfK"`
	// FetchMultiplier oversamples each source before fusion
	FetchMultiplier int `json:"fetchMultiplier" mapstructure:"fetchMultiplier"`
	// DefaultLimit is the result count when a query does not set one
	DefaultLimit int `json:"defaultLimit" mapstructure:"defaultLimit"`
	// SourceTimeoutMs bounds a single source query; 0 disables the timeout
	SourceTimeoutMs int `json:"sourceTimeoutMs" mapstructure:"sourceTimeoutMs"`
	// Weights optionally boosts or damps per-source RRF contributions
	Weights map[string]float64 `json:"weights,omitempty" mapstructure:"weights"`
}

// SourcesConfig enables/disables individual retrieval sources
type SourcesConfig struct {
	Semantic SemanticSourceConfig `json:"semantic" mapstructure:"semantic"`
	Lexical  EnabledConfig        `json:"lexical" mapstructure:"lexical"`
	Temporal EnabledConfig        `json:"temporal" mapstructure:"temporal"`
	Belief   EnabledConfig        `json:"belief" mapstructure:"belief"`
	Persona  PersonaSourceConfig  `json:"persona" mapstructure:"persona"`
}

// EnabledConfig is the minimal per-source toggle
type EnabledConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// SemanticSourceConfig contains semantic source configuration
type SemanticSourceConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// EmbedderURL is the local embedding endpoint (Ollama-compatible)
	EmbedderURL string `json:"embedderUrl" mapstructure:"embedderUrl"`
}

// PersonaSourceConfig contains persona source configuration
type PersonaSourceConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Dir overrides ~/.dkb/persona
	Dir string `json:"dir,omitempty" mapstructure:"dir"`
}

// EvalConfig contains evaluation harness configuration
type EvalConfig struct {
	// QuerySetPath is the default labeled query set
	QuerySetPath string `json:"querySetPath" mapstructure:"querySetPath"`
	// MaxQueries caps how many records a run evaluates (0 = all)
	MaxQueries int `json:"maxQueries" mapstructure:"maxQueries"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		RepoRoot: ".",
		Retrieval: RetrievalConfig{
			RRFK:            60,
			FetchMultiplier: 2,
			DefaultLimit:    10,
			SourceTimeoutMs: 0,
		},
		Sources: SourcesConfig{
			Semantic: SemanticSourceConfig{
				Enabled:     true,
				EmbedderURL: "http://localhost:11434",
			},
			Lexical:  EnabledConfig{Enabled: true},
			Temporal: EnabledConfig{Enabled: true},
			Belief:   EnabledConfig{Enabled: true},
			Persona:  PersonaSourceConfig{Enabled: true},
		},
		Eval: EvalConfig{
			QuerySetPath: filepath.Join(".dkb", "querysets", "default.json"),
			MaxQueries:   0,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// LoadConfig loads configuration from .dkb/config.json
func LoadConfig(repoRoot string) (*Config, error) {
	v := viper.New()

	v.SetDefault("version", 1)
	v.SetDefault("repoRoot", ".")

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".dkb"))

	if err := v.ReadInConfig(); err != nil {
		// If config doesn't exist, return default config
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to .dkb/config.json
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".dkb")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != 1 {
		return &ConfigError{Field: "version", Message: "unsupported config version"}
	}
	if c.Retrieval.RRFK <= 0 {
		return &ConfigError{Field: "retrieval.rrfK", Message: "must be positive"}
	}
	if c.Retrieval.FetchMultiplier <= 0 {
		return &ConfigError{Field: "retrieval.fetchMultiplier", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
