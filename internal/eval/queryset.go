// Package eval measures retrieval quality against labeled query sets
// and compares source configurations against each other and against a
// random-ranking baseline.
package eval

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"dkb/internal/errors"
	"dkb/internal/retrieval"
)

// QueryRecord is one labeled query: the text to run and the document
// ids that count as relevant. Labels are typically weak (mined from
// git history), not hand-curated.
type QueryRecord struct {
	ID        string   `json:"id" yaml:"id"`
	Query     string   `json:"query" yaml:"query"`
	Expected  []string `json:"expected" yaml:"expected"`
	Dimension string   `json:"dimension,omitempty" yaml:"dimension,omitempty"`
}

// QuerySet is a named collection of labeled queries.
type QuerySet struct {
	Name    string        `json:"name" yaml:"name"`
	Queries []QueryRecord `json:"queries" yaml:"queries"`
}

// LoadQuerySet reads a query set from a JSON or YAML file, picking the
// format from the extension. The set is validated before it is
// returned so a bad file fails fast instead of mid-run.
func LoadQuerySet(path string) (*QuerySet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.QuerySetInvalid,
			fmt.Sprintf("failed to read query set %s", path), err)
	}

	var qs QuerySet
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &qs)
	default:
		err = json.Unmarshal(data, &qs)
	}
	if err != nil {
		return nil, errors.New(errors.QuerySetInvalid,
			fmt.Sprintf("failed to parse query set %s", path), err)
	}

	if err := qs.Validate(); err != nil {
		return nil, err
	}
	return &qs, nil
}

// Validate checks the set is usable: no empty queries, no missing
// labels, no duplicate record ids, and only known dimensions.
func (qs *QuerySet) Validate() error {
	if len(qs.Queries) == 0 {
		return errors.New(errors.QuerySetInvalid, "query set contains no queries", nil)
	}

	seen := make(map[string]struct{}, len(qs.Queries))
	for i, q := range qs.Queries {
		if strings.TrimSpace(q.Query) == "" {
			return errors.New(errors.QuerySetInvalid,
				fmt.Sprintf("query %d has empty text", i), nil)
		}
		if len(q.Expected) == 0 {
			return errors.New(errors.QuerySetInvalid,
				fmt.Sprintf("query %q has no expected documents", q.Query), nil)
		}
		if q.ID != "" {
			if _, dup := seen[q.ID]; dup {
				return errors.New(errors.QuerySetInvalid,
					fmt.Sprintf("duplicate query id %q", q.ID), nil)
			}
			seen[q.ID] = struct{}{}
		}
		if q.Dimension != "" && !retrieval.ValidSourceName(retrieval.SourceName(q.Dimension)) {
			return errors.New(errors.QuerySetInvalid,
				fmt.Sprintf("query %q has unknown dimension %q", q.Query, q.Dimension), nil)
		}
	}
	return nil
}

// Save writes the query set as JSON.
func (qs *QuerySet) Save(path string) error {
	data, err := json.MarshalIndent(qs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal query set: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create query set directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// ForDimension returns the queries labeled with the given dimension,
// or all queries when dimension is empty.
func (qs *QuerySet) ForDimension(dimension string) []QueryRecord {
	if dimension == "" {
		return qs.Queries
	}
	var out []QueryRecord
	for _, q := range qs.Queries {
		if q.Dimension == dimension {
			out = append(out, q)
		}
	}
	return out
}
