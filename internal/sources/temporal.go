package sources

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"dkb/internal/retrieval"
	"dkb/internal/storage"
)

// TemporalSource surfaces files that historically change together with
// files named in the query. Its signal comes from co-change statistics
// mined out of git history.
type TemporalSource struct {
	db *storage.DB
}

// NewTemporalSource creates a temporal source over the knowledge database.
func NewTemporalSource(db *storage.DB) *TemporalSource {
	return &TemporalSource{db: db}
}

func (s *TemporalSource) Name() retrieval.SourceName {
	return retrieval.SourceTemporal
}

func (s *TemporalSource) IsAvailable() bool {
	return s.db.TableHasRows("co_changes")
}

// Query treats path-like tokens in the query as file hints and returns
// their strongest co-change partners. Counts are aggregated per partner
// across all matching pairs.
func (s *TemporalSource) Query(ctx context.Context, text string, limit int) ([]retrieval.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hints := fileHints(text)
	if len(hints) == 0 {
		return nil, nil
	}

	counts := make(map[string]int)
	for _, hint := range hints {
		pairs, err := s.db.CoChangedFiles(hint, limit*4)
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			partner := p.FileB
			if strings.Contains(p.FileB, hint) {
				partner = p.FileA
			}
			// Both sides matching the hint is a self-pair, skip it
			if strings.Contains(partner, hint) {
				continue
			}
			counts[partner] += p.Count
		}
	}

	type ranked struct {
		file  string
		count int
	}
	out := make([]ranked, 0, len(counts))
	for file, count := range counts {
		out = append(out, ranked{file: file, count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].file < out[j].file
	})
	if len(out) > limit {
		out = out[:limit]
	}

	results := make([]retrieval.Result, len(out))
	for i, r := range out {
		results[i] = retrieval.Result{
			DocID:    r.file,
			Content:  fmt.Sprintf("%s changed together with the queried files %d times", r.file, r.count),
			Source:   retrieval.SourceTemporal,
			RawScore: float64(r.count),
			Metadata: retrieval.Metadata{FilePath: r.file},
		}
	}
	return results, nil
}

// fileHints extracts tokens that look like file references: anything
// with a path separator or a file extension.
func fileHints(text string) []string {
	var hints []string
	for _, tok := range strings.Fields(text) {
		tok = strings.Trim(tok, `"'(),;?!`)
		if tok == "" {
			continue
		}
		if strings.ContainsRune(tok, '/') || strings.Contains(tok, ".") {
			hints = append(hints, tok)
		}
	}
	return hints
}
