package sources

import (
	"context"
	"fmt"

	"dkb/internal/retrieval"
	"dkb/internal/storage"
)

// BeliefSource surfaces stored beliefs about the codebase. Match rank
// is blended with the belief's confidence so that a weakly held claim
// does not outrank a well supported one.
type BeliefSource struct {
	db *storage.DB
}

// NewBeliefSource creates a belief source over the knowledge database.
func NewBeliefSource(db *storage.DB) *BeliefSource {
	return &BeliefSource{db: db}
}

func (s *BeliefSource) Name() retrieval.SourceName {
	return retrieval.SourceBelief
}

func (s *BeliefSource) IsAvailable() bool {
	return s.db.TableHasRows("beliefs")
}

func (s *BeliefSource) Query(ctx context.Context, text string, limit int) ([]retrieval.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits, err := s.db.SearchBeliefs(text, limit)
	if err != nil {
		return nil, err
	}

	results := make([]retrieval.Result, len(hits))
	for i, h := range hits {
		results[i] = retrieval.Result{
			DocID:   fmt.Sprintf("belief:%d", h.ID),
			Content: h.Claim,
			Source:  retrieval.SourceBelief,
			// bm25 rank is lower-is-better; negate and weight by confidence
			RawScore: -h.Rank * h.Confidence,
			Metadata: retrieval.Metadata{EventType: "belief"},
		}
	}
	return results, nil
}
