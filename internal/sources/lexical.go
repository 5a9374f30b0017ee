package sources

import (
	"context"

	"dkb/internal/retrieval"
	"dkb/internal/storage"
)

// LexicalSource ranks documents by full-text match quality.
type LexicalSource struct {
	db *storage.DB
}

// NewLexicalSource creates a lexical source over the knowledge database.
func NewLexicalSource(db *storage.DB) *LexicalSource {
	return &LexicalSource{db: db}
}

func (s *LexicalSource) Name() retrieval.SourceName {
	return retrieval.SourceLexical
}

func (s *LexicalSource) IsAvailable() bool {
	return s.db.TableHasRows("documents")
}

func (s *LexicalSource) Query(ctx context.Context, text string, limit int) ([]retrieval.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	hits, err := s.db.SearchDocuments(text, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocID
	}
	docs, err := s.db.GetDocuments(ids)
	if err != nil {
		return nil, err
	}

	results := make([]retrieval.Result, 0, len(hits))
	for _, h := range hits {
		doc, ok := docs[h.DocID]
		if !ok {
			continue
		}
		results = append(results, retrieval.Result{
			DocID:   doc.DocID,
			Content: doc.Content,
			Source:  retrieval.SourceLexical,
			// bm25 reports lower-is-better, negate so RawScore is
			// higher-is-better like every other source
			RawScore: -h.Rank,
			Metadata: retrieval.Metadata{
				FilePath:  doc.FilePath,
				Timestamp: doc.CreatedAt,
				EventType: doc.EventType,
			},
		})
	}
	return results, nil
}
