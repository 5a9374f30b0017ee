package sources

import (
	"context"
	"fmt"
	"sort"

	"dkb/internal/retrieval"
	"dkb/internal/storage"
)

// SemanticSource ranks documents by embedding similarity to the query.
type SemanticSource struct {
	db       *storage.DB
	embedder Embedder
}

// NewSemanticSource creates a semantic source over the knowledge database.
func NewSemanticSource(db *storage.DB, embedder Embedder) *SemanticSource {
	return &SemanticSource{db: db, embedder: embedder}
}

func (s *SemanticSource) Name() retrieval.SourceName {
	return retrieval.SourceSemantic
}

// IsAvailable reports whether any embeddings exist to search over.
// Embedder reachability is checked at query time; a dead endpoint
// surfaces as a query error, not as unavailability.
func (s *SemanticSource) IsAvailable() bool {
	return s.db.TableHasRows("document_embeddings")
}

// Query embeds the query text and scans stored vectors by cosine
// similarity. The corpus is local and small, so a brute-force scan
// beats maintaining an index.
func (s *SemanticSource) Query(ctx context.Context, text string, limit int) ([]retrieval.Result, error) {
	queryVec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	embeddings, err := s.db.AllEmbeddings()
	if err != nil {
		return nil, err
	}

	type scored struct {
		docID string
		score float64
	}
	candidates := make([]scored, 0, len(embeddings))
	for _, emb := range embeddings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim := cosineSimilarity(queryVec, emb.Vector)
		if sim <= 0 {
			continue
		}
		candidates = append(candidates, scored{docID: emb.DocID, score: sim})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].docID < candidates[j].docID
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.docID
	}
	docs, err := s.db.GetDocuments(ids)
	if err != nil {
		return nil, err
	}

	results := make([]retrieval.Result, 0, len(candidates))
	for _, c := range candidates {
		doc, ok := docs[c.docID]
		if !ok {
			continue
		}
		results = append(results, retrieval.Result{
			DocID:    doc.DocID,
			Content:  doc.Content,
			Source:   retrieval.SourceSemantic,
			RawScore: c.score,
			Metadata: retrieval.Metadata{
				FilePath:  doc.FilePath,
				Timestamp: doc.CreatedAt,
				EventType: doc.EventType,
			},
		})
	}
	return results, nil
}
