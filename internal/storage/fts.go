package storage

import (
	"database/sql"
	"fmt"
	"strings"
)

// FTSHit is one full-text match with its bm25 rank.
// Rank is negative (more negative is better) as SQLite reports it.
type FTSHit struct {
	DocID string
	Rank  float64
}

// initializeFTS creates the FTS5 virtual tables and keeps them in sync
// with their content tables through triggers.
func (db *DB) initializeFTS() error {
	schema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
		doc_id UNINDEXED,
		content,
		file_path,
		content='documents',
		content_rowid='rowid'
	);

	CREATE TRIGGER IF NOT EXISTS documents_fts_insert AFTER INSERT ON documents BEGIN
		INSERT INTO documents_fts(rowid, doc_id, content, file_path)
		VALUES (new.rowid, new.doc_id, new.content, new.file_path);
	END;

	CREATE TRIGGER IF NOT EXISTS documents_fts_delete AFTER DELETE ON documents BEGIN
		INSERT INTO documents_fts(documents_fts, rowid, doc_id, content, file_path)
		VALUES ('delete', old.rowid, old.doc_id, old.content, old.file_path);
	END;

	CREATE TRIGGER IF NOT EXISTS documents_fts_update AFTER UPDATE ON documents BEGIN
		INSERT INTO documents_fts(documents_fts, rowid, doc_id, content, file_path)
		VALUES ('delete', old.rowid, old.doc_id, old.content, old.file_path);
		INSERT INTO documents_fts(rowid, doc_id, content, file_path)
		VALUES (new.rowid, new.doc_id, new.content, new.file_path);
	END;

	CREATE VIRTUAL TABLE IF NOT EXISTS beliefs_fts USING fts5(
		claim,
		content='beliefs',
		content_rowid='id'
	);

	CREATE TRIGGER IF NOT EXISTS beliefs_fts_insert AFTER INSERT ON beliefs BEGIN
		INSERT INTO beliefs_fts(rowid, claim) VALUES (new.id, new.claim);
	END;

	CREATE TRIGGER IF NOT EXISTS beliefs_fts_delete AFTER DELETE ON beliefs BEGIN
		INSERT INTO beliefs_fts(beliefs_fts, rowid, claim)
		VALUES ('delete', old.id, old.claim);
	END;

	CREATE TRIGGER IF NOT EXISTS beliefs_fts_update AFTER UPDATE ON beliefs BEGIN
		INSERT INTO beliefs_fts(beliefs_fts, rowid, claim)
		VALUES ('delete', old.id, old.claim);
		INSERT INTO beliefs_fts(rowid, claim) VALUES (new.id, new.claim);
	END;
	`

	_, err := db.conn.Exec(schema)
	return err
}

// SearchDocuments runs a ranked full-text search over document content.
// Tries an exact MATCH first, then a prefix MATCH, then falls back to
// LIKE so that queries with FTS-hostile punctuation still return hits.
func (db *DB) SearchDocuments(query string, limit int) ([]FTSHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	hits, err := db.matchDocuments(buildFTSQuery(query, false), limit)
	if err == nil && len(hits) > 0 {
		return hits, nil
	}

	hits, err = db.matchDocuments(buildFTSQuery(query, true), limit)
	if err == nil && len(hits) > 0 {
		return hits, nil
	}

	return db.likeDocuments(query, limit)
}

func (db *DB) matchDocuments(ftsQuery string, limit int) ([]FTSHit, error) {
	rows, err := db.conn.Query(`
		SELECT doc_id, bm25(documents_fts) AS rank
		FROM documents_fts
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("fts match failed: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

func (db *DB) likeDocuments(query string, limit int) ([]FTSHit, error) {
	pattern := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT doc_id, 0.0 AS rank
		FROM documents
		WHERE content LIKE ? OR file_path LIKE ?
		ORDER BY created_at DESC
		LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("like fallback failed: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// BeliefHit is a ranked belief match.
type BeliefHit struct {
	ID         int64
	Claim      string
	Confidence float64
	Rank       float64
}

// SearchBeliefs runs a ranked full-text search over belief claims.
func (db *DB) SearchBeliefs(query string, limit int) ([]BeliefHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	hits, err := db.matchBeliefs(buildFTSQuery(query, false), limit)
	if err == nil && len(hits) > 0 {
		return hits, nil
	}
	hits, err = db.matchBeliefs(buildFTSQuery(query, true), limit)
	if err == nil && len(hits) > 0 {
		return hits, nil
	}

	pattern := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT id, claim, confidence, 0.0 AS rank
		FROM beliefs
		WHERE claim LIKE ?
		ORDER BY confidence DESC
		LIMIT ?`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("belief like fallback failed: %w", err)
	}
	defer rows.Close()

	return scanBeliefHits(rows)
}

func (db *DB) matchBeliefs(ftsQuery string, limit int) ([]BeliefHit, error) {
	rows, err := db.conn.Query(`
		SELECT b.id, b.claim, b.confidence, bm25(beliefs_fts) AS rank
		FROM beliefs_fts
		JOIN beliefs b ON b.id = beliefs_fts.rowid
		WHERE beliefs_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("belief fts match failed: %w", err)
	}
	defer rows.Close()

	return scanBeliefHits(rows)
}

// buildFTSQuery sanitizes user text into an FTS5 query. Each token is
// quoted so operators in the input cannot change query semantics.
func buildFTSQuery(query string, prefix bool) string {
	tokens := strings.Fields(query)
	quoted := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		tok = strings.ReplaceAll(tok, `"`, "")
		if tok == "" {
			continue
		}
		if prefix {
			quoted = append(quoted, `"`+tok+`"*`)
		} else {
			quoted = append(quoted, `"`+tok+`"`)
		}
	}
	return strings.Join(quoted, " ")
}

func scanHits(rows *sql.Rows) ([]FTSHit, error) {
	var hits []FTSHit
	for rows.Next() {
		var h FTSHit
		if err := rows.Scan(&h.DocID, &h.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan fts hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func scanBeliefHits(rows *sql.Rows) ([]BeliefHit, error) {
	var hits []BeliefHit
	for rows.Next() {
		var h BeliefHit
		if err := rows.Scan(&h.ID, &h.Claim, &h.Confidence, &h.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan belief hit: %w", err)
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
