package storage

import (
	"database/sql"
	"fmt"
)

// Document is a stored knowledge document.
type Document struct {
	DocID     string
	Content   string
	FilePath  string
	EventType string
	CreatedAt int64
}

// PutDocument inserts or replaces a document.
func (db *DB) PutDocument(doc Document) error {
	_, err := db.conn.Exec(`
		INSERT INTO documents (doc_id, content, file_path, event_type, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			content = excluded.content,
			file_path = excluded.file_path,
			event_type = excluded.event_type,
			created_at = excluded.created_at`,
		doc.DocID, doc.Content, doc.FilePath, doc.EventType, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to store document %s: %w", doc.DocID, err)
	}
	return nil
}

// GetDocument fetches a document by id. Returns sql.ErrNoRows if absent.
func (db *DB) GetDocument(docID string) (Document, error) {
	var doc Document
	err := db.conn.QueryRow(`
		SELECT doc_id, content, COALESCE(file_path, ''), COALESCE(event_type, ''), created_at
		FROM documents WHERE doc_id = ?`, docID).
		Scan(&doc.DocID, &doc.Content, &doc.FilePath, &doc.EventType, &doc.CreatedAt)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// GetDocuments fetches several documents at once, keyed by id.
// Missing ids are simply absent from the result.
func (db *DB) GetDocuments(docIDs []string) (map[string]Document, error) {
	out := make(map[string]Document, len(docIDs))
	for _, id := range docIDs {
		doc, err := db.GetDocument(id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = doc
	}
	return out, nil
}

// CountDocuments returns the number of stored documents.
func (db *DB) CountDocuments() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM documents").Scan(&n)
	return n, err
}

// RecentDocuments returns the newest documents, most recent first.
func (db *DB) RecentDocuments(limit int) ([]Document, error) {
	rows, err := db.conn.Query(`
		SELECT doc_id, content, COALESCE(file_path, ''), COALESCE(event_type, ''), created_at
		FROM documents ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.DocID, &doc.Content, &doc.FilePath, &doc.EventType, &doc.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// CoChange is a mined file pair with its co-change count.
type CoChange struct {
	FileA string
	FileB string
	Count int
}

// RecordCoChange increments the co-change count for a file pair.
// Pairs are normalized so file_a < file_b.
func (db *DB) RecordCoChange(fileA, fileB string, changedAt int64) error {
	if fileA > fileB {
		fileA, fileB = fileB, fileA
	}
	_, err := db.conn.Exec(`
		INSERT INTO co_changes (file_a, file_b, change_count, last_changed_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(file_a, file_b) DO UPDATE SET
			change_count = change_count + 1,
			last_changed_at = MAX(last_changed_at, excluded.last_changed_at)`,
		fileA, fileB, changedAt)
	if err != nil {
		return fmt.Errorf("failed to record co-change: %w", err)
	}
	return nil
}

// CoChangedFiles returns files that changed together with any file
// matching pattern, aggregated across matching pairs and ordered by
// total co-change count.
func (db *DB) CoChangedFiles(pattern string, limit int) ([]CoChange, error) {
	like := "%" + pattern + "%"
	rows, err := db.conn.Query(`
		SELECT file_a, file_b, change_count
		FROM co_changes
		WHERE file_a LIKE ? OR file_b LIKE ?
		ORDER BY change_count DESC
		LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query co-changes: %w", err)
	}
	defer rows.Close()

	var pairs []CoChange
	for rows.Next() {
		var cc CoChange
		if err := rows.Scan(&cc.FileA, &cc.FileB, &cc.Count); err != nil {
			return nil, err
		}
		pairs = append(pairs, cc)
	}
	return pairs, rows.Err()
}

// Belief is a stored claim with its confidence.
type Belief struct {
	ID           int64
	Claim        string
	Confidence   float64
	SupportCount int
	FilePath     string
}

// PutBelief stores a new belief and returns its id.
func (db *DB) PutBelief(b Belief) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO beliefs (claim, confidence, support_count, file_path, created_at, updated_at)
		VALUES (?, ?, ?, ?, strftime('%s','now'), strftime('%s','now'))`,
		b.Claim, b.Confidence, b.SupportCount, nullableString(b.FilePath))
	if err != nil {
		return 0, fmt.Errorf("failed to store belief: %w", err)
	}
	return res.LastInsertId()
}

// PersonaObservation is one cross-project note about the user's habits.
type PersonaObservation struct {
	ID         int64
	Origin     string
	Content    string
	ObservedAt int64
}

// PutPersonaObservation stores a persona observation.
func (db *DB) PutPersonaObservation(obs PersonaObservation) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO persona_observations (origin, content, observed_at)
		VALUES (?, ?, ?)`,
		obs.Origin, obs.Content, obs.ObservedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to store persona observation: %w", err)
	}
	return res.LastInsertId()
}

// SearchPersonaObservations does a simple LIKE scan over observations.
// The persona corpus is small enough that FTS would be overkill.
func (db *DB) SearchPersonaObservations(query string, limit int) ([]PersonaObservation, error) {
	rows, err := db.conn.Query(`
		SELECT id, origin, content, observed_at
		FROM persona_observations
		WHERE content LIKE ?
		ORDER BY observed_at DESC
		LIMIT ?`, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query persona observations: %w", err)
	}
	defer rows.Close()

	var out []PersonaObservation
	for rows.Next() {
		var obs PersonaObservation
		if err := rows.Scan(&obs.ID, &obs.Origin, &obs.Content, &obs.ObservedAt); err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, rows.Err()
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
