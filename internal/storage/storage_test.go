package storage

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"dkb/internal/logging"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir(), logging.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesSchema(t *testing.T) {
	root := t.TempDir()
	if Exists(root) {
		t.Fatal("Exists should be false before Open")
	}

	db, err := Open(root, logging.Nop())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if !Exists(root) {
		t.Error("Exists should be true after Open")
	}
	if got := db.Path(); got != filepath.Join(root, ".dkb", DBFileName) {
		t.Errorf("unexpected db path %s", got)
	}

	version, err := db.GetSchemaVersion()
	if err != nil {
		t.Fatalf("GetSchemaVersion failed: %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	db := openTestDB(t)

	doc := Document{
		DocID:     "session:2024-01-15:abc",
		Content:   "Refactored the retry loop in the sync worker",
		FilePath:  "internal/sync/worker.go",
		EventType: "session_note",
		CreatedAt: 1705312800,
	}
	if err := db.PutDocument(doc); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}

	got, err := db.GetDocument(doc.DocID)
	if err != nil {
		t.Fatalf("GetDocument failed: %v", err)
	}
	if got != doc {
		t.Errorf("GetDocument = %+v, want %+v", got, doc)
	}

	// Replace keeps the same id
	doc.Content = "Updated note"
	if err := db.PutDocument(doc); err != nil {
		t.Fatalf("PutDocument replace failed: %v", err)
	}
	n, err := db.CountDocuments()
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 1 {
		t.Errorf("CountDocuments = %d, want 1", n)
	}

	if _, err := db.GetDocument("missing"); err != sql.ErrNoRows {
		t.Errorf("expected sql.ErrNoRows for missing doc, got %v", err)
	}
}

func TestSearchDocuments(t *testing.T) {
	db := openTestDB(t)

	docs := []Document{
		{DocID: "d1", Content: "authentication middleware rejects expired tokens", CreatedAt: 1},
		{DocID: "d2", Content: "database migration added the users table", CreatedAt: 2},
		{DocID: "d3", Content: "token refresh logic moved into the auth package", CreatedAt: 3},
	}
	for _, d := range docs {
		if err := db.PutDocument(d); err != nil {
			t.Fatalf("PutDocument failed: %v", err)
		}
	}

	hits, err := db.SearchDocuments("authentication", 10)
	if err != nil {
		t.Fatalf("SearchDocuments failed: %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != "d1" {
		t.Errorf("exact match hits = %+v, want single d1", hits)
	}

	// Prefix tier catches partial words that match no full token
	hits, err = db.SearchDocuments("authent", 10)
	if err != nil {
		t.Fatalf("SearchDocuments prefix failed: %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != "d1" {
		t.Errorf("prefix match hits = %+v, want single d1", hits)
	}

	// Empty query returns nothing rather than erroring
	hits, err = db.SearchDocuments("   ", 10)
	if err != nil || hits != nil {
		t.Errorf("blank query: hits=%v err=%v, want nil nil", hits, err)
	}
}

func TestSearchDocumentsLikeFallback(t *testing.T) {
	db := openTestDB(t)

	doc := Document{DocID: "d1", Content: "config lives in .dkb/config.json", CreatedAt: 1}
	if err := db.PutDocument(doc); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}

	// Punctuation-heavy query that FTS tokenization will not match
	hits, err := db.SearchDocuments(".dkb/config.json", 10)
	if err != nil {
		t.Fatalf("SearchDocuments failed: %v", err)
	}
	if len(hits) != 1 || hits[0].DocID != "d1" {
		t.Errorf("like fallback hits = %+v, want d1", hits)
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	db := openTestDB(t)

	if err := db.PutDocument(Document{DocID: "d1", Content: "x"}); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}

	vec := []float32{0.25, -1.5, 3.0, 0.0}
	if err := db.PutEmbedding("d1", "nomic-embed-text", vec); err != nil {
		t.Fatalf("PutEmbedding failed: %v", err)
	}

	all, err := db.AllEmbeddings()
	if err != nil {
		t.Fatalf("AllEmbeddings failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("AllEmbeddings returned %d rows, want 1", len(all))
	}
	got := all[0]
	if got.DocID != "d1" || got.Model != "nomic-embed-text" {
		t.Errorf("unexpected embedding row: %+v", got)
	}
	if len(got.Vector) != len(vec) {
		t.Fatalf("vector length = %d, want %d", len(got.Vector), len(vec))
	}
	for i := range vec {
		if got.Vector[i] != vec[i] {
			t.Errorf("vector[%d] = %f, want %f", i, got.Vector[i], vec[i])
		}
	}
}

func TestDecodeVectorRejectsBadLength(t *testing.T) {
	if _, err := DecodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for blob length not divisible by 4")
	}
}

func TestCoChanges(t *testing.T) {
	db := openTestDB(t)

	// Order of arguments should not matter
	if err := db.RecordCoChange("b.go", "a.go", 100); err != nil {
		t.Fatalf("RecordCoChange failed: %v", err)
	}
	if err := db.RecordCoChange("a.go", "b.go", 200); err != nil {
		t.Fatalf("RecordCoChange failed: %v", err)
	}
	if err := db.RecordCoChange("a.go", "c.go", 150); err != nil {
		t.Fatalf("RecordCoChange failed: %v", err)
	}

	pairs, err := db.CoChangedFiles("a.go", 10)
	if err != nil {
		t.Fatalf("CoChangedFiles failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("CoChangedFiles returned %d pairs, want 2", len(pairs))
	}
	if pairs[0].FileA != "a.go" || pairs[0].FileB != "b.go" || pairs[0].Count != 2 {
		t.Errorf("top pair = %+v, want a.go/b.go count 2", pairs[0])
	}
}

func TestSearchBeliefs(t *testing.T) {
	db := openTestDB(t)

	beliefs := []Belief{
		{Claim: "the scheduler assumes UTC timestamps", Confidence: 0.9, SupportCount: 3},
		{Claim: "retries are capped at five attempts", Confidence: 0.6, SupportCount: 1},
	}
	for _, b := range beliefs {
		if _, err := db.PutBelief(b); err != nil {
			t.Fatalf("PutBelief failed: %v", err)
		}
	}

	hits, err := db.SearchBeliefs("scheduler", 10)
	if err != nil {
		t.Fatalf("SearchBeliefs failed: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("SearchBeliefs returned %d hits, want 1", len(hits))
	}
	if hits[0].Confidence != 0.9 {
		t.Errorf("hit confidence = %f, want 0.9", hits[0].Confidence)
	}
}

func TestWithTxRollback(t *testing.T) {
	db := openTestDB(t)

	sentinel := errors.New("boom")
	err := db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(
			"INSERT INTO documents (doc_id, content) VALUES ('tx1', 'x')"); err != nil {
			return err
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("WithTx error = %v, want sentinel", err)
	}

	n, err := db.CountDocuments()
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 0 {
		t.Errorf("document count after rollback = %d, want 0", n)
	}
}

func TestTableHasRows(t *testing.T) {
	db := openTestDB(t)

	if db.TableHasRows("documents") {
		t.Error("empty documents table should report no rows")
	}
	if db.TableHasRows("no_such_table") {
		t.Error("missing table should report no rows")
	}

	if err := db.PutDocument(Document{DocID: "d1", Content: "x"}); err != nil {
		t.Fatalf("PutDocument failed: %v", err)
	}
	if !db.TableHasRows("documents") {
		t.Error("documents table with a row should report rows")
	}
}
