package storage

import "fmt"

// SchemaVersion is the current schema version
const SchemaVersion = 1

// initializeSchema creates all tables if they don't exist
func (db *DB) initializeSchema() error {
	schema := `
	-- Schema version tracking
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Knowledge documents: session notes, decisions, captured context.
	-- doc_id is the stable external identifier used everywhere downstream.
	CREATE TABLE IF NOT EXISTS documents (
		doc_id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		file_path TEXT,
		event_type TEXT,
		created_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_documents_file_path ON documents(file_path);
	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	-- Embedding vectors for documents, one row per embedded document.
	-- vector is little-endian float32, dim entries.
	CREATE TABLE IF NOT EXISTS document_embeddings (
		doc_id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		dim INTEGER NOT NULL,
		vector BLOB NOT NULL,
		FOREIGN KEY (doc_id) REFERENCES documents(doc_id) ON DELETE CASCADE
	);

	-- Co-change statistics mined from git history. Pairs are stored once
	-- with file_a < file_b lexicographically.
	CREATE TABLE IF NOT EXISTS co_changes (
		file_a TEXT NOT NULL,
		file_b TEXT NOT NULL,
		change_count INTEGER NOT NULL DEFAULT 1,
		last_changed_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (file_a, file_b)
	);

	CREATE INDEX IF NOT EXISTS idx_co_changes_file_a ON co_changes(file_a);
	CREATE INDEX IF NOT EXISTS idx_co_changes_file_b ON co_changes(file_b);

	-- Accumulated beliefs about the codebase with confidence scores.
	CREATE TABLE IF NOT EXISTS beliefs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		claim TEXT NOT NULL,
		confidence REAL NOT NULL DEFAULT 0.5,
		support_count INTEGER NOT NULL DEFAULT 1,
		file_path TEXT,
		created_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_beliefs_confidence ON beliefs(confidence);

	-- Persona observations: cross-project notes about how the user works.
	-- Lives in the persona database, but the table is harmless in the
	-- project database (it simply stays empty there).
	CREATE TABLE IF NOT EXISTS persona_observations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		origin TEXT NOT NULL,
		content TEXT NOT NULL,
		observed_at INTEGER NOT NULL DEFAULT 0
	);
	`

	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	if err := db.initializeFTS(); err != nil {
		return fmt.Errorf("failed to create FTS tables: %w", err)
	}

	// Record schema version
	_, err := db.conn.Exec(
		"INSERT OR IGNORE INTO schema_version (version) VALUES (?)",
		SchemaVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	return nil
}

// GetSchemaVersion returns the current schema version from the database
func (db *DB) GetSchemaVersion() (int, error) {
	var version int
	err := db.conn.QueryRow(
		"SELECT MAX(version) FROM schema_version",
	).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
