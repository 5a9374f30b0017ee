// Package export writes portable snapshots of the knowledge database.
// Snapshots are zstd-compressed JSON so they stay small enough to
// attach to an issue or move between machines.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"dkb/internal/storage"
	"dkb/internal/version"
)

// Snapshot is the on-disk export format.
type Snapshot struct {
	SnapshotID  string             `json:"snapshotId"`
	Tool        string             `json:"tool"`
	Version     string             `json:"version"`
	ExportedAt  time.Time          `json:"exportedAt"`
	Documents   []storage.Document `json:"documents"`
	CoChanges   []storage.CoChange `json:"coChanges,omitempty"`
	DocCount    int                `json:"docCount"`
	EmbedCount  int                `json:"embedCount"`
}

// Write exports the database to dir and returns the snapshot path.
// The file name embeds a fresh snapshot id so repeated exports never
// clobber each other.
func Write(db *storage.DB, dir string) (string, error) {
	snap, err := build(db)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("dkb-snapshot-%s.json.zst", snap.SnapshotID))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return "", fmt.Errorf("failed to create compressor: %w", err)
	}

	if err := json.NewEncoder(enc).Encode(snap); err != nil {
		enc.Close()
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to finish compression: %w", err)
	}

	return path, nil
}

// Read loads a snapshot written by Write.
func Read(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer dec.Close()

	var snap Snapshot
	if err := json.NewDecoder(dec).Decode(&snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

func build(db *storage.DB) (*Snapshot, error) {
	docCount, err := db.CountDocuments()
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	embedCount, err := db.CountEmbeddings()
	if err != nil {
		return nil, fmt.Errorf("failed to count embeddings: %w", err)
	}

	docs, err := db.RecentDocuments(docCount)
	if err != nil {
		return nil, err
	}
	coChanges, err := db.CoChangedFiles("", docCount*10+100)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		SnapshotID: uuid.NewString(),
		Tool:       "dkb",
		Version:    version.Version,
		ExportedAt: time.Now().UTC(),
		Documents:  docs,
		CoChanges:  coChanges,
		DocCount:   docCount,
		EmbedCount: embedCount,
	}, nil
}
