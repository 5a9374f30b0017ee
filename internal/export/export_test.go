package export

import (
	"strings"
	"testing"

	"dkb/internal/logging"
	"dkb/internal/storage"
)

func TestSnapshotRoundTrip(t *testing.T) {
	db, err := storage.Open(t.TempDir(), logging.Nop())
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	defer db.Close()

	docs := []storage.Document{
		{DocID: "d1", Content: "first note", FilePath: "a.go", CreatedAt: 10},
		{DocID: "d2", Content: "second note", CreatedAt: 20},
	}
	for _, d := range docs {
		if err := db.PutDocument(d); err != nil {
			t.Fatalf("PutDocument failed: %v", err)
		}
	}
	if err := db.RecordCoChange("a.go", "b.go", 5); err != nil {
		t.Fatalf("RecordCoChange failed: %v", err)
	}

	dir := t.TempDir()
	path, err := Write(db, dir)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !strings.HasSuffix(path, ".json.zst") {
		t.Errorf("snapshot path = %s, want .json.zst suffix", path)
	}

	snap, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if snap.Tool != "dkb" || snap.SnapshotID == "" {
		t.Errorf("unexpected snapshot header: %+v", snap)
	}
	if snap.DocCount != 2 || len(snap.Documents) != 2 {
		t.Errorf("snapshot has %d/%d documents, want 2", snap.DocCount, len(snap.Documents))
	}
	if len(snap.CoChanges) != 1 || snap.CoChanges[0].Count != 1 {
		t.Errorf("snapshot co-changes = %+v", snap.CoChanges)
	}

	// Two exports never share a file name
	path2, err := Write(db, dir)
	if err != nil {
		t.Fatalf("second Write failed: %v", err)
	}
	if path2 == path {
		t.Error("repeated exports produced the same path")
	}
}
