package storage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DocumentEmbedding pairs a document with its embedding vector.
type DocumentEmbedding struct {
	DocID  string
	Model  string
	Vector []float32
}

// PutEmbedding stores an embedding vector for a document.
func (db *DB) PutEmbedding(docID, model string, vector []float32) error {
	_, err := db.conn.Exec(`
		INSERT INTO document_embeddings (doc_id, model, dim, vector)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			model = excluded.model,
			dim = excluded.dim,
			vector = excluded.vector`,
		docID, model, len(vector), EncodeVector(vector))
	if err != nil {
		return fmt.Errorf("failed to store embedding for %s: %w", docID, err)
	}
	return nil
}

// AllEmbeddings streams every stored embedding. The corpus is local and
// small, so a full scan per query is acceptable.
func (db *DB) AllEmbeddings() ([]DocumentEmbedding, error) {
	rows, err := db.conn.Query(
		"SELECT doc_id, model, dim, vector FROM document_embeddings")
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	var out []DocumentEmbedding
	for rows.Next() {
		var (
			emb  DocumentEmbedding
			dim  int
			blob []byte
		)
		if err := rows.Scan(&emb.DocID, &emb.Model, &dim, &blob); err != nil {
			return nil, err
		}
		vec, err := DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("corrupt embedding for %s: %w", emb.DocID, err)
		}
		if len(vec) != dim {
			return nil, fmt.Errorf("embedding for %s has %d values, expected %d", emb.DocID, len(vec), dim)
		}
		emb.Vector = vec
		out = append(out, emb)
	}
	return out, rows.Err()
}

// CountEmbeddings returns the number of stored embedding vectors.
func (db *DB) CountEmbeddings() (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM document_embeddings").Scan(&n)
	return n, err
}

// EncodeVector packs a float32 vector into a little-endian blob.
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector unpacks a little-endian blob into a float32 vector.
func DecodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("vector blob length %d is not a multiple of 4", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
