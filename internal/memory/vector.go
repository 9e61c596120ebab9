package memory

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/heartline/heartline/internal/db"
)

// VectorStore provides vector similarity search over memory items via sqlite-vec.
type VectorStore struct {
	conn    *sql.DB
	enabled bool
}

// NewVectorStore creates a VectorStore backed by the given DB.
func NewVectorStore(database *db.DB) *VectorStore {
	return &VectorStore{conn: database.Conn(), enabled: database.VectorsEnabled()}
}

// Enabled reports whether the vec_memories table exists.
func (v *VectorStore) Enabled() bool {
	return v != nil && v.enabled
}

// UpsertMemoryEmbedding inserts or updates a memory embedding in vec_memories.
func (v *VectorStore) UpsertMemoryEmbedding(ctx context.Context, id string, embedding []float32) error {
	if len(embedding) == 0 || !v.Enabled() {
		return nil
	}
	// vec0 tables do not support upsert; replace explicitly.
	if _, err := v.conn.ExecContext(ctx, `DELETE FROM vec_memories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("vector: clear memory embedding: %w", err)
	}
	_, err := v.conn.ExecContext(ctx,
		`INSERT INTO vec_memories (id, embedding) VALUES (?, ?)`,
		id, float32SliceToBlob(embedding),
	)
	if err != nil {
		return fmt.Errorf("vector: upsert memory embedding: %w", err)
	}
	return nil
}

// VectorMatch represents a single similarity search result.
type VectorMatch struct {
	ID       string
	Distance float64
}

// Similarity converts the L2 distance into a 0..1 score.
func (m VectorMatch) Similarity() float64 {
	return 1.0 / (1.0 + m.Distance)
}

// SearchMemories finds the top-k most similar memory embeddings to the query vector.
func (v *VectorStore) SearchMemories(ctx context.Context, query []float32, topK int, minSimilarity float64) ([]VectorMatch, error) {
	if len(query) == 0 || !v.Enabled() {
		return nil, nil
	}
	rows, err := v.conn.QueryContext(ctx,
		`SELECT id, distance FROM vec_memories WHERE embedding MATCH ? AND k = ?
		 ORDER BY distance`,
		float32SliceToBlob(query), topK,
	)
	if err != nil {
		// Dimension mismatch or a missing extension; degrade gracefully.
		return nil, nil //nolint:nilerr
	}
	defer rows.Close()
	return scanMatches(rows, minSimilarity)
}

// DeleteMemoryEmbedding removes a memory embedding.
func (v *VectorStore) DeleteMemoryEmbedding(ctx context.Context, id string) error {
	if !v.Enabled() {
		return nil
	}
	_, err := v.conn.ExecContext(ctx, `DELETE FROM vec_memories WHERE id = ?`, id)
	return err
}

// ---- Helpers ----

func scanMatches(rows *sql.Rows, minSimilarity float64) ([]VectorMatch, error) {
	var out []VectorMatch
	for rows.Next() {
		var m VectorMatch
		if err := rows.Scan(&m.ID, &m.Distance); err != nil {
			return nil, err
		}
		if m.Similarity() >= minSimilarity {
			out = append(out, m)
		}
	}
	return out, rows.Err()
}

// float32SliceToBlob serialises a float32 slice to a little-endian byte blob.
// This is the format expected by sqlite-vec's BLOB column input.
func float32SliceToBlob(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// BlobToFloat32Slice deserialises a little-endian byte blob to a float32 slice.
func BlobToFloat32Slice(b []byte) []float32 {
	result := make([]float32, len(b)/4)
	for i := range result {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		result[i] = math.Float32frombits(bits)
	}
	return result
}
