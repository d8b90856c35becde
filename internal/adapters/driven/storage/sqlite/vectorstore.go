package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"sort"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// VectorStore keeps embeddings in their own SQLite database and answers
// nearest-neighbour queries by scanning every row. It suits collections
// of up to a few hundred thousand chunks.
type VectorStore struct {
	db   *sql.DB
	path string
}

var _ driven.VectorStore = (*VectorStore)(nil)

// NewVectorStore opens (or creates) vectors.db under dir.
func NewVectorStore(dir string) (*VectorStore, error) {
	dbPath := filepath.Join(dir, "vectors.db")
	db, err := open(dbPath, migrations.VectorsFS())
	if err != nil {
		return nil, err
	}
	return &VectorStore{db: db, path: dbPath}, nil
}

// Path returns the database file path.
func (v *VectorStore) Path() string {
	return v.path
}

// Upsert stores all records in one transaction.
func (v *VectorStore) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrIndexUnavailable, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (id, dimensions, embedding, text, metadata)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			dimensions = excluded.dimensions,
			embedding = excluded.embedding,
			text = excluded.text,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("%w: preparing statement: %v", domain.ErrIndexUnavailable, err)
	}
	defer stmt.Close()

	for _, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s has no embedding", r.ID)
		}
		metadataJSON, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, len(r.Embedding),
			float32SliceToBytes(r.Embedding), r.Text, string(metadataJSON)); err != nil {
			return fmt.Errorf("%w: storing vector %s: %v", domain.ErrIndexUnavailable, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing vectors: %v", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Query scans all vectors of matching dimension and returns the k most
// similar by cosine similarity.
func (v *VectorStore) Query(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	rows, err := v.db.QueryContext(ctx,
		"SELECT id, embedding, text, metadata FROM vectors WHERE dimensions = ?", len(query))
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", domain.ErrIndexUnavailable, err)
	}
	defer rows.Close()

	var hits []driven.VectorHit
	for rows.Next() {
		var (
			rec          driven.VectorRecord
			blob         []byte
			metadataJSON string
		)
		if err := rows.Scan(&rec.ID, &blob, &rec.Text, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling vector metadata: %w", err)
		}
		hits = append(hits, driven.VectorHit{
			Record:     rec,
			Similarity: Cosine(query, bytesToFloat32Slice(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating vectors: %v", domain.ErrIndexUnavailable, err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Record.ID < hits[j].Record.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes records by ID.
func (v *VectorStore) Delete(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := v.db.ExecContext(ctx, "DELETE FROM vectors WHERE id = ?", id); err != nil {
			return fmt.Errorf("%w: deleting vector %s: %v", domain.ErrIndexUnavailable, id, err)
		}
	}
	return nil
}

// Count returns the number of stored records.
func (v *VectorStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := v.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vectors").Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: counting vectors: %v", domain.ErrIndexUnavailable, err)
	}
	return n, nil
}

// Close closes the database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}

// Cosine returns the cosine similarity of a and b, 0 if either is zero
// or their lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
