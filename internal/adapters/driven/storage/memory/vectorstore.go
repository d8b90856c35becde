package memory

import (
	"context"
	"maps"
	"math"
	"slices"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore keeps vectors in a map and scans them on every query.
type VectorStore struct {
	mu      sync.RWMutex
	records map[string]driven.VectorRecord
}

// NewVectorStore creates an empty vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{records: make(map[string]driven.VectorRecord)}
}

// Upsert inserts or replaces records by ID.
func (v *VectorStore) Upsert(_ context.Context, records []driven.VectorRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, r := range records {
		r.Embedding = slices.Clone(r.Embedding)
		r.Metadata = maps.Clone(r.Metadata)
		v.records[r.ID] = r
	}
	return nil
}

// Query returns the k records most similar to query. Records of a
// different dimension are skipped.
func (v *VectorStore) Query(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}

	v.mu.RLock()
	hits := make([]driven.VectorHit, 0, len(v.records))
	for _, r := range v.records {
		if len(r.Embedding) != len(query) {
			continue
		}
		hits = append(hits, driven.VectorHit{Record: r, Similarity: cosine(query, r.Embedding)})
	}
	v.mu.RUnlock()

	slices.SortFunc(hits, func(a, b driven.VectorHit) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		}
		return compareIDs(a.Record.ID, b.Record.ID)
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Delete removes records by ID.
func (v *VectorStore) Delete(_ context.Context, ids []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		delete(v.records, id)
	}
	return nil
}

// Count returns the number of stored records.
func (v *VectorStore) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records), nil
}

// Close is a no-op.
func (v *VectorStore) Close() error {
	return nil
}

func cosine(a, b []float32) float64 {
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
