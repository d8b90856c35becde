package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// VectorRecord is one stored embedding with its text and flat metadata.
type VectorRecord struct {
	// ID is the caller-supplied opaque key.
	ID string

	// Embedding is the vector representation.
	Embedding []float32

	// Text is returned verbatim by searches.
	Text string

	// Metadata mirrors the chunk metadata.
	Metadata map[string]any
}

// VectorStore persists embeddings and answers nearest-neighbour queries.
// It knows nothing about documents or versions.
type VectorStore interface {
	// Upsert stores all records or none of them.
	Upsert(ctx context.Context, records []VectorRecord) error

	// Query finds the k nearest records to the query vector.
	// Returns an error wrapping domain.ErrIndexUnavailable when the backend is unreachable.
	Query(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	// Delete removes records by ID. Missing IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Record is the matched entry. Embedding may be omitted.
	Record VectorRecord

	// Similarity is the raw cosine similarity in [-1, 1].
	Similarity float64
}

// IntentClassifier maps a free-text query to a closed-set intent.
type IntentClassifier interface {
	// Classify never fails; an untrained classifier returns domain.IntentGeneral.
	Classify(query string) domain.Intent
}
