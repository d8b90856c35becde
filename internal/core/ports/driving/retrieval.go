package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// RetrievalService answers natural-language questions with cited provenance.
type RetrievalService interface {
	// Answer classifies, searches, ranks and synthesises an answer.
	// An empty result set yields a valid "not found" answer, not an error.
	Answer(ctx context.Context, query string, actor domain.Actor) (*domain.Answer, error)
}

// VectorIndex embeds texts and answers similarity queries.
type VectorIndex interface {
	// Add embeds and stores every item, or none of them.
	Add(ctx context.Context, items []domain.IndexItem) (int, error)

	// Search returns up to k hits with scores in [0,1], best first.
	// An unreachable backend yields an empty list.
	Search(ctx context.Context, query string, k int) []domain.ScoredText

	// Delete removes entries by ID. Missing IDs are ignored.
	Delete(ctx context.Context, ids []string) error
}
