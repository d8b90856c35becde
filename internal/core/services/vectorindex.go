package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure VectorIndex implements the interface.
var _ driving.VectorIndex = (*VectorIndex)(nil)

// VectorIndex pairs an embedding service with a vector store.
type VectorIndex struct {
	store    driven.VectorStore
	embedder driven.EmbeddingService
}

// NewVectorIndex creates a vector index.
func NewVectorIndex(store driven.VectorStore, embedder driven.EmbeddingService) *VectorIndex {
	return &VectorIndex{
		store:    store,
		embedder: embedder,
	}
}

// Add embeds every item and upserts the whole batch. Any failure fails
// the batch; nothing is reported as indexed unless the store accepted it.
func (v *VectorIndex) Add(ctx context.Context, items []domain.IndexItem) (int, error) {
	if len(items) == 0 {
		return 0, nil
	}

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.Text
	}

	embeddings, err := v.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	if len(embeddings) != len(items) {
		return 0, fmt.Errorf("%w: embedder returned %d vectors for %d texts",
			domain.ErrEmbeddingUnavailable, len(embeddings), len(items))
	}

	records := make([]driven.VectorRecord, len(items))
	for i, item := range items {
		records[i] = driven.VectorRecord{
			ID:        item.ID,
			Embedding: embeddings[i],
			Text:      item.Text,
			Metadata:  item.Metadata,
		}
	}

	if err := v.store.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert %d vectors: %w", len(records), err)
	}
	return len(records), nil
}

// Search embeds the query and returns up to k hits, best first.
// Scores are cosine similarities clamped to [0,1]. Embedding or
// backend failures yield an empty result.
func (v *VectorIndex) Search(ctx context.Context, query string, k int) []domain.ScoredText {
	results := []domain.ScoredText{}
	if k <= 0 {
		return results
	}

	embedding, err := v.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warnw("search degraded: embedding failed", "error", err)
		return results
	}

	hits, err := v.store.Query(ctx, embedding, k)
	if err != nil {
		logger.Warnw("search degraded: vector store unavailable", "error", err)
		return results
	}

	for _, hit := range hits {
		results = append(results, domain.ScoredText{
			ID:       hit.Record.ID,
			Text:     hit.Record.Text,
			Metadata: hit.Record.Metadata,
			Score:    normaliseScore(hit.Similarity),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results
}

// Delete removes entries by ID.
func (v *VectorIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return v.store.Delete(ctx, ids)
}

// normaliseScore maps cosine similarity onto [0,1]. Opposed vectors
// carry no relevance, so negatives clamp to zero.
func normaliseScore(similarity float64) float64 {
	switch {
	case similarity < 0:
		return 0
	case similarity > 1:
		return 1
	default:
		return similarity
	}
}
