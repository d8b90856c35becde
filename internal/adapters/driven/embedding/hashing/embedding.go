// Package hashing provides an offline, deterministic embedding service
// using signed feature hashing over word unigrams and bigrams.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// DefaultDimensions matches the all-MiniLM-L6-v2 vector size.
const DefaultDimensions = 384

// ModelName is reported by ModelName.
const ModelName = "hashing-v1"

var tokenPattern = regexp.MustCompile(`\w+`)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// EmbeddingService hashes tokens into a fixed-size L2-normalised vector.
// It needs no network and gives identical output across runs.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService creates a hashing embedder. Non-positive
// dimensions select DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns the embedding of text. Text without word characters
// yields the zero vector.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float64, s.dimensions)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		s.add(vec, tok, 1)
		if i > 0 {
			s.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, s.dimensions)
	if norm == 0 {
		return out, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

func (s *EmbeddingService) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(s.dimensions))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns "hashing-v1".
func (s *EmbeddingService) ModelName() string { return ModelName }

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *EmbeddingService) Close() error { return nil }
