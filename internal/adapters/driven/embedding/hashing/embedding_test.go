package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbed_DeterministicAndNormalised(t *testing.T) {
	ctx := context.Background()
	svc := NewEmbeddingService(0)
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
	assert.Equal(t, ModelName, svc.ModelName())

	a, err := svc.Embed(ctx, "Punishment for hacking under Section 66")
	require.NoError(t, err)
	b, err := NewEmbeddingService(0).Embed(ctx, "punishment for HACKING under section 66")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbed_SimilarTextScoresHigher(t *testing.T) {
	ctx := context.Background()
	svc := NewEmbeddingService(256)

	embs, err := svc.EmbedBatch(ctx, []string{
		"penalty for computer hacking",
		"hacking a computer system carries a penalty",
		"registration of marriages in the district office",
	})
	require.NoError(t, err)
	require.Len(t, embs, 3)
	assert.Greater(t, cosine(embs[0], embs[1]), cosine(embs[0], embs[2]))
}

func TestEmbed_EmptyTextIsZero(t *testing.T) {
	emb, err := NewEmbeddingService(8).Embed(context.Background(), "  ... ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), emb)
}

func TestEmbed_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbeddingService(8).EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, NewEmbeddingService(8).Ping(context.Background()))
}
