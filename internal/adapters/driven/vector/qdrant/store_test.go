package qdrant

import (
	"context"
	"errors"
	"sort"
	"testing"

	qdrantclient "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

type fakePoints struct {
	points    map[string]*qdrantclient.PointStruct
	lastQuery *qdrantclient.SearchPoints
	scores    map[string]float32
	err       error
}

func newFakePoints() *fakePoints {
	return &fakePoints{points: map[string]*qdrantclient.PointStruct{}, scores: map[string]float32{}}
}

func (f *fakePoints) Upsert(_ context.Context, in *qdrantclient.UpsertPoints, _ ...grpc.CallOption) (*qdrantclient.PointsOperationResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, p := range in.GetPoints() {
		f.points[p.GetId().GetUuid()] = p
	}
	return &qdrantclient.PointsOperationResponse{}, nil
}

func (f *fakePoints) Search(_ context.Context, in *qdrantclient.SearchPoints, _ ...grpc.CallOption) (*qdrantclient.SearchResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastQuery = in
	var result []*qdrantclient.ScoredPoint
	for id, p := range f.points {
		result = append(result, &qdrantclient.ScoredPoint{Id: p.GetId(), Payload: p.GetPayload(), Score: f.scores[id]})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Score > result[j].Score })
	if uint64(len(result)) > in.GetLimit() {
		result = result[:in.GetLimit()]
	}
	return &qdrantclient.SearchResponse{Result: result}, nil
}

func (f *fakePoints) Delete(_ context.Context, in *qdrantclient.DeletePoints, _ ...grpc.CallOption) (*qdrantclient.PointsOperationResponse, error) {
	for _, id := range in.GetPoints().GetPoints().GetIds() {
		delete(f.points, id.GetUuid())
	}
	return &qdrantclient.PointsOperationResponse{}, nil
}

func (f *fakePoints) Count(_ context.Context, _ *qdrantclient.CountPoints, _ ...grpc.CallOption) (*qdrantclient.CountResponse, error) {
	return &qdrantclient.CountResponse{Result: &qdrantclient.CountResult{Count: uint64(len(f.points))}}, nil
}

type fakeCollections struct {
	names   []string
	created []*qdrantclient.CreateCollection
}

func (f *fakeCollections) List(_ context.Context, _ *qdrantclient.ListCollectionsRequest, _ ...grpc.CallOption) (*qdrantclient.ListCollectionsResponse, error) {
	resp := &qdrantclient.ListCollectionsResponse{}
	for _, n := range f.names {
		resp.Collections = append(resp.Collections, &qdrantclient.CollectionDescription{Name: n})
	}
	return resp, nil
}

func (f *fakeCollections) Create(_ context.Context, in *qdrantclient.CreateCollection, _ ...grpc.CallOption) (*qdrantclient.CollectionOperationResponse, error) {
	f.created = append(f.created, in)
	f.names = append(f.names, in.GetCollectionName())
	return &qdrantclient.CollectionOperationResponse{Result: true}, nil
}

func TestEnsureCollection(t *testing.T) {
	ctx := context.Background()
	cols := &fakeCollections{}
	s := New(newFakePoints(), cols, "cyber_laws")

	require.NoError(t, s.EnsureCollection(ctx, 384))
	require.NoError(t, s.EnsureCollection(ctx, 384))

	require.Len(t, cols.created, 1)
	params := cols.created[0].GetVectorsConfig().GetParams()
	assert.Equal(t, uint64(384), params.GetSize())
	assert.Equal(t, qdrantclient.Distance_Cosine, params.GetDistance())
}

func TestStore_UpsertQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	points := newFakePoints()
	s := New(points, &fakeCollections{}, "cyber_laws")

	require.NoError(t, s.Upsert(ctx, []driven.VectorRecord{
		{ID: "doc_chunk_0", Embedding: []float32{1, 0}, Text: "hacking",
			Metadata: map[string]any{
				domain.MetaSectionTitle: "SECTION 66",
				domain.MetaVersion:      2,
				domain.MetaKeywords:     []string{"hacking", "computer"},
			}},
		{ID: "doc_chunk_1", Embedding: []float32{0, 1}, Text: "privacy"},
	}))
	require.Len(t, points.points, 2)
	points.scores[pointID("doc_chunk_0").GetUuid()] = 0.9
	points.scores[pointID("doc_chunk_1").GetUuid()] = 0.2

	hits, err := s.Query(ctx, []float32{1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, uint64(1), points.lastQuery.GetLimit())
	assert.True(t, points.lastQuery.GetWithPayload().GetEnable())

	hit := hits[0]
	assert.Equal(t, "doc_chunk_0", hit.Record.ID)
	assert.Equal(t, "hacking", hit.Record.Text)
	assert.InDelta(t, 0.9, hit.Similarity, 1e-6)
	assert.Equal(t, "SECTION 66", hit.Record.Metadata[domain.MetaSectionTitle])
	assert.Equal(t, 2.0, hit.Record.Metadata[domain.MetaVersion])
	assert.Equal(t, []any{"hacking", "computer"}, hit.Record.Metadata[domain.MetaKeywords])

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.Delete(ctx, []string{"doc_chunk_0"}))
	n, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_ErrorsWrapIndexUnavailable(t *testing.T) {
	ctx := context.Background()
	points := newFakePoints()
	points.err = errors.New("connection refused")
	s := New(points, &fakeCollections{}, "cyber_laws")

	err := s.Upsert(ctx, []driven.VectorRecord{{ID: "a", Embedding: []float32{1}}})
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
	_, err = s.Query(ctx, []float32{1}, 3)
	assert.ErrorIs(t, err, domain.ErrIndexUnavailable)
}

func TestPointIDIsStable(t *testing.T) {
	assert.Equal(t, pointID("doc_chunk_0").GetUuid(), pointID("doc_chunk_0").GetUuid())
	assert.NotEqual(t, pointID("doc_chunk_0").GetUuid(), pointID("doc_chunk_1").GetUuid())
}

func TestToValueRejectsUnknownTypes(t *testing.T) {
	_, err := toStruct(map[string]any{"bad": struct{}{}})
	assert.Error(t, err)
}
