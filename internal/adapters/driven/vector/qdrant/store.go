// Package qdrant stores chunk vectors in a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

const (
	payloadText     = "text"
	payloadVectorID = "vector_id"
	payloadMetadata = "metadata"
)

// pointNamespace derives stable point UUIDs from chunk vector IDs.
var pointNamespace = uuid.MustParse("6f1c8f0e-4b7a-5d2e-9c3a-1e2f3a4b5c6d")

// PointsAPI is the subset of qdrant.PointsClient the store uses.
type PointsAPI interface {
	Upsert(ctx context.Context, in *qdrantclient.UpsertPoints, opts ...grpc.CallOption) (*qdrantclient.PointsOperationResponse, error)
	Search(ctx context.Context, in *qdrantclient.SearchPoints, opts ...grpc.CallOption) (*qdrantclient.SearchResponse, error)
	Delete(ctx context.Context, in *qdrantclient.DeletePoints, opts ...grpc.CallOption) (*qdrantclient.PointsOperationResponse, error)
	Count(ctx context.Context, in *qdrantclient.CountPoints, opts ...grpc.CallOption) (*qdrantclient.CountResponse, error)
}

// CollectionsAPI is the subset of qdrant.CollectionsClient the store uses.
type CollectionsAPI interface {
	List(ctx context.Context, in *qdrantclient.ListCollectionsRequest, opts ...grpc.CallOption) (*qdrantclient.ListCollectionsResponse, error)
	Create(ctx context.Context, in *qdrantclient.CreateCollection, opts ...grpc.CallOption) (*qdrantclient.CollectionOperationResponse, error)
}

// Store implements driven.VectorStore on a Qdrant collection using
// cosine distance.
type Store struct {
	conn        *grpc.ClientConn
	points      PointsAPI
	collections CollectionsAPI
	collection  string
}

var _ driven.VectorStore = (*Store)(nil)

// Dial connects to Qdrant's gRPC endpoint and ensures the collection
// exists with the given dimensions.
func Dial(ctx context.Context, addr, collection string, dimensions int) (*Store, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: connecting to qdrant at %s: %v", domain.ErrIndexUnavailable, addr, err)
	}
	s := New(qdrantclient.NewPointsClient(conn), qdrantclient.NewCollectionsClient(conn), collection)
	s.conn = conn
	if err := s.EnsureCollection(ctx, dimensions); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Debug("connected to qdrant at %s (collection %s)", addr, collection)
	return s, nil
}

// New builds a store over existing clients.
func New(points PointsAPI, collections CollectionsAPI, collection string) *Store {
	return &Store{points: points, collections: collections, collection: collection}
}

// EnsureCollection creates the collection if it does not exist.
func (s *Store) EnsureCollection(ctx context.Context, dimensions int) error {
	resp, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("%w: listing collections: %v", domain.ErrIndexUnavailable, err)
	}
	for _, col := range resp.GetCollections() {
		if col.GetName() == s.collection {
			return nil
		}
	}

	logger.Info("creating qdrant collection %s (%d dimensions)", s.collection, dimensions)
	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimensions),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: creating collection %s: %v", domain.ErrIndexUnavailable, s.collection, err)
	}
	return nil
}

// Upsert writes records as points keyed by a UUID derived from their ID.
func (s *Store) Upsert(ctx context.Context, records []driven.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrantclient.PointStruct, 0, len(records))
	for _, r := range records {
		metadata, err := toStruct(r.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", r.ID, err)
		}
		points = append(points, &qdrantclient.PointStruct{
			Id: pointID(r.ID),
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: r.Embedding},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				payloadText:     {Kind: &qdrantclient.Value_StringValue{StringValue: r.Text}},
				payloadVectorID: {Kind: &qdrantclient.Value_StringValue{StringValue: r.ID}},
				payloadMetadata: {Kind: &qdrantclient.Value_StructValue{StructValue: metadata}},
			},
		})
	}

	wait := true
	if _, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("%w: upserting %d points: %v", domain.ErrIndexUnavailable, len(points), err)
	}
	return nil
}

// Query returns the k nearest points. Qdrant reports cosine similarity
// as the score for cosine collections.
func (s *Store) Query(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 || len(query) == 0 {
		return nil, nil
	}
	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         query,
		Limit:          uint64(k),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: searching: %v", domain.ErrIndexUnavailable, err)
	}

	hits := make([]driven.VectorHit, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		rec := driven.VectorRecord{
			ID:       point.Payload[payloadVectorID].GetStringValue(),
			Text:     point.Payload[payloadText].GetStringValue(),
			Metadata: fromStruct(point.Payload[payloadMetadata].GetStructValue()),
		}
		hits = append(hits, driven.VectorHit{Record: rec, Similarity: float64(point.GetScore())})
	}
	return hits, nil
}

// Delete removes points by record ID.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrantclient.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = pointID(id)
	}
	wait := true
	_, err := s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Points{
				Points: &qdrantclient.PointsIdsList{Ids: pointIDs},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: deleting %d points: %v", domain.ErrIndexUnavailable, len(ids), err)
	}
	return nil
}

// Count returns the exact number of points in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: counting points: %v", domain.ErrIndexUnavailable, err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// Close closes the gRPC connection if the store owns one.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func pointID(id string) *qdrantclient.PointId {
	return &qdrantclient.PointId{
		PointIdOptions: &qdrantclient.PointId_Uuid{
			Uuid: uuid.NewSHA1(pointNamespace, []byte(id)).String(),
		},
	}
}
