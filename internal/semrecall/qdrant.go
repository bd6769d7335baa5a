package semrecall

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// CollClauses is the qdrant collection holding one point per clause.
const CollClauses = "clauses"

// QdrantConfig holds connection settings for a Qdrant instance.
type QdrantConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// VectorStore wraps the qdrant gRPC services used for clause recall.
type VectorStore struct {
	conn        *grpc.ClientConn
	collections pb.CollectionsClient
	points      pb.PointsClient
}

// NewVectorStore dials the qdrant gRPC endpoint.
func NewVectorStore(cfg QdrantConfig) (*VectorStore, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		collections: pb.NewCollectionsClient(conn),
		points:      pb.NewPointsClient(conn),
	}, nil
}

// EnsureCollection creates the clause collection if missing.
func (v *VectorStore) EnsureCollection(ctx context.Context, dimension uint64) error {
	_, err := v.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: CollClauses})
	if err == nil {
		return nil
	}
	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: CollClauses,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", CollClauses, err)
	}
	return nil
}

// Upsert writes one clause point keyed by a stable UUID with the clause
// identity in the payload.
func (v *VectorStore) Upsert(ctx context.Context, pointID string, vector []float32, payload map[string]string) error {
	payloadMap := make(map[string]*pb.Value, len(payload))
	for k, val := range payload {
		payloadMap[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: val}}
	}
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: CollClauses,
		Points: []*pb.PointStruct{
			{
				Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID}},
				Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: vector}}},
				Payload: payloadMap,
			},
		},
	})
	return err
}

// Hit is one nearest-neighbor clause match.
type Hit struct {
	ClauseID  string
	Framework string
	Score     float32
}

// Search returns the topK nearest clause points for the query vector.
func (v *VectorStore) Search(ctx context.Context, vector []float32, topK uint64) ([]Hit, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: CollClauses,
		Vector:         vector,
		Limit:          topK,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", CollClauses, err)
	}

	hits := make([]Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		h := Hit{Score: r.Score}
		if v, ok := r.Payload["clause_id"]; ok {
			if sv, ok := v.Kind.(*pb.Value_StringValue); ok {
				h.ClauseID = sv.StringValue
			}
		}
		if v, ok := r.Payload["framework"]; ok {
			if sv, ok := v.Kind.(*pb.Value_StringValue); ok {
				h.Framework = sv.StringValue
			}
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Close tears down the gRPC connection.
func (v *VectorStore) Close() error {
	return v.conn.Close()
}
