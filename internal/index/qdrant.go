package index

import (
	"context"
	"fmt"

	"f1-rag-go/internal/config"
	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/log"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// QdrantIndex 通过 gRPC 使用 Qdrant 存储向量，距离度量为点积。
type QdrantIndex struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	dimension   int
}

// NewQdrantIndex 连接 Qdrant，并在集合不存在时创建它。
func NewQdrantIndex(ctx context.Context, cfg config.QdrantConfig, dim int) (*QdrantIndex, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	q := &QdrantIndex{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  cfg.Collection,
		dimension:   dim,
	}
	if err := q.ensureCollection(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return q, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	if _, err := q.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: q.collection}); err == nil {
		return nil
	}
	_, err := q.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(q.dimension), Distance: pb.Distance_Dot},
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant create collection %s: %w", q.collection, err)
	}
	log.Infof("[QdrantIndex] 集合 '%s' 创建成功, 维度: %d", q.collection, q.dimension)
	return nil
}

// pointID 由分块 ID 派生出稳定的 UUID，重复写入同一分块会覆盖同一个点。
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func intValue(n int) *pb.Value {
	return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(n)}}
}

func (q *QdrantIndex) Dimension() int {
	return q.dimension
}

func (q *QdrantIndex) Upsert(ctx context.Context, entries []model.IndexEntry) (int, error) {
	if err := validateEntries(entries, q.dimension); err != nil {
		return 0, err
	}
	points := make([]*pb.PointStruct, len(entries))
	for i, e := range entries {
		md := e.Metadata
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(e.ID)}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: Normalize(e.Vector)}}},
			Payload: map[string]*pb.Value{
				"chunk_id":     stringValue(e.ID),
				"document_id":  stringValue(md.DocumentID),
				"title":        stringValue(md.Title),
				"content":      stringValue(md.Content),
				"type":         stringValue(md.Type),
				"source":       stringValue(md.Source),
				"chunk_index":  intValue(md.ChunkIndex),
				"total_chunks": intValue(md.TotalChunks),
			},
		}
	}
	wait := true
	if _, err := q.points.Upsert(ctx, &pb.UpsertPoints{CollectionName: q.collection, Wait: &wait, Points: points}); err != nil {
		return 0, fmt.Errorf("%w: qdrant upsert: %v", model.ErrBackendUnavailable, err)
	}
	return len(points), nil
}

func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]model.SearchHit, error) {
	if err := validateQuery(query, k, q.dimension); err != nil {
		return nil, err
	}
	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.collection,
		Vector:         Normalize(query),
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant search: %v", model.ErrBackendUnavailable, err)
	}

	hits := make([]model.SearchHit, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		p := pt.GetPayload()
		hits[i] = model.SearchHit{
			ID:    p["chunk_id"].GetStringValue(),
			Score: clampScore(float64(pt.GetScore())),
			Metadata: model.ChunkMetadata{
				DocumentID:  p["document_id"].GetStringValue(),
				Title:       p["title"].GetStringValue(),
				Content:     p["content"].GetStringValue(),
				Type:        p["type"].GetStringValue(),
				Source:      p["source"].GetStringValue(),
				ChunkIndex:  int(p["chunk_index"].GetIntegerValue()),
				TotalChunks: int(p["total_chunks"].GetIntegerValue()),
			},
		}
	}
	return hits, nil
}

func (q *QdrantIndex) Stats(ctx context.Context) model.IndexStats {
	resp, err := q.collections.Get(ctx, &pb.GetCollectionInfoRequest{CollectionName: q.collection})
	if err != nil {
		log.Warnf("[QdrantIndex] 获取集合统计失败, 返回降级结果: %v", err)
		return model.IndexStats{TotalDocuments: 0, Dimension: q.dimension}
	}
	return model.IndexStats{TotalDocuments: int(resp.GetResult().GetPointsCount()), Dimension: q.dimension}
}

// Close 关闭底层 gRPC 连接。
func (q *QdrantIndex) Close() error {
	return q.conn.Close()
}

var _ VectorIndex = (*QdrantIndex)(nil)
