package index

import (
	"context"
	"fmt"
	"sort"

	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/es"
	"f1-rag-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
)

// ESIndex 把向量存放在 Elasticsearch 的 dense_vector 字段中。
type ESIndex struct {
	client    *elasticsearch.Client
	indexName string
	dimension int
}

// NewESIndex 使用已初始化的客户端创建索引后端。
func NewESIndex(client *elasticsearch.Client, indexName string, dim int) *ESIndex {
	return &ESIndex{client: client, indexName: indexName, dimension: dim}
}

func (x *ESIndex) Dimension() int {
	return x.dimension
}

func (x *ESIndex) Upsert(ctx context.Context, entries []model.IndexEntry) (int, error) {
	if err := validateEntries(entries, x.dimension); err != nil {
		return 0, err
	}
	docs := make([]model.EsChunkDocument, len(entries))
	for i, e := range entries {
		md := e.Metadata
		docs[i] = model.EsChunkDocument{
			ChunkID:     e.ID,
			DocumentID:  md.DocumentID,
			Title:       md.Title,
			Content:     md.Content,
			Type:        md.Type,
			Source:      md.Source,
			ChunkIndex:  md.ChunkIndex,
			TotalChunks: md.TotalChunks,
			Vector:      Normalize(e.Vector),
		}
	}
	if err := es.BulkIndex(ctx, x.client, x.indexName, docs); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrBackendUnavailable, err)
	}
	return len(docs), nil
}

func (x *ESIndex) Search(ctx context.Context, query []float32, k int) ([]model.SearchHit, error) {
	if err := validateQuery(query, k, x.dimension); err != nil {
		return nil, err
	}
	raw, err := es.KNNSearch(ctx, x.client, x.indexName, Normalize(query), k)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBackendUnavailable, err)
	}
	hits := make([]model.SearchHit, len(raw))
	for i, h := range raw {
		// dot_product 得分为 (1 + cos) / 2，换算回余弦相似度
		hits[i] = model.SearchHit{ID: h.Source.ChunkID, Score: clampScore(2*h.Score - 1), Metadata: h.Source.Metadata()}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits, nil
}

func (x *ESIndex) Stats(ctx context.Context) model.IndexStats {
	n, err := es.Count(ctx, x.client, x.indexName)
	if err != nil {
		log.Warnf("[ESIndex] 获取索引统计失败, 返回降级结果: %v", err)
		return model.IndexStats{TotalDocuments: 0, Dimension: x.dimension}
	}
	return model.IndexStats{TotalDocuments: n, Dimension: x.dimension}
}

var _ VectorIndex = (*ESIndex)(nil)
