// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"strings"

	"f1-rag-go/internal/index"
	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/embedding"
	"f1-rag-go/pkg/log"

	"go.opentelemetry.io/otel/attribute"
)

// SearchService 负责查询向量化与相似度检索。
type SearchService interface {
	// Search 返回与 query 最相似的至多 topK 个分块。
	// 向量化失败时错误匹配 model.ErrEmbeddingFailure。
	Search(ctx context.Context, query string, topK int) ([]model.SearchHit, error)
}

type searchService struct {
	embedder embedding.Embedder
	index    index.VectorIndex
}

// NewSearchService 创建一个新的 SearchService 实例。
func NewSearchService(embedder embedding.Embedder, idx index.VectorIndex) SearchService {
	return &searchService{embedder: embedder, index: idx}
}

func (s *searchService) Search(ctx context.Context, query string, topK int) ([]model.SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is empty", model.ErrInvalidInput)
	}
	ctx, span := tracer.Start(ctx, "rag.search")
	defer span.End()
	span.SetAttributes(attribute.Int("rag.top_k", topK))

	log.Debugf("[SearchService] 步骤1: 向量化查询, query_len: %d", len(query))
	queryVector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("%w: %w", model.ErrEmbeddingFailure, err)
	}

	log.Debugf("[SearchService] 步骤2: 检索向量索引, 维度: %d", len(queryVector))
	hits, err := s.index.Search(ctx, queryVector, topK)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	span.SetAttributes(attribute.Int("rag.hits", len(hits)))
	log.Infof("[SearchService] 检索完成, 命中 %d 条", len(hits))
	return hits, nil
}
