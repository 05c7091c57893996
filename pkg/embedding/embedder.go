package embedding

import (
	"context"
	"fmt"
	"strings"

	"f1-rag-go/internal/config"
	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/log"
)

// Embedder turns text into fixed-length vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

type embedder struct {
	backend   Client
	dimension int
}

// NewMockEmbedder returns an Embedder that never leaves the process.
func NewMockEmbedder(dim int) Embedder {
	return NewEmbedder(nil, dim)
}

// NewEmbedder returns an Embedder backed by backend. Each failed or malformed
// backend call falls back to MockEmbedding. A nil backend means mock only.
func NewEmbedder(backend Client, dim int) Embedder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	return &embedder{backend: backend, dimension: dim}
}

// NewFromConfig picks the strategy once: the API backend when a provider other
// than "mock" is configured together with a base URL, otherwise the local fallback.
func NewFromConfig(cfg config.EmbeddingConfig) Embedder {
	if cfg.Provider == "" || cfg.Provider == "mock" || cfg.BaseURL == "" {
		log.Infof("[Embedder] 使用本地 mock 向量, 维度: %d", cfg.Dimensions)
		return NewMockEmbedder(cfg.Dimensions)
	}
	log.Infof("[Embedder] 使用 Embedding API, model: %s, 维度: %d", cfg.Model, cfg.Dimensions)
	return NewEmbedder(NewClient(cfg), cfg.Dimensions)
}

func (e *embedder) Dimension() int {
	return e.dimension
}

func (e *embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text to embed is empty", model.ErrInvalidInput)
	}
	if e.backend == nil {
		return MockEmbedding(text, e.dimension), nil
	}

	vec, err := e.backend.CreateEmbedding(ctx, text)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.Warnf("[Embedder] Embedding API 调用失败, 回退到 mock 向量: %v", err)
		return MockEmbedding(text, e.dimension), nil
	}
	if len(vec) != e.dimension {
		log.Warnf("[Embedder] Embedding API 返回维度 %d, 期望 %d, 回退到 mock 向量", len(vec), e.dimension)
		return MockEmbedding(text, e.dimension), nil
	}
	return vec, nil
}

func (e *embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty batch", model.ErrInvalidInput)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		out[i] = vec
	}
	return out, nil
}
