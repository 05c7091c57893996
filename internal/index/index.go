// Package index 提供向量索引：写入前做 L2 归一化，检索按余弦相似度排序。
package index

import (
	"context"
	"fmt"
	"math"

	"f1-rag-go/internal/model"
)

// VectorIndex 定义了向量索引的操作接口。
type VectorIndex interface {
	// Upsert 按 ID 写入条目，已存在的 ID 会被覆盖，返回写入条数。
	Upsert(ctx context.Context, entries []model.IndexEntry) (int, error)
	// Search 返回与 query 最相似的至多 k 条结果，按得分降序。
	Search(ctx context.Context, query []float32, k int) ([]model.SearchHit, error)
	// Stats 不返回错误，后端异常时降级为 {0, Dimension}。
	Stats(ctx context.Context) model.IndexStats
	Dimension() int
}

// Normalize 返回 v 的单位向量副本，零向量原样返回副本。
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	copy(out, v)
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i := range out {
		out[i] = float32(float64(out[i]) / norm)
	}
	return out
}

func validateEntries(entries []model.IndexEntry, dim int) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: no entries to upsert", model.ErrInvalidInput)
	}
	for _, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("%w: entry without id", model.ErrInvalidInput)
		}
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %s has dimension %d, expected %d", model.ErrInvalidInput, e.ID, len(e.Vector), dim)
		}
	}
	return nil
}

func validateQuery(query []float32, k, dim int) error {
	if len(query) != dim {
		return fmt.Errorf("%w: query has dimension %d, expected %d", model.ErrInvalidInput, len(query), dim)
	}
	if k <= 0 {
		return fmt.Errorf("%w: k must be positive", model.ErrInvalidInput)
	}
	return nil
}

// dot 计算两个单位向量的余弦相似度，float32 舍入误差可能让结果略超出 [-1, 1]，这里截断。
func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return clampScore(s)
}

func clampScore(s float64) float64 {
	return math.Max(-1, math.Min(1, s))
}
