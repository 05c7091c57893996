package index

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestNormalize(t *testing.T) {
	v := []float32{3, 4}
	n := Normalize(v)
	assert.InDelta(t, 1.0, norm(n), 1e-6)
	assert.Equal(t, []float32{3, 4}, v, "input must not be modified")

	again := Normalize(n)
	for i := range n {
		assert.InDelta(t, n[i], again[i], 1e-6)
	}

	assert.Equal(t, []float32{0, 0, 0}, Normalize([]float32{0, 0, 0}))
}

func entry(id string, vec []float32, title string) model.IndexEntry {
	return model.IndexEntry{ID: id, Vector: vec, Metadata: model.ChunkMetadata{Title: title, Content: title + " content"}}
}

func TestMemoryIndex_UpsertValidation(t *testing.T) {
	idx := NewMemoryIndex(3)
	ctx := context.Background()

	_, err := idx.Upsert(ctx, nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = idx.Upsert(ctx, []model.IndexEntry{entry("a", []float32{1, 2}, "A")})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	n, err := idx.Upsert(ctx, []model.IndexEntry{entry("a", []float32{1, 2, 3}, "A")})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMemoryIndex_SearchOrdersByCosine(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()
	_, err := idx.Upsert(ctx, []model.IndexEntry{
		entry("far", []float32{0, 1}, "Far"),
		entry("near", []float32{10, 1}, "Near"),
		entry("mid", []float32{1, 1}, "Mid"),
	})
	require.NoError(t, err)

	hits, err := idx.Search(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].ID)
	assert.Equal(t, "mid", hits[1].ID)
	assert.Equal(t, "Near", hits[0].Metadata.Title)
	assert.InDelta(t, embedding.CosineSimilarity([]float32{1, 0}, []float32{10, 1}), hits[0].Score, 1e-6)

	_, err = idx.Search(ctx, []float32{1, 0, 0}, 2)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestMemoryIndex_SearchAgreesWithCosineOnRandomData(t *testing.T) {
	const dim = 16
	rng := rand.New(rand.NewSource(7))
	idx := NewMemoryIndex(dim)
	vectors := make(map[string][]float32)

	var entries []model.IndexEntry
	for i := 0; i < 50; i++ {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		id := fmt.Sprintf("e%d", i)
		vectors[id] = v
		entries = append(entries, entry(id, v, id))
	}
	_, err := idx.Upsert(context.Background(), entries)
	require.NoError(t, err)

	q := make([]float32, dim)
	for j := range q {
		q[j] = float32(rng.NormFloat64())
	}
	hits, err := idx.Search(context.Background(), q, 10)
	require.NoError(t, err)
	require.Len(t, hits, 10)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		prev := embedding.CosineSimilarity(q, vectors[hits[i-1].ID])
		cur := embedding.CosineSimilarity(q, vectors[hits[i].ID])
		assert.GreaterOrEqual(t, prev+1e-6, cur)
	}
}

func TestMemoryIndex_UpsertOverwritesByID(t *testing.T) {
	idx := NewMemoryIndex(2)
	ctx := context.Background()
	_, err := idx.Upsert(ctx, []model.IndexEntry{entry("a", []float32{1, 0}, "Old")})
	require.NoError(t, err)
	_, err = idx.Upsert(ctx, []model.IndexEntry{entry("a", []float32{0, 1}, "New")})
	require.NoError(t, err)

	assert.Equal(t, model.IndexStats{TotalDocuments: 1, Dimension: 2}, idx.Stats(ctx))
	hits, err := idx.Search(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "New", hits[0].Metadata.Title)
}

func TestMemoryIndex_EmptySearch(t *testing.T) {
	idx := NewMemoryIndex(2)
	hits, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestMemoryIndex_SelfMatchScoreStaysInRange(t *testing.T) {
	dim := embedding.DefaultDimension
	idx := NewMemoryIndex(dim)
	ctx := context.Background()
	texts := []string{
		"The quick brown fox",
		"Lewis Hamilton is a seven-time world champion.",
		"Monaco Grand Prix",
		"Red Bull Racing",
		"Spa-Francorchamps",
		"Ferrari",
	}
	for i, text := range texts {
		v := embedding.MockEmbedding(text, dim)
		_, err := idx.Upsert(ctx, []model.IndexEntry{entry(fmt.Sprintf("t%d", i), v, text)})
		require.NoError(t, err)

		hits, err := idx.Search(ctx, v, 1)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, fmt.Sprintf("t%d", i), hits[0].ID)
		assert.LessOrEqual(t, hits[0].Score, 1.0, text)
		assert.GreaterOrEqual(t, hits[0].Score, -1.0, text)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-6, text)
	}
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 1.0, clampScore(1.0000000138706306))
	assert.Equal(t, -1.0, clampScore(-1.0000001))
	assert.Equal(t, 0.25, clampScore(0.25))
}

func TestMemoryIndex_ConcurrentAccess(t *testing.T) {
	idx := NewMemoryIndex(4)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			_, _ = idx.Upsert(ctx, []model.IndexEntry{entry(fmt.Sprintf("id%d", i), []float32{float32(i + 1), 1, 0, 0}, "t")})
		}(i)
		go func() {
			defer wg.Done()
			_, _ = idx.Search(ctx, []float32{1, 0, 0, 0}, 3)
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, idx.Stats(ctx).TotalDocuments)
}
