package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"f1-rag-go/internal/config"
	"f1-rag-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedding_Deterministic(t *testing.T) {
	a := MockEmbedding("Who won the 2023 championship?", 768)
	b := MockEmbedding("Who won the 2023 championship?", 768)
	c := MockEmbedding("Who won the 2022 championship?", 768)

	require.Len(t, a, 768)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestMockEmbedding_SlotFormula(t *testing.T) {
	v := MockEmbedding("A", 768)
	// 'A' = 65 at position 0 -> slot 65, value sin(65)*0.1
	assert.InDelta(t, 0.0826, v[65], 0.001)
	for i, x := range v {
		if i != 65 {
			assert.Zero(t, x)
		}
	}
}

func TestEmbed_RejectsBlankText(t *testing.T) {
	e := NewMockEmbedder(768)
	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := e.Embed(context.Background(), text)
		assert.ErrorIs(t, err, model.ErrInvalidInput)
	}
}

func TestEmbedBatch_PreservesOrder(t *testing.T) {
	e := NewMockEmbedder(768)
	texts := []string{"Monaco", "Silverstone", "Spa"}

	out, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, text := range texts {
		assert.Equal(t, MockEmbedding(text, 768), out[i])
	}

	_, err = e.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = e.EmbedBatch(context.Background(), []string{"ok", " "})
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func newEmbeddingServer(t *testing.T, status int, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		vec := make([]float32, dim)
		vec[0] = 1
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": vec}},
		})
	}))
}

func backendConfig(url string) config.EmbeddingConfig {
	return config.EmbeddingConfig{Provider: "openai", BaseURL: url, Model: "test", Dimensions: 8, TimeoutSeconds: 2}
}

func TestEmbed_UsesBackend(t *testing.T) {
	srv := newEmbeddingServer(t, http.StatusOK, 8)
	defer srv.Close()

	e := NewFromConfig(backendConfig(srv.URL))
	vec, err := e.Embed(context.Background(), "Max Verstappen")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0, 0, 0, 0, 0, 0}, vec)
}

func TestEmbed_FallsBackOnBackendError(t *testing.T) {
	srv := newEmbeddingServer(t, http.StatusInternalServerError, 8)
	defer srv.Close()

	e := NewFromConfig(backendConfig(srv.URL))
	vec, err := e.Embed(context.Background(), "Charles Leclerc")
	require.NoError(t, err)
	assert.Equal(t, MockEmbedding("Charles Leclerc", 8), vec)
}

func TestEmbed_FallsBackOnWrongDimension(t *testing.T) {
	srv := newEmbeddingServer(t, http.StatusOK, 4)
	defer srv.Close()

	e := NewFromConfig(backendConfig(srv.URL))
	vec, err := e.Embed(context.Background(), "Lando Norris")
	require.NoError(t, err)
	assert.Equal(t, MockEmbedding("Lando Norris", 8), vec)
}

func TestNewFromConfig_MockProvider(t *testing.T) {
	e := NewFromConfig(config.EmbeddingConfig{Provider: "mock", Dimensions: 768})
	assert.Equal(t, 768, e.Dimension())
}

func TestPreprocess(t *testing.T) {
	assert.Equal(t, "a b c", Preprocess("  a \n b\t\tc  "))
	assert.Len(t, []rune(Preprocess(strings.Repeat("é", 600))), 512)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 2, 3}, []float32{2, 4, 6}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity(nil, nil))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
