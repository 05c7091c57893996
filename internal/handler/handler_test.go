package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"f1-rag-go/internal/generator"
	"f1-rag-go/internal/index"
	"f1-rag-go/internal/pipeline"
	"f1-rag-go/internal/repository"
	"f1-rag-go/internal/service"
	"f1-rag-go/pkg/embedding"
	"f1-rag-go/pkg/tasks"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCorpus = `
documents:
  - title: Scuderia Ferrari
    type: team
    source: f1_teams
    content: Scuderia Ferrari is based in Maranello. It has raced in every season since 1950.
  - title: Charles Leclerc
    type: driver
    source: f1_drivers
    content: Charles Leclerc drives for Ferrari. He was born in Monaco.
`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type recordingProducer struct {
	tasks []tasks.IngestionTask
}

func (p *recordingProducer) ProduceIngestionTask(_ context.Context, task tasks.IngestionTask) error {
	p.tasks = append(p.tasks, task)
	return nil
}

func newTestRouter(t *testing.T, producer TaskProducer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	corpusPath := filepath.Join(t.TempDir(), "corpus.yaml")
	require.NoError(t, os.WriteFile(corpusPath, []byte(testCorpus), 0o644))

	embedder := embedding.NewMockEmbedder(embedding.DefaultDimension)
	idx := index.NewMemoryIndex(embedding.DefaultDimension)
	repo := repository.NewMemoryConversationRepository(nil)
	search := service.NewSearchService(embedder, idx)
	ingest := service.NewIngestService(embedder, idx, nil, nil, service.IngestOptions{})

	return NewRouter(Services{
		RAG:           service.NewRAGService(search, generator.NewRuleBased(service.DefaultNoContextText), repo, service.RAGOptions{}),
		Search:        search,
		Ingest:        ingest,
		Conversations: service.NewConversationService(repo),
		Processor:     pipeline.NewProcessor(ingest, nil),
		Producer:      producer,
		CorpusPath:    corpusPath,
	})
}

func do(t *testing.T, r http.Handler, method, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func TestHealthAndTopics(t *testing.T) {
	r := newTestRouter(t, nil)

	code, env := do(t, r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"OK"`)

	code, env = do(t, r, http.MethodGet, "/api/topics", "")
	assert.Equal(t, http.StatusOK, code)
	var topics struct {
		Topics []map[string]string `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &topics))
	assert.Len(t, topics.Topics, 6)
}

func TestDocumentChunks_WithoutChunkStore(t *testing.T) {
	r := newTestRouter(t, nil)

	code, env := do(t, r, http.MethodGet, "/api/documents/silverstone/chunks", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "Chunk store is not available", env.Message)
}

func TestChat_RejectsEmptyMessage(t *testing.T) {
	r := newTestRouter(t, nil)
	for _, body := range []string{`{}`, `{"message":"  "}`, `not json`} {
		code, env := do(t, r, http.MethodPost, "/api/chat", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, http.StatusBadRequest, env.Code)
	}
}

func TestInitDataThenChat(t *testing.T) {
	r := newTestRouter(t, nil)

	code, env := do(t, r, http.MethodPost, "/api/init-data", "")
	require.Equal(t, http.StatusOK, code, string(env.Data))
	assert.JSONEq(t, `{"documentsProcessed":2,"documentsStored":2,"chunksFailed":0}`, string(env.Data))

	code, env = do(t, r, http.MethodGet, "/api/stats", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"totalDocuments":2,"dimension":768}`, string(env.Data))

	code, env = do(t, r, http.MethodPost, "/api/chat", `{"message":"Tell me about Leclerc","conversationId":"abc"}`)
	require.Equal(t, http.StatusOK, code)
	var resp struct {
		Response       string `json:"response"`
		ConversationID string `json:"conversationId"`
		Sources        []struct {
			Title string  `json:"title"`
			Score float64 `json:"score"`
		} `json:"sources"`
		Context struct {
			DocumentsFound int `json:"documentsFound"`
		} `json:"context"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "abc", resp.ConversationID)
	assert.Contains(t, resp.Response, "Leclerc")
	assert.Len(t, resp.Sources, 2)
	assert.Equal(t, 2, resp.Context.DocumentsFound)

	code, env = do(t, r, http.MethodGet, "/api/conversations/abc", "")
	assert.Equal(t, http.StatusOK, code)
	var history struct {
		History []map[string]any `json:"history"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history.History, 1)
	assert.Equal(t, "Tell me about Leclerc", history.History[0]["user"])

	code, env = do(t, r, http.MethodGet, "/api/conversations/abc/summary", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"messageCount":1`)

	code, env = do(t, r, http.MethodGet, "/api/search?query=Maranello&topK=1", "")
	assert.Equal(t, http.StatusOK, code)
	var hits []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &hits))
	assert.Len(t, hits, 1)
}

func TestConversation_UnknownIsEmpty(t *testing.T) {
	r := newTestRouter(t, nil)
	code, env := do(t, r, http.MethodGet, "/api/conversations/nobody", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"history":[]}`, string(env.Data))
}

func TestInitData_Async(t *testing.T) {
	code, _ := do(t, newTestRouter(t, nil), http.MethodPost, "/api/init-data?async=true", "")
	assert.Equal(t, http.StatusBadRequest, code)

	producer := &recordingProducer{}
	code, env := do(t, newTestRouter(t, producer), http.MethodPost, "/api/init-data?async=true&object=corpus/f1.yaml", "")
	assert.Equal(t, http.StatusAccepted, code)
	require.Len(t, producer.tasks, 1)
	assert.Equal(t, tasks.SourceMinIO, producer.tasks[0].Source)
	assert.Equal(t, "corpus/f1.yaml", producer.tasks[0].Location)
	assert.Contains(t, string(env.Data), producer.tasks[0].TaskID)
}

func TestIngest(t *testing.T) {
	r := newTestRouter(t, nil)

	code, _ := do(t, r, http.MethodPost, "/api/ingest", `{"documents":[]}`)
	assert.Equal(t, http.StatusBadRequest, code)

	body, _ := json.Marshal(map[string]any{"documents": []map[string]string{
		{"title": "Imola", "content": "Imola hosts the Emilia Romagna Grand Prix.", "type": "circuit", "source": "f1_circuits"},
	}})
	code, env := do(t, r, http.MethodPost, "/api/ingest", string(body))
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"documentsStored":1`)
}

func TestChatWebsocket_Streams(t *testing.T) {
	srv := httptest.NewServer(newTestRouter(t, nil))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(map[string]string{"message": "Tell me about Monaco", "conversationId": "ws-1"}))
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var answer strings.Builder
	var sawSources bool
	for {
		var frame map[string]any
		require.NoError(t, conn.ReadJSON(&frame))
		if chunk, ok := frame["chunk"].(string); ok {
			answer.WriteString(chunk)
			continue
		}
		if frame["type"] == "sources" {
			sawSources = true
			continue
		}
		require.Equal(t, "completion", frame["type"])
		assert.Equal(t, "finished", frame["status"])
		assert.Equal(t, "ws-1", frame["conversationId"])
		break
	}
	assert.True(t, sawSources)
	assert.Contains(t, answer.String(), "Monte Carlo")
}
