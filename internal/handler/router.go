package handler

import (
	"f1-rag-go/internal/middleware"
	"f1-rag-go/internal/pipeline"
	"f1-rag-go/internal/service"

	"github.com/gin-gonic/gin"
)

// Services 是注册路由所需的服务集合。Producer 可以为 nil。
type Services struct {
	RAG           service.RAGService
	Search        service.SearchService
	Ingest        service.IngestService
	Conversations service.ConversationService
	Processor     *pipeline.Processor
	Producer      TaskProducer
	CorpusPath    string
	TopK          int
}

// NewRouter 创建 gin 引擎并注册所有路由。
func NewRouter(s Services) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	chat := NewChatHandler(s.RAG)
	conversations := NewConversationHandler(s.Conversations)
	ingest := NewIngestHandler(s.Ingest, s.Processor, s.Producer, s.CorpusPath)

	api := r.Group("/api")
	{
		api.GET("/health", Health)
		api.GET("/topics", Topics)
		api.GET("/stats", ingest.Stats)
		api.GET("/documents/:documentId/chunks", ingest.DocumentChunks)
		api.GET("/search", NewSearchHandler(s.Search, s.TopK).Search)

		api.POST("/chat", chat.Chat)
		api.POST("/init-data", ingest.InitData)
		api.POST("/ingest", ingest.Ingest)

		api.GET("/conversations/:conversationId", conversations.GetHistory)
		api.GET("/conversations/:conversationId/summary", conversations.GetSummary)
	}
	r.GET("/chat/ws", chat.Handle)
	return r
}
