package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"f1-rag-go/internal/model"
	"f1-rag-go/internal/pipeline"
	"f1-rag-go/internal/service"
	"f1-rag-go/pkg/log"
	"f1-rag-go/pkg/tasks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TaskProducer 把导入任务投递给后台消费者。
type TaskProducer interface {
	ProduceIngestionTask(ctx context.Context, task tasks.IngestionTask) error
}

// IngestHandler 负责语料导入与索引统计相关的 API 请求。
type IngestHandler struct {
	ingestService service.IngestService
	processor     *pipeline.Processor
	producer      TaskProducer
	corpusPath    string
}

// NewIngestHandler 创建一个新的 IngestHandler 实例。producer 为 nil 时只支持同步导入。
func NewIngestHandler(ingestService service.IngestService, processor *pipeline.Processor, producer TaskProducer, corpusPath string) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		processor:     processor,
		producer:      producer,
		corpusPath:    corpusPath,
	}
}

// InitData 导入内置语料。?object=xxx 改为从对象存储读取，?async=true 且启用了 Kafka 时只投递任务。
func (h *IngestHandler) InitData(c *gin.Context) {
	task := tasks.IngestionTask{
		TaskID:      uuid.NewString(),
		Source:      tasks.SourceFile,
		Location:    h.corpusPath,
		RequestedAt: time.Now().UTC(),
	}
	if object := c.Query("object"); object != "" {
		task.Source = tasks.SourceMinIO
		task.Location = object
	}

	if c.Query("async") == "true" {
		if h.producer == nil {
			fail(c, http.StatusBadRequest, "async ingestion requires kafka")
			return
		}
		if err := h.producer.ProduceIngestionTask(c.Request.Context(), task); err != nil {
			log.Errorf("[IngestHandler] 投递导入任务失败: %v", err)
			fail(c, http.StatusInternalServerError, "Failed to enqueue ingestion task")
			return
		}
		log.Infof("[IngestHandler] 导入任务已投递, TaskID: %s", task.TaskID)
		success(c, http.StatusAccepted, gin.H{"taskId": task.TaskID})
		return
	}

	result, err := h.processor.Run(c.Request.Context(), task)
	if err != nil {
		failErr(c, err, "Failed to initialize data")
		return
	}
	success(c, http.StatusOK, result)
}

type ingestRequest struct {
	Documents []model.Document `json:"documents"`
}

// Ingest 导入请求体中携带的文档。
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	result, err := h.ingestService.Ingest(c.Request.Context(), req.Documents)
	if err != nil {
		failErr(c, err, "Failed to ingest documents")
		return
	}
	success(c, http.StatusOK, result)
}

// Stats 返回索引统计，后端不可用时返回 0 条而不是错误。
func (h *IngestHandler) Stats(c *gin.Context) {
	success(c, http.StatusOK, h.ingestService.CollectionStats(c.Request.Context()))
}

// DocumentChunks 返回某篇文档落库的分块记录，需要开启 MySQL。
func (h *IngestHandler) DocumentChunks(c *gin.Context) {
	records, err := h.ingestService.DocumentChunks(c.Request.Context(), c.Param("documentId"))
	if err != nil {
		if errors.Is(err, model.ErrBackendUnavailable) {
			fail(c, http.StatusServiceUnavailable, "Chunk store is not available")
			return
		}
		failErr(c, err, "Failed to load document chunks")
		return
	}
	success(c, http.StatusOK, gin.H{"chunks": records})
}
