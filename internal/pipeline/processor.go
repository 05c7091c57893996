// Package pipeline 定义了语料导入任务的核心流程。
package pipeline

import (
	"context"
	"fmt"
	"time"

	"f1-rag-go/internal/model"
	"f1-rag-go/internal/service"
	"f1-rag-go/pkg/corpus"
	"f1-rag-go/pkg/log"
	"f1-rag-go/pkg/tasks"
)

// ObjectFetcher 从对象存储中读取整个对象。
type ObjectFetcher interface {
	Fetch(ctx context.Context, object string) ([]byte, error)
}

// Processor 封装了导入任务的所有依赖和逻辑。
type Processor struct {
	ingestService service.IngestService
	objects       ObjectFetcher
}

// NewProcessor 创建一个新的 Processor 实例。objects 为 nil 时只能处理本地文件任务。
func NewProcessor(ingestService service.IngestService, objects ObjectFetcher) *Processor {
	return &Processor{ingestService: ingestService, objects: objects}
}

// Process 是导入任务的主函数，满足 kafka.TaskProcessor。
func (p *Processor) Process(ctx context.Context, task tasks.IngestionTask) error {
	_, err := p.Run(ctx, task)
	return err
}

// Run 加载任务指定的语料并导入，返回导入结果。
func (p *Processor) Run(ctx context.Context, task tasks.IngestionTask) (*model.IngestResult, error) {
	start := time.Now()
	log.Infof("[Processor] 开始处理导入任务, TaskID: %s, Source: %s, Location: %s", task.TaskID, task.Source, task.Location)

	// 1. 读取语料
	docs, err := p.load(ctx, task)
	if err != nil {
		log.Errorf("[Processor] 读取语料失败, TaskID: %s, Error: %v", task.TaskID, err)
		return nil, err
	}
	log.Infof("[Processor] 步骤1: 语料读取成功, 文档数: %d", len(docs))

	// 2. 分块、向量化并写入索引
	result, err := p.ingestService.Ingest(ctx, docs)
	if err != nil {
		log.Errorf("[Processor] 导入失败, TaskID: %s, Error: %v", task.TaskID, err)
		return nil, err
	}
	log.Infof("[Processor] 导入任务完成, TaskID: %s, 分块: %d, 写入: %d, 失败: %d, 耗时: %s",
		task.TaskID, result.DocumentsProcessed, result.DocumentsStored, result.ChunksFailed, time.Since(start))
	return result, nil
}

func (p *Processor) load(ctx context.Context, task tasks.IngestionTask) ([]model.Document, error) {
	switch task.Source {
	case tasks.SourceFile, "":
		return corpus.LoadFile(task.Location)
	case tasks.SourceMinIO:
		if p.objects == nil {
			return nil, fmt.Errorf("%w: object storage is not configured", model.ErrBackendUnavailable)
		}
		data, err := p.objects.Fetch(ctx, task.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", model.ErrBackendUnavailable, err)
		}
		return corpus.Parse(data)
	default:
		return nil, fmt.Errorf("%w: unknown corpus source %q", model.ErrInvalidInput, task.Source)
	}
}
