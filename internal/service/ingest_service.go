package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"f1-rag-go/internal/chunker"
	"f1-rag-go/internal/index"
	"f1-rag-go/internal/model"
	"f1-rag-go/internal/repository"
	"f1-rag-go/pkg/embedding"
	"f1-rag-go/pkg/log"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// IngestionReporter 接收每次导入后的语料摘要。
type IngestionReporter interface {
	Report(ctx context.Context, summary model.MetadataSummary) error
}

// IngestOptions 控制导入流程的参数。
type IngestOptions struct {
	ChunkSize    int
	Concurrency  int
	ModelVersion string
}

// IngestService 定义了语料导入与索引统计的接口。
type IngestService interface {
	Ingest(ctx context.Context, docs []model.Document) (*model.IngestResult, error)
	CollectionStats(ctx context.Context) model.IndexStats
	DataExists(ctx context.Context) bool
	// DocumentChunks 从 MySQL 读取某篇文档的分块记录，未开启 MySQL 时返回 ErrBackendUnavailable。
	DocumentChunks(ctx context.Context, documentID string) ([]*model.ChunkRecord, error)
}

type ingestService struct {
	embedder  embedding.Embedder
	index     index.VectorIndex
	chunkRepo repository.ChunkRepository
	reporter  IngestionReporter
	opts      IngestOptions
}

// NewIngestService 创建导入服务。chunkRepo 和 reporter 可以为 nil。
func NewIngestService(embedder embedding.Embedder, idx index.VectorIndex, chunkRepo repository.ChunkRepository, reporter IngestionReporter, opts IngestOptions) IngestService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultMaxLength
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &ingestService{
		embedder:  embedder,
		index:     idx,
		chunkRepo: chunkRepo,
		reporter:  reporter,
		opts:      opts,
	}
}

// BuildChunks 把文档切分成带位置信息的分块，保持文档和分块的原始顺序。
func BuildChunks(docs []model.Document, maxLength int) []model.Chunk {
	var chunks []model.Chunk
	for _, doc := range docs {
		parts := chunker.Split(doc.Content, maxLength)
		docID := doc.ID
		if docID == "" {
			docID = model.ChunkID(doc.Type, doc.Title, 0)
		}
		for i, part := range parts {
			chunks = append(chunks, model.Chunk{
				ID:          model.ChunkID(doc.Type, doc.Title, i),
				DocumentID:  docID,
				Title:       doc.Title,
				Content:     part,
				Type:        doc.Type,
				Source:      doc.Source,
				ChunkIndex:  i,
				TotalChunks: len(parts),
			})
		}
	}
	return chunks
}

func (s *ingestService) Ingest(ctx context.Context, docs []model.Document) (*model.IngestResult, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents to ingest", model.ErrInvalidInput)
	}
	ctx, span := tracer.Start(ctx, "rag.ingest")
	defer span.End()

	log.Infof("[IngestService] 开始导入 %d 篇文档, chunkSize: %d", len(docs), s.opts.ChunkSize)
	chunks := BuildChunks(docs, s.opts.ChunkSize)
	span.SetAttributes(attribute.Int("rag.documents", len(docs)), attribute.Int("rag.chunks", len(chunks)))
	log.Infof("[IngestService] 步骤1: 分块完成, 共 %d 个分块", len(chunks))

	// 并发向量化，结果按下标写回，保证分块顺序
	vectors := make([][]float32, len(chunks))
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := s.embedder.Embed(gctx, c.Content)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				failed.Add(1)
				log.Warnf("[IngestService] 分块 %s 向量化失败, 跳过: %v", c.ID, err)
				return nil
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("ingestion cancelled: %w", err)
	}

	entries := make([]model.IndexEntry, 0, len(chunks))
	embedded := make([]model.Chunk, 0, len(chunks))
	for i, c := range chunks {
		if vectors[i] == nil {
			continue
		}
		entries = append(entries, model.IndexEntry{ID: c.ID, Vector: vectors[i], Metadata: c.Metadata()})
		embedded = append(embedded, c)
	}
	log.Infof("[IngestService] 步骤2: 向量化完成, 成功 %d, 失败 %d", len(entries), failed.Load())

	stored := 0
	if len(entries) > 0 {
		n, err := s.index.Upsert(ctx, entries)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to upsert index entries: %w", err)
		}
		stored = n
	}
	log.Infof("[IngestService] 步骤3: 写入向量索引 %d 条", stored)

	if s.chunkRepo != nil && len(embedded) > 0 {
		records := make([]*model.ChunkRecord, len(embedded))
		for i, c := range embedded {
			records[i] = model.NewChunkRecord(c, s.opts.ModelVersion)
		}
		if err := s.chunkRepo.UpsertBatch(ctx, records); err != nil {
			log.Warnf("[IngestService] 保存分块记录到数据库失败: %v", err)
		}
	}

	s.report(ctx, chunks)

	return &model.IngestResult{
		DocumentsProcessed: len(chunks),
		DocumentsStored:    stored,
		ChunksFailed:       int(failed.Load()),
	}, nil
}

// report 在后台写出导入摘要，错误只记日志。
func (s *ingestService) report(ctx context.Context, chunks []model.Chunk) {
	if s.reporter == nil {
		return
	}
	summary := Summarize(chunks, time.Now().UTC())
	reportCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.reporter.Report(reportCtx, summary); err != nil {
			log.Errorf("[IngestService] 写入导入摘要失败: %v", err)
		}
	}()
}

// Summarize 统计分块总数以及出现过的类型和来源，按首次出现的顺序去重。
func Summarize(chunks []model.Chunk, at time.Time) model.MetadataSummary {
	summary := model.MetadataSummary{
		TotalDocuments: len(chunks),
		Types:          []string{},
		Sources:        []string{},
		Timestamp:      at,
	}
	seenTypes := map[string]bool{}
	seenSources := map[string]bool{}
	for _, c := range chunks {
		if !seenTypes[c.Type] {
			seenTypes[c.Type] = true
			summary.Types = append(summary.Types, c.Type)
		}
		if !seenSources[c.Source] {
			seenSources[c.Source] = true
			summary.Sources = append(summary.Sources, c.Source)
		}
	}
	return summary
}

func (s *ingestService) CollectionStats(ctx context.Context) model.IndexStats {
	stats := s.index.Stats(ctx)
	if s.chunkRepo != nil {
		n, err := s.chunkRepo.Count(ctx)
		if err != nil {
			log.Warnf("[IngestService] 统计分块记录失败: %v", err)
		} else {
			stats.StoredChunks = n
		}
	}
	return stats
}

// DataExists 用于启动时判断是否需要导入语料。
func (s *ingestService) DataExists(ctx context.Context) bool {
	return s.index.Stats(ctx).TotalDocuments > 0
}

func (s *ingestService) DocumentChunks(ctx context.Context, documentID string) ([]*model.ChunkRecord, error) {
	if documentID == "" {
		return nil, fmt.Errorf("%w: document id is empty", model.ErrInvalidInput)
	}
	if s.chunkRepo == nil {
		return nil, fmt.Errorf("%w: chunk store is not enabled", model.ErrBackendUnavailable)
	}
	records, err := s.chunkRepo.FindByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrBackendUnavailable, err)
	}
	return records, nil
}
