// Package bootstrap 根据配置组装各层依赖，供 cmd 下的入口共用。
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"f1-rag-go/internal/config"
	"f1-rag-go/internal/generator"
	"f1-rag-go/internal/index"
	"f1-rag-go/internal/pipeline"
	"f1-rag-go/internal/repository"
	"f1-rag-go/internal/service"
	"f1-rag-go/pkg/database"
	"f1-rag-go/pkg/embedding"
	"f1-rag-go/pkg/es"
	"f1-rag-go/pkg/kafka"
	"f1-rag-go/pkg/log"
	"f1-rag-go/pkg/storage"

	"github.com/go-redis/redis/v8"
	"github.com/minio/minio-go/v7"
)

// App 持有一个进程内的全部服务实例。
type App struct {
	Config *config.Config

	Index         index.VectorIndex
	Search        service.SearchService
	RAG           service.RAGService
	Ingest        service.IngestService
	Conversations service.ConversationService
	Processor     *pipeline.Processor

	// 以下依赖按配置可能为 nil
	Producer *kafka.Producer
	Redis    *redis.Client
	MinIO    *minio.Client

	closers []func() error
}

// New 按配置初始化所有后端。任何已启用的后端连接失败都会返回错误。
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}
	if err := app.init(ctx); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

func (a *App) init(ctx context.Context) error {
	cfg := a.Config
	embedder := embedding.NewFromConfig(cfg.Embedding)
	dim := embedder.Dimension()

	// 1. 向量索引
	idx, err := a.initIndex(ctx, dim)
	if err != nil {
		return err
	}
	a.Index = idx

	// 2. Redis: 会话存储或 Kafka 重试计数需要
	needRedis := strings.EqualFold(cfg.Conversation.Backend, "redis")
	if needRedis || cfg.Kafka.Enabled {
		rdb, err := database.InitRedis(ctx, cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
		switch {
		case err == nil:
			a.Redis = rdb
			a.closers = append(a.closers, rdb.Close)
		case needRedis:
			return err
		default:
			log.Warn("Redis 不可用, Kafka 重试计数仅保存在进程内", err)
		}
	}

	// 3. 会话存储
	var convRepo repository.ConversationRepository
	if needRedis {
		convRepo = repository.NewRedisConversationRepository(a.Redis, cfg.Conversation.MaxTurns, time.Duration(cfg.Conversation.TTLHours)*time.Hour)
		log.Info("[Bootstrap] 会话存储: redis")
	} else {
		convRepo = repository.NewMemoryConversationRepository(repository.FIFOEviction{MaxTurns: cfg.Conversation.MaxTurns})
		log.Info("[Bootstrap] 会话存储: memory")
	}

	// 4. 可选的分块记录库
	var chunkRepo repository.ChunkRepository
	if cfg.Database.MySQL.Enabled {
		db, err := database.InitMySQL(cfg.Database.MySQL.DSN)
		if err != nil {
			return err
		}
		chunkRepo = repository.NewChunkRepository(db)
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
	}

	// 5. 对象存储
	if cfg.MinIO.Enabled {
		client, err := storage.InitMinIO(ctx, cfg.MinIO)
		if err != nil {
			return err
		}
		a.MinIO = client
	}

	reporter, err := a.reporter()
	if err != nil {
		return err
	}

	// 6. 服务层
	gen := generator.NewFromConfig(cfg.Generator, cfg.LLM, cfg.RAG.NoContextText)
	a.Search = service.NewSearchService(embedder, idx)
	a.RAG = service.NewRAGService(a.Search, gen, convRepo, service.RAGOptions{
		TopK:          cfg.RAG.TopK,
		PreviewLength: cfg.RAG.PreviewLength,
		NoContextText: cfg.RAG.NoContextText,
		HistoryTurns:  cfg.RAG.HistoryTurns,
	})
	a.Ingest = service.NewIngestService(embedder, idx, chunkRepo, reporter, service.IngestOptions{
		ChunkSize:    cfg.RAG.ChunkSize,
		Concurrency:  cfg.RAG.IngestConcurrency,
		ModelVersion: modelVersion(cfg.Embedding),
	})
	a.Conversations = service.NewConversationService(convRepo)

	var objects pipeline.ObjectFetcher
	if a.MinIO != nil {
		objects = storage.NewBucket(a.MinIO, cfg.MinIO.BucketName)
	}
	a.Processor = pipeline.NewProcessor(a.Ingest, objects)

	// 7. 异步导入
	if cfg.Kafka.Enabled {
		a.Producer = kafka.NewProducer(cfg.Kafka)
		a.closers = append(a.closers, a.Producer.Close)
	}
	return nil
}

func (a *App) initIndex(ctx context.Context, dim int) (index.VectorIndex, error) {
	cfg := a.Config.Vector
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		log.Infof("[Bootstrap] 向量索引: memory, 维度: %d", dim)
		return index.NewMemoryIndex(dim), nil
	case "elasticsearch", "es":
		client, err := es.InitES(cfg.Elasticsearch, dim)
		if err != nil {
			return nil, err
		}
		log.Infof("[Bootstrap] 向量索引: elasticsearch, index: %s", cfg.Elasticsearch.IndexName)
		return index.NewESIndex(client, cfg.Elasticsearch.IndexName, dim), nil
	case "qdrant":
		q, err := index.NewQdrantIndex(ctx, cfg.Qdrant, dim)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, q.Close)
		log.Infof("[Bootstrap] 向量索引: qdrant, collection: %s", cfg.Qdrant.Collection)
		return q, nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Backend)
	}
}

func (a *App) reporter() (service.IngestionReporter, error) {
	cfg := a.Config.Metadata
	switch strings.ToLower(cfg.Sink) {
	case "", "none":
		return nil, nil
	case "file":
		return service.FileReporter{Path: cfg.Path}, nil
	case "minio":
		if a.MinIO == nil {
			return nil, errors.New("metadata sink minio requires minio.enabled")
		}
		return storage.NewReporter(a.MinIO, a.Config.MinIO.BucketName, cfg.ObjectName), nil
	default:
		return nil, fmt.Errorf("unknown metadata sink %q", cfg.Sink)
	}
}

func modelVersion(cfg config.EmbeddingConfig) string {
	if cfg.Provider == "" || cfg.Provider == "mock" || cfg.BaseURL == "" {
		return fmt.Sprintf("mock-%d", cfg.Dimensions)
	}
	return cfg.Model
}

// Close 按初始化的逆序释放连接。
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("关闭依赖失败", err)
		}
	}
	a.closers = nil
}
