// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"f1-rag-go/internal/bootstrap"
	"f1-rag-go/internal/config"
	"f1-rag-go/internal/handler"
	"f1-rag-go/pkg/kafka"
	"f1-rag-go/pkg/log"
	"f1-rag-go/pkg/tasks"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "path to config file")
	flag.Parse()

	// 1. 初始化配置，.env 中的变量可以覆盖配置文件
	_ = godotenv.Load()
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化各层依赖
	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	app, err := bootstrap.New(rootCtx, &cfg)
	if err != nil {
		log.Fatal("初始化应用失败", err)
	}
	defer app.Close()

	var wg sync.WaitGroup

	// 4. 启动后台 Kafka 消费者
	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka, app.Processor, app.Redis)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(rootCtx); err != nil {
				log.Error("Kafka 消费者退出", err)
			}
		}()
	}

	// 5. 启动检查：索引为空时提示导入，或按配置自动导入
	wg.Add(1)
	go func() {
		defer wg.Done()
		checkData(rootCtx, app)
	}()

	// 6. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	services := handler.Services{
		RAG:           app.RAG,
		Search:        app.Search,
		Ingest:        app.Ingest,
		Conversations: app.Conversations,
		Processor:     app.Processor,
		CorpusPath:    cfg.RAG.CorpusPath,
		TopK:          cfg.RAG.TopK,
	}
	if app.Producer != nil {
		services.Producer = app.Producer
	}
	r := handler.NewRouter(services)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}

	// 通知消费者和启动导入退出
	cancelRoot()
	wg.Wait()
	log.Info("服务已优雅关闭")
}

func checkData(ctx context.Context, app *bootstrap.App) {
	if app.Ingest.DataExists(ctx) {
		stats := app.Ingest.CollectionStats(ctx)
		log.Infof("[Startup] 索引中已有 %d 个分块", stats.TotalDocuments)
		return
	}
	if !app.Config.RAG.AutoIngest {
		log.Info("[Startup] 索引为空，调用 POST /api/init-data 或 ragctl ingest 导入语料")
		return
	}
	log.Infof("[Startup] 索引为空，自动导入 %s", app.Config.RAG.CorpusPath)
	_, err := app.Processor.Run(ctx, tasks.IngestionTask{
		TaskID:      uuid.NewString(),
		Source:      tasks.SourceFile,
		Location:    app.Config.RAG.CorpusPath,
		RequestedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Error("[Startup] 自动导入失败", err)
	}
}
