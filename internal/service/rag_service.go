package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"f1-rag-go/internal/generator"
	"f1-rag-go/internal/model"
	"f1-rag-go/internal/repository"
	"f1-rag-go/pkg/log"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// DefaultNoContextText 是检索结果为空时交给生成器的上下文。
const DefaultNoContextText = "No relevant F1 information found."

// RAGOptions 控制问答流程的参数。
type RAGOptions struct {
	TopK          int
	PreviewLength int
	NoContextText string
	// HistoryTurns 是交给生成器的最近会话轮数
	HistoryTurns int
}

func (o RAGOptions) withDefaults() RAGOptions {
	if o.TopK <= 0 {
		o.TopK = 5
	}
	if o.PreviewLength <= 0 {
		o.PreviewLength = 200
	}
	if o.NoContextText == "" {
		o.NoContextText = DefaultNoContextText
	}
	if o.HistoryTurns <= 0 {
		o.HistoryTurns = 5
	}
	return o
}

// RAGService 协调检索、生成与会话记录。
type RAGService interface {
	ProcessQuery(ctx context.Context, message, conversationID string) (*model.QueryResponse, error)
	// StreamQuery 与 ProcessQuery 相同，但生成的内容会通过 emit 逐段推送。
	StreamQuery(ctx context.Context, message, conversationID string, emit func(chunk string) error) (*model.QueryResponse, error)
}

type ragService struct {
	searchService    SearchService
	generator        generator.Generator
	conversationRepo repository.ConversationRepository
	opts             RAGOptions
}

// NewRAGService 创建一个新的 RAGService 实例。
func NewRAGService(searchService SearchService, gen generator.Generator, conversationRepo repository.ConversationRepository, opts RAGOptions) RAGService {
	return &ragService{
		searchService:    searchService,
		generator:        gen,
		conversationRepo: conversationRepo,
		opts:             opts.withDefaults(),
	}
}

type generateFunc func(ctx context.Context, query, contextText string, history []model.ConversationTurn) (string, error)

func (s *ragService) ProcessQuery(ctx context.Context, message, conversationID string) (*model.QueryResponse, error) {
	return s.run(ctx, message, conversationID, s.generator.Generate)
}

func (s *ragService) StreamQuery(ctx context.Context, message, conversationID string, emit func(string) error) (*model.QueryResponse, error) {
	return s.run(ctx, message, conversationID, func(ctx context.Context, query, contextText string, history []model.ConversationTurn) (string, error) {
		return s.generator.Stream(ctx, query, contextText, history, emit)
	})
}

func (s *ragService) run(ctx context.Context, message, conversationID string, generate generateFunc) (*model.QueryResponse, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: message is empty", model.ErrInvalidInput)
	}
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	ctx, span := tracer.Start(ctx, "rag.process_query")
	defer span.End()
	span.SetAttributes(attribute.String("rag.conversation_id", conversationID))

	fail := func(stage string, err error) error {
		recordSpanError(span, err)
		log.Errorf("[RAGService] 阶段 %s 失败, conversationId: %s, error: %v", stage, conversationID, err)
		return &model.ProcessingError{Stage: stage, Err: err}
	}

	// 1. 检索
	hits, err := s.searchService.Search(ctx, message, s.opts.TopK)
	if err != nil {
		stage := "retrieve"
		if errors.Is(err, model.ErrEmbeddingFailure) {
			stage = "embed"
		}
		return nil, fail(stage, err)
	}

	// 2. 组装上下文
	contextText := s.buildContextText(hits)
	log.Infof("[RAGService] 上下文组装完成, 文档数: %d, 长度: %d", len(hits), utf8.RuneCountInString(contextText))

	// 3. 读取最近的会话历史，失败时按新会话处理
	history := s.loadHistory(ctx, conversationID)

	// 4. 生成回答
	answer, err := generate(ctx, message, contextText, history)
	if err != nil {
		return nil, fail("generate", err)
	}
	// 调用方已取消时不记录本轮对话
	if err := ctx.Err(); err != nil {
		return nil, fail("generate", err)
	}

	// 5. 记录会话，失败只记日志
	turn := model.ConversationTurn{
		Timestamp: time.Now().UTC(),
		User:      message,
		Bot:       answer,
		Sources:   make([]model.TurnSource, len(hits)),
	}
	for i, h := range hits {
		turn.Sources[i] = model.TurnSource{Title: h.Metadata.Title, Score: h.Score}
	}
	if err := s.conversationRepo.Append(context.WithoutCancel(ctx), conversationID, turn); err != nil {
		log.Errorf("[RAGService] 保存对话记录失败, conversationId: %s, error: %v", conversationID, err)
	}

	// 6. 构造响应
	sources := make([]model.Source, len(hits))
	for i, h := range hits {
		sources[i] = model.Source{
			Title:   sourceTitle(h, i),
			Content: preview(h.Metadata.Content, s.opts.PreviewLength),
			Score:   h.Score,
		}
	}
	return &model.QueryResponse{
		Response:       answer,
		ConversationID: conversationID,
		Sources:        sources,
		Context: model.ContextInfo{
			DocumentsFound:     len(hits),
			TotalContextLength: utf8.RuneCountInString(contextText),
		},
	}, nil
}

func (s *ragService) loadHistory(ctx context.Context, conversationID string) []model.ConversationTurn {
	history, err := s.conversationRepo.History(ctx, conversationID)
	if err != nil {
		log.Warnf("[RAGService] 读取会话历史失败, conversationId: %s, error: %v", conversationID, err)
		return nil
	}
	if len(history) > s.opts.HistoryTurns {
		history = history[len(history)-s.opts.HistoryTurns:]
	}
	return history
}

// buildContextText 把命中结果拼成 "[title]: content"，块之间空一行。
func (s *ragService) buildContextText(hits []model.SearchHit) string {
	if len(hits) == 0 {
		return s.opts.NoContextText
	}
	parts := make([]string, len(hits))
	for i, h := range hits {
		parts[i] = fmt.Sprintf("[%s]: %s", sourceTitle(h, i), h.Metadata.Content)
	}
	return strings.Join(parts, "\n\n")
}

func sourceTitle(h model.SearchHit, i int) string {
	if h.Metadata.Title != "" {
		return h.Metadata.Title
	}
	return fmt.Sprintf("Document %d", i+1)
}

func preview(content string, limit int) string {
	if utf8.RuneCountInString(content) <= limit {
		return content
	}
	return string([]rune(content)[:limit]) + "..."
}
