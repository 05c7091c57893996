package service

import (
	"context"
	"fmt"
	"strings"

	"f1-rag-go/internal/model"
	"f1-rag-go/internal/repository"
)

// ConversationService 定义了对话业务逻辑的接口。
type ConversationService interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.ConversationTurn, error)
	Summarize(ctx context.Context, conversationID string) (*model.ConversationSummary, error)
}

type conversationService struct {
	repo repository.ConversationRepository
}

// NewConversationService 创建一个新的 ConversationService。
func NewConversationService(repo repository.ConversationRepository) ConversationService {
	return &conversationService{repo: repo}
}

func (s *conversationService) GetHistory(ctx context.Context, conversationID string) ([]model.ConversationTurn, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("%w: conversation id is empty", model.ErrInvalidInput)
	}
	return s.repo.History(ctx, conversationID)
}

// Summarize 返回会话轮数、涉及的主题和最后一轮的时间。
func (s *conversationService) Summarize(ctx context.Context, conversationID string) (*model.ConversationSummary, error) {
	history, err := s.GetHistory(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	summary := &model.ConversationSummary{
		MessageCount: len(history),
		Topics:       ExtractTopics(history),
	}
	if len(history) > 0 {
		last := history[len(history)-1].Timestamp
		summary.LastMessage = &last
	}
	return summary, nil
}

type topicGroup struct {
	name     string
	keywords []string
}

// 主题按固定顺序输出
var topicGroups = []topicGroup{
	{"Drivers", []string{"driver", "piloto"}},
	{"Teams", []string{"team", "equipo"}},
	{"Races", []string{"race", "carrera"}},
	{"Championship", []string{"championship", "campeonato"}},
	{"Circuits", []string{"circuit", "circuito"}},
	{"Technology", []string{"engine", "motor"}},
	{"Regulations", []string{"regulation", "reglamento"}},
}

// ExtractTopics 对每轮的用户提问和回答做大小写无关的关键词匹配。
func ExtractTopics(history []model.ConversationTurn) []string {
	found := make(map[string]bool)
	for _, turn := range history {
		text := strings.ToLower(turn.User + " " + turn.Bot)
		for _, g := range topicGroups {
			if found[g.name] {
				continue
			}
			for _, kw := range g.keywords {
				if strings.Contains(text, kw) {
					found[g.name] = true
					break
				}
			}
		}
	}
	topics := []string{}
	for _, g := range topicGroups {
		if found[g.name] {
			topics = append(topics, g.name)
		}
	}
	return topics
}
