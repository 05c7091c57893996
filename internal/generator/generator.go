// Package generator 根据问题、检索上下文和会话历史生成回答。
package generator

import (
	"context"
	"strings"

	"f1-rag-go/internal/config"
	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/llm"
	"f1-rag-go/pkg/log"
)

// Generator 定义了回答生成的接口。history 为本会话此前的轮次，按时间顺序排列，可以为空。
type Generator interface {
	Generate(ctx context.Context, query, contextText string, history []model.ConversationTurn) (string, error)
	// Stream 与 Generate 相同，但会通过 emit 逐段推送，结束后返回完整回答。
	Stream(ctx context.Context, query, contextText string, history []model.ConversationTurn, emit func(chunk string) error) (string, error)
}

// NewFromConfig 在启动时选定生成策略。
func NewFromConfig(genCfg config.GeneratorConfig, llmCfg config.LLMConfig, noContextText string) Generator {
	rules := NewRuleBased(noContextText)
	if strings.EqualFold(genCfg.Strategy, "llm") && llmCfg.APIKey != "" {
		log.Infof("[Generator] 使用 LLM 生成回答, model: %s", llmCfg.Model)
		return NewLLM(llm.NewClient(llmCfg), llmCfg.Prompt, llm.ParamsFromConfig(llmCfg.Generation), noContextText, rules)
	}
	log.Info("[Generator] 使用规则生成回答")
	return rules
}
