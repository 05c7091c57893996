package generator

import (
	"context"
	"strings"

	"f1-rag-go/internal/config"
	"f1-rag-go/internal/model"
	"f1-rag-go/pkg/llm"
	"f1-rag-go/pkg/log"
)

// LLM 调用聊天补全接口生成回答，接口失败或返回空内容时交给 fallback。
type LLM struct {
	client        llm.Client
	prompt        config.LLMPromptConfig
	params        *llm.GenerationParams
	noContextText string
	fallback      Generator
}

// NewLLM 创建一个基于 client 的生成器。
func NewLLM(client llm.Client, prompt config.LLMPromptConfig, params *llm.GenerationParams, noContextText string, fallback Generator) *LLM {
	return &LLM{client: client, prompt: prompt, params: params, noContextText: noContextText, fallback: fallback}
}

func (g *LLM) buildSystemMessage(contextText string) string {
	refStart, refEnd := g.prompt.RefStart, g.prompt.RefEnd
	if refStart == "" {
		refStart = "<<REF>>"
	}
	if refEnd == "" {
		refEnd = "<<END>>"
	}
	var sys strings.Builder
	if g.prompt.Rules != "" {
		sys.WriteString(g.prompt.Rules)
		sys.WriteString("\n\n")
	}
	sys.WriteString(refStart)
	sys.WriteString("\n")
	if contextText == "" {
		contextText = g.noContextText
	}
	sys.WriteString(contextText)
	sys.WriteString("\n")
	sys.WriteString(refEnd)
	return sys.String()
}

// composeMessages 按 system、历史问答、当前问题的顺序组装消息。
func (g *LLM) composeMessages(query, contextText string, history []model.ConversationTurn) []llm.Message {
	msgs := make([]llm.Message, 0, 2*len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: g.buildSystemMessage(contextText)})
	for _, turn := range history {
		msgs = append(msgs,
			llm.Message{Role: "user", Content: turn.User},
			llm.Message{Role: "assistant", Content: turn.Bot},
		)
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: query})
	return msgs
}

func (g *LLM) Generate(ctx context.Context, query, contextText string, history []model.ConversationTurn) (string, error) {
	return g.Stream(ctx, query, contextText, history, func(string) error { return nil })
}

func (g *LLM) Stream(ctx context.Context, query, contextText string, history []model.ConversationTurn, emit func(string) error) (string, error) {
	messages := g.composeMessages(query, contextText, history)

	var answer strings.Builder
	err := g.client.StreamChatMessages(ctx, messages, g.params, func(chunk string) error {
		answer.WriteString(chunk)
		return emit(chunk)
	})
	if err == nil && answer.Len() > 0 {
		return answer.String(), nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if answer.Len() > 0 {
		// 已经推送了部分内容，不再切换到兜底回答
		log.Warnf("[LLMGenerator] 流式生成中断, 返回已生成内容: %v", err)
		return answer.String(), nil
	}
	if err != nil {
		log.Warnf("[LLMGenerator] LLM 调用失败, 使用规则回答: %v", err)
	} else {
		log.Warnf("[LLMGenerator] LLM 返回空内容, 使用规则回答")
	}
	return g.fallback.Stream(ctx, query, contextText, history, emit)
}
