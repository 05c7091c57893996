package model

import "time"

// TurnSource 记录一轮对话引用过的文档标题及得分。
type TurnSource struct {
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// ConversationTurn 代表一次完整的问答交互。
type ConversationTurn struct {
	Timestamp time.Time    `json:"timestamp"`
	User      string       `json:"user"`
	Bot       string       `json:"bot"`
	Sources   []TurnSource `json:"sources"`
}

// ConversationSummary 是某个会话的概况，LastMessage 为最后一轮的时间。
type ConversationSummary struct {
	MessageCount int        `json:"messageCount"`
	Topics       []string   `json:"topics"`
	LastMessage  *time.Time `json:"lastMessage,omitempty"`
}

// Source 是响应中附带的检索来源，Content 为截断后的预览。
type Source struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// ContextInfo 描述本轮检索到的上下文规模。
type ContextInfo struct {
	DocumentsFound     int `json:"documentsFound"`
	TotalContextLength int `json:"totalContextLength"`
}

// QueryResponse 是一次问答的完整结果。
type QueryResponse struct {
	Response       string      `json:"response"`
	ConversationID string      `json:"conversationId"`
	Sources        []Source    `json:"sources"`
	Context        ContextInfo `json:"context"`
}
