package handler

import (
	"net/http"

	"f1-rag-go/internal/service"

	"github.com/gin-gonic/gin"
)

// ConversationHandler 处理与对话相关的 API 请求。
type ConversationHandler struct {
	service service.ConversationService
}

// NewConversationHandler 创建一个新的 ConversationHandler。
func NewConversationHandler(service service.ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

// GetHistory 返回某个会话按时间排序的问答记录，未知会话返回空列表。
func (h *ConversationHandler) GetHistory(c *gin.Context) {
	history, err := h.service.GetHistory(c.Request.Context(), c.Param("conversationId"))
	if err != nil {
		failErr(c, err, "Failed to retrieve conversation history")
		return
	}
	success(c, http.StatusOK, gin.H{"history": history})
}

// GetSummary 返回会话轮数、主题和最后一轮时间。
func (h *ConversationHandler) GetSummary(c *gin.Context) {
	summary, err := h.service.Summarize(c.Request.Context(), c.Param("conversationId"))
	if err != nil {
		failErr(c, err, "Failed to summarize conversation")
		return
	}
	success(c, http.StatusOK, summary)
}
