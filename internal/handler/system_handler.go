package handler

import (
	"net/http"
	"time"

	"f1-rag-go/internal/service"

	"github.com/gin-gonic/gin"
)

// Health 是存活检查。
func Health(c *gin.Context) {
	success(c, http.StatusOK, gin.H{
		"status":    "OK",
		"message":   "F1 RAG Chatbot API is running",
		"timestamp": time.Now().UTC(),
	})
}

// Topics 返回可以提问的主题目录。
func Topics(c *gin.Context) {
	success(c, http.StatusOK, gin.H{"topics": service.AvailableTopics()})
}
