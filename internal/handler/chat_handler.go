package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"f1-rag-go/internal/service"
	"f1-rag-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责处理问答请求，包括一次性的 HTTP 接口和流式的 WebSocket 连接。
type ChatHandler struct {
	ragService service.RAGService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(ragService service.RAGService) *ChatHandler {
	return &ChatHandler{ragService: ragService}
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// Chat 处理 POST /api/chat。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, "Message is required")
		return
	}

	resp, err := h.ragService.ProcessQuery(c.Request.Context(), req.Message, req.ConversationID)
	if err != nil {
		log.Errorf("[ChatHandler] 处理问答失败: %v", err)
		failErr(c, err, "Failed to process your question")
		return
	}
	success(c, http.StatusOK, resp)
}

// wsConn 串行化对同一连接的写操作。
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeCompletion(conversationID, status string) error {
	now := time.Now()
	return w.writeJSON(map[string]any{
		"type":           "completion",
		"status":         status,
		"message":        "响应已完成",
		"conversationId": conversationID,
		"timestamp":      now.UnixMilli(),
		"date":           now.Format("2006-01-02T15:04:05"),
	})
}

type wsRequest struct {
	Type           string `json:"type"`
	Message        string `json:"message"`
	ConversationID string `json:"conversationId"`
}

// Handle 处理一个传入的 WebSocket 连接。
// 客户端发送纯文本或 {"message","conversationId"}，服务端逐段推送 {"chunk":...}，
// 最后推送 sources 和 completion。发送 {"type":"stop"} 可中断当前回答。
func (h *ChatHandler) Handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()
	ws := &wsConn{conn: conn}
	log.Infof("WebSocket 连接已建立: %s", c.ClientIP())

	var (
		cancelMu sync.Mutex
		cancel   context.CancelFunc
	)
	stop := func() {
		cancelMu.Lock()
		defer cancelMu.Unlock()
		if cancel != nil {
			cancel()
		}
	}

	queue := make(chan wsRequest, 16)
	go func() {
		defer close(queue)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Warnf("从 WebSocket 读取消息失败: %v", err)
				}
				stop()
				return
			}
			req := wsRequest{Message: string(message)}
			if len(message) > 0 && message[0] == '{' {
				if err := json.Unmarshal(message, &req); err != nil {
					req = wsRequest{Message: string(message)}
				}
			}
			if req.Type == "stop" {
				log.Info("收到停止指令，正在中断流式响应...")
				stop()
				now := time.Now()
				_ = ws.writeJSON(map[string]any{
					"type":      "stop",
					"message":   "响应已停止",
					"timestamp": now.UnixMilli(),
					"date":      now.Format("2006-01-02T15:04:05"),
				})
				continue
			}
			queue <- req
		}
	}()

	conversationID := ""
	for req := range queue {
		if strings.TrimSpace(req.Message) == "" {
			_ = ws.writeJSON(map[string]string{"error": "Message is required"})
			continue
		}
		if req.ConversationID != "" {
			conversationID = req.ConversationID
		}

		ctx, cancelFn := context.WithCancel(c.Request.Context())
		cancelMu.Lock()
		cancel = cancelFn
		cancelMu.Unlock()

		resp, err := h.ragService.StreamQuery(ctx, req.Message, conversationID, func(chunk string) error {
			return ws.writeJSON(map[string]string{"chunk": chunk})
		})
		stopped := ctx.Err() != nil
		cancelFn()

		switch {
		case err == nil:
			conversationID = resp.ConversationID
			_ = ws.writeJSON(map[string]any{"type": "sources", "sources": resp.Sources, "context": resp.Context})
			_ = ws.writeCompletion(conversationID, "finished")
		case stopped || errors.Is(err, context.Canceled):
			_ = ws.writeCompletion(conversationID, "stopped")
		default:
			log.Errorf("处理流式响应失败: %v", err)
			_ = ws.writeJSON(map[string]string{"error": "AI服务暂时不可用，请稍后重试"})
			_ = ws.writeCompletion(conversationID, "finished")
		}
	}
}
