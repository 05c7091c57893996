package handler

import (
	"net/http"
	"strconv"

	"f1-rag-go/internal/service"
	"f1-rag-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// SearchHandler 结构体定义了检索调试接口的处理器。
type SearchHandler struct {
	searchService service.SearchService
	defaultTopK   int
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(searchService service.SearchService, defaultTopK int) *SearchHandler {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &SearchHandler{searchService: searchService, defaultTopK: defaultTopK}
}

// Search 只做向量检索，不生成回答。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	log.Infof("[SearchHandler] 收到检索请求, query: %s", query)
	if query == "" {
		log.Warnf("[SearchHandler] 检索请求失败: query 参数为空")
		fail(c, http.StatusBadRequest, "query is required")
		return
	}
	topK, err := strconv.Atoi(c.DefaultQuery("topK", strconv.Itoa(h.defaultTopK)))
	if err != nil || topK <= 0 {
		topK = h.defaultTopK
	}

	hits, err := h.searchService.Search(c.Request.Context(), query, topK)
	if err != nil {
		log.Errorf("[SearchHandler] 检索服务返回错误, error: %v", err)
		failErr(c, err, "Search failed")
		return
	}
	log.Infof("[SearchHandler] 检索成功, query: '%s', 返回 %d 条结果", query, len(hits))
	success(c, http.StatusOK, hits)
}
