// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"net/http"

	"f1-rag-go/internal/model"

	"github.com/gin-gonic/gin"
)

func success(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"code": status, "message": "success", "data": data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"code": status, "message": message, "data": nil})
}

// failErr 把服务层错误映射为状态码: 参数错误 400，其余 500。
func failErr(c *gin.Context, err error, message string) {
	status := http.StatusInternalServerError
	if errors.Is(err, model.ErrInvalidInput) {
		status = http.StatusBadRequest
		message = err.Error()
	}
	fail(c, status, message)
}
