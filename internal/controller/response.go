package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tesla_parts_api/internal/service"
)

// ==================== 统一响应 ====================

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

func fail(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, Response{Code: status, Message: message})
}

func badRequest(ctx *gin.Context, message string) {
	fail(ctx, http.StatusBadRequest, message)
}

// respondError 按错误类别映射状态码，内部错误不回显细节
func respondError(ctx *gin.Context, err error) {
	switch service.KindOf(err) {
	case service.KindNotFound:
		fail(ctx, http.StatusNotFound, err.Error())
	case service.KindUnauthorized:
		fail(ctx, http.StatusUnauthorized, err.Error())
	case service.KindValidation:
		fail(ctx, http.StatusBadRequest, err.Error())
	case service.KindConflict:
		fail(ctx, http.StatusConflict, err.Error())
	default:
		_ = ctx.Error(err)
		fail(ctx, http.StatusInternalServerError, "internal server error")
	}
}

// paramInt64 解析路径参数，失败时已写入 400
func paramInt64(ctx *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(ctx, "invalid "+name)
		return 0, false
	}
	return id, true
}
