package handlers

import (
	"errors"
	"net/http"

	"reelnotes/internal/logging"
	"reelnotes/internal/middleware"
	"reelnotes/internal/services"
	"reelnotes/internal/utils"

	"github.com/gin-gonic/gin"
)

// errorStatus 业务错误到 HTTP 状态码和错误码的映射
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, services.ErrEditWindowExpired):
		return http.StatusConflict, "edit_window_expired"
	case errors.Is(err, services.ErrDepthExceeded):
		return http.StatusConflict, "depth_exceeded"
	case errors.Is(err, services.ErrConflictInProgress):
		return http.StatusConflict, "conflict_in_progress"
	case errors.Is(err, services.ErrUpstreamFailure):
		return http.StatusBadGateway, "upstream_failure"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// RespondError 按错误类型返回 JSON 错误
func RespondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	_ = c.Error(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		message = "服务器内部错误"
	}
	c.JSON(status, gin.H{"error": message, "code": code})
}

// badRequest 请求体格式错误
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": "validation_error"})
}

func caller(c *gin.Context) string {
	return middleware.CallerID(c)
}

// pageParams 读取 page / page_size 查询参数，越界值由服务层修正
func pageParams(c *gin.Context) (int, int) {
	return utils.StringToInt(c.Query("page"), 1), utils.StringToInt(c.Query("page_size"), 0)
}

type contentBody struct {
	Content string `json:"content"`
}
