package handlers

import (
	"net/http"

	"reelnotes/internal/logging"
	"reelnotes/internal/utils"

	"github.com/gin-gonic/gin"
)

// CacheAdminHandler 缓存管理接口，路由层负责管理员校验
type CacheAdminHandler struct {
	cache *utils.Cache
}

func NewCacheAdminHandler(cache *utils.Cache) *CacheAdminHandler {
	return &CacheAdminHandler{cache: cache}
}

// Keys GET /api/admin/cache/keys
func (h *CacheAdminHandler) Keys(c *gin.Context) {
	keys := h.cache.ListKeys()
	c.JSON(http.StatusOK, gin.H{"keys": keys, "count": len(keys)})
}

// Info GET /api/admin/cache/keys/:key
func (h *CacheAdminHandler) Info(c *gin.Context) {
	info, ok := h.cache.Info(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "缓存键不存在", "code": "not_found"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// DeletePattern DELETE /api/admin/cache?pattern=article:*
func (h *CacheAdminHandler) DeletePattern(c *gin.Context) {
	pattern := c.Query("pattern")
	if pattern == "" {
		badRequest(c, "缺少 pattern 参数")
		return
	}
	n := h.cache.DeleteByPattern(pattern)
	logging.Info().Str("pattern", pattern).Int("deleted", n).Str("caller", caller(c)).Msg("cache keys deleted")
	c.JSON(http.StatusOK, gin.H{"pattern": pattern, "deleted": n})
}

// ClearAll DELETE /api/admin/cache/all
func (h *CacheAdminHandler) ClearAll(c *gin.Context) {
	h.cache.ClearAll()
	logging.Info().Str("caller", caller(c)).Msg("cache cleared")
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}
