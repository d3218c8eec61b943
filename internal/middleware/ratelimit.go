package middleware

import (
	"net/http"

	"reelnotes/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Limiter 限流判定
type Limiter interface {
	Allow(caller, action string) bool
}

// RateLimit 按调用者限制 action 的频率，匿名请求按客户端 IP 计
func RateLimit(l Limiter, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerID(c)
		if caller == "" {
			caller = "ip:" + c.ClientIP()
		}
		if !l.Allow(caller, action) {
			metrics.RateLimited.WithLabelValues(action).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "操作过于频繁，请稍后再试"})
			return
		}
		c.Next()
	}
}
