package middleware

import (
	"time"

	"reelnotes/internal/logging"

	"github.com/gin-gonic/gin"
)

// RequestLogger 用 zerolog 记录每个请求
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		ev := logging.Info()
		switch {
		case status >= 500:
			ev = logging.Error()
		case status >= 400:
			ev = logging.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("caller", CallerID(c)).
			Msg("request")
	}
}
