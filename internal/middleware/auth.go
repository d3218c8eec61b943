package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// CallerKey 当前调用者 ID 在 gin.Context 中的键
const CallerKey = "caller_id"

// LoadUser retrieves the caller id from the session and sets it on the context
func LoadUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		if userID := session.Get("user_id"); userID != nil {
			if id := strings.TrimSpace(fmt.Sprint(userID)); id != "" {
				c.Set(CallerKey, id)
			}
		}
		c.Next()
	}
}

// HeaderIdentity 部署在认证网关之后时，从网关注入的请求头读取调用者 ID
func HeaderIdentity(header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CallerKey); !exists {
			if id := strings.TrimSpace(c.GetHeader(header)); id != "" {
				c.Set(CallerKey, id)
			}
		}
		c.Next()
	}
}

// CallerID 返回当前调用者 ID，匿名请求返回空串
func CallerID(c *gin.Context) string {
	return c.GetString(CallerKey)
}

// AuthRequired ensures a caller identity is present
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CallerID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		c.Next()
	}
}

// AdminRequired 仅允许配置中的管理员访问
func AdminRequired(adminIDs []string) gin.HandlerFunc {
	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	return func(c *gin.Context) {
		id := CallerID(c)
		if id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "请先登录"})
			return
		}
		if !admins[id] {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "需要管理员权限"})
			return
		}
		c.Next()
	}
}
