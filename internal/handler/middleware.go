package handler

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders 为所有响应添加基础安全头。
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.Writer.Header()
		header.Set("X-Content-Type-Options", "nosniff")
		header.Set("X-Frame-Options", "SAMEORIGIN")
		header.Set("X-XSS-Protection", "1; mode=block")
		c.Next()
	}
}

// NoStore 禁止缓存 /api 下的响应。
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || c.Request.URL.Path == "/api" {
			header := c.Writer.Header()
			header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			header.Set("Pragma", "no-cache")
			header.Set("Expires", "0")
		}
		c.Next()
	}
}

// RequestTimeout 为请求上下文设置截止时间，数据库调用会随之取消。
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
