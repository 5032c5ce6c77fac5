package middleware

import (
	"time"

	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// requestFields 請求共用的日誌欄位，路由樣板讓 /recipes/:id 的請求可以聚合
func requestFields(c *gin.Context) []zap.Field {
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	fields := []zap.Field{
		zap.String("request_id", requestid.Get(c)),
		zap.String("method", c.Request.Method),
		zap.String("route", route),
		zap.String("path", c.Request.URL.Path),
	}
	if id := c.Param("id"); id != "" {
		fields = append(fields, zap.String("recipe_id", id))
	}
	if user := c.Param("user_id"); user != "" {
		fields = append(fields, zap.String("user_id", user))
	}
	return fields
}

// Logger 日誌中間件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		fields := append(requestFields(c),
			zap.Int("status", status),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("bytes", c.Writer.Size()),
		)
		if ua := c.Request.UserAgent(); ua != "" {
			fields = append(fields, zap.String("user-agent", ua))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= 500:
			common.LogError("伺服器錯誤", append(fields, zap.String("error_type", "server_error"))...)
		case status >= 400:
			common.LogWarn("用戶端錯誤", append(fields, zap.String("error_type", "client_error"))...)
		default:
			common.LogInfo("請求完成", fields...)
		}
	}
}

// Recovery 恢復中間件
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				common.LogError("Panic recovered", append(requestFields(c), zap.Any("error", err))...)
				c.AbortWithStatusJSON(common.ErrInternalError.Status, common.ErrInternalError.Response(false))
			}
		}()

		c.Next()
	}
}
