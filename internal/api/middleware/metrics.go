package middleware

import (
	"time"

	"recipe-recommender/internal/infrastructure/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 記錄每個請求的次數與耗時，以路由樣板作為標籤
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		metrics.ObserveHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}
