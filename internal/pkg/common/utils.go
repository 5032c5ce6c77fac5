package common

import (
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NormalizeTerm 轉小寫並去除前後空白
func NormalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTerms 正規化並去重，保留第一次出現的順序，空字串會被略過
func NormalizeTerms(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		n := NormalizeTerm(item)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SortedKeys 回傳排序後的 map 鍵
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteError 以統一格式回應錯誤並記錄日誌
func WriteError(c *gin.Context, err error, debug bool) {
	cerr := AsCustomError(err)
	fields := []zap.Field{
		zap.String("code", cerr.Code),
		zap.Int("status", cerr.Status),
		zap.String("path", c.Request.URL.Path),
	}
	if cerr.Err != nil {
		fields = append(fields, zap.Error(cerr.Err))
	}
	if cerr.Status >= 500 {
		LogError("請求處理失敗", fields...)
	} else {
		LogWarn("請求處理失敗", fields...)
	}
	c.AbortWithStatusJSON(cerr.Status, cerr.Response(debug))
}
