package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	prev := common.Logger
	common.SetLogger(zap.New(core))
	t.Cleanup(func() { common.SetLogger(prev) })
	return logs
}

func newLoggedRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.New(), Recovery(), Logger())
	r.GET("/api/v1/recipes/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.Param("id")})
	})
	r.GET("/api/v1/users/:user_id/feedback", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func TestLoggerRecordsRouteAndRecipe(t *testing.T) {
	logs := observeLogs(t)
	router := newLoggedRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/recipes/7", nil))
	require.Equal(t, http.StatusOK, w.Code)

	entries := logs.FilterMessage("請求完成").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/api/v1/recipes/:id", fields["route"])
	assert.Equal(t, "/api/v1/recipes/7", fields["path"])
	assert.Equal(t, "7", fields["recipe_id"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.Equal(t, w.Header().Get("X-Request-ID"), fields["request_id"])
	assert.NotContains(t, fields, "user_id")
}

func TestLoggerClientErrorWithUser(t *testing.T) {
	logs := observeLogs(t)
	router := newLoggedRouter()

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/users/alice/feedback", nil))

	entries := logs.FilterMessage("用戶端錯誤").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "alice", fields["user_id"])
	assert.Equal(t, "client_error", fields["error_type"])

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	entries = logs.FilterMessage("用戶端錯誤").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "unmatched", entries[1].ContextMap()["route"])
}

func TestRecoveryLogsRequest(t *testing.T) {
	logs := observeLogs(t)
	router := newLoggedRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	entries := logs.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "/panic", entries[0].ContextMap()["route"])
	assert.Equal(t, "boom", entries[0].ContextMap()["error"])
}
