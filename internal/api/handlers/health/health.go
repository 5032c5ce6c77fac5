package health

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"recipe-recommender/internal/core/detector"
	"recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Queue     *detector.Status       `json:"queue,omitempty"`
}

// ServiceHealthResponse 服務功能與模型狀態
type ServiceHealthResponse struct {
	Status          string            `json:"status"`
	Message         string            `json:"message"`
	Features        map[string]string `json:"features"`
	TotalRecipes    int               `json:"total_recipes"`
	VectorizerReady bool              `json:"vectorizer_ready"`
	VocabularySize  int               `json:"vocabulary_size"`
}

// Handler 健康檢查處理器
type Handler struct {
	cfg      *config.Config
	recipes  *recipe.Service
	detector detector.Detector
	queue    *detector.Queue
}

// NewHandler 創建健康檢查處理器，queue 可以是 nil
func NewHandler(cfg *config.Config, recipes *recipe.Service, det detector.Detector, queue *detector.Queue) *Handler {
	return &Handler{cfg: cfg, recipes: recipes, detector: det, queue: queue}
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	// 獲取運行時信息
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.cfg.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
	}
	if h.queue != nil {
		status := h.queue.Status()
		response.Queue = &status
	}

	c.JSON(http.StatusOK, response)
}

// ServiceHealth 回報推薦引擎與各項功能狀態
func (h *Handler) ServiceHealth(c *gin.Context) {
	engine := h.recipes.Engine()

	detection := "disabled"
	if h.detector != nil {
		detection = h.detector.Name()
	}
	cacheDriver := "disabled"
	if h.cfg.Cache.Enabled {
		cacheDriver = h.cfg.Cache.Driver
	}

	c.JSON(http.StatusOK, ServiceHealthResponse{
		Status:  "healthy",
		Message: "Recipe recommender is running",
		Features: map[string]string{
			"ingredient_recognition":   detection,
			"recipe_matching":          "tfidf_cosine_similarity",
			"substitution_suggestions": "enabled",
			"dietary_restrictions":     "supported",
			"user_feedback":            "enabled",
			"result_cache":             cacheDriver,
		},
		TotalRecipes:    engine.Corpus().Len(),
		VectorizerReady: engine.Ready(),
		VocabularySize:  engine.VocabularySize(),
	})
}

// ReadinessCheck 就緒檢查處理器，引擎未就緒或快取後端無法連線時回傳 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if h.recipes == nil || !h.recipes.Engine().Ready() {
		common.WriteError(c, common.ErrEngineNotReady, false)
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()
	if err := h.recipes.CacheHealth(ctx); err != nil {
		common.WriteError(c, common.ErrServiceUnavailable.WithError(err), false)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
