package api

import (
	"fmt"
	"time"

	"recipe-recommender/internal/api/handlers/health"
	recipeHandler "recipe-recommender/internal/api/handlers/recipe"
	"recipe-recommender/internal/api/middleware"
	"recipe-recommender/internal/core/detector"
	"recipe-recommender/internal/core/image"
	"recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	// 超時設置
	timeoutDuration = 120 * time.Second
	// multipart 表單額外空間
	multipartOverhead = 1 << 20
)

// Services 路由需要的服務，Queue 只用於健康檢查回報狀態，可以是 nil
type Services struct {
	Recipes  *recipe.Service
	Detector detector.Detector
	Queue    *detector.Queue
	Images   *image.Service
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, svcs Services) (*gin.Engine, error) {
	if svcs.Recipes == nil {
		return nil, fmt.Errorf("recipe service is required")
	}
	if svcs.Detector == nil || svcs.Images == nil {
		return nil, fmt.Errorf("detector and image service are required")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(requestid.New()) // 自動生成請求 ID
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制，上傳圖片需要額外的 multipart 空間
	maxBodySize := cfg.Image.MaxSizeBytes + multipartOverhead
	router.Use(middleware.BodySizeLimit(maxBodySize))
	router.Use(middleware.Timeout(timeoutDuration))

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg, svcs.Recipes, svcs.Detector, svcs.Queue)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit))
	}
	api.Use(middleware.Deduplication(cfg.DedupWindow))
	{
		recipes := recipeHandler.NewHandler(svcs.Recipes, cfg.App.Debug)
		detection := recipeHandler.NewDetectionHandler(svcs.Detector, svcs.Images, cfg.App.Debug)

		api.GET("/health", healthHandler.ServiceHealth)
		api.GET("/ingredients", recipes.HandleIngredients)

		// 註冊食譜相關路由
		recipeGroup := api.Group("/recipes")
		{
			recipeGroup.POST("/suggest", recipes.HandleSuggest)
			recipeGroup.POST("/detect", detection.HandleDetect)
			recipeGroup.GET("/:id", recipes.HandleGetRecipe)
			recipeGroup.POST("/:id/rate", recipes.HandleRate)
			recipeGroup.POST("/:id/favorite", recipes.HandleFavorite)
		}

		api.GET("/users/:user_id/feedback", recipes.HandleUserFeedback)
	}

	router.HandleMethodNotAllowed = true
	router.NoMethod(func(c *gin.Context) {
		common.WriteError(c, common.ErrMethodNotAllowed, cfg.App.Debug)
	})
	router.NoRoute(func(c *gin.Context) {
		common.WriteError(c, common.ErrNotFound, cfg.App.Debug)
	})

	common.LogInfo("Router setup completed successfully",
		zap.String("detector", svcs.Detector.Name()),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("metrics", cfg.Metrics.Enabled),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
