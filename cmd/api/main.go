package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-recommender/internal/api"
	"recipe-recommender/internal/core/cache"
	"recipe-recommender/internal/core/detector"
	"recipe-recommender/internal/core/feedback"
	"recipe-recommender/internal/core/image"
	"recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	common.LogInfo("載入設定",
		zap.String("detector_provider", cfg.Detector.Provider),
		zap.String("openrouter_api_key", config.MaskAPIKey(cfg.Detector.APIKey)),
		zap.String("openrouter_model", cfg.Detector.Model),
		zap.String("recipes_path", cfg.Corpus.RecipesPath),
	)

	// 載入食譜與替代食材表，任何失敗都不啟動服務
	corpus, err := recipe.LoadCorpus(cfg.Corpus.RecipesPath)
	if err != nil {
		common.LogFatal("Failed to load recipe corpus", zap.Error(err))
	}
	subs, err := recipe.LoadSubstitutions(cfg.Corpus.SubstitutionsPath, cfg.Ranking.MaxSubstitutes)
	if err != nil {
		common.LogFatal("Failed to load substitution table", zap.Error(err))
	}
	engine, err := recipe.NewEngine(corpus, subs, recipe.Options{
		DefaultLimit: cfg.Ranking.DefaultLimit,
		MaxLimit:     cfg.Ranking.MaxLimit,
	})
	if err != nil {
		common.LogFatal("Failed to build recommendation engine", zap.Error(err))
	}
	common.LogInfo("推薦引擎已就緒",
		zap.Int("recipes", corpus.Len()),
		zap.Int("substitutions", subs.Len()),
		zap.Int("vocabulary", engine.VocabularySize()),
	)

	// 評分與收藏
	store, err := feedback.NewStore(cfg.Feedback.DataDir, corpus)
	if err != nil {
		common.LogFatal("Failed to open feedback store", zap.Error(err))
	}

	// 初始化快取
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	resultCache, err := cache.New(ctx, cfg)
	if err != nil {
		cancel()
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	// Redis 中可能留有上一版語料庫的排序
	if err := resultCache.Clear(ctx); err != nil {
		common.LogWarn("Failed to clear result cache", zap.Error(err))
	}
	cancel()
	defer resultCache.Close()

	// 初始化食材偵測
	images := image.NewService(cfg.Image.MaxSizeBytes, cfg.Image.UploadDir)
	var det detector.Detector
	switch cfg.Detector.Provider {
	case "openrouter":
		det = detector.NewOpenRouterDetector(cfg.Detector, images)
	default:
		det = detector.NewMockDetector(nil)
	}
	queue := detector.NewQueue(det, cfg.Detector.Workers, cfg.Detector.QueueSize)
	defer queue.Close()

	// 設置路由
	router, err := api.SetupRouter(cfg, api.Services{
		Recipes:  recipe.NewService(engine, resultCache, store),
		Detector: queue,
		Queue:    queue,
		Images:   images,
	})
	if err != nil {
		common.LogFatal("Failed to setup router", zap.Error(err))
	}

	// 設置 HTTP 服務器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// 啟動服務器
	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	// 設置關閉超時
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		return
	}

	common.LogInfo("Server exited")
}
