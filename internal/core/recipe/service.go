package recipe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"recipe-recommender/internal/core/cache"
	"recipe-recommender/internal/core/feedback"
	"recipe-recommender/internal/infrastructure/metrics"
	"recipe-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// FeedbackStore 評分與收藏的讀寫介面
type FeedbackStore interface {
	Rate(ctx context.Context, recipeID int, userID string, rating int) (feedback.Aggregate, error)
	SetFavorite(ctx context.Context, recipeID int, userID string, favorite bool) (feedback.Aggregate, error)
	Aggregate(recipeID int) (feedback.Aggregate, bool)
	UserData(userID string) feedback.UserData
}

// Seed 以語料庫中的評分與收藏數作為回饋彙總初始值
func (c *Corpus) Seed(recipeID int) (feedback.Aggregate, bool) {
	idx, ok := c.byID[recipeID]
	if !ok {
		return feedback.Aggregate{}, false
	}
	r := c.recipes[idx]
	return feedback.Aggregate{
		Rating:         r.Rating,
		RatingsCount:   r.RatingsCount,
		FavoritesCount: r.FavoritesCount,
	}, true
}

// Service 食譜服務：推薦引擎加上快取與回饋
type Service struct {
	engine   *Engine
	cache    cache.Cache
	feedback FeedbackStore
}

// NewService 創建新的食譜服務
func NewService(engine *Engine, c cache.Cache, fb FeedbackStore) *Service {
	if c == nil {
		c = cache.Disabled{}
	}
	return &Service{engine: engine, cache: c, feedback: fb}
}

// Engine 推薦引擎
func (s *Service) Engine() *Engine {
	return s.engine
}

// suggestionKey 查詢的快取鍵，食材順序不影響結果
func suggestionKey(q Query, limit int) string {
	ingredients := common.NormalizeTerms(q.Ingredients)
	sort.Strings(ingredients)

	tags := make([]string, 0, len(q.Filters.DietaryRestrictions))
	for _, t := range q.Filters.DietaryRestrictions {
		if n := NormalizeTag(t); n != "" {
			tags = append(tags, n)
		}
	}
	sort.Strings(tags)

	maxTime := "-"
	if q.Filters.MaxCookingTime != nil {
		maxTime = strconv.Itoa(*q.Filters.MaxCookingTime)
	}
	return cache.Key("suggest",
		strings.Join(ingredients, ","),
		strings.Join(tags, ","),
		maxTime,
		string(q.Filters.Difficulty),
		strings.ToLower(strings.TrimSpace(q.Filters.Cuisine)),
		strconv.Itoa(limit),
	)
}

// Suggest 依食材與篩選條件推薦食譜
func (s *Service) Suggest(ctx context.Context, q Query) ([]ScoredCandidate, error) {
	if err := q.Filters.Validate(); err != nil {
		return nil, err
	}
	limit := s.engine.Limit(q.Limit)
	key := suggestionKey(q, limit)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		var results []ScoredCandidate
		if err := common.ParseJSON(cached, &results); err == nil {
			metrics.RecordCacheResult(true)
			return s.overlayAll(results), nil
		}
		common.LogWarn("快取內容無法解析", zap.String("key", key))
	} else if !errors.Is(err, common.ErrCacheMiss) && !errors.Is(err, common.ErrCacheDisabled) {
		common.LogWarn("讀取快取失敗", zap.Error(err))
	}
	metrics.RecordCacheResult(false)

	start := time.Now()
	results, err := s.engine.Suggest(Query{Ingredients: q.Ingredients, Filters: q.Filters, Limit: limit})
	if err != nil {
		return nil, err
	}
	metrics.ObserveSuggestion(len(results), time.Since(start))

	common.LogDebug("推薦完成",
		zap.Int("ingredients", len(q.Ingredients)),
		zap.Int("results", len(results)),
		zap.Duration("耗時", time.Since(start)),
	)

	// 快取只存引擎輸出，評分與收藏數每次回傳前才套用
	if payload, err := common.ToJSON(results); err == nil {
		if err := s.cache.Set(ctx, key, payload); err != nil {
			common.LogWarn("寫入快取失敗", zap.Error(err))
		}
	}
	return s.overlayAll(results), nil
}

func (s *Service) overlayAll(results []ScoredCandidate) []ScoredCandidate {
	for i := range results {
		s.overlay(&results[i].Recipe)
	}
	return results
}

// overlay 以回饋彙總覆蓋食譜上的評分資料
func (s *Service) overlay(r *Recipe) {
	if s.feedback == nil {
		return
	}
	if agg, ok := s.feedback.Aggregate(r.ID); ok {
		r.Rating = agg.Rating
		r.RatingsCount = agg.RatingsCount
		r.FavoritesCount = agg.FavoritesCount
	}
}

// GetRecipe 取得單一食譜，包含最新的評分與收藏數
func (s *Service) GetRecipe(_ context.Context, id int) (Recipe, error) {
	r, ok := s.engine.Corpus().Get(id)
	if !ok {
		return Recipe{}, fmt.Errorf("%w: %d", ErrRecipeNotFound, id)
	}
	s.overlay(&r)
	return r, nil
}

// RecordRating 記錄評分
func (s *Service) RecordRating(ctx context.Context, id int, userID string, rating int) (feedback.Aggregate, error) {
	if _, ok := s.engine.Corpus().Get(id); !ok {
		return feedback.Aggregate{}, fmt.Errorf("%w: %d", ErrRecipeNotFound, id)
	}
	agg, err := s.feedback.Rate(ctx, id, userID, rating)
	metrics.RecordFeedbackWrite("rating", err)
	if err != nil {
		return feedback.Aggregate{}, err
	}
	return agg, nil
}

// RecordFavorite 設定收藏
func (s *Service) RecordFavorite(ctx context.Context, id int, userID string, favorite bool) (feedback.Aggregate, error) {
	if _, ok := s.engine.Corpus().Get(id); !ok {
		return feedback.Aggregate{}, fmt.Errorf("%w: %d", ErrRecipeNotFound, id)
	}
	agg, err := s.feedback.SetFavorite(ctx, id, userID, favorite)
	metrics.RecordFeedbackWrite("favorite", err)
	if err != nil {
		return feedback.Aggregate{}, err
	}
	return agg, nil
}

// CacheHealth 快取後端可用時回傳 nil
func (s *Service) CacheHealth(ctx context.Context) error {
	return cache.Ping(ctx, s.cache)
}

// UserFeedback 使用者的評分與收藏
func (s *Service) UserFeedback(_ context.Context, userID string) feedback.UserData {
	return s.feedback.UserData(userID)
}

// Ingredients 語料庫食材清單
func (s *Service) Ingredients() []string {
	return s.engine.Corpus().Ingredients()
}
