package recipe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"recipe-recommender/internal/core/feedback"
	"recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SuggestRequest 依食材推薦食譜
type SuggestRequest struct {
	Ingredients         []string `json:"ingredients"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	MaxCookingTime      *int     `json:"max_cooking_time" binding:"omitempty,min=0"`
	Difficulty          string   `json:"difficulty"`
	CuisinePreference   string   `json:"cuisine_preference"`
	Limit               int      `json:"limit" binding:"min=0"`
}

// FiltersApplied 回應中回顯的篩選條件
type FiltersApplied struct {
	DietaryRestrictions []string `json:"dietary_restrictions"`
	MaxCookingTime      *int     `json:"max_cooking_time"`
	Difficulty          string   `json:"difficulty"`
	CuisinePreference   string   `json:"cuisine_preference"`
}

// SuggestResponse 推薦結果
type SuggestResponse struct {
	Success           bool                     `json:"success"`
	Recipes           []recipe.ScoredCandidate `json:"recipes"`
	TotalFound        int                      `json:"total_found"`
	SearchIngredients []string                 `json:"search_ingredients"`
	FiltersApplied    FiltersApplied           `json:"filters_applied"`
	Limit             int                      `json:"limit"`
}

// RateRequest 評分請求
type RateRequest struct {
	UserID string `json:"user_id"`
	Rating int    `json:"rating"`
}

// FavoriteRequest 收藏請求，未提供 is_favorite 時視為收藏
type FavoriteRequest struct {
	UserID     string `json:"user_id"`
	IsFavorite *bool  `json:"is_favorite"`
}

// Handler 食譜處理程序
type Handler struct {
	service *recipe.Service
	debug   bool
}

// NewHandler 創建新的食譜處理程序
func NewHandler(service *recipe.Service, debug bool) *Handler {
	return &Handler{service: service, debug: debug}
}

// apiError 將領域錯誤轉成 API 錯誤，無法對應時使用 fallback
func apiError(err error, fallback *common.CustomError) error {
	switch {
	case errors.Is(err, recipe.ErrRecipeNotFound), errors.Is(err, feedback.ErrUnknownRecipe):
		return common.ErrRecipeNotFound.WithError(err)
	case errors.Is(err, recipe.ErrInvalidFilter):
		return common.ErrInvalidRequest.WithError(err)
	case errors.Is(err, feedback.ErrInvalidRating):
		return common.ErrInvalidRating.WithError(err)
	case errors.Is(err, feedback.ErrMissingUserID):
		return common.ErrMissingUserID.WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrGatewayTimeout.WithError(err)
	}
	if fallback != nil {
		return fallback.WithError(err)
	}
	return err
}

// recipeID 解析路徑中的食譜 id
func recipeID(c *gin.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return 0, common.ErrRecipeNotFound.WithError(err)
	}
	return id, nil
}

// HandleSuggest 推薦食譜
func (h *Handler) HandleSuggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.WithError(err), h.debug)
		return
	}
	if len(common.NormalizeTerms(req.Ingredients)) == 0 {
		common.WriteError(c, common.ErrNoIngredients, h.debug)
		return
	}
	if maxLimit := h.service.Engine().MaxLimit(); req.Limit > maxLimit {
		common.WriteError(c, common.ErrInvalidRequest.WithError(fmt.Errorf("limit must not exceed %d", maxLimit)), h.debug)
		return
	}

	query := recipe.Query{
		Ingredients: req.Ingredients,
		Filters: recipe.Filters{
			DietaryRestrictions: req.DietaryRestrictions,
			MaxCookingTime:      req.MaxCookingTime,
			Difficulty:          recipe.Difficulty(req.Difficulty),
			Cuisine:             req.CuisinePreference,
		},
		Limit: req.Limit,
	}

	results, err := h.service.Suggest(c.Request.Context(), query)
	if err != nil {
		common.WriteError(c, apiError(err, nil), h.debug)
		return
	}

	common.LogInfo("食譜推薦成功",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("ingredients", len(req.Ingredients)),
		zap.Int("total_found", len(results)),
	)

	if req.DietaryRestrictions == nil {
		req.DietaryRestrictions = []string{}
	}
	c.JSON(http.StatusOK, SuggestResponse{
		Success:           true,
		Recipes:           results,
		TotalFound:        len(results),
		SearchIngredients: req.Ingredients,
		FiltersApplied: FiltersApplied{
			DietaryRestrictions: req.DietaryRestrictions,
			MaxCookingTime:      req.MaxCookingTime,
			Difficulty:          req.Difficulty,
			CuisinePreference:   req.CuisinePreference,
		},
		Limit: h.service.Engine().Limit(req.Limit),
	})
}

// HandleGetRecipe 取得食譜詳細資料
func (h *Handler) HandleGetRecipe(c *gin.Context) {
	id, err := recipeID(c)
	if err != nil {
		common.WriteError(c, err, h.debug)
		return
	}

	r, err := h.service.GetRecipe(c.Request.Context(), id)
	if err != nil {
		common.WriteError(c, apiError(err, nil), h.debug)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"recipe":  r,
	})
}

// HandleRate 評分食譜
func (h *Handler) HandleRate(c *gin.Context) {
	id, err := recipeID(c)
	if err != nil {
		common.WriteError(c, err, h.debug)
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.WithError(err), h.debug)
		return
	}

	agg, err := h.service.RecordRating(c.Request.Context(), id, req.UserID, req.Rating)
	if err != nil {
		common.WriteError(c, apiError(err, common.ErrFeedbackSave), h.debug)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Recipe rated successfully",
		"recipe_id":      id,
		"rating":         req.Rating,
		"average_rating": agg.Rating,
		"ratings_count":  agg.RatingsCount,
	})
}

// HandleFavorite 設定收藏狀態
func (h *Handler) HandleFavorite(c *gin.Context) {
	id, err := recipeID(c)
	if err != nil {
		common.WriteError(c, err, h.debug)
		return
	}

	var req FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c, common.ErrInvalidRequest.WithError(err), h.debug)
		return
	}
	favorite := true
	if req.IsFavorite != nil {
		favorite = *req.IsFavorite
	}

	agg, err := h.service.RecordFavorite(c.Request.Context(), id, req.UserID, favorite)
	if err != nil {
		common.WriteError(c, apiError(err, common.ErrFeedbackSave), h.debug)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "Favorite status updated",
		"recipe_id":       id,
		"is_favorite":     favorite,
		"favorites_count": agg.FavoritesCount,
	})
}

// HandleUserFeedback 使用者的評分與收藏
func (h *Handler) HandleUserFeedback(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("user_id"))
	if userID == "" {
		common.WriteError(c, common.ErrMissingUserID, h.debug)
		return
	}

	data := h.service.UserFeedback(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"user_id":   data.UserID,
		"ratings":   data.Ratings,
		"favorites": data.Favorites,
	})
}

// HandleIngredients 語料庫中所有食材，供自動完成使用
func (h *Handler) HandleIngredients(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ingredients": h.service.Ingredients(),
	})
}
