package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"recipe-recommender/internal/core/cache"
	"recipe-recommender/internal/core/detector"
	"recipe-recommender/internal/core/feedback"
	imgsvc "recipe-recommender/internal/core/image"
	"recipe-recommender/internal/core/recipe"
	"recipe-recommender/internal/infrastructure/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testRecipes() []recipe.Recipe {
	return []recipe.Recipe{
		{
			ID:          1,
			Name:        "Classic Spaghetti Carbonara",
			Ingredients: []string{"spaghetti", "eggs", "parmesan cheese", "bacon", "black pepper"},
			Cuisine:     "Italian",
			Difficulty:  recipe.DifficultyMedium,
			CookingTime: 20,
		},
		{
			ID:             2,
			Name:           "Chicken Teriyaki Stir Fry",
			Ingredients:    []string{"chicken breast", "broccoli", "garlic", "soy sauce", "ginger"},
			Cuisine:        "Asian",
			Difficulty:     recipe.DifficultyEasy,
			CookingTime:    15,
			DietaryTags:    recipe.Tags{"dairy_free", "gluten_free"},
			Rating:         4.2,
			RatingsCount:   5,
			FavoritesCount: 3,
		},
		{
			ID:          3,
			Name:        "Garlic Butter Salmon",
			Ingredients: []string{"salmon fillet", "butter", "garlic", "lemon", "dill"},
			Cuisine:     "American",
			Difficulty:  recipe.DifficultyEasy,
			CookingTime: 10,
			DietaryTags: recipe.Tags{"gluten_free"},
		},
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:         config.AppConfig{Env: "test", Debug: true, Version: "test"},
		Cache:       config.CacheConfig{Enabled: true, Driver: "memory", MaxSize: 100, TTL: time.Minute},
		Image:       config.ImageConfig{MaxSizeBytes: 1 << 20, UploadDir: t.TempDir()},
		Metrics:     config.MetricsConfig{Enabled: true, Path: "/metrics"},
		DedupWindow: time.Nanosecond,
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	mgr := cache.NewManager(cfg.Cache)
	t.Cleanup(func() { _ = mgr.Close() })
	return newTestRouterWithCache(t, cfg, mgr)
}

func newTestRouterWithCache(t *testing.T, cfg *config.Config, resultCache cache.Cache) *gin.Engine {
	t.Helper()

	corpus, err := recipe.NewCorpus(testRecipes())
	require.NoError(t, err)
	subs := recipe.NewSubstitutionTable(map[string][]string{
		"soy sauce": {"tamari", "coconut aminos"},
		"butter":    {"olive oil", "coconut oil"},
	}, 3)
	engine, err := recipe.NewEngine(corpus, subs, recipe.Options{})
	require.NoError(t, err)

	store, err := feedback.NewStore(t.TempDir(), corpus)
	require.NoError(t, err)
	queue := detector.NewQueue(detector.NewMockDetector(nil), 1, 4)
	t.Cleanup(queue.Close)

	router, err := SetupRouter(cfg, Services{
		Recipes:  recipe.NewService(engine, resultCache, store),
		Detector: queue,
		Queue:    queue,
		Images:   imgsvc.NewService(cfg.Image.MaxSizeBytes, cfg.Image.UploadDir),
	})
	require.NoError(t, err)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestSuggestEndpoint(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/suggest", map[string]interface{}{
		"ingredients":          []string{"chicken", "broccoli", "garlic"},
		"dietary_restrictions": []string{"gluten-free"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, []interface{}{"chicken", "broccoli", "garlic"}, body["search_ingredients"])
	assert.Equal(t, float64(10), body["limit"])

	filters := body["filters_applied"].(map[string]interface{})
	assert.Equal(t, []interface{}{"gluten-free"}, filters["dietary_restrictions"])
	assert.Nil(t, filters["max_cooking_time"])

	recipes := body["recipes"].([]interface{})
	require.NotEmpty(t, recipes)
	assert.Equal(t, float64(len(recipes)), body["total_found"])

	top := recipes[0].(map[string]interface{})
	assert.Equal(t, float64(2), top["id"])
	assert.Equal(t, float64(100), top["ingredient_match_percentage"])
	assert.Equal(t, 0.6, top["coverage_score"])
	assert.ElementsMatch(t, []interface{}{"soy sauce", "ginger"}, top["missing_ingredients"])
	assert.Equal(t, map[string]interface{}{"soy sauce": []interface{}{"tamari", "coconut aminos"}}, top["substitution_suggestions"])
}

func TestSuggestMaxCookingTime(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/suggest", map[string]interface{}{
		"ingredients":      []string{"chicken", "broccoli", "garlic"},
		"max_cooking_time": 10,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, r := range decode(t, w)["recipes"].([]interface{}) {
		assert.NotEqual(t, float64(2), r.(map[string]interface{})["id"])
	}
}

func TestSuggestNoMatch(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/suggest", map[string]interface{}{
		"ingredients": []string{"durian"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, []interface{}{}, body["recipes"])
	assert.Equal(t, float64(0), body["total_found"])
}

func TestSuggestValidation(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	tests := []struct {
		name string
		body interface{}
		code string
	}{
		{name: "no ingredients", body: map[string]interface{}{}, code: "NO_INGREDIENTS"},
		{name: "blank ingredients", body: map[string]interface{}{"ingredients": []string{" ", ""}}, code: "NO_INGREDIENTS"},
		{name: "negative time", body: map[string]interface{}{"ingredients": []string{"rice"}, "max_cooking_time": -1}, code: "INVALID_REQUEST"},
		{name: "unknown difficulty", body: map[string]interface{}{"ingredients": []string{"rice"}, "difficulty": "extreme"}, code: "INVALID_REQUEST"},
		{name: "limit too large", body: map[string]interface{}{"ingredients": []string{"rice"}, "limit": 51}, code: "INVALID_REQUEST"},
		{name: "negative limit", body: map[string]interface{}{"ingredients": []string{"rice"}, "limit": -2}, code: "INVALID_REQUEST"},
		{name: "malformed json", body: `{"ingredients": [`, code: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/suggest", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}
}

func TestGetRecipe(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	w := doJSON(t, router, http.MethodGet, "/api/v1/recipes/2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	r := decode(t, w)["recipe"].(map[string]interface{})
	assert.Equal(t, "Chicken Teriyaki Stir Fry", r["name"])
	assert.Equal(t, []interface{}{"dairy_free", "gluten_free"}, r["dietary_info"])

	for _, path := range []string{"/api/v1/recipes/999", "/api/v1/recipes/abc"} {
		w := doJSON(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, "RECIPE_NOT_FOUND", decode(t, w)["code"])
	}
}

func TestRateAndFavorite(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/2/rate", map[string]interface{}{
		"user_id": "alice",
		"rating":  5,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, float64(6), body["ratings_count"])
	assert.InDelta(t, (4.2*5+5)/6, body["average_rating"], 1e-9)

	w = doJSON(t, router, http.MethodGet, "/api/v1/recipes/2", nil)
	r := decode(t, w)["recipe"].(map[string]interface{})
	assert.Equal(t, float64(6), r["ratings_count"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/recipes/2/favorite", map[string]interface{}{"user_id": "alice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, true, body["is_favorite"])
	assert.Equal(t, float64(4), body["favorites_count"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/recipes/2/favorite", map[string]interface{}{"user_id": "alice", "is_favorite": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["favorites_count"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/users/alice/feedback", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, map[string]interface{}{"2": float64(5)}, body["ratings"])
	assert.Equal(t, []interface{}{}, body["favorites"])
}

func TestRateErrors(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{name: "rating too low", path: "/api/v1/recipes/2/rate", body: map[string]interface{}{"user_id": "bob", "rating": 0}, status: http.StatusBadRequest, code: "INVALID_RATING"},
		{name: "rating too high", path: "/api/v1/recipes/2/rate", body: map[string]interface{}{"user_id": "bob", "rating": 6}, status: http.StatusBadRequest, code: "INVALID_RATING"},
		{name: "missing user", path: "/api/v1/recipes/2/rate", body: map[string]interface{}{"rating": 4}, status: http.StatusBadRequest, code: "MISSING_USER_ID"},
		{name: "unknown recipe", path: "/api/v1/recipes/999/rate", body: map[string]interface{}{"user_id": "bob", "rating": 4}, status: http.StatusNotFound, code: "RECIPE_NOT_FOUND"},
		{name: "favorite unknown recipe", path: "/api/v1/recipes/999/favorite", body: map[string]interface{}{"user_id": "bob"}, status: http.StatusNotFound, code: "RECIPE_NOT_FOUND"},
		{name: "favorite missing user", path: "/api/v1/recipes/1/favorite", body: map[string]interface{}{}, status: http.StatusBadRequest, code: "MISSING_USER_ID"},
		{name: "malformed body", path: "/api/v1/recipes/1/rate", body: `{"rating": "five"}`, status: http.StatusBadRequest, code: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 6, 6))
	img.Set(2, 3, color.RGBA{G: 180, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/recipes/detect", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDetectEndpoint(t *testing.T) {
	cfg := testConfig(t)
	router := newTestRouter(t, cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "image", "fridge.png", testPNG(t)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "mock", body["provider"])
	total := body["total_detected"].(float64)
	assert.GreaterOrEqual(t, total, float64(3))
	assert.LessOrEqual(t, total, float64(8))
	assert.Len(t, body["ingredients"], int(total))
	assert.Len(t, body["confidence_scores"], int(total))

	entries, err := os.ReadDir(cfg.Image.UploadDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".png"))
}

func TestDetectErrors(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   string
	}{
		{name: "wrong field", req: uploadRequest(t, "file", "fridge.png", testPNG(t)), status: http.StatusBadRequest, code: "NO_IMAGE"},
		{name: "bad extension", req: uploadRequest(t, "image", "fridge.txt", testPNG(t)), status: http.StatusBadRequest, code: "INVALID_IMAGE_TYPE"},
		{name: "not an image", req: uploadRequest(t, "image", "fridge.png", []byte("plain text")), status: http.StatusBadRequest, code: "INVALID_IMAGE_TYPE"},
		{name: "empty file", req: uploadRequest(t, "image", "fridge.png", nil), status: http.StatusBadRequest, code: "NO_IMAGE"},
		{name: "too large", req: uploadRequest(t, "image", "fridge.png", bytes.Repeat([]byte{1}, 1<<20+1)), status: http.StatusRequestEntityTooLarge, code: "INVALID_IMAGE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tt.req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, decode(t, w)["code"])
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	queue := body["queue"].(map[string]interface{})
	assert.Equal(t, "mock", queue["provider"])
	assert.Equal(t, float64(4), queue["max_queue_size"])

	w = doJSON(t, router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, router, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(3), body["total_recipes"])
	assert.Equal(t, true, body["vectorizer_ready"])
	features := body["features"].(map[string]interface{})
	assert.Equal(t, "mock", features["ingredient_recognition"])
	assert.Equal(t, "memory", features["result_cache"])
}

// unreachableCache 模擬連不上的 Redis
type unreachableCache struct {
	cache.Disabled
}

func (unreachableCache) Ping(context.Context) error {
	return errors.New("dial tcp 127.0.0.1:6379: connection refused")
}

func TestReadinessReportsCacheBackend(t *testing.T) {
	router := newTestRouterWithCache(t, testConfig(t), unreachableCache{})

	w := doJSON(t, router, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode(t, w)["code"])

	w = doJSON(t, router, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIngredientsEndpoint(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	w := doJSON(t, router, http.MethodGet, "/api/v1/ingredients", nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decode(t, w)["ingredients"].([]interface{})
	assert.Contains(t, list, "soy sauce")
	assert.Contains(t, list, "salmon fillet")
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].(string), list[i].(string))
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	doJSON(t, router, http.MethodGet, "/api/v1/ingredients", nil)
	w := doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "recipe_http_requests_total")
	assert.Contains(t, w.Body.String(), `route="/api/v1/ingredients"`)
}

func TestDuplicateRequestsRejected(t *testing.T) {
	cfg := testConfig(t)
	cfg.DedupWindow = time.Minute
	router := newTestRouter(t, cfg)

	body := map[string]interface{}{"ingredients": []string{"garlic"}}
	w := doJSON(t, router, http.MethodPost, "/api/v1/recipes/suggest", body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/recipes/suggest", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_REQUESTS", decode(t, w)["code"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/recipes/suggest", map[string]interface{}{"ingredients": []string{"lemon"}})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 1, Window: time.Minute, Burst: 2}
	router := newTestRouter(t, cfg)

	for i := 0; i < 2; i++ {
		w := doJSON(t, router, http.MethodGet, "/api/v1/ingredients", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/ingredients", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	// 探針不受限流影響
	w = doJSON(t, router, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestNoRoute(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	w := doJSON(t, router, http.MethodGet, "/api/v1/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["code"])
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, testConfig(t))

	w := doJSON(t, router, http.MethodGet, "/api/v1/recipes/2/rate", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", decode(t, w)["code"])
}

func TestSetupRouterRequiresServices(t *testing.T) {
	_, err := SetupRouter(testConfig(t), Services{})
	assert.Error(t, err)
}
