// Package feedback 保存使用者評分與收藏，並維護每道食譜的彙總數據
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"recipe-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

const fileName = "feedback.json"

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrUnknownRecipe = errors.New("unknown recipe")
	ErrMissingUserID = errors.New("user id is required")
)

// Aggregate 食譜的評分與收藏彙總
type Aggregate struct {
	Rating         float64 `json:"rating"`
	RatingsCount   int     `json:"ratings_count"`
	FavoritesCount int     `json:"favorites_count"`
}

// SeedSource 提供食譜初始彙總值，第二個回傳值為 false 表示食譜不存在
type SeedSource interface {
	Seed(recipeID int) (Aggregate, bool)
}

// RatingRecord 單筆評分
type RatingRecord struct {
	Rating    int       `json:"rating"`
	Timestamp time.Time `json:"timestamp"`
}

// UserData 使用者的評分與收藏
type UserData struct {
	UserID    string      `json:"user_id"`
	Ratings   map[int]int `json:"ratings"`
	Favorites []int       `json:"favorites"`
}

// state 寫入磁碟的完整內容
type state struct {
	Ratings    map[string]map[string]RatingRecord `json:"ratings"`
	Favorites  map[string][]int                   `json:"favorites"`
	Aggregates map[string]Aggregate               `json:"aggregates"`
}

func newState() state {
	return state{
		Ratings:    make(map[string]map[string]RatingRecord),
		Favorites:  make(map[string][]int),
		Aggregates: make(map[string]Aggregate),
	}
}

// Store 以單一 JSON 檔保存回饋，寫入以互斥鎖串行化
type Store struct {
	mu    sync.Mutex
	dir   string
	path  string
	seeds SeedSource
	state state
	now   func() time.Time
}

// NewStore 開啟 dataDir 下的回饋檔，不存在時建立空資料
func NewStore(dataDir string, seeds SeedSource) (*Store, error) {
	if seeds == nil {
		return nil, fmt.Errorf("seed source is required")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create feedback dir: %w", err)
	}

	s := &Store{
		dir:   dataDir,
		path:  filepath.Join(dataDir, fileName),
		seeds: seeds,
		state: newState(),
		now:   time.Now,
	}

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read feedback: %w", err)
	}

	if len(strings.TrimSpace(string(data))) > 0 {
		if err := common.ParseJSONBytes(data, &s.state); err != nil {
			return nil, fmt.Errorf("parse feedback: %w", err)
		}
	}
	if s.state.Ratings == nil {
		s.state.Ratings = make(map[string]map[string]RatingRecord)
	}
	if s.state.Favorites == nil {
		s.state.Favorites = make(map[string][]int)
	}
	if s.state.Aggregates == nil {
		s.state.Aggregates = make(map[string]Aggregate)
	}

	common.LogInfo("回饋資料已載入",
		zap.String("path", s.path),
		zap.Int("users", len(s.state.Ratings)),
		zap.Int("recipes", len(s.state.Aggregates)),
	)
	return s, nil
}

// aggregateLocked 取得目前彙總，尚無紀錄時使用初始值
func (s *Store) aggregateLocked(recipeID int) (Aggregate, error) {
	if agg, ok := s.state.Aggregates[strconv.Itoa(recipeID)]; ok {
		return agg, nil
	}
	agg, ok := s.seeds.Seed(recipeID)
	if !ok {
		return Aggregate{}, fmt.Errorf("%w: %d", ErrUnknownRecipe, recipeID)
	}
	return agg, nil
}

// Rate 新增或更新使用者評分
//
// 第一次評分：avg = (avg·n + r)/(n+1)；重新評分則以新分數取代舊分數，次數不變。
func (s *Store) Rate(ctx context.Context, recipeID int, userID string, rating int) (Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return Aggregate{}, err
	}
	if rating < 1 || rating > 5 {
		return Aggregate{}, ErrInvalidRating
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Aggregate{}, ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.aggregateLocked(recipeID)
	if err != nil {
		return Aggregate{}, err
	}

	key := strconv.Itoa(recipeID)
	userRatings := s.state.Ratings[userID]
	prev, rated := userRatings[key]

	next := agg
	if rated && agg.RatingsCount > 0 {
		next.Rating = (agg.Rating*float64(agg.RatingsCount) - float64(prev.Rating) + float64(rating)) / float64(agg.RatingsCount)
	} else {
		next.RatingsCount = agg.RatingsCount + 1
		next.Rating = (agg.Rating*float64(agg.RatingsCount) + float64(rating)) / float64(next.RatingsCount)
	}

	oldAgg, hadAgg := s.state.Aggregates[key]
	if userRatings == nil {
		userRatings = make(map[string]RatingRecord)
		s.state.Ratings[userID] = userRatings
	}
	userRatings[key] = RatingRecord{Rating: rating, Timestamp: s.now().UTC()}
	s.state.Aggregates[key] = next

	if err := s.persistLocked(); err != nil {
		// 還原記憶體狀態
		if rated {
			userRatings[key] = prev
		} else {
			delete(userRatings, key)
			if len(userRatings) == 0 {
				delete(s.state.Ratings, userID)
			}
		}
		s.restoreAggregate(key, oldAgg, hadAgg)
		return Aggregate{}, err
	}

	common.LogInfo("評分已儲存",
		zap.Int("recipe_id", recipeID),
		zap.String("user_id", userID),
		zap.Int("rating", rating),
		zap.Bool("updated", rated),
	)
	return next, nil
}

// SetFavorite 設定收藏狀態，重複設定不會改變計數
func (s *Store) SetFavorite(ctx context.Context, recipeID int, userID string, favorite bool) (Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return Aggregate{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Aggregate{}, ErrMissingUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	agg, err := s.aggregateLocked(recipeID)
	if err != nil {
		return Aggregate{}, err
	}

	favs := s.state.Favorites[userID]
	pos := indexOf(favs, recipeID)
	if favorite == (pos >= 0) {
		return agg, nil
	}

	key := strconv.Itoa(recipeID)
	oldAgg, hadAgg := s.state.Aggregates[key]
	oldFavs := append([]int(nil), favs...)

	next := agg
	if favorite {
		s.state.Favorites[userID] = append(favs, recipeID)
		next.FavoritesCount++
	} else {
		s.state.Favorites[userID] = append(favs[:pos:pos], favs[pos+1:]...)
		if next.FavoritesCount > 0 {
			next.FavoritesCount--
		}
	}
	if len(s.state.Favorites[userID]) == 0 {
		delete(s.state.Favorites, userID)
	}
	s.state.Aggregates[key] = next

	if err := s.persistLocked(); err != nil {
		if len(oldFavs) == 0 {
			delete(s.state.Favorites, userID)
		} else {
			s.state.Favorites[userID] = oldFavs
		}
		s.restoreAggregate(key, oldAgg, hadAgg)
		return Aggregate{}, err
	}

	common.LogInfo("收藏狀態已更新",
		zap.Int("recipe_id", recipeID),
		zap.String("user_id", userID),
		zap.Bool("is_favorite", favorite),
	)
	return next, nil
}

func (s *Store) restoreAggregate(key string, agg Aggregate, existed bool) {
	if existed {
		s.state.Aggregates[key] = agg
		return
	}
	delete(s.state.Aggregates, key)
}

// Aggregate 回傳已有回饋紀錄的彙總
func (s *Store) Aggregate(recipeID int) (Aggregate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.state.Aggregates[strconv.Itoa(recipeID)]
	return agg, ok
}

// UserData 使用者的評分與收藏清單
func (s *Store) UserData(userID string) UserData {
	userID = strings.TrimSpace(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	data := UserData{UserID: userID, Ratings: make(map[int]int), Favorites: []int{}}
	for key, rec := range s.state.Ratings[userID] {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		data.Ratings[id] = rec.Rating
	}
	data.Favorites = append(data.Favorites, s.state.Favorites[userID]...)
	sort.Ints(data.Favorites)
	return data
}

// persistLocked 寫入暫存檔後 rename 取代，讀者不會看到寫一半的檔案
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "feedback-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp feedback file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write feedback: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync feedback: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close feedback: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace feedback: %w", err)
	}
	return nil
}

func indexOf(ids []int, id int) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
