package recipe

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrRecipeNotFound 找不到指定 id 的食譜
	ErrRecipeNotFound = errors.New("recipe not found")
	// ErrInvalidFilter 篩選條件不合法
	ErrInvalidFilter = errors.New("invalid filter")
	// ErrEmptyVocabulary 語料庫沒有可用詞彙
	ErrEmptyVocabulary = errors.New("empty vocabulary")
)

// Difficulty 難度
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ParseDifficulty 不分大小寫解析難度，空字串代表未指定
func ParseDifficulty(s string) (Difficulty, error) {
	switch d := Difficulty(strings.ToLower(strings.TrimSpace(s))); d {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
		return d, nil
	default:
		return "", fmt.Errorf("%w: unknown difficulty %q", ErrInvalidFilter, s)
	}
}

// NormalizeTag 飲食標籤正規化，gluten-free 與 gluten_free 視為同一個標籤
func NormalizeTag(tag string) string {
	t := strings.ToLower(strings.TrimSpace(tag))
	return strings.NewReplacer("-", "_", " ", "_").Replace(t)
}

// Tags 飲食標籤集合
//
// JSON 可以是字串陣列，也可以是 {"vegan": true} 形式的物件。
type Tags []string

// UnmarshalJSON 同時接受陣列與布林物件
func (t *Tags) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = newTags(list)
		return nil
	}

	var flags map[string]bool
	if err := json.Unmarshal(data, &flags); err != nil {
		return fmt.Errorf("dietary tags must be an array or an object of booleans: %w", err)
	}
	list = list[:0]
	for tag, on := range flags {
		if on {
			list = append(list, tag)
		}
	}
	*t = newTags(list)
	return nil
}

func newTags(list []string) Tags {
	seen := make(map[string]struct{}, len(list))
	out := make(Tags, 0, len(list))
	for _, tag := range list {
		n := NormalizeTag(tag)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Has 判斷是否包含標籤
func (t Tags) Has(tag string) bool {
	n := NormalizeTag(tag)
	for _, v := range t {
		if v == n {
			return true
		}
	}
	return false
}

// Nutrition 營養資訊
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Recipe 食譜
type Recipe struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	Ingredients    []string   `json:"ingredients"`
	Cuisine        string     `json:"cuisine"`
	Difficulty     Difficulty `json:"difficulty"`
	CookingTime    int        `json:"cooking_time"`
	DietaryTags    Tags       `json:"dietary_info"`
	Instructions   []string   `json:"instructions"`
	Nutrition      Nutrition  `json:"nutrition"`
	Rating         float64    `json:"rating"`
	RatingsCount   int        `json:"ratings_count"`
	FavoritesCount int        `json:"favorites_count"`
}

// clone 深拷貝，避免呼叫端改動語料庫；空清單輸出為 [] 而不是 null
func (r Recipe) clone() Recipe {
	r.Ingredients = cloneStrings(r.Ingredients)
	r.DietaryTags = Tags(cloneStrings(r.DietaryTags))
	r.Instructions = cloneStrings(r.Instructions)
	return r
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Filters 篩選條件
type Filters struct {
	DietaryRestrictions []string   `json:"dietary_restrictions"`
	MaxCookingTime      *int       `json:"max_cooking_time"`
	Difficulty          Difficulty `json:"difficulty"`
	Cuisine             string     `json:"cuisine_preference"`
}

// Query 一次推薦查詢
type Query struct {
	Ingredients []string
	Filters     Filters
	Limit       int
}

// ScoredCandidate 評分後的候選食譜
type ScoredCandidate struct {
	Recipe
	MatchScore                float64             `json:"match_score"`
	IngredientMatchPercentage float64             `json:"ingredient_match_percentage"`
	SimilarityScore           float64             `json:"similarity_score"`
	CoverageScore             float64             `json:"coverage_score"`
	MatchedCount              int                 `json:"matched_count"`
	MissingIngredients        []string            `json:"missing_ingredients"`
	SubstitutionSuggestions   map[string][]string `json:"substitution_suggestions"`
}
