package recipe

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"recipe-recommender/internal/pkg/common"
)

// Corpus 啟動時載入的唯讀食譜集合
type Corpus struct {
	recipes []Recipe
	byID    map[int]int
}

// corpusFile 兼容 {"recipes": [...]} 格式
type corpusFile struct {
	Recipes []Recipe `json:"recipes"`
}

// LoadCorpus 從 JSON 檔載入食譜
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipes: %w", err)
	}

	var recipes []Recipe
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var file corpusFile
		if err := common.ParseJSONBytes(trimmed, &file); err != nil {
			return nil, fmt.Errorf("parse recipes: %w", err)
		}
		recipes = file.Recipes
	} else if err := common.ParseJSONBytes(data, &recipes); err != nil {
		return nil, fmt.Errorf("parse recipes: %w", err)
	}

	return NewCorpus(recipes)
}

// NewCorpus 驗證並建立語料庫，任何一筆不合法都會整體失敗
func NewCorpus(recipes []Recipe) (*Corpus, error) {
	if len(recipes) == 0 {
		return nil, fmt.Errorf("recipe corpus is empty")
	}

	c := &Corpus{
		recipes: make([]Recipe, 0, len(recipes)),
		byID:    make(map[int]int, len(recipes)),
	}
	for _, r := range recipes {
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("duplicate recipe id %d", r.ID)
		}
		d, err := ParseDifficulty(string(r.Difficulty))
		if err != nil || d == "" {
			return nil, fmt.Errorf("recipe %d: invalid difficulty %q", r.ID, r.Difficulty)
		}
		if r.CookingTime < 0 {
			return nil, fmt.Errorf("recipe %d: negative cooking time", r.ID)
		}
		if r.Rating < 0 || r.RatingsCount < 0 || r.FavoritesCount < 0 {
			return nil, fmt.Errorf("recipe %d: negative feedback aggregate", r.ID)
		}

		r = r.clone()
		r.Difficulty = d
		r.DietaryTags = newTags(r.DietaryTags)
		ingredients := r.Ingredients[:0]
		for _, ing := range r.Ingredients {
			if ing = strings.TrimSpace(ing); ing != "" {
				ingredients = append(ingredients, ing)
			}
		}
		r.Ingredients = ingredients

		c.byID[r.ID] = len(c.recipes)
		c.recipes = append(c.recipes, r)
	}
	return c, nil
}

// Len 食譜數量
func (c *Corpus) Len() int {
	return len(c.recipes)
}

// Get 依 id 取得食譜副本
func (c *Corpus) Get(id int) (Recipe, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Recipe{}, false
	}
	return c.recipes[idx].clone(), true
}

// Ingredients 語料庫中所有食材，小寫去重後排序
func (c *Corpus) Ingredients() []string {
	set := make(map[string]struct{})
	for _, r := range c.recipes {
		for _, ing := range r.Ingredients {
			set[common.NormalizeTerm(ing)] = struct{}{}
		}
	}
	return common.SortedKeys(set)
}

// documents 每筆食譜用於 TF-IDF 的文字：食材、菜系、難度、飲食標籤
func (c *Corpus) documents() []string {
	docs := make([]string, len(c.recipes))
	for i, r := range c.recipes {
		parts := []string{
			strings.Join(r.Ingredients, " "),
			r.Cuisine,
			string(r.Difficulty),
			strings.Join(r.DietaryTags, " "),
		}
		docs[i] = strings.Join(parts, " ")
	}
	return docs
}
