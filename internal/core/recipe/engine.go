package recipe

import (
	"fmt"
	"sort"
	"strings"

	"recipe-recommender/internal/pkg/common"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// Options 排序設定
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// Engine 推薦引擎，初始化後不再變動，可安全地並行使用
type Engine struct {
	corpus     *Corpus
	vectorizer *Vectorizer
	subs       *SubstitutionTable
	opts       Options
}

// NewEngine 以語料庫建立 TF-IDF 向量並組成推薦引擎
func NewEngine(corpus *Corpus, subs *SubstitutionTable, opts Options) (*Engine, error) {
	if corpus == nil || corpus.Len() == 0 {
		return nil, fmt.Errorf("recipe corpus is empty")
	}
	if subs == nil {
		return nil, fmt.Errorf("substitution table is required")
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = MaxLimit
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}

	vec, err := FitVectorizer(corpus.documents())
	if err != nil {
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}

	return &Engine{corpus: corpus, vectorizer: vec, subs: subs, opts: opts}, nil
}

// Corpus 引擎使用的語料庫
func (e *Engine) Corpus() *Corpus {
	return e.corpus
}

// Ready 向量已建立且詞彙非空
func (e *Engine) Ready() bool {
	return e != nil && e.vectorizer != nil && e.vectorizer.VocabularySize() > 0
}

// VocabularySize 詞彙數量
func (e *Engine) VocabularySize() int {
	if e.vectorizer == nil {
		return 0
	}
	return e.vectorizer.VocabularySize()
}

// MaxLimit 單次請求可取得的最大筆數
func (e *Engine) MaxLimit() int {
	return e.opts.MaxLimit
}

// Limit 0 代表使用預設值，超過上限時截到上限
func (e *Engine) Limit(requested int) int {
	switch {
	case requested <= 0:
		return e.opts.DefaultLimit
	case requested > e.opts.MaxLimit:
		return e.opts.MaxLimit
	}
	return requested
}

// queryText 查詢文字：排序後的食材，加上菜系與難度偏好
func queryText(ingredients []string, f Filters) string {
	terms := append([]string(nil), ingredients...)
	sort.Strings(terms)
	if c := strings.TrimSpace(f.Cuisine); c != "" {
		terms = append(terms, c)
	}
	if f.Difficulty != "" {
		terms = append(terms, string(f.Difficulty))
	}
	return strings.Join(terms, " ")
}

// Suggest 篩選、評分並排序候選食譜
//
// 沒有任何食材時回傳空結果；與使用者食材完全沒有重疊的食譜不會出現在結果中。
func (e *Engine) Suggest(q Query) ([]ScoredCandidate, error) {
	filters := q.Filters
	if err := filters.Validate(); err != nil {
		return nil, err
	}

	ingredients := common.NormalizeTerms(q.Ingredients)
	if len(ingredients) == 0 {
		return []ScoredCandidate{}, nil
	}

	qv := e.vectorizer.transform(queryText(ingredients, filters))

	cands := make([]ScoredCandidate, 0)
	for i := range e.corpus.recipes {
		r := &e.corpus.recipes[i]
		if !filters.Matches(r) {
			continue
		}

		m := MatchIngredients(ingredients, r.Ingredients)
		if m.MatchedCount == 0 {
			continue
		}

		sim := e.vectorizer.similarity(qv, i)
		cands = append(cands, ScoredCandidate{
			Recipe:                    r.clone(),
			MatchScore:                finalScore(sim, m.Percentage, m.Coverage),
			IngredientMatchPercentage: m.Percentage,
			SimilarityScore:           sim,
			CoverageScore:             m.Coverage,
			MatchedCount:              m.MatchedCount,
			MissingIngredients:        m.Missing,
			SubstitutionSuggestions:   e.subs.Suggest(m.Missing),
		})
	}

	return rank(cands, e.Limit(q.Limit)), nil
}
