package recipe

import (
	"strings"

	"recipe-recommender/internal/pkg/common"
)

// MatchResult 食材重疊結果
type MatchResult struct {
	MatchedCount int
	Percentage   float64
	Coverage     float64
	Missing      []string
}

// ingredientsMatch 任一方為另一方的子字串即視為相符，輸入須已轉小寫
func ingredientsMatch(user, recipe string) bool {
	return strings.Contains(recipe, user) || strings.Contains(user, recipe)
}

// MatchIngredients 計算使用者食材與食譜食材的重疊程度
//
// MatchedCount 為至少與一個食譜食材相符的使用者食材數；Coverage 為至少
// 與一個使用者食材相符的食譜食材比例；Missing 保留食譜原本的寫法與順序。
func MatchIngredients(user, recipe []string) MatchResult {
	userTerms := common.NormalizeTerms(user)
	recipeTerms := make([]string, len(recipe))
	for i, r := range recipe {
		recipeTerms[i] = common.NormalizeTerm(r)
	}

	res := MatchResult{Missing: []string{}}
	for _, u := range userTerms {
		for _, r := range recipeTerms {
			if r != "" && ingredientsMatch(u, r) {
				res.MatchedCount++
				break
			}
		}
	}

	covered := 0
	for i, r := range recipeTerms {
		found := false
		if r != "" {
			for _, u := range userTerms {
				if ingredientsMatch(u, r) {
					found = true
					break
				}
			}
		}
		if found {
			covered++
		} else {
			res.Missing = append(res.Missing, recipe[i])
		}
	}

	if len(userTerms) > 0 {
		res.Percentage = float64(res.MatchedCount) / float64(len(userTerms)) * 100
		if res.Percentage > 100 {
			res.Percentage = 100
		}
	}
	if len(recipeTerms) > 0 {
		res.Coverage = float64(covered) / float64(len(recipeTerms))
	}
	return res
}
