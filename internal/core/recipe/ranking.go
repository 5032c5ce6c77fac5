package recipe

import (
	"math"
	"sort"
)

// 最終分數權重
const (
	similarityWeight = 0.4
	matchWeight      = 0.4
	coverageWeight   = 0.2
)

// finalScore 0.4·similarity·100 + 0.4·match% + 0.2·coverage·100
func finalScore(similarity, matchPct, coverage float64) float64 {
	return similarityWeight*similarity*100 + matchWeight*matchPct + coverageWeight*coverage*100
}

// rank 排除零重疊候選，依分數、相符比例、id 排序後截取前 limit 筆
func rank(cands []ScoredCandidate, limit int) []ScoredCandidate {
	kept := make([]ScoredCandidate, 0, len(cands))
	for _, c := range cands {
		if c.MatchedCount > 0 {
			kept = append(kept, c)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].MatchScore != kept[j].MatchScore {
			return kept[i].MatchScore > kept[j].MatchScore
		}
		if kept[i].IngredientMatchPercentage != kept[j].IngredientMatchPercentage {
			return kept[i].IngredientMatchPercentage > kept[j].IngredientMatchPercentage
		}
		return kept[i].ID < kept[j].ID
	})

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	for i := range kept {
		kept[i].MatchScore = round2(kept[i].MatchScore)
		kept[i].IngredientMatchPercentage = round2(kept[i].IngredientMatchPercentage)
		kept[i].SimilarityScore = round4(kept[i].SimilarityScore)
		kept[i].CoverageScore = round4(kept[i].CoverageScore)
	}
	return kept
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func round4(f float64) float64 {
	return math.Round(f*10000) / 10000
}
