package recipe

import (
	"fmt"
	"strings"
)

// Validate 檢查篩選條件並正規化難度
func (f *Filters) Validate() error {
	if f.MaxCookingTime != nil && *f.MaxCookingTime < 0 {
		return fmt.Errorf("%w: max_cooking_time must not be negative", ErrInvalidFilter)
	}
	d, err := ParseDifficulty(string(f.Difficulty))
	if err != nil {
		return err
	}
	f.Difficulty = d
	return nil
}

// IsEmpty 沒有任何條件
func (f Filters) IsEmpty() bool {
	return len(f.DietaryRestrictions) == 0 && f.MaxCookingTime == nil &&
		f.Difficulty == "" && strings.TrimSpace(f.Cuisine) == ""
}

// Matches 所有條件同時成立才回傳 true
func (f Filters) Matches(r *Recipe) bool {
	for _, tag := range f.DietaryRestrictions {
		if NormalizeTag(tag) == "" {
			continue
		}
		if !r.DietaryTags.Has(tag) {
			return false
		}
	}
	if f.MaxCookingTime != nil && r.CookingTime > *f.MaxCookingTime {
		return false
	}
	if f.Difficulty != "" && !strings.EqualFold(string(r.Difficulty), string(f.Difficulty)) {
		return false
	}
	if c := strings.TrimSpace(f.Cuisine); c != "" && !strings.EqualFold(r.Cuisine, c) {
		return false
	}
	return true
}
