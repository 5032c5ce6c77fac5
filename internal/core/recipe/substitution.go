package recipe

import (
	"fmt"
	"os"

	"recipe-recommender/internal/pkg/common"
)

// SubstitutionTable 食材替代表，載入後唯讀
type SubstitutionTable struct {
	entries map[string][]string
	max     int
}

// LoadSubstitutions 從 JSON 物件 {"butter": ["olive oil", ...]} 載入替代表
func LoadSubstitutions(path string, maxAlts int) (*SubstitutionTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read substitutions: %w", err)
	}

	var raw map[string][]string
	if err := common.ParseJSONBytes(data, &raw); err != nil {
		return nil, fmt.Errorf("parse substitutions: %w", err)
	}
	return NewSubstitutionTable(raw, maxAlts), nil
}

// NewSubstitutionTable 建立替代表，鍵會正規化，每個食材最多保留 maxAlts 個替代品
func NewSubstitutionTable(raw map[string][]string, maxAlts int) *SubstitutionTable {
	if maxAlts <= 0 {
		maxAlts = 3
	}
	t := &SubstitutionTable{entries: make(map[string][]string, len(raw)), max: maxAlts}
	for key, alts := range raw {
		k := common.NormalizeTerm(key)
		if k == "" {
			continue
		}
		clean := make([]string, 0, len(alts))
		for _, a := range alts {
			if a != "" {
				clean = append(clean, a)
			}
		}
		if len(clean) > 0 {
			t.entries[k] = clean
		}
	}
	return t
}

// Lookup 精確查詢，回傳依表內順序的前 max 個替代品
func (t *SubstitutionTable) Lookup(ingredient string) ([]string, bool) {
	alts, ok := t.entries[common.NormalizeTerm(ingredient)]
	if !ok {
		return nil, false
	}
	if len(alts) > t.max {
		alts = alts[:t.max]
	}
	return append([]string(nil), alts...), true
}

// Suggest 為缺少的食材找替代品，查不到的食材不會出現在結果中
func (t *SubstitutionTable) Suggest(missing []string) map[string][]string {
	out := make(map[string][]string)
	for _, m := range missing {
		if alts, ok := t.Lookup(m); ok {
			out[m] = alts
		}
	}
	return out
}

// Len 表內食材數量
func (t *SubstitutionTable) Len() int {
	return len(t.entries)
}
