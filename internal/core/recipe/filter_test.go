package recipe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiltersMatches(t *testing.T) {
	teriyaki := sampleRecipes()[1]

	tests := []struct {
		name    string
		filters Filters
		want    bool
	}{
		{"no filters", Filters{}, true},
		{"gluten-free hyphen", Filters{DietaryRestrictions: []string{"gluten-free"}}, true},
		{"gluten_free underscore", Filters{DietaryRestrictions: []string{"Gluten_Free"}}, true},
		{"all tags required", Filters{DietaryRestrictions: []string{"gluten-free", "vegan"}}, false},
		{"cooking time inclusive", Filters{MaxCookingTime: intPtr(15)}, true},
		{"cooking time excludes", Filters{MaxCookingTime: intPtr(10)}, false},
		{"difficulty case insensitive", Filters{Difficulty: "EASY"}, true},
		{"difficulty mismatch", Filters{Difficulty: DifficultyHard}, false},
		{"cuisine case insensitive", Filters{Cuisine: "asian"}, true},
		{"cuisine mismatch", Filters{Cuisine: "Italian"}, false},
		{"conjunctive", Filters{Cuisine: "Asian", MaxCookingTime: intPtr(5)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Matches(&teriyaki))
		})
	}
}

func TestFiltersValidate(t *testing.T) {
	f := Filters{Difficulty: " Medium "}
	require.NoError(t, f.Validate())
	assert.Equal(t, DifficultyMedium, f.Difficulty)

	f = Filters{MaxCookingTime: intPtr(-1)}
	assert.ErrorIs(t, f.Validate(), ErrInvalidFilter)

	f = Filters{Difficulty: "extreme"}
	assert.ErrorIs(t, f.Validate(), ErrInvalidFilter)

	f = Filters{MaxCookingTime: intPtr(0)}
	assert.NoError(t, f.Validate())
}

func TestFiltersIsEmpty(t *testing.T) {
	assert.True(t, Filters{}.IsEmpty())
	assert.True(t, Filters{Cuisine: "  "}.IsEmpty())
	assert.False(t, Filters{MaxCookingTime: intPtr(0)}.IsEmpty())
}
