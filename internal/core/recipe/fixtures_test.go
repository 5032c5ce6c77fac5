package recipe

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int {
	return &v
}

func sampleRecipes() []Recipe {
	return []Recipe{
		{
			ID:          1,
			Name:        "Classic Spaghetti Carbonara",
			Ingredients: []string{"spaghetti", "eggs", "parmesan cheese", "bacon", "black pepper"},
			Cuisine:     "Italian",
			Difficulty:  DifficultyMedium,
			CookingTime: 20,
			Instructions: []string{
				"Boil the pasta.",
				"Fry the bacon and toss with eggs and cheese.",
			},
			Nutrition:    Nutrition{Calories: 520, Protein: 22, Carbs: 60, Fat: 20},
			Rating:       4.5,
			RatingsCount: 10,
		},
		{
			ID:             2,
			Name:           "Chicken Teriyaki Stir Fry",
			Ingredients:    []string{"chicken breast", "broccoli", "garlic", "soy sauce", "ginger"},
			Cuisine:        "Asian",
			Difficulty:     DifficultyEasy,
			CookingTime:    15,
			DietaryTags:    Tags{"dairy_free", "gluten_free"},
			Instructions:   []string{"Stir fry everything."},
			Rating:         4.2,
			RatingsCount:   5,
			FavoritesCount: 3,
		},
		{
			ID:          3,
			Name:        "Vegetable Quinoa Bowl",
			Ingredients: []string{"quinoa", "broccoli", "carrot", "olive oil", "lemon"},
			Cuisine:     "Mediterranean",
			Difficulty:  DifficultyEasy,
			CookingTime: 25,
			DietaryTags: Tags{"vegan", "vegetarian", "gluten_free", "dairy_free"},
		},
		{
			ID:          4,
			Name:        "Garlic Butter Salmon",
			Ingredients: []string{"salmon fillet", "butter", "garlic", "lemon", "dill"},
			Cuisine:     "American",
			Difficulty:  DifficultyEasy,
			CookingTime: 10,
			DietaryTags: Tags{"gluten_free"},
		},
		{
			ID:          5,
			Name:        "Beef Tacos",
			Ingredients: []string{"ground beef", "taco shells", "lettuce", "tomato", "cheese", "onion"},
			Cuisine:     "Mexican",
			Difficulty:  DifficultyEasy,
			CookingTime: 20,
		},
		{
			ID:          6,
			Name:        "Mushroom Risotto",
			Ingredients: []string{"rice", "mushroom", "onion", "butter", "parmesan cheese", "wine"},
			Cuisine:     "Italian",
			Difficulty:  DifficultyHard,
			CookingTime: 45,
			DietaryTags: Tags{"vegetarian", "gluten_free"},
		},
	}
}

func sampleSubstitutions() map[string][]string {
	return map[string][]string{
		"butter":    {"olive oil", "coconut oil", "margarine", "ghee"},
		"eggs":      {"flax eggs", "chia eggs", "applesauce"},
		"cheese":    {"nutritional yeast", "cashew cheese", "vegan cheese"},
		"bacon":     {"tempeh bacon", "coconut bacon", "mushroom bacon"},
		"soy sauce": {"tamari", "coconut aminos"},
	}
}

func newSampleEngine(t *testing.T) *Engine {
	t.Helper()
	corpus, err := NewCorpus(sampleRecipes())
	require.NoError(t, err)
	engine, err := NewEngine(corpus, NewSubstitutionTable(sampleSubstitutions(), 3), Options{DefaultLimit: 10, MaxLimit: 50})
	require.NoError(t, err)
	return engine
}

var fakeIngredients = []string{
	"apple", "avocado", "bacon", "banana", "basil", "beef", "bell pepper", "black pepper",
	"broccoli", "butter", "carrot", "cheese", "chicken breast", "chickpeas", "cilantro",
	"cucumber", "dill", "eggs", "garlic", "ginger", "ground beef", "lemon", "lettuce",
	"lime", "mushroom", "olive oil", "onion", "parmesan cheese", "quinoa", "rice",
	"salmon fillet", "soy sauce", "spaghetti", "spinach", "tomato", "tofu", "noodles",
}

var fakeTags = []string{"vegan", "vegetarian", "gluten_free", "dairy_free"}

// randomCorpus 以固定種子產生隨機語料庫
func randomCorpus(t *testing.T, faker *gofakeit.Faker, n int) *Corpus {
	t.Helper()
	recipes := make([]Recipe, n)
	for i := range recipes {
		ings := make([]string, faker.Number(1, 7))
		for j := range ings {
			ings[j] = fakeIngredients[faker.Number(0, len(fakeIngredients)-1)]
		}
		var tags Tags
		for _, tag := range fakeTags {
			if faker.Bool() {
				tags = append(tags, tag)
			}
		}
		recipes[i] = Recipe{
			ID:          i + 1,
			Name:        fmt.Sprintf("%s %s", faker.Adjective(), faker.Noun()),
			Ingredients: ings,
			Cuisine:     faker.RandomString([]string{"Italian", "Asian", "Mexican", "American"}),
			Difficulty:  Difficulty(faker.RandomString([]string{"easy", "medium", "hard"})),
			CookingTime: faker.Number(5, 90),
			DietaryTags: tags,
		}
	}
	corpus, err := NewCorpus(recipes)
	require.NoError(t, err)
	return corpus
}

func randomIngredients(faker *gofakeit.Faker) []string {
	out := make([]string, faker.Number(1, 5))
	for i := range out {
		out[i] = fakeIngredients[faker.Number(0, len(fakeIngredients)-1)]
	}
	if faker.Bool() {
		out = append(out, faker.Word())
	}
	return out
}
