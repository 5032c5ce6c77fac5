package detector

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/brianvoe/gofakeit/v6"
)

// DefaultIngredients 模擬偵測可能回傳的食材
var DefaultIngredients = []string{
	"apple", "avocado", "bacon", "banana", "basil", "beef", "bell pepper", "black pepper",
	"broccoli", "butter", "carrot", "cheese", "chicken breast", "chickpeas", "cilantro",
	"cucumber", "dill", "eggs", "garlic", "ginger", "ground beef", "lemon", "lettuce",
	"lime", "mushroom", "olive oil", "onion", "parmesan cheese", "quinoa", "rice",
	"salmon fillet", "soy sauce", "spaghetti", "spinach", "taco shells", "tahini",
	"tomato", "asparagus", "flour", "sugar", "coconut milk", "fish sauce", "shrimp",
	"tofu", "noodles", "potatoes", "cod", "yogurt", "cream", "wine", "herbs",
}

const (
	mockMinIngredients = 3
	mockMaxIngredients = 8
	mockMinConfidence  = 0.70
	mockMaxConfidence  = 0.95
)

// MockDetector 不呼叫任何模型，依圖片內容雜湊產生固定的偵測結果
type MockDetector struct {
	ingredients []string
}

// NewMockDetector 建立模擬偵測器，ingredients 為空時使用 DefaultIngredients
func NewMockDetector(ingredients []string) *MockDetector {
	if len(ingredients) == 0 {
		ingredients = DefaultIngredients
	}
	return &MockDetector{ingredients: append([]string(nil), ingredients...)}
}

// Name 提供者名稱
func (m *MockDetector) Name() string {
	return "mock"
}

// Detect 同一張圖片永遠得到相同結果
func (m *MockDetector) Detect(ctx context.Context, image []byte) (*Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New64a()
	_, _ = h.Write(image)
	seed := int64(h.Sum64() & math.MaxInt64)
	if seed == 0 {
		// gofakeit 以 0 代表隨機種子
		seed = 1
	}
	faker := gofakeit.New(seed)

	pool := append([]string(nil), m.ingredients...)
	faker.ShuffleStrings(pool)

	n := faker.Number(mockMinIngredients, mockMaxIngredients)
	if n > len(pool) {
		n = len(pool)
	}

	det := &Detection{
		Ingredients:      pool[:n],
		ConfidenceScores: make([]float64, n),
		Provider:         m.Name(),
	}
	for i := range det.ConfidenceScores {
		score := faker.Float64Range(mockMinConfidence, mockMaxConfidence)
		det.ConfidenceScores[i] = math.Round(score*100) / 100
	}
	return det, nil
}
