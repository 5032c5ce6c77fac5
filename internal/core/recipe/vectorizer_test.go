package recipe

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	terms := tokenize("Chicken Breast and a Broccoli, gluten_free! x")

	assert.Equal(t, []string{
		"chicken", "breast", "broccoli", "gluten_free",
		"chicken breast", "breast broccoli", "broccoli gluten_free",
	}, terms)
}

func TestTokenizeOnlyStopWords(t *testing.T) {
	assert.Empty(t, tokenize("the and of a"))
}

func TestFitVectorizerSmoothedIDF(t *testing.T) {
	v, err := FitVectorizer([]string{"garlic rice", "garlic"})
	require.NoError(t, err)

	// garlic 出現在 2 份文件，rice 只在 1 份
	assert.InDelta(t, math.Log(3.0/3.0)+1, v.idf[v.vocab["garlic"]], 1e-12)
	assert.InDelta(t, math.Log(3.0/2.0)+1, v.idf[v.vocab["rice"]], 1e-12)
	assert.Contains(t, v.vocab, "garlic rice")
	assert.Equal(t, 3, v.VocabularySize())
}

func TestFitVectorizerEmptyVocabulary(t *testing.T) {
	_, err := FitVectorizer([]string{"the", "a an"})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = FitVectorizer(nil)
	assert.ErrorIs(t, err, ErrEmptyVocabulary)
}

func TestVectorizerSimilarity(t *testing.T) {
	v, err := FitVectorizer([]string{"garlic rice", "salmon dill", "garlic salmon"})
	require.NoError(t, err)

	q := v.transform("garlic rice")
	assert.InDelta(t, 1.0, v.similarity(q, 0), 1e-9)
	assert.Zero(t, v.similarity(q, 1))
	assert.Greater(t, v.similarity(q, 2), 0.0)
	assert.Less(t, v.similarity(q, 2), 1.0)

	unknown := v.transform("durian")
	for i := 0; i < 3; i++ {
		assert.Zero(t, v.similarity(unknown, i))
	}
	assert.Zero(t, v.similarity(q, 10))
}

func TestCosineBounds(t *testing.T) {
	a := sparseVector{idx: []int{0, 2}, val: []float64{3, 4}}
	b := sparseVector{idx: []int{0, 2}, val: []float64{6, 8}}

	assert.InDelta(t, 1.0, cosine(a, b), 1e-12)
	assert.Zero(t, cosine(a, sparseVector{}))
}
