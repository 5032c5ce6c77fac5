package recipe

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// sparseVector 以遞增 index 排列的稀疏向量
type sparseVector struct {
	idx []int
	val []float64
}

func (v sparseVector) norm() float64 {
	var sum float64
	for _, x := range v.val {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// dot 兩個已排序稀疏向量的內積，依 index 順序累加所以結果固定
func (v sparseVector) dot(o sparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.idx) && j < len(o.idx) {
		switch {
		case v.idx[i] == o.idx[j]:
			sum += v.val[i] * o.val[j]
			i++
			j++
		case v.idx[i] < o.idx[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// cosine 餘弦相似度，任一向量為零時回傳 0，結果限制在 [0,1]
func cosine(a, b sparseVector) float64 {
	na, nb := a.norm(), b.norm()
	if na == 0 || nb == 0 {
		return 0
	}
	s := a.dot(b) / (na * nb)
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// Vectorizer TF-IDF 向量器，Fit 後詞彙與 IDF 固定不變
type Vectorizer struct {
	vocab map[string]int
	idf   []float64
	docs  []sparseVector
}

// tokenize 小寫後取長度至少 2 的英數字串，去除停用詞後產生 unigram 與相鄰 bigram
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	unigrams := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := englishStopWords[w]; stop {
			continue
		}
		unigrams = append(unigrams, w)
	}

	terms := make([]string, 0, 2*len(unigrams))
	terms = append(terms, unigrams...)
	for i := 0; i+1 < len(unigrams); i++ {
		terms = append(terms, unigrams[i]+" "+unigrams[i+1])
	}
	return terms
}

// FitVectorizer 以文件集合建立詞彙與平滑 IDF：ln((1+N)/(1+df)) + 1
func FitVectorizer(docs []string) (*Vectorizer, error) {
	tokenized := make([][]string, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		tokenized[i] = tokenize(doc)
		seen := make(map[string]struct{}, len(tokenized[i]))
		for _, term := range tokenized[i] {
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}
	if len(df) == 0 {
		return nil, ErrEmptyVocabulary
	}

	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v := &Vectorizer{
		vocab: make(map[string]int, len(terms)),
		idf:   make([]float64, len(terms)),
	}
	n := float64(len(docs))
	for i, term := range terms {
		v.vocab[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	v.docs = make([]sparseVector, len(docs))
	for i, toks := range tokenized {
		v.docs[i] = v.weigh(toks)
	}
	return v, nil
}

// weigh 計算 tf·idf 並做 L2 正規化，不在詞彙中的詞忽略
func (v *Vectorizer) weigh(terms []string) sparseVector {
	counts := make(map[int]int)
	for _, term := range terms {
		if idx, ok := v.vocab[term]; ok {
			counts[idx]++
		}
	}

	vec := sparseVector{
		idx: make([]int, 0, len(counts)),
		val: make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		vec.idx = append(vec.idx, idx)
	}
	sort.Ints(vec.idx)
	for _, idx := range vec.idx {
		vec.val = append(vec.val, float64(counts[idx])*v.idf[idx])
	}

	if norm := vec.norm(); norm > 0 {
		for i := range vec.val {
			vec.val[i] /= norm
		}
	}
	return vec
}

// transform 將查詢文字投影到既有詞彙
func (v *Vectorizer) transform(text string) sparseVector {
	return v.weigh(tokenize(text))
}

// similarity 查詢向量與第 doc 份文件的餘弦相似度
func (v *Vectorizer) similarity(q sparseVector, doc int) float64 {
	if doc < 0 || doc >= len(v.docs) {
		return 0
	}
	return cosine(q, v.docs[doc])
}

// VocabularySize 詞彙數量
func (v *Vectorizer) VocabularySize() int {
	return len(v.vocab)
}
