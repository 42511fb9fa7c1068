// Package terms turns repository text into weighted vocabulary: the shared
// tokenizer, a TF-IDF vectorizer, and IDF-ranked term extraction for the
// frontier loop.
package terms

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrEmptyVocabulary is returned when no document contributes a term.
var ErrEmptyVocabulary = errors.New("empty vocabulary: documents contain only stop words or no tokens")

// A token is a run of two or more letters, digits or underscores.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Tokenize lowercases text and splits it into word tokens of at least two
// characters. Punctuation and whitespace separate tokens.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Vectorizer builds TF-IDF weights over a document collection.
type Vectorizer struct {
	// MaxFeatures caps the vocabulary at the most frequent terms. Zero means
	// no cap.
	MaxFeatures int
	// MaxNGram is the longest n-gram produced; values below 1 mean unigrams.
	MaxNGram int
	// StopWords drops English stop words before n-grams are formed.
	StopWords bool
}

// Model is a fitted vectorizer.
type Model struct {
	// Vocabulary is sorted alphabetically; column j of Weights is term j.
	Vocabulary []string
	IDF        []float64
	// Weights holds one L2-normalized row per document.
	Weights *mat.Dense
}

// Fit analyzes docs and returns their TF-IDF matrix. IDF is smoothed:
// ln((1+n)/(1+df)) + 1.
func (v Vectorizer) Fit(docs []string) (*Model, error) {
	counts := make([]map[string]int, len(docs))
	corpusFreq := make(map[string]int)
	docFreq := make(map[string]int)

	for i, doc := range docs {
		c := make(map[string]int)
		for _, g := range v.analyze(doc) {
			c[g]++
		}
		for g, n := range c {
			corpusFreq[g] += n
			docFreq[g]++
		}
		counts[i] = c
	}
	if len(corpusFreq) == 0 {
		return nil, ErrEmptyVocabulary
	}

	vocab := make([]string, 0, len(corpusFreq))
	for g := range corpusFreq {
		vocab = append(vocab, g)
	}
	if v.MaxFeatures > 0 && len(vocab) > v.MaxFeatures {
		sort.Slice(vocab, func(a, b int) bool {
			fa, fb := corpusFreq[vocab[a]], corpusFreq[vocab[b]]
			if fa != fb {
				return fa > fb
			}
			return vocab[a] < vocab[b]
		})
		vocab = vocab[:v.MaxFeatures]
	}
	sort.Strings(vocab)

	index := make(map[string]int, len(vocab))
	for j, g := range vocab {
		index[g] = j
	}

	n := float64(len(docs))
	idf := make([]float64, len(vocab))
	for j, g := range vocab {
		idf[j] = math.Log((1+n)/(1+float64(docFreq[g]))) + 1
	}

	weights := mat.NewDense(len(docs), len(vocab), nil)
	for i, c := range counts {
		row := weights.RawRowView(i)
		for g, cnt := range c {
			if j, ok := index[g]; ok {
				row[j] = float64(cnt) * idf[j]
			}
		}
		if norm := floats.Norm(row, 2); norm > 0 {
			floats.Scale(1/norm, row)
		}
	}

	return &Model{Vocabulary: vocab, IDF: idf, Weights: weights}, nil
}

// analyze produces the n-grams of one document.
func (v Vectorizer) analyze(doc string) []string {
	tokens := Tokenize(doc)
	if v.StopWords {
		kept := tokens[:0]
		for _, t := range tokens {
			if !IsStopWord(t) {
				kept = append(kept, t)
			}
		}
		tokens = kept
	}

	maxN := v.MaxNGram
	if maxN < 1 {
		maxN = 1
	}
	grams := make([]string, 0, len(tokens)*maxN)
	grams = append(grams, tokens...)
	for size := 2; size <= maxN; size++ {
		for i := 0; i+size <= len(tokens); i++ {
			grams = append(grams, strings.Join(tokens[i:i+size], " "))
		}
	}
	return grams
}

// ExtractTerms ranks the corpus vocabulary (unigrams and bigrams, 800
// features) by IDF, rarest first, keeps the topK and then drops those
// shorter than minLen runes.
func ExtractTerms(docs []string, topK, minLen int) ([]string, error) {
	model, err := Vectorizer{MaxFeatures: 800, MaxNGram: 2, StopWords: true}.Fit(docs)
	if err != nil {
		return nil, err
	}

	order := make([]int, len(model.Vocabulary))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return model.IDF[order[a]] > model.IDF[order[b]]
	})
	if topK > 0 && len(order) > topK {
		order = order[:topK]
	}

	out := make([]string, 0, len(order))
	for _, j := range order {
		term := model.Vocabulary[j]
		if utf8.RuneCountInString(term) >= minLen {
			out = append(out, term)
		}
	}
	return out, nil
}
