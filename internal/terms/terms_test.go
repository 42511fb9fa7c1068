package terms

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty", "", nil},
		{"lowercases", "Hello World", []string{"hello", "world"}},
		{"drops single chars", "a b cd e", []string{"cd"}},
		{"punctuation splits", "peg-parser, earley_glr!", []string{"peg", "parser", "earley_glr"}},
		{"digits count", "v2 is 42", []string{"v2", "is", "42"}},
		{"unicode letters", "Grüße café", []string{"grüße", "café"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsStopWord(t *testing.T) {
	for _, w := range []string{"the", "and", "system", "yourselves"} {
		if !IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = false, want true", w)
		}
	}
	for _, w := range []string{"grammar", "agent", "The"} {
		if IsStopWord(w) {
			t.Errorf("IsStopWord(%q) = true, want false", w)
		}
	}
}

func TestFit_VocabularyAndWeights(t *testing.T) {
	docs := []string{
		"grammar parser grammar",
		"agent parser",
	}
	model, err := Vectorizer{StopWords: true}.Fit(docs)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	wantVocab := []string{"agent", "grammar", "parser"}
	if !reflect.DeepEqual(model.Vocabulary, wantVocab) {
		t.Fatalf("Vocabulary = %v, want %v", model.Vocabulary, wantVocab)
	}

	// parser appears in both documents: ln(3/3)+1 = 1
	if math.Abs(model.IDF[2]-1) > 1e-12 {
		t.Errorf("IDF(parser) = %v, want 1", model.IDF[2])
	}
	wantRare := math.Log(3.0/2.0) + 1
	if math.Abs(model.IDF[0]-wantRare) > 1e-12 {
		t.Errorf("IDF(agent) = %v, want %v", model.IDF[0], wantRare)
	}

	for i := range docs {
		row := model.Weights.RawRowView(i)
		var sum float64
		for _, x := range row {
			sum += x * x
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("row %d squared norm = %v, want 1", i, sum)
		}
	}
	if model.Weights.At(0, 0) != 0 {
		t.Errorf("doc 0 should have no weight for agent")
	}
}

func TestFit_MaxFeaturesKeepsMostFrequent(t *testing.T) {
	docs := []string{"alpha alpha alpha beta beta gamma", "alpha delta"}
	model, err := Vectorizer{MaxFeatures: 2}.Fit(docs)
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(model.Vocabulary, want) {
		t.Errorf("Vocabulary = %v, want %v", model.Vocabulary, want)
	}
}

func TestFit_MaxFeaturesTiesAlphabetical(t *testing.T) {
	model, err := Vectorizer{MaxFeatures: 2}.Fit([]string{"zeta beta alpha"})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	want := []string{"alpha", "beta"}
	if !reflect.DeepEqual(model.Vocabulary, want) {
		t.Errorf("Vocabulary = %v, want %v", model.Vocabulary, want)
	}
}

func TestFit_Bigrams(t *testing.T) {
	model, err := Vectorizer{MaxNGram: 2, StopWords: true}.Fit([]string{"the language model"})
	if err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	want := []string{"language", "language model", "model"}
	if !reflect.DeepEqual(model.Vocabulary, want) {
		t.Errorf("Vocabulary = %v, want %v", model.Vocabulary, want)
	}
}

func TestFit_EmptyVocabulary(t *testing.T) {
	tests := []struct {
		name string
		docs []string
	}{
		{"no docs", nil},
		{"blank docs", []string{"", " \n"}},
		{"only stop words", []string{"the and of", "a it is"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Vectorizer{StopWords: true}.Fit(tt.docs)
			if !errors.Is(err, ErrEmptyVocabulary) {
				t.Errorf("Fit error = %v, want ErrEmptyVocabulary", err)
			}
		})
	}
}

func TestExtractTerms(t *testing.T) {
	docs := []string{
		"grammar parser toolkit",
		"agent parser toolkit",
		"browser parser toolkit",
	}
	// Vocabulary holds nine grams; the six that occur in a single document
	// share the top IDF and keep alphabetical order among themselves.
	got, err := ExtractTerms(docs, 3, 4)
	if err != nil {
		t.Fatalf("ExtractTerms failed: %v", err)
	}
	want := []string{"agent", "agent parser", "browser"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractTerms = %v, want %v", got, want)
	}

	all, err := ExtractTerms(docs, 0, 4)
	if err != nil {
		t.Fatalf("ExtractTerms failed: %v", err)
	}
	if len(all) != 9 {
		t.Fatalf("got %d terms without a cap, want 9: %v", len(all), all)
	}
	for _, common := range []string{"parser", "parser toolkit", "toolkit"} {
		for i, term := range all[:6] {
			if term == common {
				t.Errorf("common term %q ranked at %d among rare terms", common, i)
			}
		}
	}
}

func TestExtractTerms_TopKBeforeLengthFilter(t *testing.T) {
	docs := []string{"ab xy", "longword"}
	got, err := ExtractTerms(docs, 2, 4)
	if err != nil {
		t.Fatalf("ExtractTerms failed: %v", err)
	}
	// Vocabulary: ab, ab xy, longword, xy all share the same IDF; the top two
	// are "ab" and "ab xy", and only "ab xy" survives the length filter.
	want := []string{"ab xy"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractTerms = %v, want %v", got, want)
	}
}

func TestExtractTerms_Empty(t *testing.T) {
	if _, err := ExtractTerms([]string{"", ""}, 20, 4); !errors.Is(err, ErrEmptyVocabulary) {
		t.Errorf("expected ErrEmptyVocabulary, got %v", err)
	}
}
