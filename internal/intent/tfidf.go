package intent

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern keeps words of two or more word characters.
var tokenPattern = regexp.MustCompile(`\b\w\w+\b`)

// Vectorizer maps text to L2-normalised TF-IDF vectors over a vocabulary
// fitted from a corpus.
type Vectorizer struct {
	vocabulary map[string]int
	idf        []float64
}

// Fit builds the vocabulary and smoothed IDF values from corpus.
func (v *Vectorizer) Fit(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus")
	}

	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	if len(df) == 0 {
		return errors.New("no tokens found in corpus")
	}

	// Stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	v.vocabulary = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		v.vocabulary[term] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return nil
}

// Dimension returns the vocabulary size.
func (v *Vectorizer) Dimension() int {
	return len(v.idf)
}

// Transform returns the TF-IDF vector of text. Unknown tokens are ignored;
// text without known tokens yields the zero vector.
func (v *Vectorizer) Transform(text string) []float64 {
	vec := make([]float64, len(v.idf))
	for _, tok := range tokenize(text) {
		if idx, ok := v.vocabulary[tok]; ok {
			vec[idx]++
		}
	}

	norm := 0.0
	for i, count := range vec {
		vec[i] = count * v.idf[i]
		norm += vec[i] * vec[i]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}
