package match

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// singleDocIDF is the inverse document frequency of a term in a
// one-document corpus: 1 + ln(N/(1+df)) with N=1, df=1.
var singleDocIDF = 1 + math.Log(1.0/2.0)

// stopWords are dropped before weighting.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "but": true, "by": true, "can": true, "do": true,
	"for": true, "from": true, "has": true, "have": true, "he": true, "her": true,
	"his": true, "i": true, "if": true, "in": true, "into": true, "is": true,
	"it": true, "its": true, "me": true, "my": true, "no": true, "not": true,
	"of": true, "on": true, "or": true, "our": true, "she": true, "so": true,
	"such": true, "than": true, "that": true, "the": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "to": true, "us": true, "was": true, "we": true,
	"were": true, "what": true, "when": true, "which": true, "who": true,
	"will": true, "with": true, "would": true, "you": true, "your": true,
}

type termWeight struct {
	term   string
	weight float64
}

// Tokenize lower-cases text and splits it into word tokens. Letters, digits,
// '+' and '#' form tokens ("c++", "c#"); stop words are dropped.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
	out := fields[:0]
	for _, f := range fields {
		if strings.Trim(f, "+#") == "" {
			continue
		}
		if !stopWords[f] {
			out = append(out, f)
		}
	}
	return out
}

// Vectorize converts text into an ordered weight sequence, one weight per
// distinct token. Weights are term frequency times the single-document IDF,
// ordered by weight descending, ties by token ascending. Empty text yields an
// empty sequence.
func Vectorize(text string) []float64 {
	v, err := VectorizeSafe(text)
	if err != nil {
		return []float64{}
	}
	return v
}

// VectorizeSafe is Vectorize with tokenizer failures surfaced as errors.
func VectorizeSafe(text string) (vec []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			vec, err = nil, fmt.Errorf("vectorize: %v", r)
		}
	}()

	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}

	terms := make([]termWeight, 0, len(counts))
	for term, n := range counts {
		terms = append(terms, termWeight{term: term, weight: float64(n) * singleDocIDF})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].weight != terms[j].weight {
			return terms[i].weight > terms[j].weight
		}
		return terms[i].term < terms[j].term
	})

	vec = make([]float64, len(terms))
	for i, t := range terms {
		vec[i] = t.weight
	}
	return vec, nil
}
