package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []int
		want float64
	}{
		{"both empty", nil, []int{}, 1},
		{"one empty", []int{1}, nil, 0},
		{"identical", []int{1, 2, 3}, []int{3, 2, 1}, 1},
		{"disjoint", []int{1, 2}, []int{3, 4}, 0},
		{"partial", []int{1, 2, 3}, []int{2, 3, 4}, 0.5},
		{"duplicates ignored", []int{1, 1, 2}, []int{2, 2}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.InDelta(t, got, Jaccard(tt.b, tt.a), 1e-9, "jaccard must be symmetric")
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestSkillSimilarityMixedKinds(t *testing.T) {
	byName := SkillNames("React", "Go")
	byID := SkillIDs(1, 2)

	assert.InDelta(t, 1.0, skillSimilarity(SkillIDs(1, 2), SkillIDs(2, 1)), 1e-9)
	assert.InDelta(t, 0.0, skillSimilarity(byName, byID), 1e-9)
	assert.InDelta(t, 0.0, skillSimilarity(SkillNames("1", "2"), SkillIDs(1, 2)), 1e-9)
	assert.InDelta(t, 1.0, skillSimilarity(SkillNames(), SkillIDs()), 1e-9)
	assert.InDelta(t, 0.5, skillSimilarity(SkillNames("go", "sql"), SkillNames("go")), 1e-9)
	assert.InDelta(t, 1.0, skillSimilarity(SkillNames(" react ", "GO"), byName), 1e-9)
}

func TestCosine(t *testing.T) {
	assert.Equal(t, 0.0, Cosine(nil, nil))
	assert.Equal(t, 0.0, Cosine([]float64{0, 0}, []float64{0, 0}))
	assert.Equal(t, 0.0, Cosine([]float64{1, 2}, []float64{0, 0, 0}))
	assert.False(t, math.IsNaN(Cosine([]float64{0}, []float64{0})))

	assert.InDelta(t, 1.0, Cosine([]float64{1, 2}, []float64{2, 4}), 1e-9)
	// shorter vector is padded with zeros
	assert.InDelta(t, 1/math.Sqrt2, Cosine([]float64{1}, []float64{1, 1}), 1e-9)
}

func TestSalarySimilarity(t *testing.T) {
	assert.Equal(t, 1.0, SalarySimilarity(0, 0))
	assert.Equal(t, 0.5, SalarySimilarity(0.3, 0))
	assert.Equal(t, 0.5, SalarySimilarity(0, 0.7))
	assert.Equal(t, 1.0, SalarySimilarity(0.5, 0.5))
	assert.Equal(t, 0.5, SalarySimilarity(0, 1))
	assert.InDelta(t, 0.8, SalarySimilarity(0.2, 0.4), 1e-9)
	assert.InDelta(t, 0.0, SalarySimilarity(1e-9, 1), 1e-6)
}

func sampleVectors() (FeatureVector, FeatureVector) {
	a := FeatureVector{
		Categories: []int{1, 2},
		Skills:     SkillNames("go", "sql"),
		Levels:     []int{LevelJunior},
		Text:       []float64{2, 1, 1},
		Salary:     0.2,
		Location:   []int{79},
		Weights:    DefaultJobWeights,
	}
	b := FeatureVector{
		Categories: []int{2, 3},
		Skills:     SkillNames("go", "docker"),
		Levels:     []int{LevelJunior, LevelMid},
		Text:       []float64{1, 1},
		Salary:     0.3,
		Weights: Weights{
			Categories: 0.2, Skills: 0.4, Levels: 0.1, EmploymentTypes: 0.05, Text: 0.2, Location: 0.05,
		},
	}
	return a, b
}

func TestScoreBounds(t *testing.T) {
	a, b := sampleVectors()
	s := Score(a, b)
	assert.GreaterOrEqual(t, s, 0.0)
	assert.LessOrEqual(t, s, a.Weights.Sum())
	assert.InDelta(t, 1.0, DefaultJobWeights.Sum(), 1e-9)

	// identical vectors with default weights score the full weight mass
	assert.InDelta(t, 1.0, Score(a, a), 1e-9)

	empty := FeatureVector{Weights: DefaultJobWeights}
	s = Score(a, empty)
	assert.GreaterOrEqual(t, s, 0.0)
	assert.LessOrEqual(t, s, 1.0)
}

func TestScoreAsymmetry(t *testing.T) {
	a, b := sampleVectors()
	assert.NotEqual(t, Score(a, b), Score(b, a), "different weights must give different scores")

	b.Weights = a.Weights
	assert.InDelta(t, Score(a, b), Score(b, a), 1e-12, "same weights must give the same score")
}

func TestScoreWithWeights(t *testing.T) {
	a, b := sampleVectors()
	before := a.Weights

	onlySkills := WeightOverrides{
		"categories": 0, "skills": 1, "levels": 0, "employmentTypes": 0,
		"text": 0, "salary": 0, "location": 0, "bogus": 5,
	}
	assert.InDelta(t, Breakdown(a, b).Skills, ScoreWithWeights(a, b, onlySkills), 1e-9)
	assert.Equal(t, before, a.Weights, "overrides must not mutate the vector")
	assert.InDelta(t, Score(a, b), ScoreWithWeights(a, b, nil), 1e-12)
}

func TestBreakdownMap(t *testing.T) {
	a, b := sampleVectors()
	m := Breakdown(a, b).Map()
	assert.Len(t, m, 7)
	assert.InDelta(t, 1.0/3, m["categories"], 1e-9)
	assert.InDelta(t, 0.5, m["levels"], 1e-9)
	assert.InDelta(t, 0.0, m["location"], 1e-9)
	assert.InDelta(t, 1.0, m["employment_types"], 1e-9)
}
