package match

import "math"

// GroupScores holds the per-group similarity of two vectors, each in [0,1].
type GroupScores struct {
	Categories      float64
	Skills          float64
	Levels          float64
	EmploymentTypes float64
	Text            float64
	Salary          float64
	Location        float64
}

// Map returns the scores keyed by group name.
func (g GroupScores) Map() map[string]float64 {
	return map[string]float64{
		"categories":       g.Categories,
		"skills":           g.Skills,
		"levels":           g.Levels,
		"employment_types": g.EmploymentTypes,
		"text":             g.Text,
		"salary":           g.Salary,
		"location":         g.Location,
	}
}

// Weighted returns the weighted sum of the group scores.
func (g GroupScores) Weighted(w Weights) float64 {
	return g.Categories*w.Categories +
		g.Skills*w.Skills +
		g.Levels*w.Levels +
		g.EmploymentTypes*w.EmploymentTypes +
		g.Text*w.Text +
		g.Salary*w.Salary +
		g.Location*w.Location
}

// Breakdown computes the per-group similarity of preference and candidate.
func Breakdown(preference, candidate FeatureVector) GroupScores {
	return GroupScores{
		Categories:      Jaccard(preference.Categories, candidate.Categories),
		Skills:          skillSimilarity(preference.Skills, candidate.Skills),
		Levels:          Jaccard(preference.Levels, candidate.Levels),
		EmploymentTypes: Jaccard(preference.EmploymentTypes, candidate.EmploymentTypes),
		Text:            Cosine(preference.Text, candidate.Text),
		Salary:          SalarySimilarity(preference.Salary, candidate.Salary),
		Location:        Jaccard(preference.Location, candidate.Location),
	}
}

// Score rates candidate against preference using the preference vector's weights.
func Score(preference, candidate FeatureVector) float64 {
	return Breakdown(preference, candidate).Weighted(preference.Weights)
}

// ScoreWithWeights is Score with overrides merged over the preference weights.
// Weights are not renormalized.
func ScoreWithWeights(preference, candidate FeatureVector, overrides WeightOverrides) float64 {
	return Breakdown(preference, candidate).Weighted(preference.Weights.Merge(overrides))
}

// Jaccard returns |A∩B| / |A∪B|. Two empty sets give 1; exactly one empty gives 0.
func Jaccard[T comparable](a, b []T) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inA := make(map[T]bool, len(a))
	for _, x := range a {
		inA[x] = true
	}
	inter := 0
	union := len(inA)
	seen := make(map[T]bool, len(b))
	for _, x := range b {
		if seen[x] {
			continue
		}
		seen[x] = true
		if inA[x] {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

// skillSimilarity compares two skill sets. IDs and names are disjoint:
// a mixed pair shares no elements.
func skillSimilarity(a, b Skills) float64 {
	return Jaccard(a.keys(), b.keys())
}

// Cosine returns the cosine similarity of two weight sequences. The shorter
// sequence is padded with zeros. Either sequence empty or all-zero gives 0.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range max(len(a), len(b)) {
		var x, y float64
		if i < len(a) {
			x = a[i]
		}
		if i < len(b) {
			y = b[i]
		}
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SalarySimilarity compares normalized salaries in [0,1]. Both zero counts as
// a match; exactly one zero gives 0.5 (unknown); otherwise 1 - |a-b|, floored at 0.
func SalarySimilarity(a, b float64) float64 {
	if a == 0 && b == 0 {
		return 1
	}
	if a == 0 || b == 0 {
		return 0.5
	}
	return math.Max(0, 1-math.Abs(a-b))
}
