// Package match turns jobs and student profiles into feature vectors,
// scores vector pairs and ranks candidate pools.
package match

import (
	"slices"
	"strings"
)

// SkillKind tags the representation of a skill set.
type SkillKind uint8

const (
	// SkillsByID holds catalogue IDs (jobs without joined skill names).
	SkillsByID SkillKind = iota
	// SkillsByName holds normalized skill names.
	SkillsByName
)

// Skills is a skill set held either as IDs or as normalized names.
// The two forms are never compared as numbers against strings; see skillSimilarity.
type Skills struct {
	Kind  SkillKind
	IDs   []int
	Names []string
}

// SkillIDs builds an ID-backed skill set.
func SkillIDs(ids ...int) Skills {
	return Skills{Kind: SkillsByID, IDs: intSet(ids)}
}

// SkillNames builds a name-backed skill set; names are normalized.
func SkillNames(names ...string) Skills {
	norm := make([]string, 0, len(names))
	for _, n := range names {
		if n = NormalizeSkill(n); n != "" {
			norm = append(norm, n)
		}
	}
	return Skills{Kind: SkillsByName, Names: stringSet(norm)}
}

// Len returns the number of distinct skills.
func (s Skills) Len() int {
	if s.Kind == SkillsByName {
		return len(s.Names)
	}
	return len(s.IDs)
}

// skillKey is a set element tagged with its kind, so an ID never equals a name.
type skillKey struct {
	kind SkillKind
	id   int
	name string
}

func (s Skills) keys() []skillKey {
	if s.Kind == SkillsByName {
		out := make([]skillKey, len(s.Names))
		for i, n := range s.Names {
			out[i] = skillKey{kind: SkillsByName, name: n}
		}
		return out
	}
	out := make([]skillKey, len(s.IDs))
	for i, id := range s.IDs {
		out[i] = skillKey{kind: SkillsByID, id: id}
	}
	return out
}

// NormalizeSkill trims and lower-cases a skill name.
func NormalizeSkill(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Weights holds the contribution of each feature group to the total score.
type Weights struct {
	Categories      float64 `json:"categories"`
	Skills          float64 `json:"skills"`
	Levels          float64 `json:"levels"`
	EmploymentTypes float64 `json:"employment_types"`
	Text            float64 `json:"text"`
	Salary          float64 `json:"salary"`
	Location        float64 `json:"location"`
}

// Sum returns the total weight mass.
func (w Weights) Sum() float64 {
	return w.Categories + w.Skills + w.Levels + w.EmploymentTypes + w.Text + w.Salary + w.Location
}

// WeightOverrides is a partial weight map keyed by group name.
// Accepted keys: categories, skills, levels, employment_types (or employmentTypes),
// text, salary, location. Unknown keys are ignored.
type WeightOverrides map[string]float64

// Merge returns w with the overrides applied. w itself is not modified.
func (w Weights) Merge(o WeightOverrides) Weights {
	for k, v := range o {
		switch k {
		case "categories":
			w.Categories = v
		case "skills":
			w.Skills = v
		case "levels":
			w.Levels = v
		case "employment_types", "employmentTypes":
			w.EmploymentTypes = v
		case "text":
			w.Text = v
		case "salary":
			w.Salary = v
		case "location":
			w.Location = v
		}
	}
	return w
}

// DefaultJobWeights are carried by job vectors.
var DefaultJobWeights = Weights{
	Categories:      0.25,
	Skills:          0.30,
	Levels:          0.10,
	EmploymentTypes: 0.05,
	Text:            0.20,
	Salary:          0.05,
	Location:        0.05,
}

// FeatureVector is the comparable representation of a job or a student.
// Set fields are sorted and deduplicated. Treat a built vector as read-only.
type FeatureVector struct {
	Categories      []int
	Skills          Skills
	Levels          []int
	EmploymentTypes []int
	Text            []float64
	Salary          float64
	Location        []int
	Weights         Weights
}

func intSet(ids []int) []int {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

func stringSet(items []string) []string {
	out := slices.Clone(items)
	slices.Sort(out)
	return slices.Compact(out)
}
