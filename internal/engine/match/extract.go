package match

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

// Seniority level IDs as seeded in the level catalogue.
const (
	LevelFresher = 1
	LevelJunior  = 2
	LevelMid     = 3
	LevelSenior  = 4
)

// Experience thresholds in years.
const (
	seniorYears = 5.0
	midYears    = 2.0
	juniorYears = 0.5
)

const hoursPerYear = 24 * 365.25

// advancedDegrees mark a degree that infers Mid level without experience.
var advancedDegrees = []string{"master", "thạc sĩ", "mba", "phd", "doctor", "tiến sĩ"}

// Extractor builds feature vectors for jobs and students.
type Extractor struct {
	vocab         *Vocabulary
	salaryCeiling float64
	now           func() time.Time
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithSalaryCeiling sets the salary normalization ceiling.
func WithSalaryCeiling(ceiling float64) ExtractorOption {
	return func(e *Extractor) {
		if ceiling > 0 {
			e.salaryCeiling = ceiling
		}
	}
}

// WithNow sets the clock used for ongoing experiences.
func WithNow(now func() time.Time) ExtractorOption {
	return func(e *Extractor) { e.now = now }
}

// NewExtractor creates an Extractor. vocab may be nil, in which case
// certification inference uses the fallback vocabulary.
func NewExtractor(vocab *Vocabulary, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		vocab:         vocab,
		salaryCeiling: engine.DefaultSalaryCeiling,
		now:           time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// JobFeatures builds the vector of a job posting.
func (e *Extractor) JobFeatures(job engine.JobRecord) FeatureVector {
	parts := make([]string, 0, 2+len(job.Requirements)+len(job.Responsibilities))
	parts = append(parts, job.Title, engine.CleanHTML(job.Description))
	parts = append(parts, job.Requirements...)
	parts = append(parts, job.Responsibilities...)

	skills := SkillIDs(job.Skills.IDs()...)
	if names, ok := job.Skills.Names(); ok && len(names) > 0 {
		skills = SkillNames(names...)
	}

	location := make([]int, 0, len(job.Branches))
	for _, b := range job.Branches {
		if p := b.ProvinceRef(); p > 0 {
			location = append(location, p)
		}
	}

	return FeatureVector{
		Categories:      intSet(job.Categories.IDs()),
		Skills:          skills,
		Levels:          intSet(job.Levels.IDs()),
		EmploymentTypes: intSet(job.EmploymentTypes.IDs()),
		Text:            e.vectorize(engine.JoinNonEmpty(". ", parts...), "job", job.ID),
		Salary:          e.normalizeSalary(job.SalaryFrom, job.SalaryTo),
		Location:        intSet(location),
		Weights:         DefaultJobWeights,
	}
}

// StudentFeatures builds the vector of a student profile and its application history.
func (e *Extractor) StudentFeatures(ctx context.Context, in engine.StudentWithApplications) FeatureVector {
	st := in.Student

	skills := SkillNames(st.Skills...)
	if skills.Len() == 0 {
		skills = SkillNames(e.inferSkills(ctx, st.Certifications)...)
	}

	var categories, levels []int
	for _, app := range in.Applications {
		if app.Job == nil {
			continue
		}
		categories = append(categories, app.Job.Categories.IDs()...)
		levels = append(levels, app.Job.Levels.IDs()...)
	}
	levels = append(levels, e.inferLevel(st))

	var location []int
	if st.Location != nil {
		location = []int{*st.Location}
	}

	declared := declaredPositions(st)
	text := engine.JoinNonEmpty(". ", desiredPositionText(st), st.About)

	w := Weights{
		Categories:      0.20,
		Skills:          0.20,
		Levels:          0.10,
		EmploymentTypes: 0.05,
		Text:            0.40,
	}
	if skills.Len() > 0 {
		w.Skills = 0.40
	}
	if len(declared) > 0 {
		w.Text = 0.20
	}
	if len(location) > 0 {
		w.Location = 0.05
	}

	return FeatureVector{
		Categories:      intSet(categories),
		Skills:          skills,
		Levels:          intSet(levels),
		EmploymentTypes: []int{},
		Text:            e.vectorize(text, "student", st.UserID),
		Location:        location,
		Weights:         w,
	}
}

func (e *Extractor) vectorize(text, kind string, id int) []float64 {
	vec, err := VectorizeSafe(text)
	if err != nil {
		engine.IncrVectorizeErrors()
		slog.Warn("match: vectorize failed",
			slog.String("kind", kind), slog.Int("id", id), slog.Any("error", err))
		return []float64{}
	}
	return vec
}

func (e *Extractor) normalizeSalary(from, to *float64) float64 {
	var v float64
	switch {
	case from != nil && to != nil:
		v = (*from + *to) / 2
	case from != nil:
		v = *from
	case to != nil:
		v = *to
	default:
		return 0
	}
	if v <= 0 {
		return 0
	}
	return math.Min(v/e.salaryCeiling, 1)
}

// inferSkills matches vocabulary names inside certification names.
func (e *Extractor) inferSkills(ctx context.Context, certs []engine.Certification) []string {
	if len(certs) == 0 {
		return nil
	}
	var vocab []string
	if e.vocab != nil {
		vocab = e.vocab.Skills(ctx)
	} else {
		vocab = FallbackVocabulary()
	}

	var found []string
	for _, c := range certs {
		name := strings.ToLower(c.Name)
		if strings.TrimSpace(name) == "" {
			continue
		}
		for _, skill := range vocab {
			s := NormalizeSkill(skill)
			if s != "" && strings.Contains(name, s) {
				found = append(found, s)
			}
		}
	}
	return found
}

// inferLevel maps total experience, then degree, to a level ID.
func (e *Extractor) inferLevel(st engine.StudentRecord) int {
	years := e.experienceYears(st.Experiences)
	switch {
	case years >= seniorYears:
		return LevelSenior
	case years >= midYears:
		return LevelMid
	case years >= juniorYears:
		return LevelJunior
	}
	for _, ed := range st.Educations {
		deg := strings.ToLower(ed.Degree)
		for _, adv := range advancedDegrees {
			if strings.Contains(deg, adv) {
				return LevelMid
			}
		}
	}
	return LevelFresher
}

func (e *Extractor) experienceYears(exps []engine.Experience) float64 {
	now := e.now()
	var total time.Duration
	for _, x := range exps {
		if x.StartDate.IsZero() {
			continue
		}
		end := x.EndDate.Time
		if end.IsZero() {
			end = now
		}
		if end.After(x.StartDate.Time) {
			total += end.Sub(x.StartDate.Time)
		}
	}
	return total.Hours() / hoursPerYear
}

func declaredPositions(st engine.StudentRecord) []string {
	out := make([]string, 0, len(st.DesiredPositions))
	for _, p := range st.DesiredPositions {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// desiredPositionText falls back from declared positions to experience
// titles to education majors.
func desiredPositionText(st engine.StudentRecord) string {
	if d := declaredPositions(st); len(d) > 0 {
		return strings.Join(d, ", ")
	}
	titles := make([]string, 0, len(st.Experiences))
	for _, x := range st.Experiences {
		titles = append(titles, x.Position)
	}
	if t := engine.JoinNonEmpty(", ", titles...); t != "" {
		return t
	}
	majors := make([]string, 0, len(st.Educations))
	for _, ed := range st.Educations {
		majors = append(majors, ed.Major)
	}
	return engine.JoinNonEmpty(", ", majors...)
}
