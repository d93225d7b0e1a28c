package match

import (
	"context"
	"math"
	"slices"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

// Placeholder score attached to fallback recommendations.
const fallbackScore = 0.5

// Recommendations is the result of a job recommendation call.
// Fallback is set when the student had no usable profile data.
type Recommendations struct {
	Jobs     []engine.RecommendedJob
	Fallback bool
}

type scoredJob struct {
	job       engine.JobRecord
	score     float64
	breakdown GroupScores
}

// RecommendJobs ranks open jobs for a student.
func (m *Matcher) RecommendJobs(ctx context.Context, studentID, limit int) (Recommendations, error) {
	return m.recommend(ctx, studentID, nil, false, limit)
}

// RecommendJobsWithWeights is RecommendJobs with partial weight overrides
// merged over the student vector's weights.
func (m *Matcher) RecommendJobsWithWeights(ctx context.Context, studentID int, overrides WeightOverrides, limit int) (Recommendations, error) {
	return m.recommend(ctx, studentID, overrides, false, limit)
}

// RecommendJobsWithTopCV ranks the internal pool together with jobs from the
// external feed. Feed failures leave only internal jobs.
func (m *Matcher) RecommendJobsWithTopCV(ctx context.Context, studentID, limit int) (Recommendations, error) {
	return m.recommend(ctx, studentID, nil, true, limit)
}

func (m *Matcher) recommend(ctx context.Context, studentID int, overrides WeightOverrides, withFeed bool, limit int) (Recommendations, error) {
	engine.IncrRecommendRequests()
	start := time.Now()
	limit = normLimit(limit)

	var out Recommendations
	err := engine.TrackOperation(ctx, "recommend_jobs", func(ctx context.Context) error {
		student, err := m.loadStudent(ctx, studentID)
		if err != nil {
			return err
		}
		apps, err := m.loadApplications(ctx, studentID)
		if err != nil {
			return err
		}

		if isEmptyProfile(student, apps) {
			out, err = m.fallback(ctx, limit)
			return err
		}

		pref := m.extractor.StudentFeatures(ctx, engine.StudentWithApplications{Student: student, Applications: apps})

		pool, err := m.loadJobPool(ctx)
		if err != nil {
			return err
		}
		if withFeed && m.feed != nil {
			pool = slices.Concat(pool, m.fetchFeed(ctx, student))
		}

		applied := appliedJobIDs(apps)
		candidates := make([]engine.JobRecord, 0, len(pool))
		for _, job := range pool {
			if job.IsInternal() && applied[job.ID] {
				continue
			}
			candidates = append(candidates, job)
		}

		ranked := rankJobs(m.scoreJobs(pref, candidates, overrides), limit)
		out.Jobs = make([]engine.RecommendedJob, len(ranked))
		for i, s := range ranked {
			out.Jobs[i] = engine.RecommendedJob{
				JobRecord:           s.job,
				RecommendationScore: round(s.score, 4),
				MatchPercentage:     round(s.score*100, 2),
			}
		}
		return nil
	})
	if err != nil {
		return Recommendations{}, err
	}
	logDone("recommend_jobs", studentID, len(out.Jobs), start)
	return out, nil
}

// fallback returns the newest open entry-level jobs with a flat score,
// widening to any level when none exist.
func (m *Matcher) fallback(ctx context.Context, limit int) (Recommendations, error) {
	engine.IncrFallbackResponses()
	jobs, err := m.loadJobs(ctx, engine.JobFilter{
		Status:   engine.JobStatusOpen,
		LevelIDs: []int{LevelFresher, LevelJunior},
		Limit:    limit,
	})
	if err != nil {
		return Recommendations{}, err
	}
	if len(jobs) == 0 {
		if jobs, err = m.loadJobs(ctx, engine.JobFilter{Status: engine.JobStatusOpen, Limit: limit}); err != nil {
			return Recommendations{}, err
		}
	}
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}

	out := Recommendations{Fallback: true, Jobs: make([]engine.RecommendedJob, len(jobs))}
	for i, job := range jobs {
		out.Jobs[i] = engine.RecommendedJob{
			JobRecord:           job,
			RecommendationScore: fallbackScore,
			MatchPercentage:     fallbackScore * 100,
		}
	}
	return out, nil
}

func (m *Matcher) fetchFeed(ctx context.Context, student engine.StudentRecord) []engine.JobRecord {
	q := engine.FeedQuery{
		Keyword:  desiredPositionText(student),
		MaxPages: m.feedMaxPages,
	}
	if student.Location != nil {
		q.Location = *student.Location
	}
	jobs := m.feed.FetchJobs(ctx, q)
	for i := range jobs {
		if jobs[i].Source == "" {
			jobs[i].Source = engine.SourceTopCV
		}
	}
	return jobs
}

// SimilarJobs ranks open jobs by similarity to the given job, excluding it.
func (m *Matcher) SimilarJobs(ctx context.Context, jobID, limit int) ([]engine.SimilarJob, error) {
	engine.IncrSimilarJobRequests()
	start := time.Now()
	limit = normLimit(limit)

	target, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	pool, err := m.loadJobPool(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]engine.JobRecord, 0, len(pool))
	for _, job := range pool {
		if job.ID != target.ID {
			candidates = append(candidates, job)
		}
	}

	pref := m.extractor.JobFeatures(target)
	ranked := rankJobs(m.scoreJobs(pref, candidates, nil), limit)
	out := make([]engine.SimilarJob, len(ranked))
	for i, s := range ranked {
		out[i] = engine.SimilarJob{
			JobRecord:       s.job,
			SimilarityScore: round(s.score, 4),
			MatchPercentage: round(s.score*100, 2),
			Breakdown:       roundMap(s.breakdown.Map()),
		}
	}
	logDone("similar_jobs", jobID, len(out), start)
	return out, nil
}

// MatchingStudents ranks students for a job. The job vector carries the weights.
func (m *Matcher) MatchingStudents(ctx context.Context, jobID, limit int) ([]engine.StudentMatch, error) {
	engine.IncrStudentMatchRequests()
	start := time.Now()
	limit = normLimit(limit)

	job, err := m.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	students, err := m.loadStudentPool(ctx)
	if err != nil {
		return nil, err
	}

	pref := m.extractor.JobFeatures(job)
	scores := make([]float64, len(students))

	var g errgroup.Group
	g.SetLimit(m.fanOut)
	for i, st := range students {
		g.Go(func() error {
			apps, err := m.loadApplications(ctx, st.UserID)
			if err != nil {
				return err
			}
			cand := m.extractor.StudentFeatures(ctx, engine.StudentWithApplications{Student: st, Applications: apps})
			scores[i] = Score(pref, cand)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	idx := make([]int, len(students))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	if len(idx) > limit {
		idx = idx[:limit]
	}

	out := make([]engine.StudentMatch, len(idx))
	for i, j := range idx {
		out[i] = engine.StudentMatch{
			StudentRecord:   students[j],
			MatchScore:      round(scores[j], 4),
			MatchPercentage: round(scores[j]*100, 2),
		}
	}
	logDone("matching_students", jobID, len(out), start)
	return out, nil
}

// scoreJobs builds candidate vectors and scores them concurrently.
func (m *Matcher) scoreJobs(pref FeatureVector, jobs []engine.JobRecord, overrides WeightOverrides) []scoredJob {
	w := pref.Weights.Merge(overrides)
	out := make([]scoredJob, len(jobs))

	var g errgroup.Group
	g.SetLimit(m.fanOut)
	for i, job := range jobs {
		g.Go(func() error {
			b := Breakdown(pref, m.extractor.JobFeatures(job))
			out[i] = scoredJob{job: job, score: b.Weighted(w), breakdown: b}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// rankJobs sorts by score descending, keeping pool order for ties, and truncates.
func rankJobs(scored []scoredJob, limit int) []scoredJob {
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func appliedJobIDs(apps []engine.ApplicationRecord) map[int]bool {
	ids := make(map[int]bool, len(apps))
	for _, a := range apps {
		if id := a.AppliedJobID(); id > 0 {
			ids[id] = true
		}
	}
	return ids
}

// isEmptyProfile reports whether neither the profile nor the application
// history carries any signal to rank on.
func isEmptyProfile(st engine.StudentRecord, apps []engine.ApplicationRecord) bool {
	if len(apps) > 0 || len(st.Experiences) > 0 || len(st.Educations) > 0 {
		return false
	}
	if strings.TrimSpace(st.About) != "" {
		return false
	}
	return SkillNames(st.Skills...).Len() == 0 && len(declaredPositions(st)) == 0
}

func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func roundMap(m map[string]float64) map[string]float64 {
	for k, v := range m {
		m[k] = round(v, 4)
	}
	return m
}
