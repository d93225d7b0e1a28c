package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

func frontendPool() *fakeJobs {
	fe := openJob(1, "Frontend Developer", time.Hour)
	fe.Skills = refs("React", "TypeScript")
	fe.Levels = ids(LevelJunior)

	be := openJob(2, "Backend Developer", 2*time.Hour)
	be.Skills = refs("Go", "PostgreSQL")
	be.Levels = ids(LevelMid)

	acc := openJob(3, "Senior Tax Accountant", 3*time.Hour)
	acc.Skills = refs("Excel")
	acc.Levels = ids(LevelSenior)

	intern := openJob(4, "React Intern", 30*time.Minute)
	intern.Skills = refs("React")
	intern.Levels = ids(LevelFresher)

	closed := openJob(5, "Frontend Developer", time.Minute)
	closed.Status = engine.JobStatusClosed
	closed.Levels = ids(LevelJunior)

	return &fakeJobs{jobs: []engine.JobRecord{fe, be, acc, intern, closed}}
}

func frontendStudent() engine.StudentRecord {
	return engine.StudentRecord{
		UserID:           42,
		Skills:           []string{"React", "Node.js"},
		DesiredPositions: []string{"Frontend Developer"},
	}
}

func recommendedIDs(jobs []engine.RecommendedJob) []int {
	out := make([]int, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func TestRecommendJobsRanks(t *testing.T) {
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{frontendStudent()}}, &fakeApps{}, nil)

	got, err := m.RecommendJobs(context.Background(), 42, 10)
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	require.Len(t, got.Jobs, 4, "closed jobs are not in the pool")
	// React Intern shares a skill, the Fresher level and a two-token title
	assert.Equal(t, 4, got.Jobs[0].ID)
	assert.Equal(t, 1, got.Jobs[1].ID)
	assert.NotContains(t, recommendedIDs(got.Jobs), 5)

	for i, j := range got.Jobs {
		assert.InDelta(t, j.RecommendationScore*100, j.MatchPercentage, 0.01)
		assert.GreaterOrEqual(t, j.RecommendationScore, 0.0)
		assert.LessOrEqual(t, j.RecommendationScore, 1.0)
		if i > 0 {
			assert.LessOrEqual(t, j.RecommendationScore, got.Jobs[i-1].RecommendationScore)
		}
	}
}

func TestRecommendJobsRounding(t *testing.T) {
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{frontendStudent()}}, &fakeApps{}, nil)
	got, err := m.RecommendJobs(context.Background(), 42, 1)
	require.NoError(t, err)
	require.Len(t, got.Jobs, 1)

	s := got.Jobs[0].RecommendationScore
	assert.Equal(t, round(s, 4), s)
	assert.Equal(t, round(got.Jobs[0].MatchPercentage, 2), got.Jobs[0].MatchPercentage)
}

func TestRecommendJobsExcludesApplied(t *testing.T) {
	apps := &fakeApps{apps: []engine.ApplicationRecord{
		{ID: 1, UserID: 42, JobID: 1},
		{ID: 2, UserID: 42, Job: &engine.JobRecord{ID: 4}},
		{ID: 3, UserID: 7, JobID: 2},
	}}
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{frontendStudent()}}, apps, nil)

	got, err := m.RecommendJobs(context.Background(), 42, 10)
	require.NoError(t, err)
	ids := recommendedIDs(got.Jobs)
	assert.NotContains(t, ids, 1)
	assert.NotContains(t, ids, 4)
	assert.Contains(t, ids, 2, "another student's application must not exclude a job")
}

func TestRecommendJobsFallback(t *testing.T) {
	empty := engine.StudentRecord{UserID: 9, About: "   "}
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{empty}}, &fakeApps{}, nil)

	got, err := m.RecommendJobs(context.Background(), 9, 10)
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	require.NotEmpty(t, got.Jobs)
	// newest open Fresher/Junior jobs only
	assert.Equal(t, []int{4, 1}, recommendedIDs(got.Jobs))
	for _, j := range got.Jobs {
		assert.Equal(t, 0.5, j.RecommendationScore)
		assert.Equal(t, 50.0, j.MatchPercentage)
	}
}

func TestRecommendJobsFallbackWidens(t *testing.T) {
	senior := openJob(1, "Principal Engineer", time.Hour)
	senior.Levels = ids(LevelSenior)
	jobs := &fakeJobs{jobs: []engine.JobRecord{senior}}
	m := newTestMatcher(jobs, &fakeStudents{students: []engine.StudentRecord{{UserID: 9}}}, &fakeApps{}, nil)

	got, err := m.RecommendJobs(context.Background(), 9, 10)
	require.NoError(t, err)
	assert.True(t, got.Fallback)
	assert.Equal(t, []int{1}, recommendedIDs(got.Jobs))
}

func TestRecommendJobsApplicationsDisableFallback(t *testing.T) {
	apps := &fakeApps{apps: []engine.ApplicationRecord{
		{UserID: 9, JobID: 3, Job: &engine.JobRecord{ID: 3, Categories: ids(8)}},
	}}
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{{UserID: 9}}}, apps, nil)

	got, err := m.RecommendJobs(context.Background(), 9, 10)
	require.NoError(t, err)
	assert.False(t, got.Fallback)
	assert.NotContains(t, recommendedIDs(got.Jobs), 3)
}

func TestRecommendJobsLimit(t *testing.T) {
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{frontendStudent()}}, &fakeApps{}, nil)
	got, err := m.RecommendJobs(context.Background(), 42, 2)
	require.NoError(t, err)
	assert.Len(t, got.Jobs, 2)
}

func TestRecommendJobsStudentNotFound(t *testing.T) {
	m := newTestMatcher(frontendPool(), &fakeStudents{}, &fakeApps{}, nil)
	_, err := m.RecommendJobs(context.Background(), 404, 10)
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestRecommendJobsRepositoryError(t *testing.T) {
	boom := errors.New("connection reset")
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{frontendStudent()}}, &fakeApps{err: boom}, nil)
	_, err := m.RecommendJobs(context.Background(), 42, 10)
	assert.ErrorIs(t, err, boom)
}

func TestRecommendJobsCachesPool(t *testing.T) {
	jobs := frontendPool()
	m := newTestMatcher(jobs, &fakeStudents{students: []engine.StudentRecord{frontendStudent()}}, &fakeApps{}, nil)
	ctx := context.Background()

	_, err := m.RecommendJobs(ctx, 42, 10)
	require.NoError(t, err)
	_, err = m.RecommendJobs(ctx, 42, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(1), jobs.findAlls.Load())
}

func TestRecommendJobsProfileAndApplicationsExpire(t *testing.T) {
	clock := &testClock{now: testNow}
	students := &fakeStudents{students: []engine.StudentRecord{frontendStudent()}}
	apps := &fakeApps{}
	m := NewMatcher(Deps{
		Jobs:         frontendPool(),
		Students:     students,
		Applications: apps,
		Extractor:    NewExtractor(nil, WithNow(clock.Now)),
		Cache:        engine.NewCache(engine.WithClock(clock.Now)),
	}, Options{FanOutLimit: 4})
	ctx := context.Background()

	recommend := func() {
		t.Helper()
		_, err := m.RecommendJobs(ctx, 42, 10)
		require.NoError(t, err)
	}

	recommend()
	assert.Equal(t, int32(1), students.findOnes.Load())
	assert.Equal(t, 1, apps.hits[42])

	clock.Advance(4 * time.Minute)
	recommend()
	assert.Equal(t, int32(1), students.findOnes.Load(), "profile cached at 4m")
	assert.Equal(t, 1, apps.hits[42], "applications cached at 4m")

	clock.Advance(2 * time.Minute)
	recommend()
	assert.Equal(t, int32(1), students.findOnes.Load(), "profile cached at 6m")
	assert.Equal(t, 2, apps.hits[42], "applications reloaded after 5m")

	clock.Advance(5*time.Minute + time.Second)
	recommend()
	assert.Equal(t, int32(2), students.findOnes.Load(), "profile reloaded after 10m")
	assert.Equal(t, 3, apps.hits[42])
}

func TestRecommendJobsWithWeights(t *testing.T) {
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{frontendStudent()}}, &fakeApps{}, nil)
	ctx := context.Background()

	onlySkills := WeightOverrides{"categories": 0, "skills": 1, "levels": 0, "employment_types": 0, "text": 0, "location": 0}
	got, err := m.RecommendJobsWithWeights(ctx, 42, onlySkills, 10)
	require.NoError(t, err)
	require.NotEmpty(t, got.Jobs)
	assert.Equal(t, 4, got.Jobs[0].ID)
	assert.InDelta(t, 0.5, got.Jobs[0].RecommendationScore, 1e-4, "react vs {react,node.js} is 1/2")

	empty := engine.StudentRecord{UserID: 9}
	m = newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{empty}}, &fakeApps{}, nil)
	got, err = m.RecommendJobsWithWeights(ctx, 9, onlySkills, 10)
	require.NoError(t, err)
	assert.True(t, got.Fallback)
}

func TestRecommendJobsWithTopCV(t *testing.T) {
	external := engine.JobRecord{ID: 1, ExternalID: "tcv-1", Title: "Frontend Developer (React)", Skills: refs("React")}
	feed := &fakeFeed{jobs: []engine.JobRecord{external}}
	apps := &fakeApps{apps: []engine.ApplicationRecord{{UserID: 42, JobID: 1}}}
	student := frontendStudent()
	student.Location = ptr(79)
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{student}}, apps, feed)

	got, err := m.RecommendJobsWithTopCV(context.Background(), 42, 10)
	require.NoError(t, err)

	var sawExternal bool
	for _, j := range got.Jobs {
		if j.ID == 1 {
			assert.Equal(t, engine.SourceTopCV, j.Source, "internal job 1 was applied to and must be excluded")
			sawExternal = true
		}
	}
	assert.True(t, sawExternal, "external job sharing an applied internal ID must be kept")

	require.Len(t, feed.queries, 1)
	assert.Equal(t, "Frontend Developer", feed.queries[0].Keyword)
	assert.Equal(t, 79, feed.queries[0].Location)
	assert.Positive(t, feed.queries[0].MaxPages)
}

func TestRecommendJobsWithTopCVEmptyFeed(t *testing.T) {
	m := newTestMatcher(frontendPool(), &fakeStudents{students: []engine.StudentRecord{frontendStudent()}}, &fakeApps{}, &fakeFeed{})
	got, err := m.RecommendJobsWithTopCV(context.Background(), 42, 10)
	require.NoError(t, err)
	assert.Len(t, got.Jobs, 4)
}

func TestSimilarJobs(t *testing.T) {
	m := newTestMatcher(frontendPool(), &fakeStudents{}, &fakeApps{}, nil)
	ctx := context.Background()

	got, err := m.SimilarJobs(ctx, 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, j := range got {
		assert.NotEqual(t, 1, j.ID, "target job must be excluded")
		assert.Len(t, j.Breakdown, 7)
	}
	assert.Equal(t, 4, got[0].ID, "React Intern is closest to Frontend Developer")

	got, err = m.SimilarJobs(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSimilarJobsNotFound(t *testing.T) {
	m := newTestMatcher(frontendPool(), &fakeStudents{}, &fakeApps{}, nil)
	_, err := m.SimilarJobs(context.Background(), 999, 10)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMatchingStudents(t *testing.T) {
	students := &fakeStudents{students: []engine.StudentRecord{
		{UserID: 1, Skills: []string{"Excel"}, DesiredPositions: []string{"Accountant"}},
		frontendStudent(),
		{UserID: 3, Skills: []string{"React", "TypeScript"}, DesiredPositions: []string{"Frontend Developer"}},
	}}
	apps := &fakeApps{}
	m := newTestMatcher(frontendPool(), students, apps, nil)

	got, err := m.MatchingStudents(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].UserID)
	assert.Equal(t, 42, got[1].UserID)
	assert.GreaterOrEqual(t, got[0].MatchScore, got[1].MatchScore)

	for _, id := range []int{1, 42, 3} {
		assert.Equal(t, 1, apps.hits[id], "applications loaded once per student")
	}
}

func TestMatchingStudentsNotFound(t *testing.T) {
	m := newTestMatcher(frontendPool(), &fakeStudents{}, &fakeApps{}, nil)
	_, err := m.MatchingStudents(context.Background(), 999, 10)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMatchingStudentsPagesThroughAllStudents(t *testing.T) {
	students := &fakeStudents{students: []engine.StudentRecord{
		{UserID: 1, Skills: []string{"Excel"}, DesiredPositions: []string{"Accountant"}},
		{UserID: 2, Skills: []string{"Go"}, DesiredPositions: []string{"Backend Developer"}},
		frontendStudent(),
		{UserID: 3, Skills: []string{"React", "TypeScript"}, DesiredPositions: []string{"Frontend Developer"}},
		{UserID: 5, Skills: []string{"Excel"}},
	}}
	m := NewMatcher(Deps{
		Jobs:         frontendPool(),
		Students:     students,
		Applications: &fakeApps{},
		Extractor:    NewExtractor(nil, WithNow(func() time.Time { return testNow })),
		Cache:        engine.NewCache(engine.WithClock(func() time.Time { return testNow })),
	}, Options{StudentPoolSize: 2, FanOutLimit: 4})
	ctx := context.Background()

	got, err := m.MatchingStudents(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.Equal(t, 3, got[0].UserID)
	// pages of 2, 2 and 1
	assert.Equal(t, int32(3), students.findAlls.Load())

	_, err = m.MatchingStudents(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int32(3), students.findAlls.Load(), "pool served from cache")
}
