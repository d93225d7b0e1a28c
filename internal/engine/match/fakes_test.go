package match

import (
	"context"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

var testNow = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

type fakeJobs struct {
	jobs     []engine.JobRecord
	err      error
	findAlls atomic.Int32
}

func (f *fakeJobs) FindAll(_ context.Context, filter engine.JobFilter) (engine.JobPage, error) {
	f.findAlls.Add(1)
	if f.err != nil {
		return engine.JobPage{}, f.err
	}
	var out []engine.JobRecord
	for _, j := range f.jobs {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if len(filter.LevelIDs) > 0 && !slices.ContainsFunc(j.Levels.IDs(), func(id int) bool {
			return slices.Contains(filter.LevelIDs, id)
		}) {
			continue
		}
		out = append(out, j)
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	total := len(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return engine.JobPage{Data: out, Pagination: engine.Pagination{Total: total, Limit: filter.Limit}}, nil
}

func (f *fakeJobs) FindOne(_ context.Context, id int) (*engine.JobRecord, error) {
	for _, j := range f.jobs {
		if j.ID == id {
			return &j, nil
		}
	}
	return nil, nil
}

type fakeStudents struct {
	students []engine.StudentRecord
	findOnes atomic.Int32
	findAlls atomic.Int32
}

func (f *fakeStudents) FindOne(_ context.Context, userID int) (*engine.StudentRecord, error) {
	f.findOnes.Add(1)
	for _, s := range f.students {
		if s.UserID == userID {
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeStudents) FindAll(_ context.Context, filter engine.StudentFilter) ([]engine.StudentRecord, error) {
	f.findAlls.Add(1)
	out := slices.Clone(f.students)
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type fakeApps struct {
	mu   sync.Mutex
	apps []engine.ApplicationRecord
	err  error
	hits map[int]int
}

func (f *fakeApps) FindAll(_ context.Context, filter engine.ApplicationFilter) ([]engine.ApplicationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hits == nil {
		f.hits = make(map[int]int)
	}
	f.hits[filter.UserID]++
	if f.err != nil {
		return nil, f.err
	}
	var out []engine.ApplicationRecord
	for _, a := range f.apps {
		if filter.UserID != 0 && a.UserID != filter.UserID {
			continue
		}
		if filter.JobID != 0 && a.AppliedJobID() != filter.JobID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

type fakeFeed struct {
	jobs    []engine.JobRecord
	queries []engine.FeedQuery
}

func (f *fakeFeed) FetchJobs(_ context.Context, q engine.FeedQuery) []engine.JobRecord {
	f.queries = append(f.queries, q)
	return slices.Clone(f.jobs)
}

type fakeSkills struct {
	names []string
	err   error
	calls atomic.Int32
}

func (f *fakeSkills) ListSkills(context.Context) ([]engine.SkillRecord, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]engine.SkillRecord, len(f.names))
	for i, n := range f.names {
		out[i] = engine.SkillRecord{ID: i + 1, Name: n}
	}
	return out, nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func ptr[T any](v T) *T { return &v }

func refs(names ...string) engine.RefList {
	out := make(engine.RefList, len(names))
	for i, n := range names {
		out[i] = engine.Ref{ID: i + 100, Name: n}
	}
	return out
}

func ids(ids ...int) engine.RefList {
	out := make(engine.RefList, len(ids))
	for i, id := range ids {
		out[i] = engine.Ref{ID: id}
	}
	return out
}

func openJob(id int, title string, age time.Duration) engine.JobRecord {
	return engine.JobRecord{
		ID:        id,
		Title:     title,
		Status:    engine.JobStatusOpen,
		CreatedAt: testNow.Add(-age),
	}
}

func newTestMatcher(jobs *fakeJobs, students *fakeStudents, apps *fakeApps, feed JobFeed) *Matcher {
	cache := engine.NewCache(engine.WithClock(func() time.Time { return testNow }))
	ext := NewExtractor(nil, WithNow(func() time.Time { return testNow }))
	return NewMatcher(Deps{
		Jobs:         jobs,
		Students:     students,
		Applications: apps,
		Feed:         feed,
		Extractor:    ext,
		Cache:        cache,
	}, Options{FanOutLimit: 4})
}
