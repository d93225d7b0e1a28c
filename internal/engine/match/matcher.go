package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

// Sentinel errors returned by Matcher operations.
var (
	ErrStudentNotFound = errors.New("student not found")
	ErrJobNotFound     = errors.New("job not found")

	errNoSkillLister = errors.New("no skill lister configured")
)

// Cache TTLs per call type.
const (
	jobPoolTTL      = 24 * time.Hour
	jobDetailTTL    = 24 * time.Hour
	studentTTL      = 10 * time.Minute
	studentPoolTTL  = 10 * time.Minute
	applicationsTTL = 5 * time.Minute

	recentApplicationsLimit = 100
	defaultLimit            = 10
)

// JobRepository reads job postings.
type JobRepository interface {
	// FindAll returns matching jobs, newest first.
	FindAll(ctx context.Context, f engine.JobFilter) (engine.JobPage, error)
	// FindOne returns nil, nil when the job does not exist.
	FindOne(ctx context.Context, id int) (*engine.JobRecord, error)
}

// StudentRepository reads student profiles.
type StudentRepository interface {
	// FindOne returns nil, nil when the profile does not exist.
	FindOne(ctx context.Context, userID int) (*engine.StudentRecord, error)
	FindAll(ctx context.Context, f engine.StudentFilter) ([]engine.StudentRecord, error)
}

// ApplicationRepository reads applications with their joined jobs.
type ApplicationRepository interface {
	FindAll(ctx context.Context, f engine.ApplicationFilter) ([]engine.ApplicationRecord, error)
}

// JobFeed fetches jobs from an external board. Implementations never fail:
// errors are logged and yield no jobs.
type JobFeed interface {
	FetchJobs(ctx context.Context, q engine.FeedQuery) []engine.JobRecord
}

// Deps are the collaborators of a Matcher. Feed may be nil.
type Deps struct {
	Jobs         JobRepository
	Students     StudentRepository
	Applications ApplicationRepository
	Feed         JobFeed
	Extractor    *Extractor
	Cache        *engine.Cache
}

// Options bound the work of a Matcher. Zero values use engine defaults.
type Options struct {
	JobPoolSize     int
	StudentPoolSize int
	FanOutLimit     int
	FeedMaxPages    int
}

// Matcher ranks jobs for students, jobs for jobs and students for jobs.
// It holds no per-call state; pools are re-read from cache or source on every call.
type Matcher struct {
	jobs      JobRepository
	students  StudentRepository
	apps      ApplicationRepository
	feed      JobFeed
	extractor *Extractor
	cache     *engine.Cache

	jobPoolSize     int
	studentPoolSize int
	fanOut          int
	feedMaxPages    int
}

// NewMatcher creates a Matcher.
func NewMatcher(d Deps, o Options) *Matcher {
	if o.JobPoolSize <= 0 {
		o.JobPoolSize = engine.DefaultJobPoolSize
	}
	if o.StudentPoolSize <= 0 {
		o.StudentPoolSize = engine.DefaultStudentPoolSize
	}
	if o.FanOutLimit <= 0 {
		o.FanOutLimit = engine.DefaultFanOutLimit
	}
	if o.FeedMaxPages <= 0 {
		o.FeedMaxPages = engine.DefaultTopCVMaxPages
	}
	ext := d.Extractor
	if ext == nil {
		ext = NewExtractor(nil)
	}
	return &Matcher{
		jobs:            d.Jobs,
		students:        d.Students,
		apps:            d.Applications,
		feed:            d.Feed,
		extractor:       ext,
		cache:           d.Cache,
		jobPoolSize:     o.JobPoolSize,
		studentPoolSize: o.StudentPoolSize,
		fanOut:          o.FanOutLimit,
		feedMaxPages:    o.FeedMaxPages,
	}
}

// --- cached loaders ---

func (m *Matcher) loadStudent(ctx context.Context, userID int) (engine.StudentRecord, error) {
	key := engine.CacheKey("student_profile", userID)
	if st, ok := engine.LoadJSON[engine.StudentRecord](ctx, m.cache, key); ok {
		return st, nil
	}
	st, err := m.students.FindOne(ctx, userID)
	if err != nil {
		return engine.StudentRecord{}, fmt.Errorf("load student %d: %w", userID, err)
	}
	if st == nil {
		return engine.StudentRecord{}, fmt.Errorf("%w: %d", ErrStudentNotFound, userID)
	}
	engine.StoreJSON(ctx, m.cache, key, *st, studentTTL)
	return *st, nil
}

func (m *Matcher) loadApplications(ctx context.Context, userID int) ([]engine.ApplicationRecord, error) {
	f := engine.ApplicationFilter{UserID: userID, Limit: recentApplicationsLimit}
	apps, err := engine.Remember(ctx, m.cache, engine.CacheKey("applications", f), applicationsTTL,
		func(ctx context.Context) ([]engine.ApplicationRecord, error) {
			return m.apps.FindAll(ctx, f)
		})
	if err != nil {
		return nil, fmt.Errorf("load applications of %d: %w", userID, err)
	}
	return apps, nil
}

func (m *Matcher) loadJob(ctx context.Context, id int) (engine.JobRecord, error) {
	key := engine.CacheKey("job_detail", id)
	if job, ok := engine.LoadJSON[engine.JobRecord](ctx, m.cache, key); ok {
		return job, nil
	}
	job, err := m.jobs.FindOne(ctx, id)
	if err != nil {
		return engine.JobRecord{}, fmt.Errorf("load job %d: %w", id, err)
	}
	if job == nil {
		return engine.JobRecord{}, fmt.Errorf("%w: %d", ErrJobNotFound, id)
	}
	engine.StoreJSON(ctx, m.cache, key, *job, jobDetailTTL)
	return *job, nil
}

func (m *Matcher) loadJobs(ctx context.Context, f engine.JobFilter) ([]engine.JobRecord, error) {
	jobs, err := engine.Remember(ctx, m.cache, engine.CacheKey("job_pool", f), jobPoolTTL,
		func(ctx context.Context) ([]engine.JobRecord, error) {
			page, err := m.jobs.FindAll(ctx, f)
			if err != nil {
				return nil, err
			}
			return page.Data, nil
		})
	if err != nil {
		return nil, fmt.Errorf("load job pool: %w", err)
	}
	return jobs, nil
}

// loadJobPool returns the bounded pool of open jobs.
func (m *Matcher) loadJobPool(ctx context.Context) ([]engine.JobRecord, error) {
	return m.loadJobs(ctx, engine.JobFilter{Status: engine.JobStatusOpen, Limit: m.jobPoolSize})
}

// loadStudentPool pages through every student profile, studentPoolSize at a time.
func (m *Matcher) loadStudentPool(ctx context.Context) ([]engine.StudentRecord, error) {
	size := m.studentPoolSize
	students, err := engine.Remember(ctx, m.cache, engine.CacheKey("student_pool", size), studentPoolTTL,
		func(ctx context.Context) ([]engine.StudentRecord, error) {
			var all []engine.StudentRecord
			for offset := 0; ; offset += size {
				page, err := m.students.FindAll(ctx, engine.StudentFilter{Limit: size, Offset: offset})
				if err != nil {
					return nil, err
				}
				all = append(all, page...)
				if len(page) < size {
					return all, nil
				}
			}
		})
	if err != nil {
		return nil, fmt.Errorf("load student pool: %w", err)
	}
	return students, nil
}

func normLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	return limit
}

func logDone(op string, id, results int, start time.Time) {
	slog.Debug("match: "+op+" done",
		slog.Int("id", id),
		slog.Int("results", results),
		slog.Duration("elapsed", time.Since(start)))
}
