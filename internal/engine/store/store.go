// Package store provides read-models for jobs, students, applications and
// skills backed by Postgres or SQLite.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

// JobReader reads job postings.
type JobReader interface {
	FindAll(ctx context.Context, f engine.JobFilter) (engine.JobPage, error)
	FindOne(ctx context.Context, id int) (*engine.JobRecord, error)
}

// StudentReader reads student profiles.
type StudentReader interface {
	FindOne(ctx context.Context, userID int) (*engine.StudentRecord, error)
	FindAll(ctx context.Context, f engine.StudentFilter) ([]engine.StudentRecord, error)
}

// ApplicationReader reads applications with their joined job.
type ApplicationReader interface {
	FindAll(ctx context.Context, f engine.ApplicationFilter) ([]engine.ApplicationRecord, error)
}

// SkillReader lists the skill catalogue.
type SkillReader interface {
	ListSkills(ctx context.Context) ([]engine.SkillRecord, error)
}

// Repos is the set of readers exposed by a store.
type Repos struct {
	Jobs         JobReader
	Students     StudentReader
	Applications ApplicationReader
	Skills       SkillReader
}

// Store is a backend that can be seeded and closed.
type Store interface {
	Repos() Repos
	Seed(ctx context.Context, d Dataset) error
	Close() error
}

// Dataset is the seed file layout.
type Dataset struct {
	Jobs         []engine.JobRecord         `json:"jobs"`
	Students     []engine.StudentRecord     `json:"students"`
	Applications []engine.ApplicationRecord `json:"applications"`
	Skills       []engine.SkillRecord       `json:"skills"`
}

// LoadDataset reads a JSON seed file.
func LoadDataset(path string) (Dataset, error) {
	var d Dataset
	data, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("read seed file: %w", err)
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return d, nil
}

// Open connects to the configured backend and applies its schema.
func Open(ctx context.Context, cfg engine.Config) (Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		db, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return db, nil
	case "postgres", "":
		db, err := ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// jobRow holds the denormalized filter columns of a job document.
type jobRow struct {
	status    string
	levelIDs  []int
	createdAt time.Time
	doc       []byte
}

func toJobRow(j engine.JobRecord) (jobRow, error) {
	doc, err := json.Marshal(j)
	if err != nil {
		return jobRow{}, fmt.Errorf("encode job %d: %w", j.ID, err)
	}
	status := j.Status
	if status == "" {
		status = engine.JobStatusOpen
	}
	created := j.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return jobRow{status: status, levelIDs: j.Levels.IDs(), createdAt: created, doc: doc}, nil
}

// applicationDoc strips the joined job, which is re-joined on read.
func applicationDoc(a engine.ApplicationRecord) (engine.ApplicationRecord, []byte, error) {
	a.JobID = a.AppliedJobID()
	a.Job = nil
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	doc, err := json.Marshal(a)
	if err != nil {
		return a, nil, fmt.Errorf("encode application %d: %w", a.ID, err)
	}
	return a, doc, nil
}

func decodeApplication(appDoc, jobDoc []byte) (engine.ApplicationRecord, error) {
	var a engine.ApplicationRecord
	if err := json.Unmarshal(appDoc, &a); err != nil {
		return a, fmt.Errorf("decode application: %w", err)
	}
	if len(jobDoc) > 0 {
		var j engine.JobRecord
		if err := json.Unmarshal(jobDoc, &j); err != nil {
			return a, fmt.Errorf("decode application %d job: %w", a.ID, err)
		}
		a.Job = &j
	}
	return a, nil
}

func decodeDoc[T any](doc []byte, what string) (T, error) {
	var v T
	if err := json.Unmarshal(doc, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", what, err)
	}
	return v, nil
}

const defaultPageLimit = 100
