package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

// sqliteTime is fixed-width so text order matches time order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS match_jobs (
	id         INTEGER PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'open',
	level_ids  TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_jobs_status_created ON match_jobs (status, created_at DESC);

CREATE TABLE IF NOT EXISTS match_students (
	user_id INTEGER PRIMARY KEY,
	doc     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS match_applications (
	id         INTEGER PRIMARY KEY,
	user_id    INTEGER NOT NULL,
	job_id     INTEGER NOT NULL,
	created_at TEXT NOT NULL,
	doc        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_applications_user ON match_applications (user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_match_applications_job ON match_applications (job_id);

CREATE TABLE IF NOT EXISTS match_skills (
	id   INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);`

// SQLite is a file or in-memory read-model for local runs and tests.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite: single writer
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: init schema: %w", err)
	}
	slog.Info("store: sqlite opened", slog.String("path", path))
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Repos returns the readers backed by this database.
func (s *SQLite) Repos() Repos {
	return Repos{
		Jobs:         sqliteJobs{s.db},
		Students:     sqliteStudents{s.db},
		Applications: sqliteApplications{s.db},
		Skills:       sqliteSkills{s.db},
	}
}

// Seed upserts a dataset in one transaction.
func (s *SQLite) Seed(ctx context.Context, d Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, j := range d.Jobs {
		row, err := toJobRow(j)
		if err != nil {
			return err
		}
		levels, _ := json.Marshal(row.levelIDs)
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO match_jobs (id, status, level_ids, created_at, doc) VALUES (?, ?, ?, ?, ?)`,
			j.ID, row.status, string(levels), row.createdAt.UTC().Format(sqliteTime), string(row.doc)); err != nil {
			return fmt.Errorf("seed job %d: %w", j.ID, err)
		}
	}
	for _, st := range d.Students {
		doc, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("encode student %d: %w", st.UserID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO match_students (user_id, doc) VALUES (?, ?)`, st.UserID, string(doc)); err != nil {
			return fmt.Errorf("seed student %d: %w", st.UserID, err)
		}
	}
	for _, a := range d.Applications {
		a, doc, err := applicationDoc(a)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO match_applications (id, user_id, job_id, created_at, doc) VALUES (?, ?, ?, ?, ?)`,
			a.ID, a.UserID, a.JobID, a.CreatedAt.UTC().Format(sqliteTime), string(doc)); err != nil {
			return fmt.Errorf("seed application %d: %w", a.ID, err)
		}
	}
	for _, sk := range d.Skills {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO match_skills (id, name) VALUES (?, ?)`, sk.ID, sk.Name); err != nil {
			return fmt.Errorf("seed skill %d: %w", sk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	slog.Info("store: seeded",
		slog.Int("jobs", len(d.Jobs)),
		slog.Int("students", len(d.Students)),
		slog.Int("applications", len(d.Applications)),
		slog.Int("skills", len(d.Skills)))
	return nil
}

// --- readers ---

type sqliteJobs struct{ db *sql.DB }

const sqliteJobWhere = `WHERE (?1 = '' OR status = ?1)
	AND (?2 = 0 OR EXISTS (
		SELECT 1 FROM json_each(match_jobs.level_ids) l
		WHERE l.value IN (SELECT value FROM json_each(?3))))`

func (r sqliteJobs) FindAll(ctx context.Context, f engine.JobFilter) (engine.JobPage, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	levels := f.LevelIDs
	if levels == nil {
		levels = []int{}
	}
	levelsJSON, _ := json.Marshal(levels)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM match_jobs `+sqliteJobWhere,
		f.Status, len(levels), string(levelsJSON)).Scan(&total); err != nil {
		return engine.JobPage{}, fmt.Errorf("count jobs: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT doc FROM match_jobs `+sqliteJobWhere+` ORDER BY created_at DESC, id DESC LIMIT ?4 OFFSET ?5`,
		f.Status, len(levels), string(levelsJSON), limit, f.Offset)
	if err != nil {
		return engine.JobPage{}, fmt.Errorf("query jobs: %w", err)
	}
	jobs, err := scanDocs[engine.JobRecord](rows, "job")
	if err != nil {
		return engine.JobPage{}, err
	}
	return engine.JobPage{
		Data:       jobs,
		Pagination: engine.Pagination{Total: total, Limit: limit, Offset: f.Offset},
	}, nil
}

func (r sqliteJobs) FindOne(ctx context.Context, id int) (*engine.JobRecord, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT doc FROM match_jobs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	j, err := decodeDoc[engine.JobRecord]([]byte(doc), "job")
	if err != nil {
		return nil, err
	}
	return &j, nil
}

type sqliteStudents struct{ db *sql.DB }

func (r sqliteStudents) FindOne(ctx context.Context, userID int) (*engine.StudentRecord, error) {
	var doc string
	err := r.db.QueryRowContext(ctx, `SELECT doc FROM match_students WHERE user_id = ?`, userID).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student %d: %w", userID, err)
	}
	st, err := decodeDoc[engine.StudentRecord]([]byte(doc), "student")
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r sqliteStudents) FindAll(ctx context.Context, f engine.StudentFilter) ([]engine.StudentRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT doc FROM match_students ORDER BY user_id LIMIT ? OFFSET ?`, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	return scanDocs[engine.StudentRecord](rows, "student")
}

type sqliteApplications struct{ db *sql.DB }

func (r sqliteApplications) FindAll(ctx context.Context, f engine.ApplicationFilter) ([]engine.ApplicationRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.doc, j.doc
		   FROM match_applications a
		   LEFT JOIN match_jobs j ON j.id = a.job_id
		  WHERE (?1 = 0 OR a.user_id = ?1) AND (?2 = 0 OR a.job_id = ?2)
		  ORDER BY a.created_at DESC, a.id DESC
		  LIMIT ?3`,
		f.UserID, f.JobID, limit)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var out []engine.ApplicationRecord
	for rows.Next() {
		var appDoc string
		var jobDoc sql.NullString
		if err := rows.Scan(&appDoc, &jobDoc); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		a, err := decodeApplication([]byte(appDoc), []byte(jobDoc.String))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type sqliteSkills struct{ db *sql.DB }

func (r sqliteSkills) ListSkills(ctx context.Context) ([]engine.SkillRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM match_skills ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	defer rows.Close()

	var out []engine.SkillRecord
	for rows.Next() {
		var sk engine.SkillRecord
		if err := rows.Scan(&sk.ID, &sk.Name); err != nil {
			return nil, fmt.Errorf("scan skill: %w", err)
		}
		out = append(out, sk)
	}
	return out, rows.Err()
}

func scanDocs[T any](rows *sql.Rows, what string) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		v, err := decodeDoc[T]([]byte(doc), what)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
