package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Postgres holds the pgx connection pool for the read-model tables.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres creates a pgx pool and runs schema migrations.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := &Postgres{pool: pool}
	if err := db.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("store: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return db, nil
}

// Close releases the pool.
func (db *Postgres) Close() error {
	db.pool.Close()
	return nil
}

func (db *Postgres) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := db.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Info("store: migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

// Repos returns the readers backed by this pool.
func (db *Postgres) Repos() Repos {
	return Repos{
		Jobs:         pgJobs{db.pool},
		Students:     pgStudents{db.pool},
		Applications: pgApplications{db.pool},
		Skills:       pgSkills{db.pool},
	}
}

// Seed upserts a dataset in one transaction.
func (db *Postgres) Seed(ctx context.Context, d Dataset) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, j := range d.Jobs {
		row, err := toJobRow(j)
		if err != nil {
			return err
		}
		batch.Queue(`INSERT INTO match_jobs (id, status, level_ids, created_at, doc)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, level_ids = EXCLUDED.level_ids,
				created_at = EXCLUDED.created_at, doc = EXCLUDED.doc`,
			j.ID, row.status, row.levelIDs, row.createdAt, row.doc)
	}
	for _, s := range d.Students {
		batch.Queue(`INSERT INTO match_students (user_id, doc) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET doc = EXCLUDED.doc`, s.UserID, s)
	}
	for _, a := range d.Applications {
		a, doc, err := applicationDoc(a)
		if err != nil {
			return err
		}
		batch.Queue(`INSERT INTO match_applications (id, user_id, job_id, created_at, doc)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET user_id = EXCLUDED.user_id, job_id = EXCLUDED.job_id,
				created_at = EXCLUDED.created_at, doc = EXCLUDED.doc`,
			a.ID, a.UserID, a.JobID, a.CreatedAt, doc)
	}
	for _, s := range d.Skills {
		batch.Queue(`INSERT INTO match_skills (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, s.ID, s.Name)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
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

type pgJobs struct{ pool *pgxpool.Pool }

func (r pgJobs) FindAll(ctx context.Context, f engine.JobFilter) (engine.JobPage, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	levels := f.LevelIDs
	if levels == nil {
		levels = []int{}
	}

	const where = `WHERE ($1 = '' OR status = $1) AND (cardinality($2::int[]) = 0 OR level_ids && $2::int[])`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM match_jobs `+where, f.Status, levels).Scan(&total); err != nil {
		return engine.JobPage{}, fmt.Errorf("count jobs: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT doc FROM match_jobs `+where+` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`,
		f.Status, levels, limit, f.Offset)
	if err != nil {
		return engine.JobPage{}, fmt.Errorf("query jobs: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return engine.JobPage{}, fmt.Errorf("scan jobs: %w", err)
	}

	page := engine.JobPage{
		Data:       make([]engine.JobRecord, 0, len(docs)),
		Pagination: engine.Pagination{Total: total, Limit: limit, Offset: f.Offset},
	}
	for _, doc := range docs {
		j, err := decodeDoc[engine.JobRecord](doc, "job")
		if err != nil {
			return engine.JobPage{}, err
		}
		page.Data = append(page.Data, j)
	}
	return page, nil
}

func (r pgJobs) FindOne(ctx context.Context, id int) (*engine.JobRecord, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM match_jobs WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	j, err := decodeDoc[engine.JobRecord](doc, "job")
	if err != nil {
		return nil, err
	}
	return &j, nil
}

type pgStudents struct{ pool *pgxpool.Pool }

func (r pgStudents) FindOne(ctx context.Context, userID int) (*engine.StudentRecord, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx, `SELECT doc FROM match_students WHERE user_id = $1`, userID).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get student %d: %w", userID, err)
	}
	s, err := decodeDoc[engine.StudentRecord](doc, "student")
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r pgStudents) FindAll(ctx context.Context, f engine.StudentFilter) ([]engine.StudentRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	rows, err := r.pool.Query(ctx,
		`SELECT doc FROM match_students ORDER BY user_id LIMIT $1 OFFSET $2`, limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("scan students: %w", err)
	}
	out := make([]engine.StudentRecord, 0, len(docs))
	for _, doc := range docs {
		s, err := decodeDoc[engine.StudentRecord](doc, "student")
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

type pgApplications struct{ pool *pgxpool.Pool }

func (r pgApplications) FindAll(ctx context.Context, f engine.ApplicationFilter) ([]engine.ApplicationRecord, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	rows, err := r.pool.Query(ctx,
		`SELECT a.doc, j.doc
		   FROM match_applications a
		   LEFT JOIN match_jobs j ON j.id = a.job_id
		  WHERE ($1 = 0 OR a.user_id = $1) AND ($2 = 0 OR a.job_id = $2)
		  ORDER BY a.created_at DESC, a.id DESC
		  LIMIT $3`,
		f.UserID, f.JobID, limit)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", err)
	}
	defer rows.Close()

	var out []engine.ApplicationRecord
	for rows.Next() {
		var appDoc, jobDoc []byte
		if err := rows.Scan(&appDoc, &jobDoc); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		a, err := decodeApplication(appDoc, jobDoc)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type pgSkills struct{ pool *pgxpool.Pool }

func (r pgSkills) ListSkills(ctx context.Context) ([]engine.SkillRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM match_skills ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[engine.SkillRecord])
	if err != nil {
		return nil, fmt.Errorf("scan skills: %w", err)
	}
	return out, nil
}
