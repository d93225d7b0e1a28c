// go_jobmatch: job recommendation and candidate matching MCP server.
//
// Exposes five MCP tools: recommend_jobs, recommend_jobs_weighted,
// recommend_jobs_topcv, similar_jobs, matching_students.
// Runs as HTTP MCP server or stdio transport.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/anatolykoptev/go-mcpserver"
	"github.com/anatolykoptev/go_jobmatch/internal/engine"
	"github.com/anatolykoptev/go_jobmatch/internal/engine/jobs"
	"github.com/anatolykoptev/go_jobmatch/internal/engine/match"
	"github.com/anatolykoptev/go_jobmatch/internal/engine/store"
	"github.com/anatolykoptev/go_jobmatch/internal/jobserver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var (
	version = "dev"
	mcpPort = env.Str("MCP_PORT", "8892")
)

func main() {
	ctx := context.Background()

	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("error", err))
		os.Exit(1)
	}

	cache := initCache(ctx, cfg)
	defer cache.Close()

	db, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("store init failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if cfg.SeedFile != "" {
		if err := seed(ctx, db, cfg.SeedFile); err != nil {
			slog.Warn("seed failed", slog.String("file", cfg.SeedFile), slog.Any("error", err))
		}
	}
	repos := db.Repos()

	vocab := match.NewVocabulary(repos.Skills, cache, env.Duration("VOCABULARY_TTL", match.DefaultVocabularyTTL))
	vocab.Start(ctx)
	defer vocab.Close()

	var feed match.JobFeed
	if cfg.TopCVAPIURL != "" {
		feed = jobs.NewTopCVClient(jobs.TopCVConfig{
			APIURL:     cfg.TopCVAPIURL,
			APIKey:     cfg.TopCVAPIKey,
			PerPage:    cfg.TopCVPerPage,
			MaxPages:   cfg.TopCVMaxPages,
			Timeout:    cfg.TopCVTimeout,
			RPS:        cfg.TopCVRPS,
			HTTPClient: cfg.HTTPClient,
			Cache:      cache,
		})
		slog.Info("topcv feed enabled", slog.String("url", cfg.TopCVAPIURL))
	}

	matcher := match.NewMatcher(match.Deps{
		Jobs:         repos.Jobs,
		Students:     repos.Students,
		Applications: repos.Applications,
		Feed:         feed,
		Extractor:    match.NewExtractor(vocab, match.WithSalaryCeiling(cfg.SalaryCeiling)),
		Cache:        cache,
	}, match.Options{
		JobPoolSize:     cfg.JobPoolSize,
		StudentPoolSize: cfg.StudentPoolSize,
		FanOutLimit:     cfg.FanOutLimit,
		FeedMaxPages:    cfg.TopCVMaxPages,
	})

	slog.Info("starting go_jobmatch",
		slog.String("port", mcpPort),
		slog.String("store", cfg.StoreDriver),
	)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "go_jobmatch",
		Version: version,
	}, nil)

	jobserver.RegisterTools(server, matcher)
	slog.Info("tools registered", slog.Int("count", jobserver.ToolCount))

	if err := mcpserver.Run(server, mcpserver.Config{
		Name:         "go_jobmatch",
		Version:      version,
		Port:         mcpPort,
		WriteTimeout: 120 * time.Second,
		Metrics:      func() string { return engine.FormatMetrics(cache) },
	}); err != nil {
		slog.Error("server failed", slog.Any("error", err))
	}
}

func loadConfig() engine.Config {
	return engine.Config{
		StoreDriver:          env.Str("STORE_DRIVER", "postgres"),
		DatabaseURL:          env.Str("DATABASE_URL", ""),
		SQLitePath:           env.Str("SQLITE_PATH", ""),
		SeedFile:             env.Str("SEED_FILE", ""),
		RedisURL:             env.Str("REDIS_URL", ""),
		CacheMaxEntries:      env.Int("CACHE_MAX_ENTRIES", 5000),
		CacheCleanupInterval: env.Duration("CACHE_CLEANUP_INTERVAL", 300*time.Second),
		JobPoolSize:          env.Int("JOB_POOL_SIZE", engine.DefaultJobPoolSize),
		StudentPoolSize:      env.Int("STUDENT_POOL_SIZE", engine.DefaultStudentPoolSize),
		FanOutLimit:          env.Int("FANOUT_LIMIT", engine.DefaultFanOutLimit),
		SalaryCeiling:        env.Float("SALARY_CEILING", engine.DefaultSalaryCeiling),
		TopCVAPIURL:          env.Str("TOPCV_API_URL", ""),
		TopCVAPIKey:          env.Str("TOPCV_API_KEY", ""),
		TopCVMaxPages:        env.Int("TOPCV_MAX_PAGES", engine.DefaultTopCVMaxPages),
		TopCVPerPage:         env.Int("TOPCV_PER_PAGE", engine.DefaultTopCVPerPage),
		TopCVTimeout:         env.Duration("TOPCV_TIMEOUT", engine.DefaultTopCVTimeout),
		TopCVRPS:             env.Float("TOPCV_RPS", 2),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     60 * time.Second,
			},
		},
	}
}

func initCache(ctx context.Context, cfg engine.Config) *engine.Cache {
	opts := []engine.CacheOption{engine.WithMaxEntries(cfg.CacheMaxEntries)}
	if cfg.RedisURL != "" {
		rdb, err := engine.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, running L1 only", slog.Any("error", err))
		} else {
			opts = append(opts, engine.WithRedis(rdb))
		}
	}
	cache := engine.NewCache(opts...)
	cache.StartCleanup(cfg.CacheCleanupInterval)
	return cache
}

func seed(ctx context.Context, db store.Store, path string) error {
	d, err := store.LoadDataset(path)
	if err != nil {
		return err
	}
	return db.Seed(ctx, d)
}
