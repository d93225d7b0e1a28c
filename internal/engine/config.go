package engine

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds all engine configuration, injected from main.
type Config struct {
	StoreDriver string // "postgres" or "sqlite"
	DatabaseURL string
	SQLitePath  string
	SeedFile    string // JSON fixture loaded into the sqlite store at startup

	RedisURL             string
	CacheMaxEntries      int
	CacheCleanupInterval time.Duration

	JobPoolSize     int     // open jobs loaded per scoring pass
	StudentPoolSize int     // students loaded per reverse lookup
	FanOutLimit     int     // concurrent extraction/scoring goroutines
	SalaryCeiling   float64 // salary normalization ceiling

	TopCVAPIURL   string
	TopCVAPIKey   string
	TopCVMaxPages int
	TopCVPerPage  int
	TopCVTimeout  time.Duration
	TopCVRPS      float64

	HTTPClient *http.Client
}

// Defaults applied by Validate to zero-valued fields.
const (
	DefaultJobPoolSize     = 500
	DefaultStudentPoolSize = 1000
	DefaultFanOutLimit     = 16
	DefaultSalaryCeiling   = 100_000_000
	DefaultTopCVMaxPages   = 3
	DefaultTopCVPerPage    = 50
	DefaultTopCVTimeout    = 8 * time.Second
)

// Validate fills defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "":
		c.StoreDriver = "postgres"
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.StoreDriver == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required for the postgres store")
	}
	if c.StoreDriver == "sqlite" && c.SQLitePath == "" {
		c.SQLitePath = "file::memory:?cache=shared"
	}
	if c.JobPoolSize <= 0 {
		c.JobPoolSize = DefaultJobPoolSize
	}
	if c.StudentPoolSize <= 0 {
		c.StudentPoolSize = DefaultStudentPoolSize
	}
	if c.FanOutLimit <= 0 {
		c.FanOutLimit = DefaultFanOutLimit
	}
	if c.SalaryCeiling <= 0 {
		c.SalaryCeiling = DefaultSalaryCeiling
	}
	if c.TopCVMaxPages <= 0 {
		c.TopCVMaxPages = DefaultTopCVMaxPages
	}
	if c.TopCVPerPage <= 0 {
		c.TopCVPerPage = DefaultTopCVPerPage
	}
	if c.TopCVTimeout <= 0 {
		c.TopCVTimeout = DefaultTopCVTimeout
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.TopCVTimeout}
	}
	return nil
}
