// Package jobs holds clients for external job boards.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/time/rate"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

const (
	topcvFeedTTL   = 24 * time.Hour
	topcvBodyLimit = 4 * 1024 * 1024
	userAgent      = "go_jobmatch/1.0 (+job recommendations)"
)

// TopCVConfig configures a TopCVClient. Zero values use engine defaults.
type TopCVConfig struct {
	APIURL     string
	APIKey     string
	PerPage    int
	MaxPages   int
	Timeout    time.Duration
	RPS        float64
	HTTPClient *http.Client
	Cache      *engine.Cache
}

// TopCVClient reads job listings from the TopCV partner API.
// It never returns errors: failures are logged and yield no jobs.
type TopCVClient struct {
	cfg     TopCVConfig
	limiter *rate.Limiter
}

// NewTopCVClient creates a client. An empty APIURL disables the feed.
func NewTopCVClient(cfg TopCVConfig) *TopCVClient {
	if cfg.PerPage <= 0 {
		cfg.PerPage = engine.DefaultTopCVPerPage
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = engine.DefaultTopCVMaxPages
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = engine.DefaultTopCVTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	return &TopCVClient{cfg: cfg, limiter: rate.NewLimiter(limit, 1)}
}

// FetchJobs returns up to q.MaxPages pages of listings matching q.
// Results are cached per query for a day.
func (c *TopCVClient) FetchJobs(ctx context.Context, q engine.FeedQuery) []engine.JobRecord {
	if c == nil || c.cfg.APIURL == "" {
		return nil
	}
	pages := q.MaxPages
	if pages <= 0 || pages > c.cfg.MaxPages {
		pages = c.cfg.MaxPages
	}

	key := engine.CacheKey("topcv_jobs", q.Keyword, q.Location, pages, c.cfg.PerPage)
	if jobs, ok := engine.LoadJSON[[]engine.JobRecord](ctx, c.cfg.Cache, key); ok {
		slog.Debug("topcv: cache hit", slog.String("keyword", q.Keyword), slog.Int("jobs", len(jobs)))
		return jobs
	}

	var all []engine.JobRecord
	for page := 1; page <= pages; page++ {
		items, err := c.fetchPage(ctx, q, page)
		if err != nil {
			engine.IncrTopCVErrors()
			slog.Warn("topcv: fetch failed",
				slog.String("keyword", q.Keyword),
				slog.Int("location", q.Location),
				slog.Int("page", page),
				slog.Any("error", err))
			return nil
		}
		for _, it := range items {
			if job, ok := it.toRecord(); ok {
				all = append(all, job)
			}
		}
		if len(items) < c.cfg.PerPage {
			break
		}
	}

	engine.StoreJSON(ctx, c.cfg.Cache, key, all, topcvFeedTTL)
	slog.Debug("topcv: fetch complete", slog.String("keyword", q.Keyword), slog.Int("jobs", len(all)))
	return all
}

// errUnknownShape is returned for a well-formed payload in no recognized layout.
var errUnknownShape = errors.New("topcv: unrecognized payload shape")

// statusError carries the HTTP status of a failed page request.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("topcv returned status %d: %s", e.code, e.body)
}

func (c *TopCVClient) fetchPage(ctx context.Context, q engine.FeedQuery, page int) ([]topcvJob, error) {
	engine.IncrTopCVRequests()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u, err := url.Parse(c.cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("topcv url: %w", err)
	}
	params := u.Query()
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}
	if q.Location > 0 {
		params.Set("location", strconv.Itoa(q.Location))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(c.cfg.PerPage))
	u.RawQuery = params.Encode()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, topcvBodyLimit))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{code: resp.StatusCode, body: engine.TruncateRunes(string(body), 200, "...")}
	}

	items, shape, err := parseFeed(body)
	if err != nil {
		return nil, fmt.Errorf("topcv parse: %w", err)
	}
	if shape == shapeUnknown {
		return nil, fmt.Errorf("%w: %s", errUnknownShape, engine.TruncateRunes(string(body), 200, "..."))
	}
	slog.Debug("topcv: page parsed",
		slog.Int("page", page), slog.String("shape", shape.String()), slog.Int("items", len(items)))
	return items, nil
}

// --- payload parsing ---

// feedShape enumerates the response layouts the API is known to return.
type feedShape int

const (
	shapeUnknown    feedShape = iota
	shapeArray                // [...]
	shapeData                 // {"data": [...]}
	shapeNestedData           // {"data": {"data": [...]}}
	shapeResults              // {"results": [...]}
)

func (s feedShape) String() string {
	switch s {
	case shapeArray:
		return "array"
	case shapeData:
		return "data"
	case shapeNestedData:
		return "data.data"
	case shapeResults:
		return "results"
	}
	return "unknown"
}

// parseFeed tries each known shape in order. An unknown shape yields no
// items and no error; malformed JSON is an error.
func parseFeed(body []byte) ([]topcvJob, feedShape, error) {
	body = bytes.TrimSpace(body)
	if items, ok := decodeItems(body); ok {
		return items, shapeArray, nil
	}

	var env struct {
		Data    json.RawMessage `json:"data"`
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, shapeUnknown, err
	}
	if items, ok := decodeItems(env.Data); ok {
		return items, shapeData, nil
	}
	var inner struct {
		Data json.RawMessage `json:"data"`
	}
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &inner) == nil {
		if items, ok := decodeItems(inner.Data); ok {
			return items, shapeNestedData, nil
		}
	}
	if items, ok := decodeItems(env.Results); ok {
		return items, shapeResults, nil
	}
	return nil, shapeUnknown, nil
}

// decodeItems decodes a JSON array, skipping elements that are not job objects.
func decodeItems(raw json.RawMessage) ([]topcvJob, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	items := make([]topcvJob, 0, len(elems))
	for _, e := range elems {
		var it topcvJob
		if err := json.Unmarshal(e, &it); err != nil {
			continue
		}
		items = append(items, it)
	}
	return items, true
}

// --- TopCV API types ---

type topcvCompany struct {
	Name string `json:"name"`
}

type topcvJob struct {
	ID          json.RawMessage `json:"id"`
	Title       string          `json:"title"`
	CompanyName string          `json:"company_name"`
	Company     *topcvCompany   `json:"company"`
	Description string          `json:"description"`
	Requirement string          `json:"requirement"`
	SalaryFrom  *float64        `json:"salary_from"`
	SalaryTo    *float64        `json:"salary_to"`
	Skills      []string        `json:"skills"`
	URL         string          `json:"url"`
	CreatedAt   string          `json:"created_at"`
}

func (j topcvJob) toRecord() (engine.JobRecord, bool) {
	title := strings.TrimSpace(j.Title)
	if title == "" {
		return engine.JobRecord{}, false
	}
	company := j.CompanyName
	if company == "" && j.Company != nil {
		company = j.Company.Name
	}

	rec := engine.JobRecord{
		ExternalID:   strings.Trim(string(bytes.TrimSpace(j.ID)), `"`),
		Source:       engine.SourceTopCV,
		Title:        title,
		CompanyName:  strings.TrimSpace(company),
		Description:  htmlToText(j.Description),
		Requirements: splitLines(htmlToText(j.Requirement)),
		Status:       engine.JobStatusOpen,
		SalaryFrom:   positive(j.SalaryFrom),
		SalaryTo:     positive(j.SalaryTo),
		URL:          j.URL,
	}
	for _, s := range j.Skills {
		if s = strings.TrimSpace(s); s != "" {
			rec.Skills = append(rec.Skills, engine.Ref{Name: s})
		}
	}
	if t, err := time.Parse(time.RFC3339, j.CreatedAt); err == nil {
		rec.CreatedAt = t
	} else if t, err := time.Parse(time.DateTime, j.CreatedAt); err == nil {
		rec.CreatedAt = t
	}
	return rec, true
}

// htmlToText converts an HTML fragment to markdown, falling back to tag stripping.
func htmlToText(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	md, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return engine.CleanHTML(s)
	}
	return strings.TrimSpace(md)
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}
