package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters across the engine.
var metrics struct {
	RecommendRequests    atomic.Int64
	FallbackResponses    atomic.Int64
	SimilarJobRequests   atomic.Int64
	StudentMatchRequests atomic.Int64
	TopCVRequests        atomic.Int64
	TopCVErrors          atomic.Int64
	VocabularyFallbacks  atomic.Int64
	VectorizeErrors      atomic.Int64
}

// GetMetrics returns a snapshot of all metrics including cache stats of c.
func GetMetrics(c *Cache) map[string]int64 {
	hits, misses := c.Stats()
	return map[string]int64{
		"recommend_requests":     metrics.RecommendRequests.Load(),
		"fallback_responses":     metrics.FallbackResponses.Load(),
		"similar_job_requests":   metrics.SimilarJobRequests.Load(),
		"student_match_requests": metrics.StudentMatchRequests.Load(),
		"topcv_requests":         metrics.TopCVRequests.Load(),
		"topcv_errors":           metrics.TopCVErrors.Load(),
		"vocabulary_fallbacks":   metrics.VocabularyFallbacks.Load(),
		"vectorize_errors":       metrics.VectorizeErrors.Load(),
		"cache_hits":             hits,
		"cache_misses":           misses,
		"cache_entries":          int64(c.Len()),
	}
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func FormatMetrics(c *Cache) string {
	m := GetMetrics(c)
	var sb strings.Builder
	keys := []string{
		"recommend_requests", "fallback_responses",
		"similar_job_requests", "student_match_requests",
		"topcv_requests", "topcv_errors",
		"vocabulary_fallbacks", "vectorize_errors",
		"cache_hits", "cache_misses", "cache_entries",
	}
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}

// Incrementors for the match and jobs sub-packages.
func IncrRecommendRequests()    { metrics.RecommendRequests.Add(1) }
func IncrFallbackResponses()    { metrics.FallbackResponses.Add(1) }
func IncrSimilarJobRequests()   { metrics.SimilarJobRequests.Add(1) }
func IncrStudentMatchRequests() { metrics.StudentMatchRequests.Add(1) }
func IncrTopCVRequests()        { metrics.TopCVRequests.Add(1) }
func IncrTopCVErrors()          { metrics.TopCVErrors.Add(1) }
func IncrVocabularyFallbacks()  { metrics.VocabularyFallbacks.Add(1) }
func IncrVectorizeErrors()      { metrics.VectorizeErrors.Add(1) }

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > 5*time.Second {
		slog.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
