package match

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

// DefaultVocabularyTTL is how long the skill vocabulary stays cached.
const DefaultVocabularyTTL = time.Hour

var fallbackVocabulary = []string{
	"javascript", "typescript", "python", "java", "go", "c++", "c#", "php",
	"sql", "react", "node.js", "html", "css", "docker", "git", "aws",
}

// FallbackVocabulary returns the built-in vocabulary used when the skill
// catalogue cannot be listed.
func FallbackVocabulary() []string {
	return slices.Clone(fallbackVocabulary)
}

// SkillLister lists the skill catalogue.
type SkillLister interface {
	ListSkills(ctx context.Context) ([]engine.SkillRecord, error)
}

// Vocabulary is the cached list of known skill names.
type Vocabulary struct {
	lister SkillLister
	cache  *engine.Cache
	ttl    time.Duration
	key    string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewVocabulary creates a Vocabulary backed by lister and cached in cache.
// ttl <= 0 uses DefaultVocabularyTTL.
func NewVocabulary(lister SkillLister, cache *engine.Cache, ttl time.Duration) *Vocabulary {
	if ttl <= 0 {
		ttl = DefaultVocabularyTTL
	}
	return &Vocabulary{
		lister: lister,
		cache:  cache,
		ttl:    ttl,
		key:    engine.CacheKey("skill_vocabulary"),
	}
}

// Skills returns the vocabulary, loading it on a cache miss.
// Listing failures return the fallback vocabulary, which is not cached.
func (v *Vocabulary) Skills(ctx context.Context) []string {
	if names, ok := engine.LoadJSON[[]string](ctx, v.cache, v.key); ok {
		return names
	}
	names, err := v.load(ctx)
	if err != nil {
		engine.IncrVocabularyFallbacks()
		slog.Warn("match: skill vocabulary unavailable, using fallback", slog.Any("error", err))
		return FallbackVocabulary()
	}
	return names
}

// Refresh reloads the vocabulary from the lister and re-caches it.
func (v *Vocabulary) Refresh(ctx context.Context) error {
	_, err := v.load(ctx)
	return err
}

func (v *Vocabulary) load(ctx context.Context) ([]string, error) {
	if v.lister == nil {
		return nil, errNoSkillLister
	}
	recs, err := v.lister.ListSkills(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		if n := NormalizeSkill(r.Name); n != "" {
			names = append(names, n)
		}
	}
	names = stringSet(names)
	engine.StoreJSON(ctx, v.cache, v.key, names, v.ttl)
	return names, nil
}

// Clear drops the cached vocabulary.
func (v *Vocabulary) Clear(ctx context.Context) {
	v.cache.Delete(ctx, v.key)
}

// Start runs a refresh loop every TTL until ctx is cancelled or Close is called.
// A failed refresh evicts the cached list so the next read retries the lister.
func (v *Vocabulary) Start(ctx context.Context) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		return
	}
	ctx, v.cancel = context.WithCancel(ctx)
	v.done = make(chan struct{})
	go v.refreshLoop(ctx, v.done)
}

func (v *Vocabulary) refreshLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(v.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.Refresh(ctx); err != nil {
				slog.Warn("match: skill vocabulary refresh failed", slog.Any("error", err))
				v.Clear(ctx)
			}
		}
	}
}

// Close stops the refresh loop and waits for it to exit.
func (v *Vocabulary) Close() {
	v.mu.Lock()
	cancel, done := v.cancel, v.done
	v.cancel, v.done = nil, nil
	v.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
