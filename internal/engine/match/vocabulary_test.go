package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anatolykoptev/go_jobmatch/internal/engine"
)

func TestVocabularyCaches(t *testing.T) {
	ctx := context.Background()
	lister := &fakeSkills{names: []string{"Go", " SQL ", "go", ""}}
	v := NewVocabulary(lister, engine.NewCache(), time.Hour)

	got := v.Skills(ctx)
	if len(got) != 2 || got[0] != "go" || got[1] != "sql" {
		t.Errorf("Skills = %v, want [go sql]", got)
	}
	v.Skills(ctx)
	if n := lister.calls.Load(); n != 1 {
		t.Errorf("lister called %d times, want 1", n)
	}

	v.Clear(ctx)
	v.Skills(ctx)
	if n := lister.calls.Load(); n != 2 {
		t.Errorf("after Clear lister called %d times, want 2", n)
	}
}

func TestVocabularyExpires(t *testing.T) {
	ctx := context.Background()
	now := testNow
	cache := engine.NewCache(engine.WithClock(func() time.Time { return now }))
	lister := &fakeSkills{names: []string{"go"}}
	v := NewVocabulary(lister, cache, time.Hour)

	v.Skills(ctx)
	now = now.Add(59 * time.Minute)
	v.Skills(ctx)
	if n := lister.calls.Load(); n != 1 {
		t.Fatalf("lister called %d times before expiry, want 1", n)
	}
	now = now.Add(2 * time.Minute)
	v.Skills(ctx)
	if n := lister.calls.Load(); n != 2 {
		t.Errorf("lister called %d times after expiry, want 2", n)
	}
}

func TestVocabularyFallbackNotCached(t *testing.T) {
	ctx := context.Background()
	lister := &fakeSkills{err: errors.New("connection refused")}
	v := NewVocabulary(lister, engine.NewCache(), time.Hour)

	got := v.Skills(ctx)
	if len(got) != len(fallbackVocabulary) {
		t.Errorf("Skills = %v, want fallback vocabulary", got)
	}

	lister.err = nil
	lister.names = []string{"rust"}
	got = v.Skills(ctx)
	if len(got) != 1 || got[0] != "rust" {
		t.Errorf("Skills after recovery = %v, want [rust]", got)
	}
}

func TestVocabularyNilLister(t *testing.T) {
	v := NewVocabulary(nil, nil, 0)
	if got := v.Skills(context.Background()); len(got) != len(fallbackVocabulary) {
		t.Errorf("Skills = %v, want fallback vocabulary", got)
	}
}

func TestVocabularyRefreshLoop(t *testing.T) {
	lister := &fakeSkills{names: []string{"go"}}
	v := NewVocabulary(lister, engine.NewCache(), 10*time.Millisecond)

	v.Start(context.Background())
	v.Start(context.Background()) // second start is a no-op

	deadline := time.Now().Add(2 * time.Second)
	for lister.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	v.Close()
	if n := lister.calls.Load(); n < 2 {
		t.Fatalf("refresh loop ran %d times, want >= 2", n)
	}

	after := lister.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if lister.calls.Load() != after {
		t.Error("refresh loop still running after Close")
	}
	v.Close() // idempotent
}
