package rules

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRulesCache(t *testing.T) {
	cache := NewInMemoryRulesCache(DefaultCacheConfig())

	if got := cache.Get("FL"); got != nil {
		t.Errorf("empty cache returned %v", got)
	}

	snapshot := []*Rule{{ID: "fl-1"}, {ID: "fl-2"}}
	cache.Set("FL", snapshot)

	got := cache.Get("FL")
	if len(got) != 2 || got[0].ID != "fl-1" {
		t.Fatalf("Get returned %v", got)
	}

	// The returned slice is a copy; mutating it must not corrupt the cache.
	got[0] = &Rule{ID: "mutated"}
	if again := cache.Get("FL"); again[0].ID != "fl-1" {
		t.Error("cache snapshot was mutated through a returned slice")
	}

	cache.Invalidate()
	if got := cache.Get("FL"); got != nil {
		t.Errorf("Get after Invalidate returned %v", got)
	}
}

func TestInMemoryRulesCacheTTL(t *testing.T) {
	cache := NewInMemoryRulesCache(CacheConfig{TTL: time.Nanosecond})
	cache.Set("FL", []*Rule{{ID: "fl-1"}})

	time.Sleep(time.Millisecond)
	if got := cache.Get("FL"); got != nil {
		t.Errorf("expired snapshot returned %v", got)
	}
}

// countingStore counts FindActiveRules calls so tests can observe cache hits.
type countingStore struct {
	*InMemoryRuleStore
	findCalls int
}

func (s *countingStore) FindActiveRules(ctx context.Context, jurisdictionCode string) ([]*Rule, error) {
	s.findCalls++
	return s.InMemoryRuleStore.FindActiveRules(ctx, jurisdictionCode)
}

func TestCachedRuleStoreServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{InMemoryRuleStore: NewInMemoryRuleStore()}
	store := NewCachedRuleStore(inner, NewInMemoryRulesCache(DefaultCacheConfig()))

	if err := store.Add(ctx, &Rule{ID: "fl-1", JurisdictionCode: "FL", Active: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for i := 0; i < 3; i++ {
		rules, err := store.FindActiveRules(ctx, "FL")
		if err != nil {
			t.Fatalf("FindActiveRules: %v", err)
		}
		if len(rules) != 1 {
			t.Fatalf("got %d rules, want 1", len(rules))
		}
	}

	if inner.findCalls != 1 {
		t.Errorf("inner store was queried %d times, want 1 (cache should absorb repeats)", inner.findCalls)
	}
}

func TestCachedRuleStoreInvalidatesOnMutation(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{InMemoryRuleStore: NewInMemoryRuleStore()}
	store := NewCachedRuleStore(inner, NewInMemoryRulesCache(DefaultCacheConfig()))

	if err := store.Add(ctx, &Rule{ID: "fl-1", JurisdictionCode: "FL", Active: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.FindActiveRules(ctx, "FL"); err != nil {
		t.Fatalf("FindActiveRules: %v", err)
	}

	// A default-jurisdiction mutation must be visible to every jurisdiction.
	if err := store.Add(ctx, &Rule{ID: "default-1", JurisdictionCode: JurisdictionDefault, Active: true}); err != nil {
		t.Fatalf("Add default: %v", err)
	}

	rules, err := store.FindActiveRules(ctx, "FL")
	if err != nil {
		t.Fatalf("FindActiveRules: %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("got %d rules after mutation, want 2 (stale snapshot served)", len(rules))
	}
}

func TestCachedRuleStoreDeleteInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{InMemoryRuleStore: NewInMemoryRuleStore()}
	store := NewCachedRuleStore(inner, NewInMemoryRulesCache(DefaultCacheConfig()))

	if err := store.Add(ctx, &Rule{ID: "fl-1", JurisdictionCode: "FL", Active: true}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := store.FindActiveRules(ctx, "FL"); err != nil {
		t.Fatalf("FindActiveRules: %v", err)
	}
	if err := store.Delete(ctx, "fl-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	rules, err := store.FindActiveRules(ctx, "FL")
	if err != nil {
		t.Fatalf("FindActiveRules: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("got %d rules after delete, want 0", len(rules))
	}
}
