package rules

import (
	"sync"
	"time"
)

// RulesCache caches active-rule snapshots per jurisdiction. It lives in the
// store layer, never in the engine: the engine fetches exactly one snapshot
// per evaluation and leaves freshness to its store collaborator.
type RulesCache interface {
	// Get retrieves the cached snapshot for a jurisdiction; nil on miss or
	// expiry.
	Get(jurisdictionCode string) []*Rule

	// Set stores a snapshot for a jurisdiction.
	Set(jurisdictionCode string, rules []*Rule)

	// Invalidate clears every snapshot. Rule mutations can affect any
	// jurisdiction through the DEFAULT_GREEN sentinel, so invalidation is
	// always global.
	Invalidate()
}

// CacheConfig holds cache behavior settings.
type CacheConfig struct {
	// TTL is the time-to-live for cached snapshots; 0 means no expiry
	// (mutation-driven invalidation only).
	TTL time.Duration
}

// DefaultCacheConfig returns the default: no TTL, invalidate on mutation.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{}
}

// InMemoryRulesCache is a thread-safe in-process RulesCache.
type InMemoryRulesCache struct {
	mu        sync.RWMutex
	snapshots map[string]cachedSnapshot
	config    CacheConfig
}

type cachedSnapshot struct {
	rules    []*Rule
	cachedAt time.Time
}

// NewInMemoryRulesCache creates an empty in-memory cache.
func NewInMemoryRulesCache(config CacheConfig) *InMemoryRulesCache {
	return &InMemoryRulesCache{
		snapshots: make(map[string]cachedSnapshot),
		config:    config,
	}
}

// Get returns a copied snapshot for the jurisdiction, or nil.
func (c *InMemoryRulesCache) Get(jurisdictionCode string) []*Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap, ok := c.snapshots[jurisdictionCode]
	if !ok {
		return nil
	}
	if c.config.TTL > 0 && time.Since(snap.cachedAt) > c.config.TTL {
		return nil
	}

	// Copy so callers cannot mutate the cached slice.
	out := make([]*Rule, len(snap.rules))
	copy(out, snap.rules)
	return out
}

// Set stores a copied snapshot for the jurisdiction.
func (c *InMemoryRulesCache) Set(jurisdictionCode string, rules []*Rule) {
	stored := make([]*Rule, len(rules))
	copy(stored, rules)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[jurisdictionCode] = cachedSnapshot{rules: stored, cachedAt: time.Now()}
}

// Invalidate drops every snapshot.
func (c *InMemoryRulesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots = make(map[string]cachedSnapshot)
}
