package rules

import "context"

// CachedRuleStore decorates a RuleStore with a snapshot cache for the hot
// FindActiveRules path. Every mutation invalidates the whole cache, so a
// verdict never mixes rules from two catalog generations. FindOne and Get
// pass through uncached; they are cheap single-row lookups.
type CachedRuleStore struct {
	store RuleStore
	cache RulesCache
}

// NewCachedRuleStore wraps store with the given cache.
func NewCachedRuleStore(store RuleStore, cache RulesCache) *CachedRuleStore {
	return &CachedRuleStore{store: store, cache: cache}
}

func (s *CachedRuleStore) Add(ctx context.Context, rule *Rule) error {
	if err := s.store.Add(ctx, rule); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

func (s *CachedRuleStore) Get(ctx context.Context, id string) (*Rule, error) {
	return s.store.Get(ctx, id)
}

func (s *CachedRuleStore) Update(ctx context.Context, rule *Rule) error {
	if err := s.store.Update(ctx, rule); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

func (s *CachedRuleStore) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate()
	return nil
}

func (s *CachedRuleStore) List(ctx context.Context) ([]*Rule, error) {
	return s.store.List(ctx)
}

func (s *CachedRuleStore) FindActiveRules(ctx context.Context, jurisdictionCode string) ([]*Rule, error) {
	if cached := s.cache.Get(jurisdictionCode); cached != nil {
		return cached, nil
	}

	rules, err := s.store.FindActiveRules(ctx, jurisdictionCode)
	if err != nil {
		return nil, err
	}
	s.cache.Set(jurisdictionCode, rules)
	return rules, nil
}

func (s *CachedRuleStore) FindOne(ctx context.Context, jurisdictionCode string, category Category, severity Severity) (*Rule, error) {
	return s.store.FindOne(ctx, jurisdictionCode, category, severity)
}
