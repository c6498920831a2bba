package rules

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned by store lookups for a rule ID that does not exist.
var ErrNotFound = errors.New("rule not found")

// RuleStore is the catalog collaborator. The engine consumes only the two
// Find methods; the mutation methods serve the API layer and seeding tools.
// Implementations must keep FindActiveRules ordering stable (insertion or
// creation order) so verdict ordering is deterministic.
type RuleStore interface {
	// Add inserts a new rule. Duplicate IDs are an error.
	Add(ctx context.Context, rule *Rule) error

	// Get retrieves a rule by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Rule, error)

	// Update replaces an existing rule, or ErrNotFound.
	Update(ctx context.Context, rule *Rule) error

	// Delete removes a rule, or ErrNotFound.
	Delete(ctx context.Context, id string) error

	// List returns every rule, active or not, in insertion/creation order.
	List(ctx context.Context) ([]*Rule, error)

	// FindActiveRules returns every active rule whose jurisdiction code is
	// the requested one or the DEFAULT_GREEN sentinel.
	FindActiveRules(ctx context.Context, jurisdictionCode string) ([]*Rule, error)

	// FindOne returns the first active rule for the jurisdiction in the
	// given category, optionally narrowed by severity (SeverityAny matches
	// all). Returns nil with no error when nothing matches.
	FindOne(ctx context.Context, jurisdictionCode string, category Category, severity Severity) (*Rule, error)
}

// InMemoryRuleStore implements RuleStore with an RWMutex-guarded map plus an
// insertion-order index, so FindActiveRules is deterministic. Used by unit
// tests and by the server's no-database mode.
type InMemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]*Rule
	order []string
}

// NewInMemoryRuleStore creates an empty in-memory rule store.
func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules: make(map[string]*Rule),
	}
}

// Add inserts a new rule, stamping CreatedAt/UpdatedAt.
func (s *InMemoryRuleStore) Add(_ context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return fmt.Errorf("rule %s already exists", rule.ID)
	}

	now := time.Now()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	s.rules[rule.ID] = rule
	s.order = append(s.order, rule.ID)
	return nil
}

// Get retrieves a rule by ID.
func (s *InMemoryRuleStore) Get(_ context.Context, id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[id]
	if !exists {
		return nil, fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}
	return rule, nil
}

// Update replaces an existing rule, preserving CreatedAt.
func (s *InMemoryRuleStore) Update(_ context.Context, rule *Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.rules[rule.ID]
	if !exists {
		return fmt.Errorf("rule %s: %w", rule.ID, ErrNotFound)
	}

	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now()
	s.rules[rule.ID] = rule
	return nil
}

// Delete removes a rule.
func (s *InMemoryRuleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[id]; !exists {
		return fmt.Errorf("rule %s: %w", id, ErrNotFound)
	}

	delete(s.rules, id)
	for i, ruleID := range s.order {
		if ruleID == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns every rule in insertion order.
func (s *InMemoryRuleStore) List(_ context.Context) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Rule, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rules[id])
	}
	return out, nil
}

// FindActiveRules returns active rules for the jurisdiction plus the
// DEFAULT_GREEN fallbacks, in insertion order.
func (s *InMemoryRuleStore) FindActiveRules(_ context.Context, jurisdictionCode string) ([]*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Rule
	for _, id := range s.order {
		rule := s.rules[id]
		if !rule.Active {
			continue
		}
		if rule.JurisdictionCode == jurisdictionCode || rule.JurisdictionCode == JurisdictionDefault {
			matched = append(matched, rule)
		}
	}
	return matched, nil
}

// FindOne returns the first active rule matching jurisdiction, category, and
// optionally severity; nil when none matches.
func (s *InMemoryRuleStore) FindOne(_ context.Context, jurisdictionCode string, category Category, severity Severity) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.order {
		rule := s.rules[id]
		if !rule.Active || rule.JurisdictionCode != jurisdictionCode || rule.Category != category {
			continue
		}
		if severity != SeverityAny && rule.Severity != severity {
			continue
		}
		return rule, nil
	}
	return nil, nil
}
