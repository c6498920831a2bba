package rules

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	rule := &Rule{
		ID:               "ny-cap",
		JurisdictionCode: "NY",
		Category:         CategoryFeeCap,
		LogicType:        LogicMaxPercentage,
		Threshold:        PercentCap{Cap: 0.125},
		Severity:         SeverityBlockAction,
		ErrorMessage:     "fee exceeds 12.5%",
		Active:           true,
	}

	if err := store.Add(ctx, rule); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if rule.CreatedAt.IsZero() || rule.UpdatedAt.IsZero() {
		t.Error("Add should stamp CreatedAt and UpdatedAt")
	}

	if err := store.Add(ctx, &Rule{ID: "ny-cap"}); err == nil {
		t.Error("duplicate ID should be rejected")
	}

	got, err := store.Get(ctx, "ny-cap")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ErrorMessage != "fee exceeds 12.5%" {
		t.Errorf("Get returned %q", got.ErrorMessage)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}

	updated := *rule
	updated.ErrorMessage = "fee exceeds the statutory maximum"
	if err := store.Update(ctx, &updated); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.CreatedAt != rule.CreatedAt {
		t.Error("Update must preserve CreatedAt")
	}

	if err := store.Update(ctx, &Rule{ID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) = %v, want ErrNotFound", err)
	}

	if err := store.Delete(ctx, "ny-cap"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "ny-cap"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestInMemoryStoreFindActiveRules(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	seed := []*Rule{
		{ID: "default-1", JurisdictionCode: JurisdictionDefault, Active: true},
		{ID: "fl-1", JurisdictionCode: "FL", Active: true},
		{ID: "fl-2", JurisdictionCode: "FL", Active: false},
		{ID: "ny-1", JurisdictionCode: "NY", Active: true},
		{ID: "fl-3", JurisdictionCode: "FL", Active: true},
	}
	for _, r := range seed {
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add %s: %v", r.ID, err)
		}
	}

	matched, err := store.FindActiveRules(ctx, "FL")
	if err != nil {
		t.Fatalf("FindActiveRules: %v", err)
	}

	var ids []string
	for _, r := range matched {
		ids = append(ids, r.ID)
	}
	want := []string{"default-1", "fl-1", "fl-3"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("got %v, want %v (insertion order must be preserved)", ids, want)
		}
	}
}

func TestInMemoryStoreFindOne(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	seed := []*Rule{
		{ID: "fl-warn", JurisdictionCode: "FL", Category: CategoryFeeCap, Severity: SeverityWarnContinue, Active: true},
		{ID: "fl-block", JurisdictionCode: "FL", Category: CategoryFeeCap, Severity: SeverityBlockAction, Active: true},
		{ID: "fl-inactive", JurisdictionCode: "FL", Category: CategoryLicenseRestriction, Severity: SeverityBlockAction, Active: false},
	}
	for _, r := range seed {
		if err := store.Add(ctx, r); err != nil {
			t.Fatalf("Add %s: %v", r.ID, err)
		}
	}

	t.Run("any severity returns first match", func(t *testing.T) {
		rule, err := store.FindOne(ctx, "FL", CategoryFeeCap, SeverityAny)
		if err != nil {
			t.Fatalf("FindOne: %v", err)
		}
		if rule == nil || rule.ID != "fl-warn" {
			t.Errorf("got %+v, want fl-warn", rule)
		}
	})

	t.Run("severity narrows the match", func(t *testing.T) {
		rule, err := store.FindOne(ctx, "FL", CategoryFeeCap, SeverityBlockAction)
		if err != nil {
			t.Fatalf("FindOne: %v", err)
		}
		if rule == nil || rule.ID != "fl-block" {
			t.Errorf("got %+v, want fl-block", rule)
		}
	})

	t.Run("inactive rules are invisible", func(t *testing.T) {
		rule, err := store.FindOne(ctx, "FL", CategoryLicenseRestriction, SeverityAny)
		if err != nil {
			t.Fatalf("FindOne: %v", err)
		}
		if rule != nil {
			t.Errorf("got %+v, want nil", rule)
		}
	})

	t.Run("no match is nil without error", func(t *testing.T) {
		rule, err := store.FindOne(ctx, "ZZ", CategoryFeeCap, SeverityAny)
		if err != nil {
			t.Fatalf("FindOne: %v", err)
		}
		if rule != nil {
			t.Errorf("got %+v, want nil", rule)
		}
	})
}

func TestInMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryRuleStore()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.Add(ctx, &Rule{ID: id, Active: id != "a"}); err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d rules, want 3 (List includes inactive)", len(all))
	}
	if all[0].ID != "c" || all[1].ID != "a" || all[2].ID != "b" {
		t.Errorf("List order = %s, %s, %s; want insertion order c, a, b", all[0].ID, all[1].ID, all[2].ID)
	}
}
