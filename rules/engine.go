package rules

import (
	"context"
	"fmt"
)

// defaultFeeCapPercent is the fallback ceiling used when a jurisdiction has
// no fee-cap rule on file. It is a reasonableness ceiling, not a statutory
// cap, and the FeeCap.Notes field says so.
const defaultFeeCapPercent = 0.33

// defaultFeeCapNotes distinguishes the unregulated fallback from a sourced
// cap; callers key off this text, so keep it stable.
const defaultFeeCapNotes = "no statutory fee cap on file for this jurisdiction; 33% is an unregulated reasonableness ceiling, not a legal limit"

// Engine evaluates proposed actions against a jurisdiction rule catalog.
// It is stateless and side-effect-free per call: each evaluation fetches one
// catalog snapshot, owns its own input, and produces its own verdict, so any
// number of evaluations may run concurrently with no coordination.
type Engine struct {
	store RuleStore
}

// NewEngine creates an engine over the given catalog store. The store is the
// only collaborator; freshness, caching, and retries are its concern.
func NewEngine(store RuleStore) *Engine {
	return &Engine{store: store}
}

// Validate evaluates the action input against every active rule for the
// jurisdiction (jurisdiction-specific plus DEFAULT_GREEN fallbacks) and
// aggregates the fired rules into a verdict.
//
// A store failure is returned as an error, never as an empty valid verdict:
// a masked catalog outage would let illegal actions through unflagged.
// Ordering of violations and warnings preserves catalog iteration order.
func (e *Engine) Validate(ctx context.Context, jurisdictionCode string, in ActionInput) (*Verdict, error) {
	candidates, err := e.store.FindActiveRules(ctx, jurisdictionCode)
	if err != nil {
		return nil, fmt.Errorf("fetch rules for %s: %w", jurisdictionCode, err)
	}

	verdict := &Verdict{
		Violations:     []Finding{},
		Warnings:       []Finding{},
		BlockedActions: []Category{},
	}

	for _, rule := range candidates {
		// The store contract already filters inactive rules; re-check so a
		// sloppy store implementation cannot make us evaluate one.
		if !rule.Active {
			continue
		}

		result := EvaluateRule(rule, in)
		if !result.Fired {
			continue
		}

		finding := Finding{
			RuleID:       rule.ID,
			Jurisdiction: rule.JurisdictionCode,
			Category:     rule.Category,
			Severity:     rule.Severity,
			Message:      rule.ErrorMessage,
			Remediation:  result.Remediation,
			LegalBasis:   rule.LegalBasis,
		}

		// Each fired rule lands in exactly one list, decided solely by
		// severity. BLOCK_ACTION additionally records the category as a
		// hard-stopped action.
		if rule.Severity.IsViolation() {
			verdict.Violations = append(verdict.Violations, finding)
			if rule.Severity == SeverityBlockAction {
				verdict.BlockedActions = append(verdict.BlockedActions, rule.Category)
			}
		} else {
			verdict.Warnings = append(verdict.Warnings, finding)
		}
	}

	verdict.IsValid = len(verdict.Violations) == 0
	return verdict, nil
}

// MaxFee answers "what is the maximum fee for this claim in this
// jurisdiction". It reads the single active FEE_CAP rule (the catalog is
// expected to hold at most one per jurisdiction) and interprets its threshold
// by logic type. With no rule on file it returns the 33% unregulated
// fallback, distinguishable from a sourced cap via Notes.
func (e *Engine) MaxFee(ctx context.Context, jurisdictionCode string, claimAmount float64, isEmergency bool) (*FeeCap, error) {
	rule, err := e.store.FindOne(ctx, jurisdictionCode, CategoryFeeCap, SeverityAny)
	if err != nil {
		return nil, fmt.Errorf("fetch fee cap for %s: %w", jurisdictionCode, err)
	}
	if rule == nil {
		return &FeeCap{
			MaxPercentage: defaultFeeCapPercent,
			MaxAmount:     defaultFeeCapPercent * claimAmount,
			Notes:         defaultFeeCapNotes,
		}, nil
	}

	fc := &FeeCap{RuleID: rule.ID}
	switch t := rule.Threshold.(type) {
	case PercentCap:
		fc.MaxPercentage = t.Cap
		fc.MaxAmount = t.Cap * claimAmount
		fc.Notes = fmt.Sprintf("statutory cap of %s", formatPercent(t.Cap))

	case DynamicCap:
		limit := t.Standard
		situation := "standard"
		if isEmergency {
			limit = t.Emergency
			situation = "emergency"
		}
		fc.MaxPercentage = limit
		fc.MaxAmount = limit * claimAmount
		fc.Notes = fmt.Sprintf("statutory %s cap of %s", situation, formatPercent(limit))

	case SlidingScale:
		fc.MaxAmount = t.MaxAllowedFee(claimAmount)
		if claimAmount > 0 {
			fc.MaxPercentage = fc.MaxAmount / claimAmount
		}
		fc.Notes = fmt.Sprintf("tiered statutory schedule: %s up to $%s, then %s",
			formatPercent(t.Tier1Percent), formatAmount(t.Tier1Limit), formatPercent(t.Tier2Percent))

	case FlatFeeCap:
		fc.MaxAmount = t.Cap
		if claimAmount > 0 {
			fc.MaxPercentage = t.Cap / claimAmount
		}
		fc.Notes = fmt.Sprintf("statutory flat cap of $%s", formatAmount(t.Cap))

	default:
		// A FEE_CAP rule whose threshold we cannot interpret (malformed or a
		// newer logic type) must not masquerade as a statutory answer.
		fc.RuleID = ""
		fc.MaxPercentage = defaultFeeCapPercent
		fc.MaxAmount = defaultFeeCapPercent * claimAmount
		fc.Notes = defaultFeeCapNotes
	}

	return fc, nil
}

// IsAllowed answers the narrow gate "may this activity happen in this
// jurisdiction at all", without running a full validation. It looks for an
// active LICENSE_RESTRICTION rule at BLOCK_ACTION severity; finding one means
// the jurisdiction is closed.
func (e *Engine) IsAllowed(ctx context.Context, jurisdictionCode string) (*Eligibility, error) {
	rule, err := e.store.FindOne(ctx, jurisdictionCode, CategoryLicenseRestriction, SeverityBlockAction)
	if err != nil {
		return nil, fmt.Errorf("fetch license restriction for %s: %w", jurisdictionCode, err)
	}
	if rule != nil {
		return &Eligibility{Allowed: false, Reason: rule.ErrorMessage}, nil
	}
	return &Eligibility{Allowed: true}, nil
}

// Notices returns the informational rules (required disclosures, rescission
// periods) for a jurisdiction with their remediation text resolved against
// the input. These rules never fire and therefore never appear in a verdict;
// this is how their payloads reach the caller.
func (e *Engine) Notices(ctx context.Context, jurisdictionCode string, in ActionInput) ([]Finding, error) {
	candidates, err := e.store.FindActiveRules(ctx, jurisdictionCode)
	if err != nil {
		return nil, fmt.Errorf("fetch rules for %s: %w", jurisdictionCode, err)
	}

	notices := []Finding{}
	for _, rule := range candidates {
		if !rule.Active || !informational(rule.LogicType) {
			continue
		}
		result := EvaluateRule(rule, in)
		if result.Remediation == "" {
			continue
		}
		notices = append(notices, Finding{
			RuleID:       rule.ID,
			Jurisdiction: rule.JurisdictionCode,
			Category:     rule.Category,
			Severity:     rule.Severity,
			Message:      rule.ErrorMessage,
			Remediation:  result.Remediation,
			LegalBasis:   rule.LegalBasis,
		})
	}
	return notices, nil
}
