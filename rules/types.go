// Package rules implements the jurisdiction compliance engine: a catalog of
// declaratively specified rules per jurisdiction, a fixed set of logic handlers
// that decide whether a rule fires against a proposed action, and an
// orchestrator that aggregates fired rules into a verdict.
package rules

import "time"

// JurisdictionDefault is the sentinel jurisdiction code for fallback rules
// that apply everywhere unless a jurisdiction carries its own rules. Default
// rules and jurisdiction-specific rules are evaluated together; there is no
// override shadowing.
const JurisdictionDefault = "DEFAULT_GREEN"

// Severity controls whether a fired rule blocks the action or merely warns.
// Ordered from most to least severe.
type Severity string

const (
	SeverityBlockAction  Severity = "BLOCK_ACTION"
	SeverityWarnBlock    Severity = "WARN_BLOCK"
	SeverityWarnContinue Severity = "WARN_CONTINUE"
	SeverityInfoOnly     Severity = "INFO_ONLY"

	// SeverityAny matches any severity in store lookups.
	SeverityAny Severity = ""
)

// severityRank orders severities for comparison; higher is more severe.
var severityRank = map[Severity]int{
	SeverityInfoOnly:     1,
	SeverityWarnContinue: 2,
	SeverityWarnBlock:    3,
	SeverityBlockAction:  4,
}

// Known reports whether s is one of the four defined severities.
func (s Severity) Known() bool {
	return severityRank[s] != 0
}

// IsViolation reports whether a fired rule of this severity belongs in the
// verdict's violations list. Anything else that fires is a warning.
func (s Severity) IsViolation() bool {
	return s == SeverityBlockAction || s == SeverityWarnBlock
}

// MoreSevere reports whether s outranks other.
func (s Severity) MoreSevere(other Severity) bool {
	return severityRank[s] > severityRank[other]
}

// Category classifies a rule for reporting. It carries no evaluation
// semantics; the logic type alone selects the handler.
type Category string

const (
	CategoryLicenseRestriction     Category = "LICENSE_RESTRICTION"
	CategoryFeeCap                 Category = "FEE_CAP"
	CategoryFeeStructure           Category = "FEE_STRUCTURE"
	CategoryCatastropheRestriction Category = "CATASTROPHE_RESTRICTION"
	CategorySolicitation           Category = "SOLICITATION"
	CategoryRescission             Category = "RESCISSION"
	CategoryDisclosure             Category = "DISCLOSURE"
	CategoryContractLanguage       Category = "CONTRACT_LANGUAGE"
)

// knownCategories is the closed set accepted by catalog validation.
var knownCategories = map[Category]bool{
	CategoryLicenseRestriction:     true,
	CategoryFeeCap:                 true,
	CategoryFeeStructure:           true,
	CategoryCatastropheRestriction: true,
	CategorySolicitation:           true,
	CategoryRescission:             true,
	CategoryDisclosure:             true,
	CategoryContractLanguage:       true,
}

// Known reports whether c is one of the defined categories.
func (c Category) Known() bool {
	return knownCategories[c]
}

// LogicType selects which handler evaluates a rule. The set is fixed and
// closed; an unrecognized logic type is evaluated as a no-op, never an error,
// so the catalog can evolve ahead of the engine.
type LogicType string

const (
	LogicForbiddenKeyword     LogicType = "FORBIDDEN_KEYWORD"
	LogicForbiddenAction      LogicType = "FORBIDDEN_ACTION"
	LogicForbiddenFeeType     LogicType = "FORBIDDEN_FEE_TYPE"
	LogicForbiddenService     LogicType = "FORBIDDEN_SERVICE"
	LogicMaxPercentage        LogicType = "MAX_PERCENTAGE"
	LogicMaxFlatFee           LogicType = "MAX_FLAT_FEE"
	LogicDynamicCap           LogicType = "DYNAMIC_CAP"
	LogicSlidingScale         LogicType = "SLIDING_SCALE"
	LogicTimeWindow           LogicType = "TIME_WINDOW"
	LogicTimeBasedRestriction LogicType = "TIME_BASED_RESTRICTION"
	LogicLanguageRequirement  LogicType = "LANGUAGE_REQUIREMENT"
	LogicRequiredDisclosure   LogicType = "REQUIRED_DISCLOSURE"
	LogicDynamicRescission    LogicType = "DYNAMIC_RESCISSION"
)

// ClaimType is the line of business a proposed action concerns.
type ClaimType string

const (
	ClaimResidential   ClaimType = "RESIDENTIAL"
	ClaimCommercial    ClaimType = "COMMERCIAL"
	ClaimPersonalLines ClaimType = "PERSONAL_LINES"
)

// FeeType is the structure of the proposed compensation.
type FeeType string

const (
	FeePercentage  FeeType = "PERCENTAGE"
	FeeHourly      FeeType = "HOURLY"
	FeeFlat        FeeType = "FLAT"
	FeeContingency FeeType = "CONTINGENCY"
)

// ActionType is the kind of activity being proposed.
type ActionType string

const (
	ActionContract       ActionType = "CONTRACT"
	ActionSolicitation   ActionType = "SOLICITATION"
	ActionNegotiation    ActionType = "NEGOTIATION"
	ActionRepresentation ActionType = "REPRESENTATION"
)

// LegalBasis is citation metadata attached to a rule. The engine passes it
// through unmodified and never interprets it.
type LegalBasis struct {
	Statute       string   `json:"statute,omitempty"`
	URL           string   `json:"url,omitempty"`
	EffectiveDate string   `json:"effectiveDate,omitempty"`
	Consequences  []string `json:"consequences,omitempty"`
}

// Rule is one catalog entry. Immutable from the engine's perspective during a
// single evaluation; the catalog owns its lifecycle.
type Rule struct {
	ID               string      `json:"id"`
	JurisdictionCode string      `json:"jurisdictionCode"`
	Category         Category    `json:"category"`
	LogicType        LogicType   `json:"logicType"`
	Threshold        Threshold   `json:"-"`
	Severity         Severity    `json:"severity"`
	ErrorMessage     string      `json:"errorMessage"`
	LegalBasis       *LegalBasis `json:"legalBasis,omitempty"`
	Active           bool        `json:"active"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// ActionInput describes the proposed action under evaluation. Every field
// except JurisdictionCode is optional; a handler that needs an absent field
// treats its rule as not fired rather than guessing.
type ActionInput struct {
	JurisdictionCode string     `json:"jurisdictionCode"`
	ClaimType        ClaimType  `json:"claimType,omitempty"`
	FeeType          FeeType    `json:"feeType,omitempty"`
	FeePercentage    *float64   `json:"feePercentage,omitempty"`
	FeeAmount        *float64   `json:"feeAmount,omitempty"`
	ClaimAmount      *float64   `json:"claimAmount,omitempty"`
	IsEmergency      bool       `json:"isEmergency,omitempty"`
	DeclaredDisaster bool       `json:"declaredDisaster,omitempty"`
	ContractLanguage string     `json:"contractLanguage,omitempty"`
	ActionType       ActionType `json:"actionType,omitempty"`
	SolicitationAt   *time.Time `json:"solicitationAt,omitempty"`
}

// UnderEmergency reports whether the action happens under emergency or
// disaster conditions; several caps tighten when it does.
func (in ActionInput) UnderEmergency() bool {
	return in.IsEmergency || in.DeclaredDisaster
}

// FiredResult is a single handler's outcome for one rule.
type FiredResult struct {
	Fired       bool
	Remediation string
}

// notFired is the zero outcome shared by every fail-open path.
var notFired = FiredResult{}

// Finding is one fired (or informational) rule as it appears in a verdict.
type Finding struct {
	RuleID       string      `json:"ruleId"`
	Jurisdiction string      `json:"jurisdiction"`
	Category     Category    `json:"category"`
	Severity     Severity    `json:"severity"`
	Message      string      `json:"message"`
	Remediation  string      `json:"remediation,omitempty"`
	LegalBasis   *LegalBasis `json:"legalBasis,omitempty"`
}

// Verdict is the aggregated evaluation result for one action input against
// one jurisdiction's rule set. Violations and warnings partition the fired
// rules by severity; BlockedActions is the subset of violation categories
// whose rule fired at BLOCK_ACTION.
type Verdict struct {
	IsValid        bool       `json:"isValid"`
	Violations     []Finding  `json:"violations"`
	Warnings       []Finding  `json:"warnings"`
	BlockedActions []Category `json:"blockedActions"`
}

// FeeCap is the answer to "what is the maximum fee for this claim here".
type FeeCap struct {
	MaxPercentage float64 `json:"maxPercentage"`
	MaxAmount     float64 `json:"maxAmount"`
	Notes         string  `json:"notes"`
	RuleID        string  `json:"ruleId,omitempty"`
}

// Eligibility is the answer to "may this firm operate here at all".
type Eligibility struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}
