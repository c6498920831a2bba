package rules

import (
	"encoding/json"
	"fmt"
)

// Threshold is the logic-type-specific parameter payload of a rule. The set
// of implementations is closed: one concrete type per payload shape, so a
// handler can type-assert instead of poking at a generic map. Rules arriving
// from the store with a payload that does not decode for their logic type get
// a nil Threshold and simply never fire.
type Threshold interface {
	threshold()
}

// KeywordList bans semantic keyword tags matched against the input's action
// type, claim type, and fee type (FORBIDDEN_KEYWORD).
type KeywordList struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
}

// FeeTypeList bans specific fee structures (FORBIDDEN_FEE_TYPE).
type FeeTypeList struct {
	FeeTypes []FeeType `json:"feeTypes" yaml:"feeTypes"`
}

// ServiceList bans adjusting specific claim types outright (FORBIDDEN_SERVICE).
type ServiceList struct {
	Services []ClaimType `json:"services" yaml:"services"`
}

// PercentCap is a flat ceiling on the fee percentage (MAX_PERCENTAGE).
// The cap is inclusive: a fee exactly at the cap is compliant.
type PercentCap struct {
	Cap float64 `json:"cap" yaml:"cap"`
}

// FlatFeeCap is an absolute dollar ceiling on the fee amount (MAX_FLAT_FEE).
type FlatFeeCap struct {
	Cap float64 `json:"cap" yaml:"cap"`
}

// DynamicCap selects between a standard and an emergency percentage ceiling
// depending on emergency or declared-disaster context (DYNAMIC_CAP).
type DynamicCap struct {
	Standard  float64 `json:"standard" yaml:"standard"`
	Emergency float64 `json:"emergency" yaml:"emergency"`
}

// SlidingScale caps the fee amount by a two-tier schedule: Tier1Percent up to
// Tier1Limit of the claim, Tier2Percent on the remainder (SLIDING_SCALE).
type SlidingScale struct {
	Tier1Limit   float64 `json:"tier1Limit" yaml:"tier1Limit"`
	Tier1Percent float64 `json:"tier1Percent" yaml:"tier1Percent"`
	Tier2Percent float64 `json:"tier2Percent" yaml:"tier2Percent"`
}

// MaxAllowedFee computes the tiered ceiling for a claim amount.
func (s SlidingScale) MaxAllowedFee(claimAmount float64) float64 {
	tier1 := min(claimAmount, s.Tier1Limit) * s.Tier1Percent
	tier2 := max(0, claimAmount-s.Tier1Limit) * s.Tier2Percent
	return tier1 + tier2
}

// TimeWindow permits solicitation only between Start and End, as "HH:MM"
// clock strings interpreted as a half-open interval [Start, End) (TIME_WINDOW).
type TimeWindow struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// DisasterWindow restricts solicitation for RestrictionHours after the
// trigger event; the engine models only "a disaster window is active", the
// caller tracks actual elapsed time (TIME_BASED_RESTRICTION).
type DisasterWindow struct {
	RestrictionHours int    `json:"restrictionHours" yaml:"restrictionHours"`
	TriggerEvent     string `json:"triggerEvent" yaml:"triggerEvent"`
}

// LanguageList requires the contract to carry at least one of the listed
// language tags (LANGUAGE_REQUIREMENT).
type LanguageList struct {
	Languages []string `json:"languages" yaml:"languages"`
}

// Disclosure is the statutory text that must appear in the contract
// (REQUIRED_DISCLOSURE). Informational: never fires, always remediates.
type Disclosure struct {
	Text string `json:"text" yaml:"text"`
}

// RescissionPeriods reports the applicable rescission day count, with a
// longer window under a declared disaster (DYNAMIC_RESCISSION). Informational.
type RescissionPeriods struct {
	StandardDays  int `json:"standardDays" yaml:"standardDays"`
	EmergencyDays int `json:"emergencyDays" yaml:"emergencyDays"`
}

func (KeywordList) threshold()       {}
func (FeeTypeList) threshold()       {}
func (ServiceList) threshold()       {}
func (PercentCap) threshold()        {}
func (FlatFeeCap) threshold()        {}
func (DynamicCap) threshold()        {}
func (SlidingScale) threshold()      {}
func (TimeWindow) threshold()        {}
func (DisasterWindow) threshold()    {}
func (LanguageList) threshold()      {}
func (Disclosure) threshold()        {}
func (RescissionPeriods) threshold() {}

// DecodeThreshold parses a JSON threshold payload into the concrete type for
// the given logic type. FORBIDDEN_ACTION carries no payload and decodes to
// nil. Unknown logic types decode to nil without error so newer catalog
// entries pass through as no-ops. A payload missing the fields its logic type
// requires is a decode error; callers decide whether that is fatal (catalog
// files we author) or fail-open (rules loaded from an external store).
func DecodeThreshold(lt LogicType, payload []byte) (Threshold, error) {
	if len(payload) == 0 || string(payload) == "null" {
		if lt == LogicForbiddenAction {
			return nil, nil
		}
	}

	switch lt {
	case LogicForbiddenAction:
		// Total ban; any payload is ignored.
		return nil, nil

	case LogicForbiddenKeyword:
		var t KeywordList
		if err := strictUnmarshal(payload, &t); err != nil {
			return nil, err
		}
		if len(t.Keywords) == 0 {
			return nil, fmt.Errorf("%s threshold requires keywords", lt)
		}
		return t, nil

	case LogicForbiddenFeeType:
		var t FeeTypeList
		if err := strictUnmarshal(payload, &t); err != nil {
			return nil, err
		}
		if len(t.FeeTypes) == 0 {
			return nil, fmt.Errorf("%s threshold requires feeTypes", lt)
		}
		return t, nil

	case LogicForbiddenService:
		var t ServiceList
		if err := strictUnmarshal(payload, &t); err != nil {
			return nil, err
		}
		if len(t.Services) == 0 {
			return nil, fmt.Errorf("%s threshold requires services", lt)
		}
		return t, nil

	case LogicMaxPercentage:
		var raw struct {
			Cap *float64 `json:"cap"`
		}
		if err := strictUnmarshal(payload, &raw); err != nil {
			return nil, err
		}
		if raw.Cap == nil {
			return nil, fmt.Errorf("%s threshold requires cap", lt)
		}
		return PercentCap{Cap: *raw.Cap}, nil

	case LogicMaxFlatFee:
		var raw struct {
			Cap *float64 `json:"cap"`
		}
		if err := strictUnmarshal(payload, &raw); err != nil {
			return nil, err
		}
		if raw.Cap == nil {
			return nil, fmt.Errorf("%s threshold requires cap", lt)
		}
		return FlatFeeCap{Cap: *raw.Cap}, nil

	case LogicDynamicCap:
		var raw struct {
			Standard  *float64 `json:"standard"`
			Emergency *float64 `json:"emergency"`
		}
		if err := strictUnmarshal(payload, &raw); err != nil {
			return nil, err
		}
		if raw.Standard == nil || raw.Emergency == nil {
			return nil, fmt.Errorf("%s threshold requires standard and emergency", lt)
		}
		return DynamicCap{Standard: *raw.Standard, Emergency: *raw.Emergency}, nil

	case LogicSlidingScale:
		var raw struct {
			Tier1Limit   *float64 `json:"tier1Limit"`
			Tier1Percent *float64 `json:"tier1Percent"`
			Tier2Percent *float64 `json:"tier2Percent"`
		}
		if err := strictUnmarshal(payload, &raw); err != nil {
			return nil, err
		}
		if raw.Tier1Limit == nil || raw.Tier1Percent == nil || raw.Tier2Percent == nil {
			return nil, fmt.Errorf("%s threshold requires tier1Limit, tier1Percent and tier2Percent", lt)
		}
		return SlidingScale{
			Tier1Limit:   *raw.Tier1Limit,
			Tier1Percent: *raw.Tier1Percent,
			Tier2Percent: *raw.Tier2Percent,
		}, nil

	case LogicTimeWindow:
		var t TimeWindow
		if err := strictUnmarshal(payload, &t); err != nil {
			return nil, err
		}
		if t.Start == "" || t.End == "" {
			return nil, fmt.Errorf("%s threshold requires start and end", lt)
		}
		return t, nil

	case LogicTimeBasedRestriction:
		var t DisasterWindow
		if err := strictUnmarshal(payload, &t); err != nil {
			return nil, err
		}
		if t.RestrictionHours <= 0 {
			return nil, fmt.Errorf("%s threshold requires positive restrictionHours", lt)
		}
		return t, nil

	case LogicLanguageRequirement:
		var t LanguageList
		if err := strictUnmarshal(payload, &t); err != nil {
			return nil, err
		}
		if len(t.Languages) == 0 {
			return nil, fmt.Errorf("%s threshold requires languages", lt)
		}
		return t, nil

	case LogicRequiredDisclosure:
		var t Disclosure
		if err := strictUnmarshal(payload, &t); err != nil {
			return nil, err
		}
		if t.Text == "" {
			return nil, fmt.Errorf("%s threshold requires text", lt)
		}
		return t, nil

	case LogicDynamicRescission:
		var t RescissionPeriods
		if err := strictUnmarshal(payload, &t); err != nil {
			return nil, err
		}
		if t.StandardDays <= 0 || t.EmergencyDays <= 0 {
			return nil, fmt.Errorf("%s threshold requires positive standardDays and emergencyDays", lt)
		}
		return t, nil

	default:
		// Catalog entry newer than this engine version. No-op, not an error.
		return nil, nil
	}
}

// EncodeThreshold serializes a threshold back to its JSON payload form.
// A nil threshold encodes to nil, which FORBIDDEN_ACTION and unknown logic
// types round-trip through without loss.
func EncodeThreshold(t Threshold) ([]byte, error) {
	if t == nil {
		return nil, nil
	}
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode threshold: %w", err)
	}
	return payload, nil
}

func strictUnmarshal(payload []byte, v any) error {
	if len(payload) == 0 {
		return fmt.Errorf("empty threshold payload")
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("decode threshold: %w", err)
	}
	return nil
}
