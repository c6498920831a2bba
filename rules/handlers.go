package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// Logic handlers. One pure function per logic type, mapping (rule, input) to
// a FiredResult. Handlers share no state and never return errors: a missing
// optional input field or a threshold of the wrong concrete type means the
// rule is not applicable, so the handler reports not-fired and moves on. One
// bad catalog record must never take down the evaluation of the rest.

func evalForbiddenKeyword(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(KeywordList)
	if !ok {
		return notFired
	}
	for _, kw := range t.Keywords {
		if keywordMatches(kw, in) {
			return FiredResult{
				Fired:       true,
				Remediation: fmt.Sprintf("remove or restructure the %s element of this engagement", strings.ToLower(kw)),
			}
		}
	}
	return notFired
}

// keywordMatches maps a keyword tag onto its semantic group and checks the
// input's action type, claim type, and fee type against it. RESIDENTIAL is
// deliberately broad: personal-lines work is residential work for licensing
// purposes in every jurisdiction we track.
func keywordMatches(keyword string, in ActionInput) bool {
	switch strings.ToUpper(strings.TrimSpace(keyword)) {
	case "RESIDENTIAL":
		return in.ClaimType == ClaimResidential || in.ClaimType == ClaimPersonalLines
	case "COMMERCIAL":
		return in.ClaimType == ClaimCommercial
	case "PERSONAL_LINES":
		return in.ClaimType == ClaimPersonalLines
	case "PERCENTAGE":
		return in.FeeType == FeePercentage
	case "CONTINGENCY":
		return in.FeeType == FeeContingency
	case "HOURLY":
		return in.FeeType == FeeHourly
	case "FLAT":
		return in.FeeType == FeeFlat
	case "CONTRACT":
		return in.ActionType == ActionContract
	case "SOLICITATION":
		return in.ActionType == ActionSolicitation
	case "NEGOTIATION":
		return in.ActionType == ActionNegotiation
	case "REPRESENTATION":
		return in.ActionType == ActionRepresentation
	default:
		// Unmapped tags fall back to a literal comparison across the three
		// dimensions, so a catalog can introduce narrow tags without an
		// engine release.
		up := strings.ToUpper(strings.TrimSpace(keyword))
		return up == string(in.ActionType) || up == string(in.ClaimType) || up == string(in.FeeType)
	}
}

// evalForbiddenAction implements the total-ban rule: it fires on any
// invocation, including a completely empty action input.
func evalForbiddenAction(r *Rule, _ ActionInput) FiredResult {
	return FiredResult{
		Fired:       true,
		Remediation: fmt.Sprintf("public adjusting activity is not permitted in %s", r.JurisdictionCode),
	}
}

func evalForbiddenFeeType(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(FeeTypeList)
	if !ok || in.FeeType == "" {
		return notFired
	}
	for _, ft := range t.FeeTypes {
		if ft == in.FeeType {
			return FiredResult{
				Fired:       true,
				Remediation: fmt.Sprintf("restructure compensation away from a %s fee", strings.ToLower(string(ft))),
			}
		}
	}
	return notFired
}

func evalForbiddenService(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(ServiceList)
	if !ok || in.ClaimType == "" {
		return notFired
	}
	for _, svc := range t.Services {
		if svc == in.ClaimType {
			return FiredResult{
				Fired:       true,
				Remediation: fmt.Sprintf("%s claims may not be adjusted in %s", strings.ToLower(string(svc)), r.JurisdictionCode),
			}
		}
	}
	return notFired
}

func evalMaxPercentage(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(PercentCap)
	if !ok || in.FeePercentage == nil {
		return notFired
	}
	if *in.FeePercentage > t.Cap {
		return FiredResult{
			Fired:       true,
			Remediation: fmt.Sprintf("reduce the fee to at most %s of the claim", formatPercent(t.Cap)),
		}
	}
	return notFired
}

func evalMaxFlatFee(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(FlatFeeCap)
	if !ok || in.FeeAmount == nil {
		return notFired
	}
	if *in.FeeAmount > t.Cap {
		return FiredResult{
			Fired:       true,
			Remediation: fmt.Sprintf("reduce the fee to at most $%s", formatAmount(t.Cap)),
		}
	}
	return notFired
}

func evalDynamicCap(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(DynamicCap)
	if !ok || in.FeePercentage == nil {
		return notFired
	}
	limit := t.Standard
	context := "standard"
	if in.UnderEmergency() {
		limit = t.Emergency
		context = "emergency"
	}
	if *in.FeePercentage > limit {
		return FiredResult{
			Fired:       true,
			Remediation: fmt.Sprintf("the %s cap of %s applies; reduce the fee accordingly", context, formatPercent(limit)),
		}
	}
	return notFired
}

func evalSlidingScale(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(SlidingScale)
	if !ok || in.FeeAmount == nil || in.ClaimAmount == nil {
		return notFired
	}
	maxAllowed := t.MaxAllowedFee(*in.ClaimAmount)
	if *in.FeeAmount > maxAllowed {
		return FiredResult{
			Fired:       true,
			Remediation: fmt.Sprintf("the tiered schedule allows at most $%s on this claim", formatAmount(maxAllowed)),
		}
	}
	return notFired
}

func evalTimeWindow(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(TimeWindow)
	if !ok || in.ActionType != ActionSolicitation || in.SolicitationAt == nil {
		return notFired
	}
	start, errStart := parseClockMinutes(t.Start)
	end, errEnd := parseClockMinutes(t.End)
	if errStart != nil || errEnd != nil {
		return notFired
	}
	at := in.SolicitationAt.Hour()*60 + in.SolicitationAt.Minute()
	if at < start || at >= end {
		return FiredResult{
			Fired:       true,
			Remediation: fmt.Sprintf("solicitation is only permitted between %s and %s", t.Start, t.End),
		}
	}
	return notFired
}

// evalTimeBasedRestriction fires for any solicitation during a declared
// disaster. The engine has no event clock: it models only "an active disaster
// window"; the caller is responsible for actual elapsed-time tracking against
// the trigger event.
func evalTimeBasedRestriction(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(DisasterWindow)
	if !ok || in.ActionType != ActionSolicitation || !in.DeclaredDisaster {
		return notFired
	}
	return FiredResult{
		Fired:       true,
		Remediation: fmt.Sprintf("solicitation is restricted for %d hours after %s", t.RestrictionHours, t.TriggerEvent),
	}
}

func evalLanguageRequirement(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(LanguageList)
	if !ok {
		return notFired
	}
	required := fmt.Sprintf("the contract must be provided in one of: %s", strings.Join(t.Languages, ", "))
	if in.ContractLanguage == "" {
		return FiredResult{Fired: true, Remediation: required}
	}
	for _, lang := range strings.Split(in.ContractLanguage, ",") {
		lang = strings.ToUpper(strings.TrimSpace(lang))
		for _, want := range t.Languages {
			if lang == strings.ToUpper(strings.TrimSpace(want)) {
				return notFired
			}
		}
	}
	return FiredResult{Fired: true, Remediation: required}
}

// evalRequiredDisclosure is informational: it never fires, it only carries
// the statutory disclosure text as remediation.
func evalRequiredDisclosure(r *Rule, _ ActionInput) FiredResult {
	t, ok := r.Threshold.(Disclosure)
	if !ok {
		return notFired
	}
	return FiredResult{Remediation: t.Text}
}

// evalDynamicRescission is informational: it reports the applicable
// rescission window, which lengthens under a declared disaster.
func evalDynamicRescission(r *Rule, in ActionInput) FiredResult {
	t, ok := r.Threshold.(RescissionPeriods)
	if !ok {
		return notFired
	}
	days := t.StandardDays
	if in.DeclaredDisaster {
		days = t.EmergencyDays
	}
	return FiredResult{
		Remediation: fmt.Sprintf("the insured may rescind this contract within %d days of signing", days),
	}
}

// formatPercent renders a fractional cap as a human percentage, e.g. 0.1 as
// "10%" and 0.125 as "12.5%".
func formatPercent(fraction float64) string {
	return fmt.Sprintf("%.4g%%", fraction*100)
}

// formatAmount renders a dollar amount without trailing noise, e.g. 9625 as
// "9625" and 962.5 as "962.50".
func formatAmount(amount float64) string {
	if amount == float64(int64(amount)) {
		return strconv.FormatInt(int64(amount), 10)
	}
	return fmt.Sprintf("%.2f", amount)
}

// parseClockMinutes converts "HH:MM" (or bare "HH") to minutes past midnight.
func parseClockMinutes(s string) (int, error) {
	hh, mm, found := strings.Cut(strings.TrimSpace(s), ":")
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}
	m := 0
	if found {
		m, err = strconv.Atoi(mm)
		if err != nil || m < 0 || m > 59 {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
	}
	return h*60 + m, nil
}
