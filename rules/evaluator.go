package rules

// EvaluateRule dispatches a rule to the handler for its logic type and
// returns the handler's outcome. An unrecognized logic type resolves to
// not-fired rather than an error: the catalog evolves independently of the
// engine version, and a newer rule kind must degrade to a no-op here.
func EvaluateRule(r *Rule, in ActionInput) FiredResult {
	switch r.LogicType {
	case LogicForbiddenKeyword:
		return evalForbiddenKeyword(r, in)
	case LogicForbiddenAction:
		return evalForbiddenAction(r, in)
	case LogicForbiddenFeeType:
		return evalForbiddenFeeType(r, in)
	case LogicForbiddenService:
		return evalForbiddenService(r, in)
	case LogicMaxPercentage:
		return evalMaxPercentage(r, in)
	case LogicMaxFlatFee:
		return evalMaxFlatFee(r, in)
	case LogicDynamicCap:
		return evalDynamicCap(r, in)
	case LogicSlidingScale:
		return evalSlidingScale(r, in)
	case LogicTimeWindow:
		return evalTimeWindow(r, in)
	case LogicTimeBasedRestriction:
		return evalTimeBasedRestriction(r, in)
	case LogicLanguageRequirement:
		return evalLanguageRequirement(r, in)
	case LogicRequiredDisclosure:
		return evalRequiredDisclosure(r, in)
	case LogicDynamicRescission:
		return evalDynamicRescission(r, in)
	default:
		return notFired
	}
}

// informational reports whether a logic type never fires and only carries
// remediation text. These rules are surfaced through Engine.Notices rather
// than through verdicts.
func informational(lt LogicType) bool {
	return lt == LogicRequiredDisclosure || lt == LogicDynamicRescission
}
