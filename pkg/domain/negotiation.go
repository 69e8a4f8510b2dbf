package domain

// CanUnloadResult aggregates unload eligibility across a module and its
// descendants. Overall eligibility is the logical AND of all participants;
// rejection reasons are merged in poll order and never suppressed by other
// participants' approval.
type CanUnloadResult struct {
	Eligible bool
	Reasons  []string
}

// Eligible returns an approving result with no reasons.
func Eligible() CanUnloadResult {
	return CanUnloadResult{Eligible: true}
}

// Ineligible returns a rejecting result carrying the given reasons.
func Ineligible(reasons ...string) CanUnloadResult {
	return CanUnloadResult{Eligible: false, Reasons: reasons}
}

// Merge combines two results: eligibility is ANDed and reasons are appended
// in order.
func (r CanUnloadResult) Merge(other CanUnloadResult) CanUnloadResult {
	return CanUnloadResult{
		Eligible: r.Eligible && other.Eligible,
		Reasons:  append(append([]string{}, r.Reasons...), other.Reasons...),
	}
}
