package constraint

import "context"

// TierBreakdown summarizes violations and penalty contribution per tier.
type TierBreakdown struct {
	ViolationCount int
	HardCount      int
	SoftCount      int
	Penalty        float64
}

// Result is the aggregate evaluation envelope returned by Evaluate.
type Result struct {
	Violations    []Violation
	TotalPenalty  float64
	TierBreakdown map[Tier]TierBreakdown
}

// HardViolations returns only the violations that invalidate the
// schedule: every Tier-1 hard violation, plus Tier-2 hard violations
// that carry no override (severityFor demotes an overridden Tier-2
// violation to SeverityWarning, so this filter falls out of severity
// alone).
func (r Result) HardViolations() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.IsHard() && v.Severity == SeverityError {
			out = append(out, v)
		}
	}
	return out
}

// Evaluate runs every registered rule against view and aggregates the
// results. Hard violations are collected exhaustively, never
// short-circuited, so a caller sees every problem in one pass
// (spec.md §4.B: "the caller can report all problems at once").
func Evaluate(ctx context.Context, registry *Registry, view *ScheduleView, aux AuxContext) Result {
	res := Result{
		TierBreakdown: map[Tier]TierBreakdown{
			Tier1Absolute:      {},
			Tier2Institutional: {},
			Tier3Optimization:  {},
		},
	}
	for _, rule := range registry.Rules() {
		violations := rule.Evaluate(ctx, view, aux)
		for _, v := range violations {
			res.Violations = append(res.Violations, v)
			res.TotalPenalty += v.Penalty

			b := res.TierBreakdown[v.Tier]
			b.ViolationCount++
			if v.IsHard() {
				b.HardCount++
			} else {
				b.SoftCount++
			}
			b.Penalty += v.Penalty
			res.TierBreakdown[v.Tier] = b
		}
	}
	return res
}

// IsAcceptable reports whether the evaluated schedule carries no
// blocking hard violation: no Tier-1 violation at all, and no
// un-overridden Tier-2 violation.
func (r Result) IsAcceptable() bool {
	for _, v := range r.Violations {
		if v.IsHard() && v.Severity == SeverityError {
			return false
		}
	}
	return true
}
