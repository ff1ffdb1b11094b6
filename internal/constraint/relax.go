package constraint

import "github.com/schedcu/residency-engine/internal/config"

// RelaxationStep describes one step the generator may take when a solve
// comes back infeasible, in the fixed order spec.md §4.B mandates:
// Tier-3 weights first, then a Tier-2 override token, never Tier 1.
type RelaxationStep struct {
	Description string
	TierWeights config.TierWeights
	OverrideRuleID string
}

// Relaxer produces the ordered sequence of relaxation attempts for a
// failed solve. It never emits a step touching Tier 1: the caller's
// retry loop must stop and report Infeasible once the steps of
// RelaxTier3 and RelaxTier2 are used up.
type Relaxer struct {
	weights config.TierWeights
}

func NewRelaxer(weights config.TierWeights) *Relaxer {
	return &Relaxer{weights: weights}
}

// RelaxTier3 returns progressively looser Tier-3 weights: first halving
// the preference weight, then also raising the equity targets by
// loosening the workload/call-equity coefficients. The caller re-solves
// after each step and stops at the first feasible result.
func (r *Relaxer) RelaxTier3() []RelaxationStep {
	w1 := r.weights
	w1.Preference *= 0.5

	w2 := w1
	w2.WorkloadEquity *= 0.5
	w2.CallEquity *= 0.5

	return []RelaxationStep{
		{Description: "lower preference weight", TierWeights: w1},
		{Description: "raise Gini target by halving equity weights", TierWeights: w2},
	}
}

// RelaxTier2 returns the ordered set of Tier-2 rule ids eligible for an
// explicit override token, in the order a generator should request
// them: coverage and continuity-clinic constraints first (most likely
// to be merely suboptimal rather than unsafe), hard-preference and
// post-call protections last (closest in spirit to patient safety).
func (r *Relaxer) RelaxTier2() []string {
	return []string{
		"MINIMUM_COVERAGE",
		"CONTINUITY_CLINIC",
		"FMIT_SEQUENCING",
		"HARD_PREFERENCE_BLOCK",
		"NF_POST_CALL",
	}
}
