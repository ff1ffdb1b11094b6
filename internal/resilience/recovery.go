package resilience

// MitigationKind enumerates the inventory spec.md §4.E names explicitly:
// supplemental staff (subject to an onboarding delay), cross-trained
// residents, and an overtime budget.
type MitigationKind string

const (
	MitigationSupplementalStaff MitigationKind = "SUPPLEMENTAL_STAFF"
	MitigationCrossTrained      MitigationKind = "CROSS_TRAINED_RESIDENT"
	MitigationOvertime          MitigationKind = "OVERTIME"
)

// defaultOnboardingHours is spec.md §4.E's stated default: "Onboarding
// adds 32 hours to supplemental strategies by default."
const defaultOnboardingHours = 32.0

// Mitigation is one entry in the recovery inventory a caller supplies.
type Mitigation struct {
	Kind MitigationKind

	// CapacityHours is how much understaffed duty this mitigation can
	// absorb once available.
	CapacityHours float64

	// OnboardingDelayHours overrides defaultOnboardingHours for a
	// MitigationSupplementalStaff entry; zero means "use the default".
	// Ignored for other kinds, which are assumed immediately available.
	OnboardingDelayHours float64
}

// RecoveryStrategy is one evaluated mitigation against a disruption.
type RecoveryStrategy struct {
	Mitigation  Mitigation
	DelayHours  float64
	Feasible    bool
}

// RecoveryPlan is the result of evaluating every candidate mitigation
// against a disruption and picking the fastest feasible one.
type RecoveryPlan struct {
	Disruption PersonImpact
	Strategies []RecoveryStrategy
	Chosen     *RecoveryStrategy
}

// PlanRecovery evaluates every mitigation in inventory against
// disruption's understaffed hours and selects the fastest feasible
// strategy, per spec.md §4.E ("evaluate strategies and pick the fastest
// feasible one").
//
// Edge Cases Handled:
//   - disruption.UnderstaffedSlotHours == 0 → every mitigation is
//     trivially feasible; the one with the smallest delay is chosen,
//     the first in inventory order among equal delays (supplemental
//     staff still carries its onboarding delay).
//   - No feasible mitigation exists → Chosen is nil; the caller must
//     escalate rather than rely on an automatic plan.
func PlanRecovery(disruption PersonImpact, inventory []Mitigation) RecoveryPlan {
	plan := RecoveryPlan{Disruption: disruption}

	for _, m := range inventory {
		delay := 0.0
		if m.Kind == MitigationSupplementalStaff {
			delay = m.OnboardingDelayHours
			if delay == 0 {
				delay = defaultOnboardingHours
			}
		}
		feasible := m.CapacityHours >= disruption.UnderstaffedSlotHours
		strategy := RecoveryStrategy{Mitigation: m, DelayHours: delay, Feasible: feasible}
		plan.Strategies = append(plan.Strategies, strategy)

		if !feasible {
			continue
		}
		if plan.Chosen == nil || strategy.DelayHours < plan.Chosen.DelayHours {
			chosen := strategy
			plan.Chosen = &chosen
		}
	}

	return plan
}
