package swap

import (
	"context"
	"fmt"
	"time"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/resilience"
)

// tier2CriticalRuleIDs is the "critical subset" of spec.md §4.D: any
// violation carrying one of these rule ids forces a Flag rather than a
// silent pass, regardless of severity.
var tier2CriticalRuleIDs = map[string]bool{
	"FMIT_SEQUENCING":  true,
	"MINIMUM_COVERAGE": true,
}

// lateNoticeWindow is spec.md §4.D's "imminent <7-day notice" threshold.
const lateNoticeWindow = 7 * 24 * time.Hour

// safetyCheckResult is the accumulated evidence from phase 2 of
// spec.md §4.D, consumed by decide to produce a Decision.
type safetyCheckResult struct {
	tier1Violations []constraint.Violation
	tier1Messages   []string

	tier2Critical []constraint.Violation
	tier2Messages []string
	lateNotice    bool

	tier3Messages        []string
	utilizationDeltaPct  float64
	marginDroppedToZero  bool

	affectedAssignmentCount int
}

// runSafetyCheck evaluates the three tiers of spec.md §4.D against the
// post-swap simulated view, never short-circuiting: every tier is
// always evaluated so a Flag decision can report every contributing
// reason at once.
func (e *Engine) runSafetyCheck(ctx context.Context, view *constraint.ScheduleView, p plan, req Request) safetyCheckResult {
	simView := constraint.NewScheduleView(view.Start, view.End, view.People, view.Rotations, view.Blocks, p.simulatedAssignments, p.simulatedCalls)
	aux := constraint.AuxContext{Now: entity.Now()}

	result := constraint.Evaluate(ctx, e.registry, simView, aux)

	var check safetyCheckResult
	check.affectedAssignmentCount = len(p.affectedAssignmentIDs)

	for _, v := range result.Violations {
		if v.Tier == constraint.Tier1Absolute && v.IsHard() {
			check.tier1Violations = append(check.tier1Violations, v)
			check.tier1Messages = append(check.tier1Messages, v.Message)
			continue
		}
		if v.Tier == constraint.Tier2Institutional && tier2CriticalRuleIDs[v.RuleID] {
			check.tier2Critical = append(check.tier2Critical, v)
			check.tier2Messages = append(check.tier2Messages, v.Message)
		}
	}

	if !req.PreApproved {
		sourceStart, _ := weekWindow(req.SourceWeekStart)
		notice := sourceStart.Sub(entity.Today())
		if notice >= 0 && notice < lateNoticeWindow {
			check.lateNotice = true
			check.tier2Messages = append(check.tier2Messages, "request submitted with less than 7 days notice and no pre-approval")
		}
	}

	before := resilience.ComputeUtilization(view, e.cfg.RotationHourWeights, e.cfg.UtilizationThresholds)
	after := resilience.ComputeUtilization(simView, e.cfg.RotationHourWeights, e.cfg.UtilizationThresholds)
	check.utilizationDeltaPct = (after.Rate - before.Rate) * 100
	if check.utilizationDeltaPct > 5 {
		check.tier3Messages = append(check.tier3Messages, fmt.Sprintf("utilization delta of %.1f%% exceeds the 5%% threshold", check.utilizationDeltaPct))
	}

	window := resilience.DefaultWindow(entity.Today())
	beforeN1 := resilience.RunNMinusOne(ctx, view, e.registry, aux, window, nil, e.cfg.ResilienceWorkers)
	afterN1 := resilience.RunNMinusOne(ctx, simView, e.registry, aux, window, nil, e.cfg.ResilienceWorkers)
	if marginDroppedToZero(beforeN1, afterN1) {
		check.marginDroppedToZero = true
		check.tier3Messages = append(check.tier3Messages, "N-1 margin drops to zero for at least one previously-safe person")
	}

	return check
}

// marginDroppedToZero reports whether any person who was not Critical
// before the swap becomes Critical after it, per spec.md §4.D ("N-1
// margin drops to zero at any previously-positive point").
func marginDroppedToZero(before, after resilience.NMinusOneResult) bool {
	beforeCritical := map[entity.PersonID]bool{}
	for _, impact := range before.ByPerson {
		if impact.Classification == resilience.Critical {
			beforeCritical[impact.PersonID] = true
		}
	}
	for _, impact := range after.ByPerson {
		if impact.Classification == resilience.Critical && !beforeCritical[impact.PersonID] {
			return true
		}
	}
	return false
}
