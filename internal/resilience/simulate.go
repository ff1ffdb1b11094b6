package resilience

import (
	"context"
	"sort"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

// Window bounds the date range a disruption simulation is run over.
type Window struct {
	Start, End entity.Date
}

// simulateRemoval evaluates the effect of removing every assignment and
// call assignment held by the given persons, within window, from view.
// It is the shared core of both N-1 (one person) and N-2 (a pair):
// spec.md §4.E describes N-2 as "same [procedure], for every unordered
// pair", so the simulation itself takes a set rather than a single id.
//
// Edge Cases Handled:
//   - A person with no assignments/calls in the window simulates to a
//     LowImpact, fully-absorbed result (nothing to redistribute).
//   - A rotation already below its minimum before removal is not
//     double-counted; only the delta caused by this removal counts.
//
// Thread Safety: reads only; safe to call concurrently across disjoint
// candidate sets, which is what the N-1/N-2 worker pools do.
func simulateRemoval(ctx context.Context, view *constraint.ScheduleView, registry *constraint.Registry, aux constraint.AuxContext, baseline constraint.Result, removed []entity.PersonID, window Window) PersonImpact {
	removedSet := map[entity.PersonID]bool{}
	for _, id := range removed {
		removedSet[id] = true
	}

	remainingAssignments := make([]entity.Assignment, 0, len(view.Assignments))
	lostByBlock := map[entity.BlockID][]entity.Assignment{}
	for _, a := range view.Assignments {
		block := view.Blocks[a.BlockID]
		inWindow := block != nil && !block.Date.Before(window.Start) && !block.Date.After(window.End)
		if removedSet[a.PersonID] && inWindow {
			lostByBlock[a.BlockID] = append(lostByBlock[a.BlockID], a)
			continue
		}
		remainingAssignments = append(remainingAssignments, a)
	}

	remainingCalls := make([]entity.CallAssignment, 0, len(view.CallAssignments))
	for _, c := range view.CallAssignments {
		inWindow := !c.Date.Before(window.Start) && !c.Date.After(window.End)
		if removedSet[c.PersonID] && inWindow {
			continue
		}
		remainingCalls = append(remainingCalls, c)
	}

	simView := constraint.NewScheduleView(view.Start, view.End, view.People, view.Rotations, view.Blocks, remainingAssignments, remainingCalls)
	result := constraint.Evaluate(ctx, registry, simView, aux)

	impact := PersonImpact{EstimatedRecoveryDays: 0, Classification: LowImpact}
	if len(removed) == 1 {
		impact.PersonID = removed[0]
	}

	affectedRotations := map[entity.RotationID]bool{}
	affectedDays := map[string]bool{}
	for blockID, lost := range lostByBlock {
		rot := rotationOfAssignments(lost, view)
		if rot == nil {
			continue
		}
		remainingOnBlock := countRemainingOnBlock(simView, blockID, rot.ID)
		lostOnRotation := 0
		for _, a := range lost {
			if a.RotationID == rot.ID {
				lostOnRotation++
			}
		}
		shortfall := rot.MinCoveragePerBlock - remainingOnBlock
		if before := rot.MinCoveragePerBlock - (remainingOnBlock + lostOnRotation); before > 0 {
			shortfall -= before
		}
		if shortfall > 0 {
			affectedRotations[rot.ID] = true
			impact.UnderstaffedSlotHours += defaultSlotHours * float64(shortfall)
			if block := view.Blocks[blockID]; block != nil {
				affectedDays[block.Date.Format("2006-01-02")] = true
			}
		}
	}
	for id := range affectedRotations {
		impact.AffectedRotations = append(impact.AffectedRotations, id)
	}
	sort.Slice(impact.AffectedRotations, func(i, j int) bool {
		return impact.AffectedRotations[i].String() < impact.AffectedRotations[j].String()
	})

	for _, v := range result.Violations {
		if !v.IsHard() || v.Tier != constraint.Tier1Absolute {
			continue
		}
		if !inducedByBaseline(baseline, v) {
			impact.InducedViolationRuleIDs = append(impact.InducedViolationRuleIDs, v.RuleID)
		}
	}

	impact.RequiresReassignment = candidatesFor(view, affectedRotations, removedSet)

	switch {
	case impact.UnderstaffedSlotHours > 0:
		impact.Classification = Critical
		impact.EstimatedRecoveryDays = len(affectedDays)
	case len(impact.RequiresReassignment) > 0 && len(impact.RequiresReassignment) < 2:
		impact.Classification = HighImpact
		impact.EstimatedRecoveryDays = 1
	default:
		impact.Classification = LowImpact
		impact.EstimatedRecoveryDays = 0
	}

	return impact
}

func rotationOfAssignments(lost []entity.Assignment, view *constraint.ScheduleView) *entity.Rotation {
	if len(lost) == 0 {
		return nil
	}
	return view.Rotations[lost[0].RotationID]
}

func countRemainingOnBlock(view *constraint.ScheduleView, blockID entity.BlockID, rotationID entity.RotationID) int {
	n := 0
	for _, a := range view.AssignmentsOnBlock(blockID) {
		if a.RotationID == rotationID {
			n++
		}
	}
	return n
}

// candidatesFor lists active, qualified people (not already removed)
// who could absorb duty on any of the affected rotations.
func candidatesFor(view *constraint.ScheduleView, affectedRotations map[entity.RotationID]bool, removed map[entity.PersonID]bool) []entity.PersonID {
	var out []entity.PersonID
	for _, p := range view.People {
		if removed[p.ID] || !p.Active || p.IsDeleted() {
			continue
		}
		for rotID := range affectedRotations {
			rot := view.Rotations[rotID]
			if rot != nil && rot.Qualifications.Satisfies(p) {
				out = append(out, p.ID)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func inducedByBaseline(baseline constraint.Result, v constraint.Violation) bool {
	for _, bv := range baseline.Violations {
		if bv.RuleID == v.RuleID && samePerson(bv.PersonID, v.PersonID) {
			return true
		}
	}
	return false
}

func samePerson(a, b *entity.PersonID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
