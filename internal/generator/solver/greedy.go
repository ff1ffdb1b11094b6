package solver

import (
	"context"
	"sort"

	"github.com/schedcu/residency-engine/internal/entity"
)

// greedySolver fills slots in sequence-number order, picking the
// highest-ranked eligible candidate for each, per spec.md §4.C step 5
// ("Greedy for speed"). It never backtracks: once a slot is filled the
// choice stands. Weekend call slots are filled before weekday call
// slots within the same pass (spec.md §4.C tie-breaking policies).
type greedySolver struct{}

// NewGreedy returns the Greedy strategy.
func NewGreedy() Solver { return greedySolver{} }

func (greedySolver) Name() entity.Algorithm { return entity.AlgorithmGreedy }

func (greedySolver) Solve(ctx context.Context, p Problem) (Solution, error) {
	sol, _, err := runGreedy(ctx, p)
	return sol, err
}

// runGreedy performs one greedy pass and also returns the candidateStats
// it accumulated, so hybrid.go can reuse them as a warm start for exact
// search without re-deriving equity state from scratch.
func runGreedy(ctx context.Context, p Problem) (Solution, *candidateStats, error) {
	stats := seedCandidateStats(p)
	already := alreadyOccupied(p)

	slots := append([]Slot(nil), p.Slots...)
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Block.SequenceNumber < slots[j].Block.SequenceNumber })

	var sol Solution
	var unfillable []Slot

	for _, slot := range slots {
		select {
		case <-ctx.Done():
			sol.IncumbentFound = len(sol.Assignments) > 0 || len(sol.CallAssignments) > 0
			return sol, stats, nil
		default:
		}

		needed := slot.Rotation.MinCoveragePerBlock
		filled := 0
		for filled < slot.Rotation.MaxCoveragePerBlock {
			candidates := eligibleCandidates(p.People, slot, p.Aux, already)
			if len(candidates) == 0 {
				break
			}
			if slot.Rotation.Category == entity.CategoryNightFloat {
				stats.rankForNightFloat(candidates)
			} else {
				stats.rankDefault(candidates)
			}
			chosen := candidates[0]

			a := entity.Assignment{
				ID:         newID(),
				BlockID:    slot.Block.ID,
				PersonID:   chosen.ID,
				RotationID: slot.Rotation.ID,
			}
			sol.Assignments = append(sol.Assignments, a)
			if already[chosen.ID] == nil {
				already[chosen.ID] = map[entity.BlockID]bool{}
			}
			already[chosen.ID][slot.Block.ID] = true
			stats.record(chosen.ID, p.Aux.HourWeight(slot.Rotation.Category), false, slot.Rotation.Category == entity.CategoryNightFloat)
			filled++
		}
		if filled < needed {
			unfillable = append(unfillable, slot)
		}
	}

	callSol, callErr := fillCallSlots(p, stats)
	sol.CallAssignments = callSol

	sol.IncumbentFound = true
	if len(unfillable) > 0 {
		return sol, stats, &ErrInfeasible{UnfillableSlots: unfillable}
	}
	if callErr != nil {
		return sol, stats, callErr
	}
	return sol, stats, nil
}

// fillCallSlots assigns one Faculty person per CallSlot, weekend call
// before weekday call within the same pass so the more-constrained
// slots claim their best candidates first (spec.md §4.C tie-breaking
// policies).
func fillCallSlots(p Problem, stats *candidateStats) ([]entity.CallAssignment, error) {
	slots := append([]CallSlot(nil), p.CallSlots...)
	sort.SliceStable(slots, func(i, j int) bool {
		wi, wj := entity.IsWeekend(slots[i].Date), entity.IsWeekend(slots[j].Date)
		if wi != wj {
			return wi
		}
		return slots[i].Date.Before(slots[j].Date)
	})

	taken := map[string]bool{}
	if p.Existing != nil {
		for _, c := range p.Existing.CallAssignments {
			taken[callKey(c.Date, c.CallType)] = true
		}
	}

	var out []entity.CallAssignment
	var unfillable []CallSlot
	for _, slot := range slots {
		if taken[callKey(slot.Date, slot.CallType)] {
			continue
		}
		var candidates []*entity.Person
		for _, person := range p.People {
			if !person.Active || person.IsDeleted() || !person.IsFaculty() {
				continue
			}
			if _, blocked := p.Aux.BlockingAbsenceFor(person.ID, slot.Date); blocked {
				continue
			}
			candidates = append(candidates, person)
		}
		if len(candidates) == 0 {
			unfillable = append(unfillable, slot)
			continue
		}
		stats.rankForCall(candidates)
		chosen := candidates[0]
		c := entity.NewCallAssignment(newID(), slot.Date, chosen.ID, slot.CallType)
		out = append(out, *c)
		taken[callKey(slot.Date, slot.CallType)] = true
		stats.record(chosen.ID, p.Aux.HourWeight(entity.CategoryCall), true, false)
	}
	if len(unfillable) > 0 {
		return out, &ErrUnfillableCall{Slots: unfillable}
	}
	return out, nil
}

func callKey(d entity.Date, ct entity.CallType) string {
	return d.Format("2006-01-02") + "|" + string(ct)
}

// alreadyOccupied seeds the (person, block) occupancy set from rows
// already committed in range, so a rerun over a partially-filled range
// never double-books a block the store already holds.
func alreadyOccupied(p Problem) map[entity.PersonID]map[entity.BlockID]bool {
	out := map[entity.PersonID]map[entity.BlockID]bool{}
	if p.Existing == nil {
		return out
	}
	for _, a := range p.Existing.Assignments {
		if out[a.PersonID] == nil {
			out[a.PersonID] = map[entity.BlockID]bool{}
		}
		out[a.PersonID][a.BlockID] = true
	}
	return out
}

func eligibleCandidates(people []*entity.Person, slot Slot, aux auxLookup, already map[entity.PersonID]map[entity.BlockID]bool) []*entity.Person {
	var out []*entity.Person
	for _, person := range people {
		if !person.Active || person.IsDeleted() {
			continue
		}
		if eligible(person, slot, aux, already) {
			out = append(out, person)
		}
	}
	return out
}
