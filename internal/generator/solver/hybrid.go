package solver

import (
	"context"

	"github.com/schedcu/residency-engine/internal/entity"
)

// hybridSolver runs Greedy first, then retries the exact-search engine
// over every block that Greedy could not fully fill, per spec.md §4.C
// step 5 ("Hybrid runs greedy, then uses exact search with the greedy
// solution as warm start"). This is the default algorithm.
//
// The retry re-opens the *entire* block, not just the slot Greedy left
// empty: Greedy's per-slot choice earlier in the same block can be
// exactly what makes a later slot unfillable (a person who qualified
// for both slots got claimed by the first), and only backtracking over
// the whole block can recover from that. A block the retry still
// cannot complete keeps Greedy's original partial fill for that block
// rather than losing it.
type hybridSolver struct{}

// NewHybrid returns the Hybrid strategy.
func NewHybrid() Solver { return hybridSolver{} }

func (hybridSolver) Name() entity.Algorithm { return entity.AlgorithmHybrid }

func (hybridSolver) Solve(ctx context.Context, p Problem) (Solution, error) {
	greedySol, stats, greedyErr := runGreedy(ctx, p)
	infeasible, isInfeasible := greedyErr.(*ErrInfeasible)
	if greedyErr == nil {
		return greedySol, nil
	}
	if !isInfeasible {
		return greedySol, greedyErr
	}

	blockGroups := map[entity.BlockID][]Slot{}
	for _, group := range groupSlotsByBlock(p.Slots) {
		blockGroups[group[0].Block.ID] = group
	}

	retryOrder := []entity.BlockID{}
	unfillableByBlock := map[entity.BlockID][]Slot{}
	for _, s := range infeasible.UnfillableSlots {
		if _, seen := unfillableByBlock[s.Block.ID]; !seen {
			retryOrder = append(retryOrder, s.Block.ID)
		}
		unfillableByBlock[s.Block.ID] = append(unfillableByBlock[s.Block.ID], s)
	}

	already := map[entity.PersonID]map[entity.BlockID]bool{}
	for _, a := range append(append([]entity.Assignment(nil), p.existingAssignments()...), greedySol.Assignments...) {
		if already[a.PersonID] == nil {
			already[a.PersonID] = map[entity.BlockID]bool{}
		}
		already[a.PersonID][a.BlockID] = true
	}

	greedyByBlock := map[entity.BlockID][]entity.Assignment{}
	var kept []entity.Assignment
	for _, a := range greedySol.Assignments {
		if _, retrying := unfillableByBlock[a.BlockID]; retrying {
			greedyByBlock[a.BlockID] = append(greedyByBlock[a.BlockID], a)
			delete(already[a.PersonID], a.BlockID)
			continue
		}
		kept = append(kept, a)
	}

	search := &blockSearch{already: already, stats: stats, nodeBudget: 50_000, exhaustive: true}

	var stillUnfillable []Slot
	for _, blockID := range retryOrder {
		if ctx.Err() != nil {
			kept = append(kept, greedyByBlock[blockID]...)
			stillUnfillable = append(stillUnfillable, unfillableByBlock[blockID]...)
			continue
		}
		group := blockGroups[blockID]
		result, ok := search.solveBlock(ctx, p, group)
		if ok {
			kept = append(kept, result...)
			continue
		}
		// The block still can't be completed; restore Greedy's partial
		// fill for it rather than losing progress.
		for _, a := range greedyByBlock[blockID] {
			kept = append(kept, a)
			if already[a.PersonID] == nil {
				already[a.PersonID] = map[entity.BlockID]bool{}
			}
			already[a.PersonID][a.BlockID] = true
		}
		stillUnfillable = append(stillUnfillable, unfillableByBlock[blockID]...)
	}

	sol := Solution{
		Assignments:     kept,
		CallAssignments: greedySol.CallAssignments,
		IncumbentFound:  true,
	}
	if len(stillUnfillable) > 0 {
		return sol, &ErrInfeasible{UnfillableSlots: stillUnfillable}
	}
	return sol, nil
}

func (p Problem) existingAssignments() []entity.Assignment {
	if p.Existing == nil {
		return nil
	}
	return p.Existing.Assignments
}
