package solver

import (
	"context"

	"github.com/schedcu/residency-engine/internal/entity"
)

// exactSearchSolver is the search engine shared by ExactCP and MILP.
// The corpus ships no CP-SAT or MILP solver library (checked across
// every go.mod in the example pack), so both strategies are expressed
// as the same depth-first search jointly over every slot in a block:
// each position within a slot tries its ranked candidates in order,
// recursing into the rest of the block and undoing the choice to try
// the next candidate if the recursion cannot complete the block. Blocks
// are otherwise independent: only the shared (person, block) occupancy
// map and the candidate-ranking stats carry state across blocks.
// ExactCP searches every candidate order within its node budget (small
// instances); MILP stops backtracking once its larger budget is spent
// and accepts the first complete block it finds from then on (medium
// instances). Fine-grained rolling-window constraints are left to the
// caller's post-solve re-validation (spec.md §4.C step 6); this search
// only guards qualifications, blocking absences, and (person, block)
// exclusivity.
type exactSearchSolver struct {
	name       entity.Algorithm
	nodeBudget int
	exhaustive bool
}

// NewExactCP returns the ExactCP strategy: exhaustive per-block search
// within a small node budget, intended for small instances per
// spec.md §4.C.
func NewExactCP() Solver {
	return exactSearchSolver{name: entity.AlgorithmExactCP, nodeBudget: 50_000, exhaustive: true}
}

// NewMILP returns the MILP strategy: the same search with a larger node
// budget that falls back to first-feasible once exhausted, intended
// for medium instances per spec.md §4.C.
func NewMILP() Solver {
	return exactSearchSolver{name: entity.AlgorithmMILP, nodeBudget: 500_000, exhaustive: false}
}

func (b exactSearchSolver) Name() entity.Algorithm { return b.name }

func (b exactSearchSolver) Solve(ctx context.Context, p Problem) (Solution, error) {
	stats := seedCandidateStats(p)
	already := alreadyOccupied(p)
	search := &blockSearch{already: already, stats: stats, nodeBudget: b.nodeBudget, exhaustive: b.exhaustive}

	var assignments []entity.Assignment
	var unfillable []Slot
	for _, group := range groupSlotsByBlock(p.Slots) {
		if ctx.Err() != nil {
			break
		}
		result, ok := search.solveBlock(ctx, p, group)
		if ok {
			assignments = append(assignments, result...)
		} else {
			unfillable = append(unfillable, group...)
		}
	}

	callAssignments, callErr := fillCallSlots(p, stats)
	sol := Solution{
		Assignments:     assignments,
		CallAssignments: callAssignments,
		IncumbentFound:  len(assignments) > 0 || len(callAssignments) > 0,
	}
	if len(unfillable) > 0 {
		return sol, &ErrInfeasible{UnfillableSlots: unfillable}
	}
	if callErr != nil {
		return sol, callErr
	}
	return sol, nil
}

// groupSlotsByBlock buckets slots sharing the same Block so the search
// can reason about them jointly, preserving overall sequence order.
func groupSlotsByBlock(slots []Slot) [][]Slot {
	var order []entity.BlockID
	byBlock := map[entity.BlockID][]Slot{}
	for _, s := range slots {
		if _, seen := byBlock[s.Block.ID]; !seen {
			order = append(order, s.Block.ID)
		}
		byBlock[s.Block.ID] = append(byBlock[s.Block.ID], s)
	}
	out := make([][]Slot, 0, len(order))
	for _, id := range order {
		out = append(out, byBlock[id])
	}
	return out
}

// blockSearch holds the state shared across every block solved in one
// Solve call: the occupancy map and candidate-ranking stats persist
// across blocks, the node budget is consumed cumulatively.
type blockSearch struct {
	already    map[entity.PersonID]map[entity.BlockID]bool
	stats      *candidateStats
	nodesUsed  int
	nodeBudget int
	exhaustive bool
}

// slotPosition is one unit of backtracking search: filling the n-th
// person into a given slot.
type slotPosition struct {
	slotIdx int
	seat    int
}

// solveBlock fills every slot in group to at least its minimum
// coverage via recursive backtracking, rolling back every commitment
// this block made if the block as a whole cannot be completed.
func (s *blockSearch) solveBlock(ctx context.Context, p Problem, group []Slot) ([]entity.Assignment, bool) {
	var chosen []entity.Assignment
	ok := s.fillPosition(ctx, p, group, slotPosition{0, 0}, &chosen)
	if !ok {
		for _, a := range chosen {
			delete(s.already[a.PersonID], a.BlockID)
		}
		return nil, false
	}
	for _, a := range chosen {
		rot := rotationOf(group, a.RotationID)
		s.stats.record(a.PersonID, p.Aux.HourWeight(rot.Category), false, rot.Category == entity.CategoryNightFloat)
	}
	return chosen, true
}

func rotationOf(group []Slot, id entity.RotationID) *entity.Rotation {
	for _, s := range group {
		if s.Rotation.ID == id {
			return s.Rotation
		}
	}
	return &entity.Rotation{}
}

// fillPosition is the recursive backtracking step. pos.seat counts how
// many people have been placed into group[pos.slotIdx] so far; once a
// slot reaches its minimum, fillPosition advances to the next slot, so
// the search stays shallow and never places people beyond a slot's
// minimum.
func (s *blockSearch) fillPosition(ctx context.Context, p Problem, group []Slot, pos slotPosition, chosen *[]entity.Assignment) bool {
	if pos.slotIdx >= len(group) {
		return true
	}
	slot := group[pos.slotIdx]

	if pos.seat >= slot.Rotation.MinCoveragePerBlock {
		return s.fillPosition(ctx, p, group, slotPosition{pos.slotIdx + 1, 0}, chosen)
	}
	if ctx.Err() != nil || s.nodesUsed >= s.nodeBudget {
		return s.greedyFillRest(p, group, pos, chosen)
	}

	s.nodesUsed++
	candidates := eligibleCandidates(p.People, slot, p.Aux, s.already)
	if slot.Rotation.Category == entity.CategoryNightFloat {
		s.stats.rankForNightFloat(candidates)
	} else {
		s.stats.rankDefault(candidates)
	}

	for _, candidate := range candidates {
		a := entity.Assignment{ID: newID(), BlockID: slot.Block.ID, PersonID: candidate.ID, RotationID: slot.Rotation.ID}
		if s.already[candidate.ID] == nil {
			s.already[candidate.ID] = map[entity.BlockID]bool{}
		}
		s.already[candidate.ID][slot.Block.ID] = true
		*chosen = append(*chosen, a)

		if s.fillPosition(ctx, p, group, slotPosition{pos.slotIdx, pos.seat + 1}, chosen) {
			return true
		}

		// undo and try the next candidate
		*chosen = (*chosen)[:len(*chosen)-1]
		delete(s.already[candidate.ID], slot.Block.ID)

		if !s.exhaustive && s.nodesUsed >= s.nodeBudget {
			break
		}
	}
	return false
}

// greedyFillRest handles the remainder of the search once the node
// budget or context deadline is spent, falling back to a single greedy
// pass rather than leaving the remainder entirely unfilled.
func (s *blockSearch) greedyFillRest(p Problem, group []Slot, pos slotPosition, chosen *[]entity.Assignment) bool {
	ok := true
	for i := pos.slotIdx; i < len(group); i++ {
		slot := group[i]
		start := 0
		if i == pos.slotIdx {
			start = pos.seat
		}
		for seat := start; seat < slot.Rotation.MinCoveragePerBlock; seat++ {
			candidates := eligibleCandidates(p.People, slot, p.Aux, s.already)
			if len(candidates) == 0 {
				ok = false
				break
			}
			if slot.Rotation.Category == entity.CategoryNightFloat {
				s.stats.rankForNightFloat(candidates)
			} else {
				s.stats.rankDefault(candidates)
			}
			c := candidates[0]
			if s.already[c.ID] == nil {
				s.already[c.ID] = map[entity.BlockID]bool{}
			}
			s.already[c.ID][slot.Block.ID] = true
			*chosen = append(*chosen, entity.Assignment{ID: newID(), BlockID: slot.Block.ID, PersonID: c.ID, RotationID: slot.Rotation.ID})
		}
	}
	return ok
}
