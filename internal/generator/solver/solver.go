// Package solver houses the four schedule-generation strategies of
// spec.md §4.C behind one interface, grounded on the teacher's
// coverage.ResolveCoverage contract
// (internal/service/coverage/algorithm.go): a pure function over a data
// view, no hidden state, safe for concurrent use. generator.Orchestrator
// calls exactly one Solver per run, selected by the caller's Algorithm
// field.
package solver

import (
	"context"
	"time"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

// Slot is one (Block, Rotation) decision point the solver must fill
// with zero or more people, bounded by the rotation's min/max coverage.
type Slot struct {
	Block    *entity.Block
	Rotation *entity.Rotation
}

// CallSlot is one (Date, CallType) decision point: exactly one Faculty
// person, or none if unfillable.
type CallSlot struct {
	Date     entity.Date
	CallType entity.CallType
}

// Problem is the fully preprocessed input to a Solver: the slots to
// fill, the eligible roster, any rows already committed in range (so a
// rerun over a partially-scheduled range only fills gaps), and the
// tunable objective weights.
type Problem struct {
	Start, End entity.Date
	Slots      []Slot
	CallSlots  []CallSlot
	People     []*entity.Person
	Existing   *constraint.ScheduleView
	Aux        constraint.AuxContext
	Registry   *constraint.Registry
	Weights    TierWeights
	Timeout    time.Duration
}

// TierWeights mirrors config.TierWeights without importing internal/config,
// keeping this package's dependency surface limited to entity/constraint.
type TierWeights struct {
	WorkloadEquity       float64
	CallEquity           float64
	Continuity           float64
	Efficiency           float64
	Preference           float64
	UtilizationOvershoot float64
}

// Solution is the set of new rows a Solver proposes. The caller
// (generator.Orchestrator) re-validates it against the full constraint
// framework before committing; a Solver is permitted to return a
// partial, imperfect solution plus IncumbentFound=false on timeout.
type Solution struct {
	Assignments     []entity.Assignment
	CallAssignments []entity.CallAssignment
	IncumbentFound  bool
	TotalPenalty    float64
}

// Solver is the uniform interface spec.md §4.C's four algorithm
// strategies implement. Solve must honor ctx cancellation/deadline and
// return the best incumbent found so far rather than an error when the
// deadline is reached partway through search.
type Solver interface {
	Name() entity.Algorithm
	Solve(ctx context.Context, problem Problem) (Solution, error)
}

// ErrInfeasible is returned when no Tier-1-satisfying assignment exists
// for at least one mandatory slot; the caller maps this to
// engineerr.KindInfeasible.
type ErrInfeasible struct {
	UnfillableSlots []Slot
}

func (e *ErrInfeasible) Error() string {
	return "no feasible assignment exists for one or more mandatory slots"
}

// ErrUnfillableCall is returned when no eligible Faculty person exists
// for one or more call slots.
type ErrUnfillableCall struct {
	Slots []CallSlot
}

func (e *ErrUnfillableCall) Error() string {
	return "no eligible faculty candidate exists for one or more call slots"
}
