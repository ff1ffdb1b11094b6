// Package constraint implements the three-tier constraint framework of
// spec.md §4.B: a uniform Constraint interface, a Violation tagged
// variant, and an aggregate evaluator that never short-circuits hard
// violations. The package generalizes the teacher's
// internal/validation.Result (severity levels, Add* builders,
// IsValid/CanPromote gates) from a single flat message list into a
// typed catalog of independently evaluable rules.
package constraint

import (
	"sort"
	"time"

	"github.com/schedcu/residency-engine/internal/entity"
)

// ScheduleView is a read-only, point-in-time view of the schedule data
// a Constraint needs to evaluate: the candidate assignment set plus
// enough surrounding context (blocks, rotations, people) to reason
// about qualifications, supervision ratios, and rolling windows.
// Building a View is the store's job; evaluating one is this
// package's.
type ScheduleView struct {
	Start time.Time
	End   time.Time

	People     map[entity.PersonID]*entity.Person
	Rotations  map[entity.RotationID]*entity.Rotation
	Blocks     map[entity.BlockID]*entity.Block

	Assignments     []entity.Assignment
	CallAssignments []entity.CallAssignment

	// byPersonAssignments and byBlockAssignments are derived indexes
	// built by NewScheduleView for O(1) lookups during evaluation.
	byPersonAssignments map[entity.PersonID][]entity.Assignment
	byBlockAssignments  map[entity.BlockID][]entity.Assignment
	byPersonCalls       map[entity.PersonID][]entity.CallAssignment
}

// NewScheduleView builds a ScheduleView and its lookup indexes.
func NewScheduleView(
	start, end time.Time,
	people map[entity.PersonID]*entity.Person,
	rotations map[entity.RotationID]*entity.Rotation,
	blocks map[entity.BlockID]*entity.Block,
	assignments []entity.Assignment,
	calls []entity.CallAssignment,
) *ScheduleView {
	v := &ScheduleView{
		Start: start, End: end,
		People: people, Rotations: rotations, Blocks: blocks,
		Assignments: assignments, CallAssignments: calls,
		byPersonAssignments: make(map[entity.PersonID][]entity.Assignment),
		byBlockAssignments:  make(map[entity.BlockID][]entity.Assignment),
		byPersonCalls:       make(map[entity.PersonID][]entity.CallAssignment),
	}
	for _, a := range assignments {
		v.byPersonAssignments[a.PersonID] = append(v.byPersonAssignments[a.PersonID], a)
		v.byBlockAssignments[a.BlockID] = append(v.byBlockAssignments[a.BlockID], a)
	}
	for _, c := range calls {
		v.byPersonCalls[c.PersonID] = append(v.byPersonCalls[c.PersonID], c)
	}
	for _, list := range v.byPersonAssignments {
		sort.Slice(list, func(i, j int) bool {
			bi, bj := v.Blocks[list[i].BlockID], v.Blocks[list[j].BlockID]
			if bi == nil || bj == nil {
				return false
			}
			return bi.Date.Before(bj.Date)
		})
	}
	return v
}

// AssignmentsFor returns a person's assignments, sorted by block date.
func (v *ScheduleView) AssignmentsFor(personID entity.PersonID) []entity.Assignment {
	return v.byPersonAssignments[personID]
}

// AssignmentsOnBlock returns every assignment occupying a block.
func (v *ScheduleView) AssignmentsOnBlock(blockID entity.BlockID) []entity.Assignment {
	return v.byBlockAssignments[blockID]
}

// CallsFor returns a person's call assignments.
func (v *ScheduleView) CallsFor(personID entity.PersonID) []entity.CallAssignment {
	return v.byPersonCalls[personID]
}

// AuxContext supplies data outside the candidate assignment set itself
// that evaluators need: approved absences, the rotation duty-hour
// weight table, and an override token set for Tier-2 relaxation.
type AuxContext struct {
	Absences           []entity.Absence
	RotationHourWeight map[entity.RotationCategory]float64
	OverriddenRuleIDs  map[string]bool
	Now                time.Time
}

// BlockingAbsenceFor reports whether personID has a blocking Absence
// covering date d.
func (a AuxContext) BlockingAbsenceFor(personID entity.PersonID, d time.Time) (entity.Absence, bool) {
	for _, ab := range a.Absences {
		if ab.PersonID == personID && ab.Blocking && ab.Covers(d) {
			return ab, true
		}
	}
	return entity.Absence{}, false
}

// HourWeight returns the configured duty-hour weight for a rotation
// category, defaulting to 8 (the default Clinic weight) if unconfigured.
// Callers that count one half-day Block use half of this weight.
func (a AuxContext) HourWeight(cat entity.RotationCategory) float64 {
	if w, ok := a.RotationHourWeight[cat]; ok {
		return w
	}
	return 8
}
