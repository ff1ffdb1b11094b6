package swap

import (
	"github.com/google/uuid"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

// plan is the concrete set of row-level mutations a Request implies,
// plus the full post-swap assignment/call set used to build the
// simulated view the safety check evaluates against.
type plan struct {
	newAssignments          []entity.Assignment
	removeAssignmentIDs     []entity.AssignmentID
	newCallAssignments      []entity.CallAssignment
	removeCallAssignmentIDs []entity.CallAssignmentID

	affectedAssignmentIDs     []entity.AssignmentID
	affectedCallAssignmentIDs []entity.CallAssignmentID

	simulatedAssignments []entity.Assignment
	simulatedCalls       []entity.CallAssignment
}

// applySwap computes the row-level effect of req against view: for
// SwapOneToOne, every Assignment/CallAssignment the source holds in
// their week is reassigned to the target and vice versa; for
// SwapAbsorb, every row the source holds in their week is reassigned to
// nobody (removed with no replacement), per spec.md §4.D's "Absorb"
// variant ("give away with no replacement").
func applySwap(view *constraint.ScheduleView, req Request) plan {
	sourceStart, sourceEnd := weekWindow(req.SourceWeekStart)

	p := plan{}
	remainingAssignments := make([]entity.Assignment, 0, len(view.Assignments))
	remainingCalls := make([]entity.CallAssignment, 0, len(view.CallAssignments))

	var targetStart, targetEnd entity.Date
	if req.TargetWeekStart != nil {
		targetStart, targetEnd = weekWindow(*req.TargetWeekStart)
	}

	for _, a := range view.Assignments {
		block := view.Blocks[a.BlockID]
		inSourceWeek := block != nil && a.PersonID == req.SourcePersonID && inWindow(block.Date, sourceStart, sourceEnd)
		inTargetWeek := req.Type == entity.SwapOneToOne && req.TargetPersonID != nil && block != nil &&
			a.PersonID == *req.TargetPersonID && inWindow(block.Date, targetStart, targetEnd)

		switch {
		case inSourceWeek:
			p.affectedAssignmentIDs = append(p.affectedAssignmentIDs, a.ID)
			p.removeAssignmentIDs = append(p.removeAssignmentIDs, a.ID)
			if req.Type == entity.SwapOneToOne && req.TargetPersonID != nil {
				replacement := a
				replacement.PersonID = *req.TargetPersonID
				p.newAssignments = append(p.newAssignments, replacement)
				remainingAssignments = append(remainingAssignments, replacement)
			}
		case inTargetWeek:
			p.affectedAssignmentIDs = append(p.affectedAssignmentIDs, a.ID)
			p.removeAssignmentIDs = append(p.removeAssignmentIDs, a.ID)
			replacement := a
			replacement.PersonID = req.SourcePersonID
			p.newAssignments = append(p.newAssignments, replacement)
			remainingAssignments = append(remainingAssignments, replacement)
		default:
			remainingAssignments = append(remainingAssignments, a)
		}
	}

	for _, c := range view.CallAssignments {
		inSourceWeek := c.PersonID == req.SourcePersonID && inWindow(c.Date, sourceStart, sourceEnd)
		inTargetWeek := req.Type == entity.SwapOneToOne && req.TargetPersonID != nil &&
			c.PersonID == *req.TargetPersonID && inWindow(c.Date, targetStart, targetEnd)

		switch {
		case inSourceWeek:
			p.affectedCallAssignmentIDs = append(p.affectedCallAssignmentIDs, c.ID)
			p.removeCallAssignmentIDs = append(p.removeCallAssignmentIDs, c.ID)
			if req.Type == entity.SwapOneToOne && req.TargetPersonID != nil {
				replacement := c
				replacement.PersonID = *req.TargetPersonID
				p.newCallAssignments = append(p.newCallAssignments, replacement)
				remainingCalls = append(remainingCalls, replacement)
			}
		case inTargetWeek:
			p.affectedCallAssignmentIDs = append(p.affectedCallAssignmentIDs, c.ID)
			p.removeCallAssignmentIDs = append(p.removeCallAssignmentIDs, c.ID)
			replacement := c
			replacement.PersonID = req.SourcePersonID
			p.newCallAssignments = append(p.newCallAssignments, replacement)
			remainingCalls = append(remainingCalls, replacement)
		default:
			remainingCalls = append(remainingCalls, c)
		}
	}

	p.simulatedAssignments = remainingAssignments
	p.simulatedCalls = remainingCalls
	return p
}

func inWindow(d, start, end entity.Date) bool {
	return !d.Before(start) && !d.After(end)
}

func newAssignmentID() entity.AssignmentID         { return uuid.New() }
func newCallAssignmentID() entity.CallAssignmentID { return uuid.New() }
func newSwapID() entity.SwapRecordID               { return uuid.New() }
func newAuditEventID() entity.AuditEventID         { return uuid.New() }
func newSnapshotID() entity.SnapshotID             { return uuid.New() }
