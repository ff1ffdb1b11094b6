package swap

import (
	"context"
	"fmt"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

// weekWindow returns the [start, start+6d] inclusive calendar range for
// a week beginning on the given Monday.
func weekWindow(start entity.Date) (entity.Date, entity.Date) {
	return entity.CivilDate(start), entity.CivilDate(start).AddDate(0, 0, 6)
}

// affectedWeeks lists every week-start this request touches, used for
// in-flight conflict detection.
func affectedWeeks(req Request) []entity.Date {
	weeks := []entity.Date{entity.CivilDate(req.SourceWeekStart)}
	if req.TargetWeekStart != nil {
		weeks = append(weeks, entity.CivilDate(*req.TargetWeekStart))
	}
	return weeks
}

// swapClaims lists every (person, week) pair a request touches, so the
// in-flight index can reject a request racing another request over any
// of the same person-weeks, not just the literal source person.
func swapClaims(req Request) []personWeek {
	claims := []personWeek{{req.SourcePersonID, entity.CivilDate(req.SourceWeekStart)}}
	if req.TargetPersonID != nil && req.TargetWeekStart != nil {
		claims = append(claims, personWeek{*req.TargetPersonID, entity.CivilDate(*req.TargetWeekStart)})
	}
	return claims
}

// validateStructure runs phase 1 of spec.md §4.D and returns the
// ScheduleView the remaining phases simulate against. A non-empty
// violation list means the request fails structural validation and the
// caller should Reject without running the safety check.
func (e *Engine) validateStructure(ctx context.Context, req Request) (*constraint.ScheduleView, []string, error) {
	var problems []string

	sourceStart, sourceEnd := weekWindow(req.SourceWeekStart)
	viewStart, viewEnd := sourceStart.AddDate(0, 0, -7), sourceEnd.AddDate(0, 0, 7)

	if req.Type == entity.SwapOneToOne {
		if req.TargetPersonID == nil || req.TargetWeekStart == nil {
			problems = append(problems, "one-to-one swap requires a target person and target week")
		} else {
			targetStart, targetEnd := weekWindow(*req.TargetWeekStart)
			if targetStart.Before(viewStart) {
				viewStart = targetStart.AddDate(0, 0, -7)
			}
			if targetEnd.After(viewEnd) {
				viewEnd = targetEnd.AddDate(0, 0, 7)
			}
			if sourceStart.Equal(targetStart) {
				problems = append(problems, "source and target weeks must differ for a one-to-one swap")
			}
		}
	}

	view, err := e.store.View(ctx, viewStart, viewEnd)
	if err != nil {
		return nil, nil, err
	}

	source, ok := view.People[req.SourcePersonID]
	if !ok || source.IsDeleted() {
		problems = append(problems, "source person does not exist")
	} else if !source.Active {
		problems = append(problems, "source person is not active")
	}

	if req.Type == entity.SwapOneToOne && req.TargetPersonID != nil {
		target, ok := view.People[*req.TargetPersonID]
		if !ok || target.IsDeleted() {
			problems = append(problems, "target person does not exist")
		} else if !target.Active {
			problems = append(problems, "target person is not active")
		}
	}

	today := entity.Today()
	if sourceStart.Before(today) {
		problems = append(problems, "source week has already passed")
	}
	if req.TargetWeekStart != nil {
		targetStart, _ := weekWindow(*req.TargetWeekStart)
		if targetStart.Before(today) {
			problems = append(problems, "target week has already passed")
		}
	}

	if !hasAssignmentsInWeek(view, req.SourcePersonID, sourceStart, sourceEnd) {
		problems = append(problems, fmt.Sprintf("source person holds no assignments in the week of %s", sourceStart.Format("2006-01-02")))
	}
	if req.Type == entity.SwapOneToOne && req.TargetPersonID != nil && req.TargetWeekStart != nil {
		targetStart, targetEnd := weekWindow(*req.TargetWeekStart)
		if !hasAssignmentsInWeek(view, *req.TargetPersonID, targetStart, targetEnd) {
			problems = append(problems, fmt.Sprintf("target person holds no assignments in the week of %s", targetStart.Format("2006-01-02")))
		}
	}

	return view, problems, nil
}

func hasAssignmentsInWeek(view *constraint.ScheduleView, personID entity.PersonID, start, end entity.Date) bool {
	for _, a := range view.AssignmentsFor(personID) {
		block := view.Blocks[a.BlockID]
		if block != nil && !block.Date.Before(start) && !block.Date.After(end) {
			return true
		}
	}
	for _, c := range view.CallsFor(personID) {
		if !c.Date.Before(start) && !c.Date.After(end) {
			return true
		}
	}
	return false
}
