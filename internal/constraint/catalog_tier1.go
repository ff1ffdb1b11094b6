package constraint

import (
	"context"
	"time"

	"github.com/schedcu/residency-engine/internal/entity"
)

func registerTier1(r *Registry) {
	r.Register(eightyHourRule{})
	r.Register(oneInSevenRule{})
	r.Register(supervisionRatioRule{})
	r.Register(dutyPeriodLimitRule{})
	r.Register(nightFloatConsecutiveRule{})
	r.Register(callFrequencyRule{})
	r.Register(deploymentBlockingRule{})
	r.Register(qualificationMatchRule{})
}

// rollingWindows returns the start dates of every 28-day window ending
// on view.Start or a 7-day step after it inside [view.Start, view.End], per
// spec.md §4.B ("every rolling 4-week window ending on any week in the
// range").
func rollingWindows(start, end time.Time) []time.Time {
	var windows []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
		windows = append(windows, d.AddDate(0, 0, -27))
	}
	return windows
}

func dutyHoursInWindow(v *ScheduleView, aux AuxContext, personID entity.PersonID, winStart, winEnd time.Time) float64 {
	total := 0.0
	for _, a := range v.AssignmentsFor(personID) {
		b := v.Blocks[a.BlockID]
		if b == nil || b.Date.Before(winStart) || b.Date.After(winEnd) {
			continue
		}
		rot := v.Rotations[a.RotationID]
		cat := entity.RotationCategory("")
		if rot != nil {
			cat = rot.Category
		}
		total += aux.HourWeight(cat) / 2 // a Block is a half-day slot
	}
	if p := v.People[personID]; p != nil {
		total += p.MoonlightingHours
	}
	return total
}

// --- 1. 80-hour rule -------------------------------------------------

type eightyHourRule struct{}

func (eightyHourRule) ID() string    { return "ACGME_80_HOUR" }
func (eightyHourRule) Tier() Tier    { return Tier1Absolute }
func (eightyHourRule) Kind() Kind    { return KindHard }
func (eightyHourRule) Scope() Scope  { return ScopePerson }

func (eightyHourRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for personID := range v.People {
		for _, winStart := range rollingWindows(v.Start, v.End) {
			winEnd := winStart.AddDate(0, 0, 27)
			hours := dutyHoursInWindow(v, aux, personID, winStart, winEnd)
			avgWeekly := hours / 4
			pid := personID
			if avgWeekly > 80 {
				out = append(out, Violation{
					RuleID: "ACGME_80_HOUR", Tier: Tier1Absolute, Kind: KindHard,
					Severity: SeverityError, PersonID: &pid,
					Message: "average weekly duty hours exceed 80 over rolling 4-week window",
					Context: map[string]any{"window_start": winStart, "avg_weekly_hours": avgWeekly, "limit": 80.0},
				})
			} else if avgWeekly >= 75 {
				out = append(out, Violation{
					RuleID: "ACGME_80_HOUR", Tier: Tier1Absolute, Kind: KindHard,
					Severity: SeverityWarning, PersonID: &pid,
					Message: "average weekly duty hours approaching the 80-hour limit",
					Context: map[string]any{"window_start": winStart, "avg_weekly_hours": avgWeekly, "limit": 80.0},
				})
			}
		}
	}
	return out
}

// --- 2. 1-in-7 rule ---------------------------------------------------

type oneInSevenRule struct{}

func (oneInSevenRule) ID() string   { return "ACGME_ONE_IN_SEVEN" }
func (oneInSevenRule) Tier() Tier   { return Tier1Absolute }
func (oneInSevenRule) Kind() Kind   { return KindHard }
func (oneInSevenRule) Scope() Scope { return ScopePerson }

// fullDaysOff counts calendar days in [winStart, winEnd] with zero duty
// hours, requiring 24 duty-free consecutive hours including any
// post-call transition: a day counts only if neither it nor the day
// before carries an assignment or call that could spill into it.
func fullDaysOff(v *ScheduleView, personID entity.PersonID, winStart, winEnd time.Time) int {
	busy := map[string]bool{}
	for _, a := range v.AssignmentsFor(personID) {
		if b := v.Blocks[a.BlockID]; b != nil {
			busy[b.Date.Format("2006-01-02")] = true
		}
	}
	for _, c := range v.CallsFor(personID) {
		busy[c.Date.Format("2006-01-02")] = true
		busy[c.Date.AddDate(0, 0, 1).Format("2006-01-02")] = true // post-call transition
	}
	count := 0
	for d := winStart; !d.After(winEnd); d = d.AddDate(0, 0, 1) {
		if !busy[d.Format("2006-01-02")] {
			count++
		}
	}
	return count
}

func (oneInSevenRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for personID := range v.People {
		for _, winStart := range rollingWindows(v.Start, v.End) {
			winEnd := winStart.AddDate(0, 0, 27)
			daysOff := fullDaysOff(v, personID, winStart, winEnd)
			if daysOff < 4 {
				pid := personID
				out = append(out, Violation{
					RuleID: "ACGME_ONE_IN_SEVEN", Tier: Tier1Absolute, Kind: KindHard,
					Severity: SeverityError, PersonID: &pid,
					Message: "fewer than 4 full days off in rolling 4-week window",
					Context: map[string]any{"window_start": winStart, "full_days_off": daysOff, "required": 4},
				})
			}
		}
	}
	return out
}

// --- 3. Supervision ratios -------------------------------------------

type supervisionRatioRule struct{}

func (supervisionRatioRule) ID() string   { return "PGY1_SUPERVISION" }
func (supervisionRatioRule) Tier() Tier   { return Tier1Absolute }
func (supervisionRatioRule) Kind() Kind   { return KindHard }
func (supervisionRatioRule) Scope() Scope { return ScopeBlock }

func (supervisionRatioRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for blockID, assignments := range groupByBlock(v) {
		byRotation := map[entity.RotationID][]entity.Assignment{}
		for _, a := range assignments {
			byRotation[a.RotationID] = append(byRotation[a.RotationID], a)
		}
		for rotationID, rotAssignments := range byRotation {
			rot := v.Rotations[rotationID]
			if rot == nil || (rot.Category != entity.CategoryInpatient && rot.Category != entity.CategoryClinic) {
				continue
			}
			pgy1, pgy23, faculty := 0, 0, 0
			for _, a := range rotAssignments {
				p := v.People[a.PersonID]
				if p == nil {
					continue
				}
				switch {
				case p.IsFaculty():
					faculty++
				case p.PGYLevel() == 1:
					pgy1++
				case p.PGYLevel() == 2 || p.PGYLevel() == 3:
					pgy23++
				}
			}
			bID := blockID
			rID := rotationID
			if faculty == 0 && (pgy1 > 0 || pgy23 > 0) {
				out = append(out, Violation{
					RuleID: "PGY1_SUPERVISION", Tier: Tier1Absolute, Kind: KindHard,
					Severity: SeverityError, BlockID: &bID, RotationID: &rID,
					Message: "residents assigned with no supervising faculty on the block",
					Context: map[string]any{"pgy1": pgy1, "pgy2_3": pgy23, "faculty": faculty},
				})
				continue
			}
			if faculty == 0 {
				continue
			}
			if ratio := float64(pgy1) / float64(faculty); pgy1 > 0 && ratio > 2 {
				out = append(out, Violation{
					RuleID: "PGY1_SUPERVISION", Tier: Tier1Absolute, Kind: KindHard,
					Severity: SeverityError, BlockID: &bID, RotationID: &rID,
					Message: "PGY-1 to faculty ratio exceeds 2:1",
					Context: map[string]any{
						"rule": "PGY1_SUPERVISION",
						"current_ratio": "2:1",
						"proposed":      pgyRatioLabel(pgy1, faculty),
					},
				})
			}
			if ratio := float64(pgy23) / float64(faculty); pgy23 > 0 && ratio > 4 {
				out = append(out, Violation{
					RuleID: "PGY23_SUPERVISION", Tier: Tier1Absolute, Kind: KindHard,
					Severity: SeverityError, BlockID: &bID, RotationID: &rID,
					Message: "PGY-2/3 to faculty ratio exceeds 4:1",
					Context: map[string]any{
						"rule": "PGY23_SUPERVISION",
						"current_ratio": "4:1",
						"proposed":      pgyRatioLabel(pgy23, faculty),
					},
				})
			}
		}
	}
	return out
}

func pgyRatioLabel(residents, faculty int) string {
	return itoa(residents) + ":" + itoa(faculty)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

func groupByBlock(v *ScheduleView) map[entity.BlockID][]entity.Assignment {
	out := map[entity.BlockID][]entity.Assignment{}
	for _, a := range v.Assignments {
		out[a.BlockID] = append(out[a.BlockID], a)
	}
	return out
}

// --- 4. Duty-period limit --------------------------------------------

type dutyPeriodLimitRule struct{}

func (dutyPeriodLimitRule) ID() string   { return "DUTY_PERIOD_LIMIT" }
func (dutyPeriodLimitRule) Tier() Tier   { return Tier1Absolute }
func (dutyPeriodLimitRule) Kind() Kind   { return KindHard }
func (dutyPeriodLimitRule) Scope() Scope { return ScopePerson }

// A call night followed immediately by a next-day AM assignment forms
// a duty period exceeding 24 hours only if it is also followed by
// *another* same-day PM assignment beyond the 4-hour handoff
// transition; new-patient (non-handoff) assignments are never
// permitted in that extension window.
func (dutyPeriodLimitRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for personID := range v.People {
		calls := v.CallsFor(personID)
		for _, c := range calls {
			nextDay := c.Date.AddDate(0, 0, 1)
			hasAM := hasAssignmentOn(v, personID, nextDay, entity.SessionAM)
			hasPM := hasAssignmentOn(v, personID, nextDay, entity.SessionPM)
			if hasAM && hasPM {
				pid := personID
				out = append(out, Violation{
					RuleID: "DUTY_PERIOD_LIMIT", Tier: Tier1Absolute, Kind: KindHard,
					Severity: SeverityError, PersonID: &pid,
					Message: "duty period exceeds 24 hours: new assignments scheduled beyond the handoff transition",
					Context: map[string]any{"call_date": c.Date, "next_day": nextDay},
				})
			}
		}
	}
	return out
}

func hasAssignmentOn(v *ScheduleView, personID entity.PersonID, date time.Time, session entity.Session) bool {
	for _, a := range v.AssignmentsFor(personID) {
		b := v.Blocks[a.BlockID]
		if b != nil && b.Session == session && b.Date.Equal(entity.CivilDate(date)) {
			return true
		}
	}
	return false
}

// --- 5. Night-Float consecutive-nights limit -------------------------

type nightFloatConsecutiveRule struct{}

func (nightFloatConsecutiveRule) ID() string   { return "NF_CONSECUTIVE_NIGHTS" }
func (nightFloatConsecutiveRule) Tier() Tier   { return Tier1Absolute }
func (nightFloatConsecutiveRule) Kind() Kind   { return KindHard }
func (nightFloatConsecutiveRule) Scope() Scope { return ScopePerson }

func (nightFloatConsecutiveRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for personID := range v.People {
		var nfDates []time.Time
		for _, a := range v.AssignmentsFor(personID) {
			rot := v.Rotations[a.RotationID]
			if rot == nil || rot.Category != entity.CategoryNightFloat {
				continue
			}
			if b := v.Blocks[a.BlockID]; b != nil {
				nfDates = append(nfDates, b.Date)
			}
		}
		run := longestConsecutiveRun(nfDates)
		if run > 6 {
			pid := personID
			out = append(out, Violation{
				RuleID: "NF_CONSECUTIVE_NIGHTS", Tier: Tier1Absolute, Kind: KindHard,
				Severity: SeverityError, PersonID: &pid,
				Message: "more than 6 consecutive night-float calendar days",
				Context: map[string]any{"consecutive_nights": run, "limit": 6},
			})
		}
	}
	return out
}

func longestConsecutiveRun(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	seen := map[string]bool{}
	for _, d := range dates {
		seen[d.Format("2006-01-02")] = true
	}
	best := 0
	for _, d := range dates {
		prev := d.AddDate(0, 0, -1)
		if seen[prev.Format("2006-01-02")] {
			continue // not a run start
		}
		run := 1
		cur := d
		for seen[cur.AddDate(0, 0, 1).Format("2006-01-02")] {
			cur = cur.AddDate(0, 0, 1)
			run++
		}
		if run > best {
			best = run
		}
	}
	return best
}

// --- 6. Call frequency -------------------------------------------------

type callFrequencyRule struct{}

func (callFrequencyRule) ID() string   { return "CALL_FREQUENCY" }
func (callFrequencyRule) Tier() Tier   { return Tier1Absolute }
func (callFrequencyRule) Kind() Kind   { return KindHard }
func (callFrequencyRule) Scope() Scope { return ScopePerson }

func (callFrequencyRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for personID := range v.People {
		calls := v.CallsFor(personID)
		for d := v.Start; !d.After(v.End); d = d.AddDate(0, 0, 1) {
			winEnd := d.AddDate(0, 0, 27)
			count := 0
			for _, c := range calls {
				if !c.Date.Before(d) && !c.Date.After(winEnd) {
					count++
				}
			}
			if count > 9 {
				pid := personID
				out = append(out, Violation{
					RuleID: "CALL_FREQUENCY", Tier: Tier1Absolute, Kind: KindHard,
					Severity: SeverityError, PersonID: &pid,
					Message: "more than 9 in-house call nights in rolling 28-day window",
					Context: map[string]any{"window_start": d, "call_nights": count, "limit": 9},
				})
			}
		}
	}
	return out
}

// --- 7. Deployment blocking -------------------------------------------

type deploymentBlockingRule struct{}

func (deploymentBlockingRule) ID() string   { return "DEPLOYMENT_BLOCKING" }
func (deploymentBlockingRule) Tier() Tier   { return Tier1Absolute }
func (deploymentBlockingRule) Kind() Kind   { return KindHard }
func (deploymentBlockingRule) Scope() Scope { return ScopePerson }

func (deploymentBlockingRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for _, a := range v.Assignments {
		b := v.Blocks[a.BlockID]
		if b == nil {
			continue
		}
		for _, ab := range aux.Absences {
			if ab.PersonID == a.PersonID && ab.Kind == entity.AbsenceDeployment && ab.Covers(b.Date) {
				pid, bid := a.PersonID, a.BlockID
				out = append(out, Violation{
					RuleID: "DEPLOYMENT_BLOCKING", Tier: Tier1Absolute, Kind: KindHard,
					Severity: SeverityError, PersonID: &pid, BlockID: &bid,
					Message: "person holds an assignment during a deployment absence",
					Context: map[string]any{"absence_id": ab.ID, "date": b.Date},
				})
			}
		}
	}
	return out
}

// --- 8. Qualification match -------------------------------------------

type qualificationMatchRule struct{}

func (qualificationMatchRule) ID() string   { return "QUALIFICATION_MATCH" }
func (qualificationMatchRule) Tier() Tier   { return Tier1Absolute }
func (qualificationMatchRule) Kind() Kind   { return KindHard }
func (qualificationMatchRule) Scope() Scope { return ScopePerson }

func (qualificationMatchRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for _, a := range v.Assignments {
		p := v.People[a.PersonID]
		rot := v.Rotations[a.RotationID]
		if p == nil || rot == nil {
			continue
		}
		if !rot.Qualifications.Satisfies(p) {
			pid, rid := a.PersonID, a.RotationID
			out = append(out, Violation{
				RuleID: "QUALIFICATION_MATCH", Tier: Tier1Absolute, Kind: KindHard,
				Severity: SeverityError, PersonID: &pid, RotationID: &rid,
				Message: "assigned person does not satisfy rotation qualifications",
				Context: map[string]any{"assignment_id": a.ID},
			})
		}
	}
	return out
}
