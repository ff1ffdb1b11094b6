package resilience

import (
	"math"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

// sessionsPerDay is the number of scheduling slots (AM, PM) a person
// can occupy in a single day, used as the slots_per_person term of the
// utilization formula in spec.md §4.E.
const sessionsPerDay = 2

// waitTimeMultiplierCap bounds 1/(1-rate) so a rate approaching 1.0
// does not blow the multiplier up to infinity; spec.md §4.E says only
// that the multiplier is "capped" without naming the cap, so this
// module picks 10x as a conservative ceiling (Open Question decision,
// recorded in the grounding ledger).
const waitTimeMultiplierCap = 10.0

// ComputeUtilization evaluates effective_utilization over view's date
// range: scheduled duty-hour units divided by theoretical capacity
// (active people × sessions per day × range length), per spec.md §4.E.
//
// Edge Cases Handled:
//   - Zero active people or zero-length range → rate 0, class Green
//     (no capacity to exhaust is not a crisis signal).
//   - rate >= 1.0 → wait_time_multiplier is capped rather than
//     diverging.
//
// Thread Safety: pure function of its inputs, safe for concurrent use.
func ComputeUtilization(view *constraint.ScheduleView, hourWeights map[entity.RotationCategory]float64, thresholds config.UtilizationThresholds) UtilizationResult {
	activePeople := 0
	for _, p := range view.People {
		if p.Active && !p.IsDeleted() {
			activePeople++
		}
	}

	days := int(view.End.Sub(view.Start).Hours()/24) + 1
	if days < 0 {
		days = 0
	}

	capacityHours := float64(activePeople*sessionsPerDay*days) * defaultSlotHours
	if capacityHours <= 0 {
		return UtilizationResult{Rate: 0, Class: Green, WaitTimeMultiplier: 1, DefenseLevel: DefenseLevelFor(Green)}
	}

	scheduledHours := 0.0
	for _, a := range view.Assignments {
		rot := view.Rotations[a.RotationID]
		if rot == nil {
			continue
		}
		scheduledHours += hourWeightFor(hourWeights, rot.Category)
	}
	for range view.CallAssignments {
		scheduledHours += callHours
	}

	rate := scheduledHours / capacityHours
	class := classify(rate, thresholds)
	return UtilizationResult{
		Rate:               rate,
		Class:              class,
		WaitTimeMultiplier: waitTimeMultiplier(rate),
		DefenseLevel:       DefenseLevelFor(class),
	}
}

// defaultSlotHours is the nominal duration of one AM/PM session;
// callHours is the nominal duty contribution of one overnight/weekend
// call assignment. defaultSlotHours matches the 8-hour default of
// constraint.AuxContext.HourWeight, with call weighted higher to
// reflect its overnight span.
const (
	defaultSlotHours = 8.0
	callHours        = 14.0
)

func hourWeightFor(weights map[entity.RotationCategory]float64, cat entity.RotationCategory) float64 {
	if w, ok := weights[cat]; ok {
		return w
	}
	return defaultSlotHours
}

func classify(rate float64, t config.UtilizationThresholds) UtilizationClass {
	switch {
	case rate > t.Black:
		return Black
	case rate > t.Red:
		return Red
	case rate > t.Orange:
		return Orange
	case rate > t.Yellow:
		return Yellow
	default:
		return Green
	}
}

func waitTimeMultiplier(rate float64) float64 {
	if rate >= 1.0 {
		return waitTimeMultiplierCap
	}
	m := 1 / (1 - rate)
	return math.Min(m, waitTimeMultiplierCap)
}
