package constraint

import (
	"context"
	"sort"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/entity"
)

func registerTier3(r *Registry) {
	r.Register(workloadEquityRule{})
	r.Register(callEquityRule{})
	r.Register(continuityRule{})
	r.Register(efficiencyRule{})
	r.Register(preferenceRule{})
	r.Register(utilizationCapRule{})
}

// gini computes the Gini coefficient of a non-negative value vector.
// Returns 0 for fewer than two values or an all-zero vector.
func gini(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var sum, weighted float64
	for i, v := range sorted {
		sum += v
		weighted += float64(i+1) * v
	}
	if sum == 0 {
		return 0
	}
	return (2*weighted)/(float64(n)*sum) - float64(n+1)/float64(n)
}

// --- 1. Workload equity ---------------------------------------------------

type workloadEquityRule struct{}

func (workloadEquityRule) ID() string   { return "WORKLOAD_EQUITY" }
func (workloadEquityRule) Tier() Tier   { return Tier3Optimization }
func (workloadEquityRule) Kind() Kind   { return KindSoft }
func (workloadEquityRule) Scope() Scope { return ScopeGlobal }

func (workloadEquityRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	hours := personWeekHours(v, aux)
	if len(hours) < 2 {
		return nil
	}
	g := gini(hours)
	const target = 0.15
	if g <= target {
		return nil
	}
	return []Violation{{
		RuleID: "WORKLOAD_EQUITY", Tier: Tier3Optimization, Kind: KindSoft,
		Severity: SeverityInfo,
		Message:  "workload equity Gini coefficient exceeds target",
		Context:  map[string]any{"gini": g, "target": target},
		Penalty:  (g - target) * 100,
	}}
}

// personWeekHours buckets duty hours by (person, week).
func personWeekHours(v *ScheduleView, aux AuxContext) []float64 {
	type key struct {
		p entity.PersonID
		w string
	}
	buckets := map[key]float64{}
	for _, a := range v.Assignments {
		b := v.Blocks[a.BlockID]
		if b == nil {
			continue
		}
		rot := v.Rotations[a.RotationID]
		cat := entity.RotationCategory("")
		if rot != nil {
			cat = rot.Category
		}
		k := key{p: a.PersonID, w: weekFloor(b.Date).Format("2006-01-02")}
		buckets[k] += aux.HourWeight(cat) / 2
	}
	out := make([]float64, 0, len(buckets))
	for _, h := range buckets {
		out = append(out, h)
	}
	return out
}

// --- 2. Call equity --------------------------------------------------------

type callEquityRule struct{}

func (callEquityRule) ID() string   { return "CALL_EQUITY" }
func (callEquityRule) Tier() Tier   { return Tier3Optimization }
func (callEquityRule) Kind() Kind   { return KindSoft }
func (callEquityRule) Scope() Scope { return ScopeGlobal }

func callWeight(c entity.CallAssignment) float64 {
	if c.Holiday {
		return 1.5
	}
	return 1.0
}

func (callEquityRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	weighted := map[entity.PersonID]float64{}
	for _, c := range v.CallAssignments {
		weighted[c.PersonID] += callWeight(c)
	}
	if len(weighted) < 2 {
		return nil
	}
	values := make([]float64, 0, len(weighted))
	for _, w := range weighted {
		values = append(values, w)
	}
	g := gini(values)
	const target = 0.10
	if g <= target {
		return nil
	}
	return []Violation{{
		RuleID: "CALL_EQUITY", Tier: Tier3Optimization, Kind: KindSoft,
		Severity: SeverityInfo,
		Message:  "call equity Gini coefficient exceeds target",
		Context:  map[string]any{"gini": g, "target": target},
		Penalty:  (g - target) * 100,
	}}
}

// --- 3. Continuity ----------------------------------------------------------

type continuityRule struct{}

func (continuityRule) ID() string   { return "CONTINUITY" }
func (continuityRule) Tier() Tier   { return Tier3Optimization }
func (continuityRule) Kind() Kind   { return KindSoft }
func (continuityRule) Scope() Scope { return ScopePerson }

func (continuityRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for personID := range v.People {
		assignments := v.AssignmentsFor(personID)
		transitions := 0
		var lastRotation entity.RotationID
		first := true
		for _, a := range assignments {
			if !first && a.RotationID != lastRotation {
				transitions++
			}
			lastRotation = a.RotationID
			first = false
		}
		if transitions == 0 {
			continue
		}
		pid := personID
		out = append(out, Violation{
			RuleID: "CONTINUITY", Tier: Tier3Optimization, Kind: KindSoft,
			Severity: SeverityInfo, PersonID: &pid,
			Message: "rotation transitions accumulate a continuity penalty",
			Context: map[string]any{"transitions": transitions},
			Penalty: float64(transitions),
		})
	}
	return out
}

// --- 4. Efficiency (fragmentation) -----------------------------------------

type efficiencyRule struct{}

func (efficiencyRule) ID() string   { return "EFFICIENCY" }
func (efficiencyRule) Tier() Tier   { return Tier3Optimization }
func (efficiencyRule) Kind() Kind   { return KindSoft }
func (efficiencyRule) Scope() Scope { return ScopePerson }

func (efficiencyRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	var out []Violation
	for personID := range v.People {
		assigned := map[string]bool{}
		for _, a := range v.AssignmentsFor(personID) {
			if b := v.Blocks[a.BlockID]; b != nil {
				assigned[b.Date.Format("2006-01-02")] = true
			}
		}
		gaps := 0
		inRun := false
		for d := v.Start; !d.After(v.End); d = d.AddDate(0, 0, 1) {
			day := assigned[d.Format("2006-01-02")]
			if !day && inRun {
				gaps++
			}
			inRun = day
		}
		if gaps == 0 {
			continue
		}
		pid := personID
		out = append(out, Violation{
			RuleID: "EFFICIENCY", Tier: Tier3Optimization, Kind: KindSoft,
			Severity: SeverityInfo, PersonID: &pid,
			Message: "empty-day fragmentation accumulates an efficiency penalty",
			Context: map[string]any{"fragmented_gaps": gaps},
			Penalty: float64(gaps) * 0.5,
		})
	}
	return out
}

// --- 5. Shift/rotation preference -------------------------------------------

type preferenceRule struct{}

func (preferenceRule) ID() string   { return "PREFERENCE" }
func (preferenceRule) Tier() Tier   { return Tier3Optimization }
func (preferenceRule) Kind() Kind   { return KindSoft }
func (preferenceRule) Scope() Scope { return ScopePerson }

// Evaluate always returns no violations. Neither the entity model nor
// AuxContext carries per-person shift or rotation preferences, so this
// rule applies no preference bias; it is registered so the Tier-3
// catalog lists it by ID.
func (preferenceRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	return nil
}

// --- 6. Utilization cap -----------------------------------------------------

type utilizationCapRule struct{}

func (utilizationCapRule) ID() string   { return "UTILIZATION_CAP" }
func (utilizationCapRule) Tier() Tier   { return Tier3Optimization }
func (utilizationCapRule) Kind() Kind   { return KindSoft }
func (utilizationCapRule) Scope() Scope { return ScopeGlobal }

func (utilizationCapRule) Evaluate(ctx context.Context, v *ScheduleView, aux AuxContext) []Violation {
	capacity, scheduled := 0, 0
	for _, b := range v.Blocks {
		for _, rot := range v.Rotations {
			capacity += rot.MaxCoveragePerBlock
			scheduled += len(filterAssignmentsByBlockRotation(v, b.ID, rot.ID))
		}
	}
	if capacity == 0 {
		return nil
	}
	util := float64(scheduled) / float64(capacity)
	const cap_ = 0.80
	if util <= cap_ {
		return nil
	}
	overPct := (util - cap_) * 100
	return []Violation{{
		RuleID: "UTILIZATION_CAP", Tier: Tier3Optimization, Kind: KindSoft,
		Severity: SeverityInfo,
		Message:  "scheduled utilization exceeds the 80% capacity cap",
		Context:  map[string]any{"utilization": util, "cap": cap_},
		Penalty:  overPct,
	}}
}

func filterAssignmentsByBlockRotation(v *ScheduleView, blockID entity.BlockID, rotationID entity.RotationID) []entity.Assignment {
	var out []entity.Assignment
	for _, a := range v.AssignmentsOnBlock(blockID) {
		if a.RotationID == rotationID {
			out = append(out, a)
		}
	}
	return out
}

// WeightsFromConfig adapts config.TierWeights into the six coefficients
// named in spec.md §4.C's objective function, for callers (the
// generator's objective stage) that need the configured multiplier
// alongside each rule's raw penalty.
func WeightsFromConfig(w config.TierWeights) map[string]float64 {
	return map[string]float64{
		"WORKLOAD_EQUITY": w.WorkloadEquity,
		"CALL_EQUITY":     w.CallEquity,
		"CONTINUITY":      w.Continuity,
		"EFFICIENCY":      w.Efficiency,
		"PREFERENCE":      w.Preference,
		"UTILIZATION_CAP": w.UtilizationOvershoot,
	}
}
