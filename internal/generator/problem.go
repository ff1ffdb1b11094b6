package generator

import (
	"context"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/generator/solver"
)

// buildProblem is the preprocessing phase of spec.md §4.C: expand the
// date range into Blocks (reusing any already inserted, so a rerun
// over a partially-scheduled range only fills gaps), load the roster
// and existing commitments, and assemble every (Block, Rotation) and
// (Date, CallType) decision point into a solver.Problem.
func (o *Orchestrator) buildProblem(ctx context.Context, req GenerationRequest) (solver.Problem, error) {
	blocks, err := o.store.Blocks().GetByDateRange(ctx, req.Start, req.End)
	if err != nil {
		return solver.Problem{}, err
	}
	if len(blocks) == 0 {
		inserted, err := o.store.InsertBlocksForRange(ctx, req.Start, req.End)
		if err != nil {
			return solver.Problem{}, err
		}
		blocks = make([]*entity.Block, len(inserted))
		for i := range inserted {
			b := inserted[i]
			blocks[i] = &b
		}
	}

	rotations, err := o.store.Rotations().List(ctx)
	if err != nil {
		return solver.Problem{}, err
	}
	rotations = filterRotations(rotations, req.RotationIDs)

	people, err := o.store.People().List(ctx)
	if err != nil {
		return solver.Problem{}, err
	}
	people = filterPeople(people, req.PGYLevelFilter)

	view, err := o.store.View(ctx, req.Start, req.End)
	if err != nil {
		return solver.Problem{}, err
	}

	aux := o.buildAux(ctx, req.Start, req.End, nil)

	slots := buildSlots(blocks, rotations)
	callSlots := buildCallSlots(req.Start, req.End)

	return solver.Problem{
		Start:     req.Start,
		End:       req.End,
		Slots:     slots,
		CallSlots: callSlots,
		People:    people,
		Existing:  view,
		Aux:       aux,
		Registry:  o.registry,
		Weights:   toSolverWeights(o.cfg.TierWeights),
	}, nil
}

// buildAux assembles the constraint framework's AuxContext for the
// range: absences fetched fresh from the store, the configured
// duty-hour weight table, and any Tier-2 override tokens already
// granted by a relaxation step.
func (o *Orchestrator) buildAux(ctx context.Context, start, end entity.Date, overridden map[string]bool) constraint.AuxContext {
	absences, _ := o.store.Absences().GetByDateRange(ctx, start, end)
	out := make([]entity.Absence, 0, len(absences))
	for _, a := range absences {
		out = append(out, *a)
	}
	if overridden == nil {
		overridden = map[string]bool{}
	}
	return constraint.AuxContext{
		Absences:           out,
		RotationHourWeight: o.cfg.RotationHourWeights,
		OverriddenRuleIDs:  overridden,
		Now:                entity.Now(),
	}
}

// buildSlots enumerates one Slot per (Block, Rotation) pair for every
// non-call rotation: call coverage is modeled separately via CallSlots
// since it is keyed by (Date, CallType), not (Block, Rotation).
func buildSlots(blocks []*entity.Block, rotations []*entity.Rotation) []solver.Slot {
	var out []solver.Slot
	for _, b := range blocks {
		for _, r := range rotations {
			if r.Category == entity.CategoryCall {
				continue
			}
			out = append(out, solver.Slot{Block: b, Rotation: r})
		}
	}
	return out
}

// buildCallSlots enumerates one CallSlot per calendar day: weekend call
// on Saturday/Sunday, overnight call on every other day. Backup call is
// not proactively generated; it is filled on demand by the swap engine
// when an N-1 gap appears (spec.md §4.D/§4.E), not by generation.
func buildCallSlots(start, end entity.Date) []solver.CallSlot {
	var out []solver.CallSlot
	for d := entity.CivilDate(start); !d.After(end); d = d.AddDate(0, 0, 1) {
		ct := entity.CallOvernight
		if entity.IsWeekend(d) {
			ct = entity.CallWeekend
		}
		out = append(out, solver.CallSlot{Date: d, CallType: ct})
	}
	return out
}

func filterRotations(rotations []*entity.Rotation, ids []entity.RotationID) []*entity.Rotation {
	if len(ids) == 0 {
		return rotations
	}
	allowed := map[entity.RotationID]bool{}
	for _, id := range ids {
		allowed[id] = true
	}
	var out []*entity.Rotation
	for _, r := range rotations {
		if allowed[r.ID] {
			out = append(out, r)
		}
	}
	return out
}

// filterPeople narrows residents to the requested PGY level, leaving
// every faculty member eligible regardless (call coverage requires
// them no matter which resident cohort is being generated).
func filterPeople(people []*entity.Person, pgy *int) []*entity.Person {
	if pgy == nil {
		return people
	}
	var out []*entity.Person
	for _, p := range people {
		if p.IsFaculty() || p.PGYLevel() == *pgy {
			out = append(out, p)
		}
	}
	return out
}

func toSolverWeights(w config.TierWeights) solver.TierWeights {
	return solver.TierWeights{
		WorkloadEquity:       w.WorkloadEquity,
		CallEquity:           w.CallEquity,
		Continuity:           w.Continuity,
		Efficiency:           w.Efficiency,
		Preference:           w.Preference,
		UtilizationOvershoot: w.UtilizationOvershoot,
	}
}
