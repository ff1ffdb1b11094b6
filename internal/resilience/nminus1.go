package resilience

import (
	"context"
	"sort"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

// NMinusOneResult is the full sweep over every tested person.
type NMinusOneResult struct {
	ByPerson []PersonImpact
}

// RunNMinusOne simulates each person in subset (default: every active
// person in view) being fully unavailable over window, one at a time,
// per spec.md §4.E. The sweep is parallelized across workers goroutines
// since each person's simulation is independent of every other's.
func RunNMinusOne(ctx context.Context, view *constraint.ScheduleView, registry *constraint.Registry, aux constraint.AuxContext, window Window, subset []entity.PersonID, workers int) NMinusOneResult {
	if len(subset) == 0 {
		subset = activePersonIDs(view)
	}
	baseline := constraint.Evaluate(ctx, registry, view, aux)

	impacts := runPool(subset, workers, func(id entity.PersonID) PersonImpact {
		return simulateRemoval(ctx, view, registry, aux, baseline, []entity.PersonID{id}, window)
	})

	sort.Slice(impacts, func(i, j int) bool { return impacts[i].PersonID.String() < impacts[j].PersonID.String() })
	return NMinusOneResult{ByPerson: impacts}
}

func activePersonIDs(view *constraint.ScheduleView) []entity.PersonID {
	var out []entity.PersonID
	for _, p := range view.People {
		if p.Active && !p.IsDeleted() {
			out = append(out, p.ID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
