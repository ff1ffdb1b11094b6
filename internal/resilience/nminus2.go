package resilience

import (
	"context"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

// NMinusTwoResult reports every fatal pair found by the sweep.
type NMinusTwoResult struct {
	FatalPairs []FatalPair
}

type pairKey struct {
	a, b entity.PersonID
}

// RunNMinusTwo simulates every unordered pair of persons in subset
// being simultaneously unavailable, flagging a pair as fatal when their
// joint absence produces a coverage failure that neither person's
// individual N-1 result shows (spec.md §4.E: "fatal pairs whose joint
// absence creates coverage failure not present in either N-1 case").
//
// Performance Characteristics: O(n^2) simulations for n = len(subset);
// each pair's simulation is independent, so the sweep is parallelized
// across workers goroutines the same way RunNMinusOne is. Callers
// should keep subset bounded (e.g. to one service line) for large
// rosters rather than running this over the full active roster.
func RunNMinusTwo(ctx context.Context, view *constraint.ScheduleView, registry *constraint.Registry, aux constraint.AuxContext, window Window, subset []entity.PersonID, workers int, n1 NMinusOneResult) NMinusTwoResult {
	if len(subset) == 0 {
		subset = activePersonIDs(view)
	}
	baseline := constraint.Evaluate(ctx, registry, view, aux)

	critical := map[entity.PersonID]bool{}
	for _, impact := range n1.ByPerson {
		if impact.Classification == Critical {
			critical[impact.PersonID] = true
		}
	}

	var pairs []pairKey
	for i := 0; i < len(subset); i++ {
		for j := i + 1; j < len(subset); j++ {
			pairs = append(pairs, pairKey{subset[i], subset[j]})
		}
	}

	combined := runPool(pairs, workers, func(pk pairKey) PersonImpact {
		return simulateRemoval(ctx, view, registry, aux, baseline, []entity.PersonID{pk.a, pk.b}, window)
	})

	var fatal []FatalPair
	for i, pk := range pairs {
		impact := combined[i]
		bothIndividuallySafe := !critical[pk.a] && !critical[pk.b]
		if impact.Classification == Critical && bothIndividuallySafe {
			fatal = append(fatal, FatalPair{PersonA: pk.a, PersonB: pk.b, Combined: impact})
		}
	}

	return NMinusTwoResult{FatalPairs: fatal}
}
