package resilience

import (
	"context"
	"time"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

// Evaluator bundles the config a caller needs to run the resilience
// suite without threading thresholds and worker counts through every
// call, mirroring how generator.Orchestrator wraps store+registry+cfg.
type Evaluator struct {
	cfg config.Config
}

// NewEvaluator builds an Evaluator over cfg.
func NewEvaluator(cfg config.Config) *Evaluator {
	return &Evaluator{cfg: cfg}
}

// Snapshot is the full advisory report for one point in time: current
// utilization, the N-1 sweep, and the N-2 sweep over the window passed
// to Evaluate (DefaultWindow builds the 7-day default of spec.md §4.E).
type Snapshot struct {
	Utilization UtilizationResult
	NMinusOne   NMinusOneResult
	NMinusTwo   NMinusTwoResult
	TakenAt     time.Time
}

// Evaluate runs the full synchronous suite against view (spec.md §5:
// "exposes a synchronous, deterministic interface"). subset restricts
// the N-1/N-2 sweep to a smaller roster; nil means every active person.
func (e *Evaluator) Evaluate(ctx context.Context, view *constraint.ScheduleView, registry *constraint.Registry, aux constraint.AuxContext, window Window, subset []entity.PersonID) Snapshot {
	util := ComputeUtilization(view, e.cfg.RotationHourWeights, e.cfg.UtilizationThresholds)
	n1 := RunNMinusOne(ctx, view, registry, aux, window, subset, e.cfg.ResilienceWorkers)
	n2 := RunNMinusTwo(ctx, view, registry, aux, window, subset, e.cfg.ResilienceWorkers, n1)
	return Snapshot{Utilization: util, NMinusOne: n1, NMinusTwo: n2, TakenAt: aux.Now}
}

// DefaultWindow returns the 7-day window starting at from, spec.md
// §4.E's stated default simulation range.
func DefaultWindow(from entity.Date) Window {
	return Window{Start: from, End: from.AddDate(0, 0, 6)}
}
