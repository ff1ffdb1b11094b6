// Package generator implements the schedule generation pipeline of
// spec.md §4.C: preprocessing a date range into a solver Problem,
// running the selected strategy from internal/generator/solver,
// re-validating the result against the full constraint framework, and
// committing through the store in one pass. It generalizes the
// teacher's scheduleOrchestrator
// (internal/service/schedule_orchestrator.go): a struct wired with its
// collaborators, a phase-by-phase result value the caller can inspect
// even on partial failure, continuing past a non-fatal phase rather
// than aborting the whole request.
package generator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/event"
	"github.com/schedcu/residency-engine/internal/generator/solver"
	"github.com/schedcu/residency-engine/internal/logging"
	"github.com/schedcu/residency-engine/internal/store"
)

// GenerationRequest is the input to Orchestrator.Generate (spec.md
// §6's Generation Request payload, minus wire-layer concerns such as
// actor authentication which belong to internal/engineapi).
type GenerationRequest struct {
	Start, End     entity.Date
	PGYLevelFilter *int
	RotationIDs    []entity.RotationID
	Algorithm      entity.Algorithm
	Timeout        time.Duration
	IdempotencyKey string
	ActorID        entity.ActorID
}

// GenerationResult is what Orchestrator.Generate returns: the recorded
// ScheduleRun plus the post-solve constraint evaluation that decided
// its status. Replayed is set when IdempotencyKey matched a prior run
// with an identical payload rather than triggering a new solve.
type GenerationResult struct {
	Run       *entity.ScheduleRun
	Violation constraint.Result
	Replayed  bool
}

// Orchestrator runs the generation pipeline against one Store.
type Orchestrator struct {
	store    store.Store
	registry *constraint.Registry
	cfg      config.Config
	inFlight *inFlightIndex
	log      *zap.SugaredLogger
	bus      *event.Bus
}

// NewOrchestrator builds an Orchestrator over st, pre-loaded with the
// full constraint catalog (constraint.NewRegistry). Logging defaults to
// a no-op sink; callers that want the teacher's structured zap output
// wire one in with SetLogger.
func NewOrchestrator(st store.Store, cfg config.Config) *Orchestrator {
	return &Orchestrator{
		store:    st,
		registry: constraint.NewRegistry(),
		cfg:      cfg,
		inFlight: newInFlightIndex(),
		log:      logging.Nop(),
	}
}

// SetLogger replaces the Orchestrator's logging sink.
func (o *Orchestrator) SetLogger(l *zap.SugaredLogger) { o.log = l }

// SetEventBus attaches a bus that Generate publishes completion and
// failure events onto. Left nil, Generate publishes nothing — the bus
// is an optional collaborator, not a requirement of the pipeline.
func (o *Orchestrator) SetEventBus(b *event.Bus) { o.bus = b }

func (o *Orchestrator) publish(kind event.Kind, resource string, actorID entity.ActorID, payload map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(event.New(kind, resource, actorID, payload))
}

// Generate runs one schedule generation request end to end. It never
// returns a partially-committed result: either ApplyAssignments
// succeeds as one batch or nothing is written.
func (o *Orchestrator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	o.log.Infow("generation requested", "start", req.Start, "end", req.End, "algorithm", req.Algorithm)

	if err := validateRequest(req); err != nil {
		return nil, err
	}

	hash := payloadHash(req)

	if req.IdempotencyKey != "" {
		prior, err := o.store.ScheduleRuns().GetByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil && engineerr.KindOf(err) != engineerr.KindNotFound {
			return nil, err
		}
		if prior != nil {
			if prior.PayloadHash != hash {
				return nil, engineerr.New(engineerr.KindConflict, "idempotency key reused with a different request payload", map[string]any{
					"idempotency_key": req.IdempotencyKey,
				})
			}
			view, viewErr := o.store.View(ctx, prior.StartDate, prior.EndDate)
			var result constraint.Result
			if viewErr == nil {
				result = constraint.Evaluate(ctx, o.registry, view, o.buildAux(ctx, prior.StartDate, prior.EndDate, nil))
			}
			return &GenerationResult{Run: prior, Violation: result, Replayed: true}, nil
		}
	}

	if !o.inFlight.acquire(req.Start, req.End) {
		return nil, engineerr.New(engineerr.KindConflict, "a generation run already covers an overlapping date range", map[string]any{
			"start": req.Start, "end": req.End, "reason": "RUN_IN_PROGRESS",
		})
	}
	defer o.inFlight.release(req.Start, req.End)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = o.cfg.DefaultTimeout
	}

	problem, err := o.buildProblem(ctx, req)
	if err != nil {
		return nil, err
	}
	problem.Timeout = timeout

	strategy := selectSolver(req.Algorithm)

	sol, evalResult, solveErr := o.solveWithRelaxation(ctx, strategy, problem, timeout)

	run := &entity.ScheduleRun{
		ID:             newID(),
		Algorithm:      strategy.Name(),
		StartDate:      req.Start,
		EndDate:        req.End,
		IdempotencyKey: req.IdempotencyKey,
		PayloadHash:    hash,
		CreatedAt:      entity.Now(),
	}

	switch {
	case solveErr != nil && !sol.IncumbentFound:
		run.Status = entity.RunFailed
		if _, ok := solveErr.(*solver.ErrInfeasible); ok {
			if createErr := o.store.ScheduleRuns().Create(ctx, run); createErr != nil {
				return nil, createErr
			}
			o.publish(event.KindScheduleRunFailed, run.ID.String(), req.ActorID, map[string]any{"reason": "infeasible"})
			return &GenerationResult{Run: run}, engineerr.Wrap(engineerr.KindInfeasible, "no feasible schedule exists for the requested range", solveErr, nil)
		}
		if ctx.Err() != nil {
			if createErr := o.store.ScheduleRuns().Create(ctx, run); createErr != nil {
				return nil, createErr
			}
			o.publish(event.KindScheduleRunFailed, run.ID.String(), req.ActorID, map[string]any{"reason": "timeout"})
			return &GenerationResult{Run: run}, engineerr.Wrap(engineerr.KindTimeout, "solver deadline elapsed before a feasible incumbent was found", solveErr, nil)
		}
		return nil, solveErr
	case !evalResult.IsAcceptable():
		run.Status = entity.RunPartial
	default:
		run.Status = entity.RunSuccess
	}

	mutation := store.MutationSet{
		NewAssignments:     sol.Assignments,
		NewCallAssignments: sol.CallAssignments,
		ActorID:            req.ActorID,
	}
	if !mutation.Empty() {
		applyResult, applyErr := o.store.ApplyAssignments(ctx, mutation)
		if applyErr != nil {
			return nil, applyErr
		}
		run.TransactionID = applyResult.TransactionID
	}

	run.OverrideCount = len(problem.Aux.OverriddenRuleIDs)
	run.Statistics = entity.RunStatistics{
		AssignmentsCreated:     len(sol.Assignments),
		CallAssignmentsCreated: len(sol.CallAssignments),
		IncumbentFound:         sol.IncumbentFound,
		TotalPenalty:           sol.TotalPenalty,
	}

	if err := o.store.ScheduleRuns().Create(ctx, run); err != nil {
		return nil, err
	}

	o.log.Infow("generation completed", "run_id", run.ID, "status", run.Status,
		"assignments_created", run.Statistics.AssignmentsCreated, "override_count", run.OverrideCount)
	o.publish(event.KindScheduleGenerated, run.ID.String(), req.ActorID, map[string]any{
		"status": run.Status, "assignments_created": run.Statistics.AssignmentsCreated,
	})

	return &GenerationResult{Run: run, Violation: evalResult}, nil
}

func validateRequest(req GenerationRequest) error {
	if req.End.Before(req.Start) {
		return engineerr.New(engineerr.KindInvariant, "end precedes start", map[string]any{"start": req.Start, "end": req.End})
	}
	switch req.Algorithm {
	case entity.AlgorithmGreedy, entity.AlgorithmExactCP, entity.AlgorithmMILP, entity.AlgorithmHybrid, "":
	default:
		return engineerr.New(engineerr.KindInvariant, fmt.Sprintf("unknown algorithm %q", req.Algorithm), nil)
	}
	return nil
}

// selectSolver maps an Algorithm to its strategy, defaulting to Hybrid
// when unset (spec.md §4.C: "Hybrid ... is the default algorithm").
func selectSolver(alg entity.Algorithm) solver.Solver {
	switch alg {
	case entity.AlgorithmGreedy:
		return solver.NewGreedy()
	case entity.AlgorithmExactCP:
		return solver.NewExactCP()
	case entity.AlgorithmMILP:
		return solver.NewMILP()
	default:
		return solver.NewHybrid()
	}
}
