package job

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/event"
	"github.com/schedcu/residency-engine/internal/generator"
	"github.com/schedcu/residency-engine/internal/logging"
	"github.com/schedcu/residency-engine/internal/resilience"
	"github.com/schedcu/residency-engine/internal/store"
	"github.com/schedcu/residency-engine/internal/swap"
)

// Handlers executes enqueued tasks against the engine's three
// pipelines, generalizing the teacher's JobHandlers (a struct of
// service-layer collaborators, one Handle* method per job type,
// RegisterHandlers wiring them onto an *asynq.ServeMux) onto
// generator.Orchestrator/swap.Engine/resilience.Evaluator.
type Handlers struct {
	orchestrator *generator.Orchestrator
	swapEngine   *swap.Engine
	evaluator    *resilience.Evaluator
	store        store.Store
	scheduler    *Scheduler
	cfg          config.Config
	registry     *constraint.Registry
	log          *zap.SugaredLogger
	bus          *event.Bus
}

// NewHandlers builds a Handlers wired to the engine's pipelines.
// scheduler is stored but no handler uses it, and it may be nil: the
// rollback-monitor handler always calls AutoDetect directly rather than
// re-enqueueing a delayed check, since the monitor sweep already
// re-derives which swaps need checking.
func NewHandlers(orchestrator *generator.Orchestrator, swapEngine *swap.Engine, evaluator *resilience.Evaluator, st store.Store, scheduler *Scheduler, cfg config.Config) *Handlers {
	return &Handlers{
		orchestrator: orchestrator,
		swapEngine:   swapEngine,
		evaluator:    evaluator,
		store:        st,
		scheduler:    scheduler,
		cfg:          cfg,
		registry:     constraint.NewRegistry(),
		log:          logging.Nop(),
	}
}

// SetLogger replaces the Handlers' logging sink.
func (h *Handlers) SetLogger(l *zap.SugaredLogger) { h.log = l }

// SetEventBus attaches a bus that HandleResilienceSnapshot publishes
// defense-level transitions onto. Left nil, nothing is published.
func (h *Handlers) SetEventBus(b *event.Bus) { h.bus = b }

// RegisterHandlers registers every job type with mux, the way the
// teacher's JobHandlers.RegisterHandlers does.
func (h *Handlers) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeGenerateSchedule, h.HandleGenerateSchedule)
	mux.HandleFunc(TypeSwapAutoDetect, h.HandleSwapAutoDetect)
	mux.HandleFunc(TypeSwapRollbackMonitor, h.HandleSwapRollbackMonitor)
	mux.HandleFunc(TypeResilienceSnapshot, h.HandleResilienceSnapshot)
}

// HandleGenerateSchedule runs one schedule generation request.
func (h *Handlers) HandleGenerateSchedule(ctx context.Context, t *asynq.Task) error {
	var payload GenerateSchedulePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	req := generator.GenerationRequest{
		Start:          payload.Start,
		End:            payload.End,
		PGYLevelFilter: payload.PGYLevelFilter,
		RotationIDs:    payload.RotationIDs,
		Algorithm:      payload.Algorithm,
		Timeout:        h.cfg.DefaultTimeout,
		IdempotencyKey: payload.IdempotencyKey,
		ActorID:        payload.ActorID,
	}

	result, err := h.orchestrator.Generate(ctx, req)
	if err != nil {
		h.log.Errorw("schedule generation job failed", "start", payload.Start, "end", payload.End, "error", err)
		return fmt.Errorf("schedule generation failed: %w", err)
	}

	h.log.Infow("schedule generation job completed", "run_id", result.Run.ID, "status", result.Run.Status, "replayed", result.Replayed)
	return nil
}

// HandleSwapAutoDetect runs the post-commit Tier-1 recheck for one
// swap (spec.md §4.D).
func (h *Handlers) HandleSwapAutoDetect(ctx context.Context, t *asynq.Task) error {
	var payload SwapAutoDetectPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	result, err := h.swapEngine.AutoDetect(ctx, payload.SwapRecordID)
	if err != nil {
		h.log.Errorw("swap auto-detect job failed", "swap_id", payload.SwapRecordID, "error", err)
		return fmt.Errorf("swap auto-detect failed: %w", err)
	}

	if result.Decision != swap.DecisionProceed {
		h.log.Warnw("swap auto-detect rolled back an executed swap", "swap_id", payload.SwapRecordID, "decision", result.Decision)
	}
	return nil
}

// HandleSwapRollbackMonitor re-scans every Executed swap record and
// runs AutoDetect directly against each one executed within the last
// config.Config.AutoDetectDelay, rather than re-enqueueing a delayed
// TypeSwapAutoDetect task. Older records are skipped here, since
// AutoDetect itself applies no time limit.
func (h *Handlers) HandleSwapRollbackMonitor(ctx context.Context, t *asynq.Task) error {
	executed, err := h.store.SwapRecords().GetByStatus(ctx, entity.SwapExecuted)
	if err != nil {
		return fmt.Errorf("failed to list executed swaps: %w", err)
	}

	var rolledBack int
	for _, record := range executed {
		if record.ExecutedAt == nil || entity.Now().Sub(*record.ExecutedAt) > h.cfg.AutoDetectDelay {
			continue
		}
		result, err := h.swapEngine.AutoDetect(ctx, record.ID)
		if err != nil {
			h.log.Errorw("rollback monitor sweep failed for swap", "swap_id", record.ID, "error", err)
			continue
		}
		if result.Decision != swap.DecisionProceed {
			rolledBack++
		}
	}

	h.log.Infow("swap rollback monitor sweep completed", "checked", len(executed), "rolled_back", rolledBack)
	return nil
}

// HandleResilienceSnapshot runs the advisory evaluator over the
// default 7-day window and logs the result; spec.md §4.E's evaluator
// is data-only, so a standing periodic check has nowhere to persist
// its output except the log stream an operator or alerting pipeline
// watches.
func (h *Handlers) HandleResilienceSnapshot(ctx context.Context, t *asynq.Task) error {
	var payload ResilienceSnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	from := payload.WindowStart
	if from.IsZero() {
		from = entity.Today()
	}
	window := resilience.DefaultWindow(from)

	view, err := h.store.View(ctx, window.Start, window.End)
	if err != nil {
		return fmt.Errorf("failed to load schedule view: %w", err)
	}

	snap := h.evaluator.Evaluate(ctx, view, h.registry, constraint.AuxContext{Now: entity.Now()}, window, nil)

	var n1Critical int
	for _, impact := range snap.NMinusOne.ByPerson {
		if impact.Classification == resilience.Critical {
			n1Critical++
		}
	}

	fields := []any{
		"window_start", window.Start, "window_end", window.End,
		"utilization_rate", snap.Utilization.Rate, "defense_level", snap.Utilization.DefenseLevel,
		"n1_critical", n1Critical, "n2_fatal_pairs", len(snap.NMinusTwo.FatalPairs),
	}
	degraded := snap.Utilization.DefenseLevel == resilience.Containment || snap.Utilization.DefenseLevel == resilience.Emergency
	if degraded {
		h.log.Warnw("resilience snapshot shows elevated defense level", fields...)
	} else {
		h.log.Infow("resilience snapshot completed", fields...)
	}
	if h.bus != nil {
		kind := event.KindResilienceRecovered
		if degraded {
			kind = event.KindResilienceDegraded
		}
		h.bus.Publish(event.New(kind, window.Start.String(), entity.ActorID{}, map[string]any{
			"defense_level": snap.Utilization.DefenseLevel, "utilization_rate": snap.Utilization.Rate,
		}))
	}
	return nil
}
