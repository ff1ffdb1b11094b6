// Package swap implements the swap execution engine of spec.md §4.D:
// validated, atomic mutation of a small number of assignments for two
// people over at most two weeks, with a rollback window. It generalizes
// the teacher's ScheduleVersion state machine
// (internal/entity.ScheduleVersion's Promote/Archive, guarded by
// ErrInvalidVersionStateTransition) onto the SwapRecord status DAG
// already defined in internal/entity/swap.go, and threads a typed
// result through the seven phases the way
// service.scheduleOrchestrator.ExecuteFullWorkflow threads a
// *WorkflowResult through its own fixed phase sequence.
package swap

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/event"
	"github.com/schedcu/residency-engine/internal/logging"
	"github.com/schedcu/residency-engine/internal/store"
)

// SystemActorID attributes an action to the engine itself rather than a
// human, used by the post-commit auto-detection sweep (spec.md §4.D:
// "automatic rollback with a system-actor attribution"). The nil UUID
// is reserved for this purpose and is never assigned to a real Person.
var SystemActorID entity.ActorID = uuid.Nil

// Request is the input to Engine.Execute (spec.md §4.D's stated
// inputs).
type Request struct {
	Type            entity.SwapType
	SourcePersonID  entity.PersonID
	SourceWeekStart entity.Date
	TargetPersonID  *entity.PersonID
	TargetWeekStart *entity.Date
	Reason          string
	PreApproved     bool
	RequestedBy     entity.ActorID
}

// Decision is the phase-3 outcome: exactly one of Reject, Flag, or
// Proceed.
type Decision string

const (
	DecisionReject  Decision = "REJECT"
	DecisionFlag    Decision = "FLAG"
	DecisionProceed Decision = "PROCEED"
)

// ApproverLevel is who a Flag decision routes to, per spec.md §4.D's
// escalation rules.
type ApproverLevel string

const (
	ApproverCoordinator     ApproverLevel = "COORDINATOR"
	ApproverProgramDirector ApproverLevel = "PROGRAM_DIRECTOR"
	ApproverArchitect       ApproverLevel = "ARCHITECT"
)

// ApproverSLA is the stated response window for each escalation level.
// The core reports the level and SLA; it does not deliver notifications
// itself (spec.md §4.D).
var ApproverSLA = map[ApproverLevel]time.Duration{
	ApproverCoordinator:     24 * time.Hour,
	ApproverProgramDirector: 48 * time.Hour,
	ApproverArchitect:       72 * time.Hour,
}

// Result is what Engine.Execute returns.
type Result struct {
	SwapRecord            *entity.SwapRecord
	Decision              Decision
	ApproverLevel         ApproverLevel
	RejectionReasons      []string
	FlagReasons           []string
	SuggestedAlternatives []string
	TransactionID         int64
}

// Engine runs the swap pipeline over one Store. The Tier-3 resilience
// delta check calls the internal/resilience package's pure functions
// directly rather than through a resilience.Evaluator, since it needs
// before/after utilization and N-1 deltas rather than one Snapshot.
type Engine struct {
	store    store.Store
	registry *constraint.Registry
	cfg      config.Config
	inFlight *inFlightIndex
	log      *zap.SugaredLogger
	bus      *event.Bus
}

// NewEngine builds an Engine over st, pre-loaded with the full
// constraint catalog. Logging defaults to a no-op sink; wire a real one
// with SetLogger.
func NewEngine(st store.Store, cfg config.Config) *Engine {
	return &Engine{
		store:    st,
		registry: constraint.NewRegistry(),
		cfg:      cfg,
		inFlight: newInFlightIndex(),
		log:      logging.Nop(),
	}
}

// SetLogger replaces the Engine's logging sink.
func (e *Engine) SetLogger(l *zap.SugaredLogger) { e.log = l }

// SetEventBus attaches a bus that Execute/Rollback/AutoDetect publish
// onto. Left nil, nothing is published.
func (e *Engine) SetEventBus(b *event.Bus) { e.bus = b }

func (e *Engine) publish(kind event.Kind, resource string, actorID entity.ActorID, payload map[string]any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(event.New(kind, resource, actorID, payload))
}

// Execute runs phases 1-6 of spec.md §4.D in order: structural
// validation, the three-tier safety check, decision, snapshot, commit,
// and audit. A Reject or un-approved Flag stops before snapshot/commit
// and is persisted with the corresponding terminal/pending status.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	claims := swapClaims(req)
	if !e.inFlight.acquireAll(claims) {
		return nil, engineerr.New(engineerr.KindConflict, "an in-flight swap already covers one of these person-weeks", map[string]any{
			"source_person_id": req.SourcePersonID, "weeks": affectedWeeks(req),
		})
	}
	defer e.inFlight.releaseAll(claims)

	record := &entity.SwapRecord{
		ID:              newSwapID(),
		Type:            req.Type,
		Status:          entity.SwapPending,
		SourcePersonID:  req.SourcePersonID,
		SourceWeekStart: req.SourceWeekStart,
		TargetPersonID:  req.TargetPersonID,
		TargetWeekStart: req.TargetWeekStart,
		Reason:          req.Reason,
		RequestedAt:     entity.Now(),
		RequestedBy:     req.RequestedBy,
	}

	view, structuralViolations, err := e.validateStructure(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(structuralViolations) > 0 {
		if createErr := e.store.SwapRecords().Create(ctx, mustTransition(record, entity.SwapRejected)); createErr != nil {
			return nil, createErr
		}
		if auditErr := e.audit(ctx, record.ID, "Request", req); auditErr != nil {
			return nil, auditErr
		}
		e.publish(event.KindSwapRejected, record.ID.String(), req.RequestedBy, map[string]any{"reasons": structuralViolations})
		return &Result{SwapRecord: record, Decision: DecisionReject, RejectionReasons: structuralViolations}, nil
	}

	swapped := applySwap(view, req)
	check := e.runSafetyCheck(ctx, view, swapped, req)

	decision, approver, suggestions := decide(req, check)

	if err := e.audit(ctx, record.ID, "Validation", check); err != nil {
		return nil, err
	}
	if err := e.audit(ctx, record.ID, "Decision", map[string]any{"decision": decision, "approver": approver}); err != nil {
		return nil, err
	}

	result := &Result{SwapRecord: record, Decision: decision, ApproverLevel: approver, SuggestedAlternatives: suggestions}
	e.log.Infow("swap decided", "swap_id", record.ID, "decision", decision, "approver", approver)

	switch decision {
	case DecisionReject:
		result.RejectionReasons = check.tier1Messages
		if err := e.store.SwapRecords().Create(ctx, mustTransition(record, entity.SwapRejected)); err != nil {
			return nil, err
		}
		e.publish(event.KindSwapRejected, record.ID.String(), req.RequestedBy, map[string]any{"reasons": result.RejectionReasons})
		return result, nil
	case DecisionFlag:
		result.FlagReasons = append(check.tier2Messages, check.tier3Messages...)
		if err := e.store.SwapRecords().Create(ctx, record); err != nil {
			return nil, err
		}
		e.publish(event.KindSwapFlagged, record.ID.String(), req.RequestedBy, map[string]any{"reasons": result.FlagReasons, "approver": approver})
		return result, nil
	}

	if err := e.store.SwapRecords().Create(ctx, mustTransition(record, entity.SwapApproved)); err != nil {
		return nil, err
	}
	return e.commit(ctx, record, swapped, req.RequestedBy)
}

// Approve transitions a Flagged swap forward and runs the commit phase,
// used when the designated approver signs off out of band.
func (e *Engine) Approve(ctx context.Context, swapID entity.SwapRecordID, req Request, approverID entity.ActorID) (*Result, error) {
	record, err := e.store.SwapRecords().GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if err := record.TransitionTo(entity.SwapApproved); err != nil {
		return nil, engineerr.Wrap(engineerr.KindInvariant, "swap cannot be approved from its current status", err, map[string]any{"status": record.Status})
	}
	now := entity.Now()
	record.ApprovedAt = &now
	record.ApprovedBy = &approverID
	if err := e.store.SwapRecords().Update(ctx, record); err != nil {
		return nil, err
	}

	view, _, err := e.validateStructure(ctx, req)
	if err != nil {
		return nil, err
	}
	swapped := applySwap(view, req)
	return e.commit(ctx, record, swapped, approverID)
}

func mustTransition(record *entity.SwapRecord, next entity.SwapStatus) *entity.SwapRecord {
	_ = record.TransitionTo(next)
	return record
}
