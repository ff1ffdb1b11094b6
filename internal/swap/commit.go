package swap

import (
	"context"

	"github.com/schedcu/residency-engine/internal/entity"
	domainevent "github.com/schedcu/residency-engine/internal/event"
	"github.com/schedcu/residency-engine/internal/store"
)

// commit runs phases 4-6 of spec.md §4.D: snapshot the pre-state,
// apply the mutation set in one store transaction, transition the
// SwapRecord to Executed, and append the Execution audit event.
func (e *Engine) commit(ctx context.Context, record *entity.SwapRecord, p plan, actorID entity.ActorID) (*Result, error) {
	snap, err := e.store.Snapshot(ctx, record.ID, p.affectedAssignmentIDs, p.affectedCallAssignmentIDs)
	if err != nil {
		return nil, err
	}
	if err := e.audit(ctx, record.ID, "Snapshot", snap); err != nil {
		return nil, err
	}

	mutation := store.MutationSet{
		NewAssignments:          p.newAssignments,
		RemoveAssignmentIDs:     p.removeAssignmentIDs,
		NewCallAssignments:      p.newCallAssignments,
		RemoveCallAssignmentIDs: p.removeCallAssignmentIDs,
		ActorID:                 actorID,
	}
	applyResult, err := e.store.ApplyAssignments(ctx, mutation)
	if err != nil {
		return nil, err
	}

	now := entity.Now()
	if err := record.TransitionTo(entity.SwapExecuted); err != nil {
		return nil, err
	}
	record.ExecutedAt = &now
	record.ExecutedBy = &actorID
	record.TransactionID = applyResult.TransactionID
	if err := e.store.SwapRecords().Update(ctx, record); err != nil {
		return nil, err
	}

	if err := e.audit(ctx, record.ID, "Execution", map[string]any{
		"transaction_id": applyResult.TransactionID,
		"actor_id":       actorID,
	}); err != nil {
		return nil, err
	}

	e.publish(domainevent.KindSwapExecuted, record.ID.String(), actorID, map[string]any{"transaction_id": applyResult.TransactionID})

	return &Result{SwapRecord: record, Decision: DecisionProceed, TransactionID: applyResult.TransactionID}, nil
}

// audit appends one structured AuditEvent correlated by swapID, per
// spec.md §4.D's append-only event log.
func (e *Engine) audit(ctx context.Context, swapID entity.SwapRecordID, eventType string, payload any) error {
	event := &entity.AuditEvent{
		ID:            newAuditEventID(),
		CorrelationID: swapID.String(),
		EventType:     eventType,
		Payload:       map[string]any{"data": payload},
		RecordedAt:    entity.Now(),
	}
	return e.store.AuditEvents().Create(ctx, event)
}
