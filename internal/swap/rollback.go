package swap

import (
	"context"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
	domainevent "github.com/schedcu/residency-engine/internal/event"
)

// Rollback implements phase 7 of spec.md §4.D: within the configured
// rollback window after execution, a swap can be atomically reverted
// using its captured Snapshot. A swap cannot be rolled back twice
// (entity.SwapRecord.TransitionTo rejects the edge once the record is
// already RolledBack).
func (e *Engine) Rollback(ctx context.Context, swapID entity.SwapRecordID, actorID entity.ActorID, reason string) (*Result, error) {
	record, err := e.store.SwapRecords().GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if !record.RollbackEligible(entity.Now(), e.cfg.RollbackWindow) {
		return nil, engineerr.New(engineerr.KindInvariant, "swap is not eligible for rollback", map[string]any{
			"swap_id": swapID, "status": record.Status,
		})
	}

	snap, err := e.store.Snapshots().GetBySwapRecord(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if err := e.store.Restore(ctx, snap); err != nil {
		return nil, err
	}

	now := entity.Now()
	if err := record.TransitionTo(entity.SwapRolledBack); err != nil {
		return nil, err
	}
	record.RolledBackAt = &now
	record.RolledBackBy = &actorID
	record.RollbackReason = reason
	if err := e.store.SwapRecords().Update(ctx, record); err != nil {
		return nil, err
	}

	if err := e.audit(ctx, swapID, "Rollback", map[string]any{"actor_id": actorID, "reason": reason}); err != nil {
		return nil, err
	}

	e.log.Warnw("swap rolled back", "swap_id", swapID, "actor_id", actorID, "reason", reason)
	e.publish(domainevent.KindSwapRolledBack, swapID.String(), actorID, map[string]any{"reason": reason})
	return &Result{SwapRecord: record, Decision: DecisionProceed}, nil
}

// AutoDetect implements spec.md §4.D's post-commit sweep: within the
// configured delay after execution, re-run the Tier-1 check against
// committed state and automatically roll back on any critical
// violation, attributing the rollback to SystemActorID. Intended to be
// invoked by a scheduled job (internal/job's TypeSwapAutoDetect), not
// called directly by request handling.
func (e *Engine) AutoDetect(ctx context.Context, swapID entity.SwapRecordID) (*Result, error) {
	record, err := e.store.SwapRecords().GetByID(ctx, swapID)
	if err != nil {
		return nil, err
	}
	if record.Status != entity.SwapExecuted {
		return &Result{SwapRecord: record, Decision: DecisionProceed}, nil
	}

	sourceStart, sourceEnd := weekWindow(record.SourceWeekStart)
	viewStart, viewEnd := sourceStart.AddDate(0, 0, -7), sourceEnd.AddDate(0, 0, 7)
	if record.TargetWeekStart != nil {
		targetStart, targetEnd := weekWindow(*record.TargetWeekStart)
		if targetStart.Before(viewStart) {
			viewStart = targetStart.AddDate(0, 0, -7)
		}
		if targetEnd.After(viewEnd) {
			viewEnd = targetEnd.AddDate(0, 0, 7)
		}
	}

	view, err := e.store.View(ctx, viewStart, viewEnd)
	if err != nil {
		return nil, err
	}
	result := constraint.Evaluate(ctx, e.registry, view, constraint.AuxContext{Now: entity.Now()})
	if len(result.HardViolations()) == 0 {
		return &Result{SwapRecord: record, Decision: DecisionProceed}, nil
	}

	var reasons []string
	for _, v := range result.HardViolations() {
		if v.Tier == constraint.Tier1Absolute {
			reasons = append(reasons, v.RuleID)
		}
	}
	if len(reasons) == 0 {
		return &Result{SwapRecord: record, Decision: DecisionProceed}, nil
	}

	e.log.Errorw("auto-detect found a Tier-1 violation in committed state", "swap_id", swapID, "rule_id", reasons[0])
	return e.Rollback(ctx, swapID, SystemActorID, "auto-detected Tier-1 violation in committed state: "+reasons[0])
}
