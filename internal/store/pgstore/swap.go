package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
)

type swapRecordRepository struct {
	db *sql.DB
}

const swapRecordColumns = `id, type, status, source_person_id, source_week_start, target_person_id,
	target_week_start, reason, requested_at, requested_by, approved_at, approved_by,
	executed_at, executed_by, rolled_back_at, rolled_back_by, rollback_reason, transaction_id`

func scanSwapRecord(scan func(...any) error) (*entity.SwapRecord, error) {
	s := &entity.SwapRecord{}
	var swapType, status string
	var reason, rollbackReason sql.NullString
	err := scan(
		&s.ID, &swapType, &status, &s.SourcePersonID, &s.SourceWeekStart,
		&s.TargetPersonID, &s.TargetWeekStart, &reason, &s.RequestedAt, &s.RequestedBy,
		&s.ApprovedAt, &s.ApprovedBy, &s.ExecutedAt, &s.ExecutedBy,
		&s.RolledBackAt, &s.RolledBackBy, &rollbackReason, &s.TransactionID,
	)
	if err != nil {
		return nil, err
	}
	s.Type = entity.SwapType(swapType)
	s.Status = entity.SwapStatus(status)
	s.Reason = reason.String
	s.RollbackReason = rollbackReason.String
	return s, nil
}

func (r *swapRecordRepository) Create(ctx context.Context, s *entity.SwapRecord) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO swap_records (id, type, status, source_person_id, source_week_start,
			target_person_id, target_week_start, reason, requested_at, requested_by, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		s.ID, string(s.Type), string(s.Status), s.SourcePersonID, s.SourceWeekStart,
		s.TargetPersonID, s.TargetWeekStart, s.Reason, s.RequestedAt, s.RequestedBy, s.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to create swap record: %w", err)
	}
	return nil
}

func (r *swapRecordRepository) GetByID(ctx context.Context, id entity.SwapRecordID) (*entity.SwapRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+swapRecordColumns+` FROM swap_records WHERE id = $1`, id)
	s, err := scanSwapRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "swap record not found", map[string]any{"id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get swap record: %w", err)
	}
	return s, nil
}

func (r *swapRecordRepository) GetByStatus(ctx context.Context, status entity.SwapStatus) ([]*entity.SwapRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+swapRecordColumns+` FROM swap_records WHERE status = $1 ORDER BY requested_at`, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to query swap records: %w", err)
	}
	defer rows.Close()
	var out []*entity.SwapRecord
	for rows.Next() {
		s, err := scanSwapRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan swap record: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *swapRecordRepository) Update(ctx context.Context, s *entity.SwapRecord) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE swap_records SET status = $2, approved_at = $3, approved_by = $4,
			executed_at = $5, executed_by = $6, rolled_back_at = $7, rolled_back_by = $8,
			rollback_reason = $9, transaction_id = $10
		WHERE id = $1`,
		s.ID, string(s.Status), s.ApprovedAt, s.ApprovedBy, s.ExecutedAt, s.ExecutedBy,
		s.RolledBackAt, s.RolledBackBy, s.RollbackReason, s.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to update swap record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return engineerr.New(engineerr.KindNotFound, "swap record not found", map[string]any{"id": s.ID})
	}
	return nil
}

func (r *swapRecordRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM swap_records`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count swap records: %w", err)
	}
	return count, nil
}

type snapshotRepository struct {
	db *sql.DB
}

// marshalSnapshotParts serializes a Snapshot's two entry lists to JSON
// for storage in the snapshots table's JSONB columns.
func marshalSnapshotParts(snap *entity.Snapshot) (assignmentsJSON, callsJSON []byte, err error) {
	assignmentsJSON, err = json.Marshal(snap.Assignments)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal snapshot assignments: %w", err)
	}
	callsJSON, err = json.Marshal(snap.CallAssignments)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal snapshot call assignments: %w", err)
	}
	return assignmentsJSON, callsJSON, nil
}

func (r *snapshotRepository) Create(ctx context.Context, snap *entity.Snapshot) error {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	assignmentsJSON, callsJSON, err := marshalSnapshotParts(snap)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO snapshots (id, swap_record_id, assignments, call_assignments, captured_at) VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.SwapRecordID, assignmentsJSON, callsJSON, snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

func (r *snapshotRepository) GetBySwapRecord(ctx context.Context, swapID entity.SwapRecordID) (*entity.Snapshot, error) {
	snap := &entity.Snapshot{}
	var assignmentsJSON, callsJSON []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, swap_record_id, assignments, call_assignments, captured_at FROM snapshots WHERE swap_record_id = $1`,
		swapID,
	).Scan(&snap.ID, &snap.SwapRecordID, &assignmentsJSON, &callsJSON, &snap.CapturedAt)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "snapshot not found", map[string]any{"swap_id": swapID})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	if err := json.Unmarshal(assignmentsJSON, &snap.Assignments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot assignments: %w", err)
	}
	if err := json.Unmarshal(callsJSON, &snap.CallAssignments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot call assignments: %w", err)
	}
	return snap, nil
}

type scheduleRunRepository struct {
	db *sql.DB
}

const scheduleRunColumns = `id, status, algorithm, start_date, end_date, idempotency_key,
	payload_hash, assignments_created, call_assignments_created, solve_duration_ms,
	incumbent_found, total_penalty, override_count, created_at, transaction_id`

func scanScheduleRun(scan func(...any) error) (*entity.ScheduleRun, error) {
	run := &entity.ScheduleRun{}
	var status, algorithm string
	var solveDurationMs int64
	err := scan(
		&run.ID, &status, &algorithm, &run.StartDate, &run.EndDate, &run.IdempotencyKey,
		&run.PayloadHash, &run.Statistics.AssignmentsCreated, &run.Statistics.CallAssignmentsCreated,
		&solveDurationMs, &run.Statistics.IncumbentFound, &run.Statistics.TotalPenalty,
		&run.OverrideCount, &run.CreatedAt, &run.TransactionID,
	)
	if err != nil {
		return nil, err
	}
	run.Status = entity.RunStatus(status)
	run.Algorithm = entity.Algorithm(algorithm)
	run.Statistics.SolveDuration = durationFromMillis(solveDurationMs)
	return run, nil
}

func (r *scheduleRunRepository) Create(ctx context.Context, run *entity.ScheduleRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedule_runs (id, status, algorithm, start_date, end_date, idempotency_key,
			payload_hash, assignments_created, call_assignments_created, solve_duration_ms,
			incumbent_found, total_penalty, override_count, created_at, transaction_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		run.ID, string(run.Status), string(run.Algorithm), run.StartDate, run.EndDate, run.IdempotencyKey,
		run.PayloadHash, run.Statistics.AssignmentsCreated, run.Statistics.CallAssignmentsCreated,
		run.Statistics.SolveDuration.Milliseconds(), run.Statistics.IncumbentFound, run.Statistics.TotalPenalty,
		run.OverrideCount, run.CreatedAt, run.TransactionID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return engineerr.New(engineerr.KindConflict, "idempotency key already in use", map[string]any{"idempotency_key": run.IdempotencyKey})
		}
		return fmt.Errorf("failed to create schedule run: %w", err)
	}
	return nil
}

func (r *scheduleRunRepository) GetByID(ctx context.Context, id entity.ScheduleRunID) (*entity.ScheduleRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleRunColumns+` FROM schedule_runs WHERE id = $1`, id)
	run, err := scanScheduleRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "schedule run not found", map[string]any{"id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule run: %w", err)
	}
	return run, nil
}

func (r *scheduleRunRepository) GetByIdempotencyKey(ctx context.Context, key string) (*entity.ScheduleRun, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleRunColumns+` FROM schedule_runs WHERE idempotency_key = $1`, key)
	run, err := scanScheduleRun(row.Scan)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "schedule run not found", map[string]any{"idempotency_key": key})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule run: %w", err)
	}
	return run, nil
}

func (r *scheduleRunRepository) Update(ctx context.Context, run *entity.ScheduleRun) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE schedule_runs SET status = $2, assignments_created = $3, call_assignments_created = $4,
			solve_duration_ms = $5, incumbent_found = $6, total_penalty = $7, override_count = $8
		WHERE id = $1`,
		run.ID, string(run.Status), run.Statistics.AssignmentsCreated, run.Statistics.CallAssignmentsCreated,
		run.Statistics.SolveDuration.Milliseconds(), run.Statistics.IncumbentFound, run.Statistics.TotalPenalty,
		run.OverrideCount,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return engineerr.New(engineerr.KindNotFound, "schedule run not found", map[string]any{"id": run.ID})
	}
	return nil
}

type auditEventRepository struct {
	db *sql.DB
}

func (r *auditEventRepository) Create(ctx context.Context, e *entity.AuditEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	payloadJSON, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event payload: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, correlation_id, event_type, payload, recorded_at, transaction_id)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.CorrelationID, e.EventType, payloadJSON, e.RecordedAt, e.TransactionID,
	)
	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}
	return nil
}

func (r *auditEventRepository) GetByCorrelationID(ctx context.Context, correlationID string) ([]*entity.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, correlation_id, event_type, payload, recorded_at, transaction_id
		 FROM audit_events WHERE correlation_id = $1 ORDER BY transaction_id`, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var out []*entity.AuditEvent
	for rows.Next() {
		e := &entity.AuditEvent{}
		var payloadJSON []byte
		if err := rows.Scan(&e.ID, &e.CorrelationID, &e.EventType, &payloadJSON, &e.RecordedAt, &e.TransactionID); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal audit event payload: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
