package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/store"
)

func durationFromMillis(ms int64) time.Duration { return time.Duration(ms) * time.Millisecond }

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), the signal a concurrent idempotency-key or
// (block,person)/(date,call_type) race produces.
func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == "23505"
}

// withSerializableTx runs fn inside a serializable-isolation
// transaction. A serialization failure (SQLSTATE 40001) at commit, the
// way a concurrent ApplyAssignments/Restore pair would surface one, is
// returned as a KindConflict error; the transaction is not retried.
func withSerializableTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "40001" {
			return engineerr.New(engineerr.KindConflict, "concurrent write conflicted, retry", nil)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ApplyAssignments is the sole write path for Assignment/CallAssignment
// rows, running the whole batch plus the Person counter recomputation
// it triggers inside one serializable transaction.
func (s *PostgresStore) ApplyAssignments(ctx context.Context, m store.MutationSet) (store.ApplyResult, error) {
	if m.Empty() {
		return store.ApplyResult{}, nil
	}

	var result store.ApplyResult
	err := withSerializableTx(ctx, s.db.DB, func(tx *sql.Tx) error {
		var txID int64
		if err := tx.QueryRowContext(ctx, `SELECT nextval('transaction_id_seq')`).Scan(&txID); err != nil {
			return fmt.Errorf("failed to assign transaction id: %w", err)
		}

		touched := map[entity.PersonID]bool{}

		for _, id := range m.RemoveAssignmentIDs {
			var personID entity.PersonID
			if err := tx.QueryRowContext(ctx, `DELETE FROM assignments WHERE id = $1 RETURNING person_id`, id).Scan(&personID); err != nil {
				if err == sql.ErrNoRows {
					return engineerr.New(engineerr.KindInvariant, "cannot remove assignment that does not exist", map[string]any{"id": id})
				}
				return fmt.Errorf("failed to remove assignment: %w", err)
			}
			touched[personID] = true
		}

		for i := range m.NewAssignments {
			a := m.NewAssignments[i]
			if a.ID == uuid.Nil {
				a.ID = uuid.New()
			}
			now := entity.Now()
			_, err := tx.ExecContext(ctx,
				`INSERT INTO assignments (id, block_id, person_id, rotation_id, notes, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				a.ID, a.BlockID, a.PersonID, a.RotationID, a.Notes, now, now,
			)
			if err != nil {
				if isUniqueViolation(err) {
					return engineerr.New(engineerr.KindConflict, "person already holds an assignment on this block", map[string]any{"person_id": a.PersonID, "block_id": a.BlockID})
				}
				return fmt.Errorf("failed to insert assignment: %w", err)
			}
			touched[a.PersonID] = true
		}

		for _, id := range m.RemoveCallAssignmentIDs {
			var personID entity.PersonID
			if err := tx.QueryRowContext(ctx, `DELETE FROM call_assignments WHERE id = $1 RETURNING person_id`, id).Scan(&personID); err != nil {
				if err == sql.ErrNoRows {
					return engineerr.New(engineerr.KindInvariant, "cannot remove call assignment that does not exist", map[string]any{"id": id})
				}
				return fmt.Errorf("failed to remove call assignment: %w", err)
			}
			touched[personID] = true
		}

		for i := range m.NewCallAssignments {
			c := m.NewCallAssignments[i]
			if c.ID == uuid.Nil {
				c.ID = uuid.New()
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO call_assignments (id, date, person_id, call_type, weekend, holiday, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				c.ID, c.Date, c.PersonID, string(c.CallType), c.Weekend, c.Holiday, entity.Now(),
			)
			if err != nil {
				if isUniqueViolation(err) {
					return engineerr.New(engineerr.KindConflict, "call slot already filled", map[string]any{"date": c.Date, "call_type": c.CallType})
				}
				return fmt.Errorf("failed to insert call assignment: %w", err)
			}
			touched[c.PersonID] = true
		}

		for personID := range touched {
			if err := recomputeCountersTx(ctx, tx, personID); err != nil {
				return err
			}
			result.PersonCountersUpdated = append(result.PersonCountersUpdated, personID)
		}

		result.TransactionID = txID
		result.AssignmentsWritten = len(m.NewAssignments)
		result.AssignmentsRemoved = len(m.RemoveAssignmentIDs)
		result.CallAssignmentsWritten = len(m.NewCallAssignments)
		result.CallAssignmentsRemoved = len(m.RemoveCallAssignmentIDs)
		return nil
	})
	if err != nil {
		return store.ApplyResult{}, err
	}
	return result, nil
}

// recomputeCountersTx rebuilds a Person's cached call-equity counters
// from the current row set, inside tx.
func recomputeCountersTx(ctx context.Context, tx *sql.Tx, personID entity.PersonID) error {
	var sunday, weekday int
	err := tx.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE EXTRACT(DOW FROM date) = 0),
			COUNT(*) FILTER (WHERE NOT weekend)
		FROM call_assignments WHERE person_id = $1`, personID,
	).Scan(&sunday, &weekday)
	if err != nil {
		return fmt.Errorf("failed to recompute call counters: %w", err)
	}

	var fmitWeeks int
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT DATE_TRUNC('week', b.date))
		FROM assignments a
		JOIN blocks b ON a.block_id = b.id
		JOIN rotations r ON a.rotation_id = r.id
		WHERE a.person_id = $1 AND r.name ILIKE 'FMIT'`, personID,
	).Scan(&fmitWeeks)
	if err != nil {
		return fmt.Errorf("failed to recompute fmit weeks: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE people SET sunday_call_count = $2, weekday_call_count = $3, fmit_week_count = $4, updated_at = $5 WHERE id = $1`,
		personID, sunday, weekday, fmitWeeks, entity.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update person counters: %w", err)
	}
	return nil
}

// Snapshot captures the current occupant of every given row, tagged to
// swapID, for later Restore.
func (s *PostgresStore) Snapshot(ctx context.Context, swapID entity.SwapRecordID, assignmentIDs []entity.AssignmentID, callAssignmentIDs []entity.CallAssignmentID) (*entity.Snapshot, error) {
	snap := &entity.Snapshot{ID: uuid.New(), SwapRecordID: swapID, CapturedAt: entity.Now()}

	err := withSerializableTx(ctx, s.db.DB, func(tx *sql.Tx) error {
		for _, id := range assignmentIDs {
			var personID entity.PersonID
			var blockID entity.BlockID
			var rotationID entity.RotationID
			if err := tx.QueryRowContext(ctx, `SELECT person_id, block_id, rotation_id FROM assignments WHERE id = $1`, id).Scan(&personID, &blockID, &rotationID); err != nil {
				if err == sql.ErrNoRows {
					return engineerr.New(engineerr.KindNotFound, "assignment not found for snapshot", map[string]any{"id": id})
				}
				return fmt.Errorf("failed to read assignment for snapshot: %w", err)
			}
			snap.Assignments = append(snap.Assignments, entity.AssignmentSnapshotEntry{
				AssignmentID: id, BlockID: blockID, RotationID: rotationID, PriorPersonID: personID,
			})
		}
		for _, id := range callAssignmentIDs {
			var personID entity.PersonID
			var date entity.Date
			var callType entity.CallType
			if err := tx.QueryRowContext(ctx, `SELECT person_id, date, call_type FROM call_assignments WHERE id = $1`, id).Scan(&personID, &date, &callType); err != nil {
				if err == sql.ErrNoRows {
					return engineerr.New(engineerr.KindNotFound, "call assignment not found for snapshot", map[string]any{"id": id})
				}
				return fmt.Errorf("failed to read call assignment for snapshot: %w", err)
			}
			snap.CallAssignments = append(snap.CallAssignments, entity.CallSnapshotEntry{
				CallAssignmentID: id, Date: date, CallType: callType, PriorPersonID: personID,
			})
		}
		return (&snapshotRepository{db: s.db.DB}).create(ctx, tx, snap)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// create inserts snap using an existing transaction, reusing the same
// marshal logic as the standalone Create method.
func (r *snapshotRepository) create(ctx context.Context, tx *sql.Tx, snap *entity.Snapshot) error {
	assignmentsJSON, callsJSON, err := marshalSnapshotParts(snap)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, swap_record_id, assignments, call_assignments, captured_at) VALUES ($1, $2, $3, $4, $5)`,
		snap.ID, snap.SwapRecordID, assignmentsJSON, callsJSON, snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// Restore reverts every row captured in snap to its prior occupant. A
// row still present is updated in place; a row an Absorb swap deleted
// is reinserted from the snapshot's captured fields, since rollback
// must undo a give-away exactly as it undoes a reassignment.
func (s *PostgresStore) Restore(ctx context.Context, snap *entity.Snapshot) error {
	return withSerializableTx(ctx, s.db.DB, func(tx *sql.Tx) error {
		touched := map[entity.PersonID]bool{}
		now := entity.Now()
		for _, entry := range snap.Assignments {
			result, err := tx.ExecContext(ctx, `UPDATE assignments SET person_id = $2, updated_at = $3 WHERE id = $1`,
				entry.AssignmentID, entry.PriorPersonID, now)
			if err != nil {
				return fmt.Errorf("failed to restore assignment: %w", err)
			}
			if n, _ := result.RowsAffected(); n == 0 {
				_, err := tx.ExecContext(ctx,
					`INSERT INTO assignments (id, block_id, person_id, rotation_id, notes, created_at, updated_at)
					 VALUES ($1, $2, $3, $4, '', $5, $5)`,
					entry.AssignmentID, entry.BlockID, entry.PriorPersonID, entry.RotationID, now,
				)
				if err != nil {
					return fmt.Errorf("failed to recreate assignment on restore: %w", err)
				}
			}
			touched[entry.PriorPersonID] = true
		}
		for _, entry := range snap.CallAssignments {
			result, err := tx.ExecContext(ctx, `UPDATE call_assignments SET person_id = $2 WHERE id = $1`,
				entry.CallAssignmentID, entry.PriorPersonID)
			if err != nil {
				return fmt.Errorf("failed to restore call assignment: %w", err)
			}
			if n, _ := result.RowsAffected(); n == 0 {
				recreated := entity.NewCallAssignment(entry.CallAssignmentID, entry.Date, entry.PriorPersonID, entry.CallType)
				_, err := tx.ExecContext(ctx,
					`INSERT INTO call_assignments (id, date, person_id, call_type, weekend, holiday, created_at)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					recreated.ID, recreated.Date, recreated.PersonID, string(recreated.CallType), recreated.Weekend, recreated.Holiday, now,
				)
				if err != nil {
					return fmt.Errorf("failed to recreate call assignment on restore: %w", err)
				}
			}
			touched[entry.PriorPersonID] = true
		}
		for personID := range touched {
			if err := recomputeCountersTx(ctx, tx, personID); err != nil {
				return err
			}
		}
		return nil
	})
}

// InsertBlocksForRange creates two Blocks (AM, PM) per calendar day in
// [start, end], assigning a strictly increasing SequenceNumber.
func (s *PostgresStore) InsertBlocksForRange(ctx context.Context, start, end entity.Date) ([]entity.Block, error) {
	if end.Before(start) {
		return nil, engineerr.New(engineerr.KindInvariant, "end precedes start", map[string]any{"start": start, "end": end})
	}

	var out []entity.Block
	err := withSerializableTx(ctx, s.db.DB, func(tx *sql.Tx) error {
		var seq int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(sequence_number), 0) FROM blocks`).Scan(&seq); err != nil {
			return fmt.Errorf("failed to read current block sequence: %w", err)
		}

		for d := entity.CivilDate(start); !d.After(end); d = d.AddDate(0, 0, 1) {
			for _, session := range []entity.Session{entity.SessionAM, entity.SessionPM} {
				b := entity.NewBlock(uuid.New(), d, session)
				seq++
				b.SequenceNumber = seq
				_, err := tx.ExecContext(ctx,
					`INSERT INTO blocks (id, date, session, sequence_number, weekend, holiday, holiday_name)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					b.ID, b.Date, string(b.Session), b.SequenceNumber, b.Weekend, b.Holiday, b.HolidayName,
				)
				if err != nil {
					return fmt.Errorf("failed to insert block: %w", err)
				}
				out = append(out, *b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// View builds a constraint.ScheduleView over [start, end].
func (s *PostgresStore) View(ctx context.Context, start, end entity.Date) (*constraint.ScheduleView, error) {
	people := map[entity.PersonID]*entity.Person{}
	allPeople, err := (&personRepository{db: s.db.DB}).List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range allPeople {
		people[p.ID] = p
	}

	rotations := map[entity.RotationID]*entity.Rotation{}
	allRotations, err := (&rotationRepository{db: s.db.DB}).List(ctx)
	if err != nil {
		return nil, err
	}
	for _, rot := range allRotations {
		rotations[rot.ID] = rot
	}

	blocks := map[entity.BlockID]*entity.Block{}
	blockList, err := (&blockRepository{db: s.db.DB}).GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	blockIDs := make([]entity.BlockID, 0, len(blockList))
	for _, b := range blockList {
		blocks[b.ID] = b
		blockIDs = append(blockIDs, b.ID)
	}

	assignmentPtrs, err := (&assignmentRepository{db: s.db.DB}).GetByBlockIDs(ctx, blockIDs)
	if err != nil {
		return nil, err
	}
	assignments := make([]entity.Assignment, 0, len(assignmentPtrs))
	for _, a := range assignmentPtrs {
		assignments = append(assignments, *a)
	}

	callPtrs, err := (&callAssignmentRepository{db: s.db.DB}).GetByDateRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	calls := make([]entity.CallAssignment, 0, len(callPtrs))
	for _, c := range callPtrs {
		calls = append(calls, *c)
	}

	return constraint.NewScheduleView(start, end, people, rotations, blocks, assignments, calls), nil
}
