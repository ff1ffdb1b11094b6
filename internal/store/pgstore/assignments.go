package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
)

// assignmentRepository implements store.AssignmentRepository, grounded
// on repository/postgres/assignment.go: every read filters the active
// row set and the batch lookup uses pq.Array + ANY($1) to avoid N+1
// queries (GetAllByShiftIDs generalized here to GetByBlockIDs).
type assignmentRepository struct {
	db *sql.DB
}

const assignmentColumns = `id, block_id, person_id, rotation_id, notes, created_at, updated_at`

func scanAssignment(scan func(...any) error) (*entity.Assignment, error) {
	a := &entity.Assignment{}
	var notes sql.NullString
	err := scan(&a.ID, &a.BlockID, &a.PersonID, &a.RotationID, &notes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Notes = notes.String
	return a, nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id entity.AssignmentID) (*entity.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id)
	a, err := scanAssignment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "assignment not found", map[string]any{"id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

func (r *assignmentRepository) queryAssignments(ctx context.Context, query string, args ...any) ([]*entity.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var out []*entity.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}
	return out, nil
}

func (r *assignmentRepository) GetByPerson(ctx context.Context, personID entity.PersonID) ([]*entity.Assignment, error) {
	return r.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE person_id = $1 ORDER BY created_at`, personID)
}

func (r *assignmentRepository) GetByPersonAndDateRange(ctx context.Context, personID entity.PersonID, start, end entity.Date) ([]*entity.Assignment, error) {
	return r.queryAssignments(ctx, `
		SELECT a.id, a.block_id, a.person_id, a.rotation_id, a.notes, a.created_at, a.updated_at
		FROM assignments a JOIN blocks b ON a.block_id = b.id
		WHERE a.person_id = $1 AND b.date >= $2 AND b.date <= $3
		ORDER BY b.date`, personID, start, end)
}

func (r *assignmentRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Assignment, error) {
	return r.queryAssignments(ctx, `
		SELECT a.id, a.block_id, a.person_id, a.rotation_id, a.notes, a.created_at, a.updated_at
		FROM assignments a JOIN blocks b ON a.block_id = b.id
		WHERE b.date >= $1 AND b.date <= $2
		ORDER BY b.date`, start, end)
}

func (r *assignmentRepository) GetByBlockIDs(ctx context.Context, blockIDs []entity.BlockID) ([]*entity.Assignment, error) {
	if len(blockIDs) == 0 {
		return nil, nil
	}
	return r.queryAssignments(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE block_id = ANY($1) ORDER BY block_id, created_at`,
		pq.Array(blockIDs))
}

func (r *assignmentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assignments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count assignments: %w", err)
	}
	return count, nil
}
