package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
)

type callAssignmentRepository struct {
	db *sql.DB
}

const callAssignmentColumns = `id, date, person_id, call_type, weekend, holiday, created_at`

func scanCallAssignment(scan func(...any) error) (*entity.CallAssignment, error) {
	c := &entity.CallAssignment{}
	var callType string
	err := scan(&c.ID, &c.Date, &c.PersonID, &callType, &c.Weekend, &c.Holiday, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.CallType = entity.CallType(callType)
	return c, nil
}

func (r *callAssignmentRepository) GetByID(ctx context.Context, id entity.CallAssignmentID) (*entity.CallAssignment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+callAssignmentColumns+` FROM call_assignments WHERE id = $1`, id)
	c, err := scanCallAssignment(row.Scan)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "call assignment not found", map[string]any{"id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get call assignment: %w", err)
	}
	return c, nil
}

func (r *callAssignmentRepository) GetByPerson(ctx context.Context, personID entity.PersonID) ([]*entity.CallAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+callAssignmentColumns+` FROM call_assignments WHERE person_id = $1 ORDER BY date`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query call assignments: %w", err)
	}
	defer rows.Close()
	var out []*entity.CallAssignment
	for rows.Next() {
		c, err := scanCallAssignment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call assignment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *callAssignmentRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.CallAssignment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+callAssignmentColumns+` FROM call_assignments WHERE date >= $1 AND date <= $2 ORDER BY date`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query call assignments: %w", err)
	}
	defer rows.Close()
	var out []*entity.CallAssignment
	for rows.Next() {
		c, err := scanCallAssignment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call assignment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *callAssignmentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM call_assignments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count call assignments: %w", err)
	}
	return count, nil
}

type absenceRepository struct {
	db *sql.DB
}

const absenceColumns = `id, person_id, start_date, end_date, kind, blocking`

func scanAbsence(scan func(...any) error) (*entity.Absence, error) {
	a := &entity.Absence{}
	var kind string
	err := scan(&a.ID, &a.PersonID, &a.Start, &a.End, &kind, &a.Blocking)
	if err != nil {
		return nil, err
	}
	a.Kind = entity.AbsenceKind(kind)
	return a, nil
}

func (r *absenceRepository) Create(ctx context.Context, a *entity.Absence) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO absences (id, person_id, start_date, end_date, kind, blocking) VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.PersonID, a.Start, a.End, string(a.Kind), a.Blocking,
	)
	if err != nil {
		return fmt.Errorf("failed to create absence: %w", err)
	}
	return nil
}

func (r *absenceRepository) GetByPerson(ctx context.Context, personID entity.PersonID) ([]*entity.Absence, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+absenceColumns+` FROM absences WHERE person_id = $1 ORDER BY start_date`, personID)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()
	var out []*entity.Absence
	for rows.Next() {
		a, err := scanAbsence(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *absenceRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Absence, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+absenceColumns+` FROM absences WHERE end_date >= $1 AND start_date <= $2 ORDER BY start_date`, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query absences: %w", err)
	}
	defer rows.Close()
	var out []*entity.Absence
	for rows.Next() {
		a, err := scanAbsence(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan absence: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *absenceRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM absences`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count absences: %w", err)
	}
	return count, nil
}
