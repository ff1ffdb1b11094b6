package pgstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
)

type personRepository struct {
	db *sql.DB
}

func (r *personRepository) Create(ctx context.Context, p *entity.Person) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	var pgyLevel sql.NullInt32
	var facultyTag sql.NullString
	var specialties []string
	if p.Resident != nil {
		pgyLevel = sql.NullInt32{Int32: int32(p.Resident.PGYLevel), Valid: true}
	}
	if p.Faculty != nil {
		facultyTag = sql.NullString{String: string(p.Faculty.RoleTag), Valid: true}
		specialties = p.Faculty.Specialties
	}

	query := `
		INSERT INTO people (id, name, email, role, pgy_level, faculty_role_tag, specialties,
			active, moonlighting_hours, sunday_call_count, weekday_call_count, fmit_week_count,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Email, string(p.Role), pgyLevel, facultyTag, pq.Array(specialties),
		p.Active, p.MoonlightingHours, p.SundayCallCount, p.WeekdayCallCount, p.FMITWeekCount,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create person: %w", err)
	}
	return nil
}

func scanPerson(scan func(...any) error) (*entity.Person, error) {
	p := &entity.Person{}
	var role string
	var pgyLevel sql.NullInt32
	var facultyTag sql.NullString
	var specialties []string
	var deletedAt sql.NullTime

	err := scan(
		&p.ID, &p.Name, &p.Email, &role, &pgyLevel, &facultyTag, pq.Array(&specialties),
		&p.Active, &p.MoonlightingHours, &p.SundayCallCount, &p.WeekdayCallCount, &p.FMITWeekCount,
		&p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Role = entity.Role(role)
	if pgyLevel.Valid {
		p.Resident = &entity.ResidentDetail{PGYLevel: int(pgyLevel.Int32)}
	}
	if facultyTag.Valid {
		p.Faculty = &entity.FacultyDetail{RoleTag: entity.FacultyRoleTag(facultyTag.String), Specialties: specialties}
	}
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}
	return p, nil
}

const personColumns = `id, name, email, role, pgy_level, faculty_role_tag, specialties,
	active, moonlighting_hours, sunday_call_count, weekday_call_count, fmit_week_count,
	created_at, updated_at, deleted_at`

func (r *personRepository) GetByID(ctx context.Context, id entity.PersonID) (*entity.Person, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE id = $1 AND deleted_at IS NULL`, id)
	p, err := scanPerson(row.Scan)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "person not found", map[string]any{"id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

func (r *personRepository) GetByEmail(ctx context.Context, email string) (*entity.Person, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM people WHERE email = $1 AND deleted_at IS NULL`, email)
	p, err := scanPerson(row.Scan)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "person not found", map[string]any{"email": email})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get person: %w", err)
	}
	return p, nil
}

func (r *personRepository) List(ctx context.Context) ([]*entity.Person, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+personColumns+` FROM people WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query people: %w", err)
	}
	defer rows.Close()

	var out []*entity.Person
	for rows.Next() {
		p, err := scanPerson(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan person: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating people: %w", err)
	}
	return out, nil
}

func (r *personRepository) Update(ctx context.Context, p *entity.Person) error {
	var pgyLevel sql.NullInt32
	var facultyTag sql.NullString
	var specialties []string
	if p.Resident != nil {
		pgyLevel = sql.NullInt32{Int32: int32(p.Resident.PGYLevel), Valid: true}
	}
	if p.Faculty != nil {
		facultyTag = sql.NullString{String: string(p.Faculty.RoleTag), Valid: true}
		specialties = p.Faculty.Specialties
	}
	query := `
		UPDATE people SET name = $2, email = $3, role = $4, pgy_level = $5, faculty_role_tag = $6,
			specialties = $7, active = $8, moonlighting_hours = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Email, string(p.Role), pgyLevel, facultyTag, pq.Array(specialties),
		p.Active, p.MoonlightingHours, entity.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update person: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return engineerr.New(engineerr.KindNotFound, "person not found", map[string]any{"id": p.ID})
	}
	return nil
}

func (r *personRepository) Delete(ctx context.Context, id entity.PersonID, deleterID entity.ActorID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE people SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete person: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return engineerr.New(engineerr.KindNotFound, "person not found", map[string]any{"id": id})
	}
	return nil
}

func (r *personRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM people WHERE deleted_at IS NULL`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count people: %w", err)
	}
	return count, nil
}
