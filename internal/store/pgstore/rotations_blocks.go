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

type rotationRepository struct {
	db *sql.DB
}

const rotationColumns = `id, name, category, required_pgy_levels, required_certifications,
	required_clearance, min_coverage_per_block, max_coverage_per_block`

func scanRotation(scan func(...any) error) (*entity.Rotation, error) {
	rot := &entity.Rotation{}
	var category string
	var requiredClearance sql.NullString
	err := scan(
		&rot.ID, &rot.Name, &category,
		pq.Array(&rot.Qualifications.RequiredPGYLevels),
		pq.Array(&rot.Qualifications.RequiredCertifications),
		&requiredClearance,
		&rot.MinCoveragePerBlock, &rot.MaxCoveragePerBlock,
	)
	if err != nil {
		return nil, err
	}
	rot.Category = entity.RotationCategory(category)
	rot.Qualifications.RequiredClearance = requiredClearance.String
	return rot, nil
}

func (r *rotationRepository) Create(ctx context.Context, rot *entity.Rotation) error {
	if rot.ID == uuid.Nil {
		rot.ID = uuid.New()
	}
	query := `
		INSERT INTO rotations (id, name, category, required_pgy_levels, required_certifications,
			required_clearance, min_coverage_per_block, max_coverage_per_block)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		rot.ID, rot.Name, string(rot.Category),
		pq.Array(rot.Qualifications.RequiredPGYLevels), pq.Array(rot.Qualifications.RequiredCertifications),
		rot.Qualifications.RequiredClearance, rot.MinCoveragePerBlock, rot.MaxCoveragePerBlock,
	)
	if err != nil {
		return fmt.Errorf("failed to create rotation: %w", err)
	}
	return nil
}

func (r *rotationRepository) GetByID(ctx context.Context, id entity.RotationID) (*entity.Rotation, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+rotationColumns+` FROM rotations WHERE id = $1`, id)
	rot, err := scanRotation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "rotation not found", map[string]any{"id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation: %w", err)
	}
	return rot, nil
}

func (r *rotationRepository) List(ctx context.Context) ([]*entity.Rotation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+rotationColumns+` FROM rotations ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotations: %w", err)
	}
	defer rows.Close()

	var out []*entity.Rotation
	for rows.Next() {
		rot, err := scanRotation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rotation: %w", err)
		}
		out = append(out, rot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rotations: %w", err)
	}
	return out, nil
}

func (r *rotationRepository) Update(ctx context.Context, rot *entity.Rotation) error {
	query := `
		UPDATE rotations SET name = $2, category = $3, required_pgy_levels = $4,
			required_certifications = $5, required_clearance = $6, min_coverage_per_block = $7,
			max_coverage_per_block = $8
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		rot.ID, rot.Name, string(rot.Category),
		pq.Array(rot.Qualifications.RequiredPGYLevels), pq.Array(rot.Qualifications.RequiredCertifications),
		rot.Qualifications.RequiredClearance, rot.MinCoveragePerBlock, rot.MaxCoveragePerBlock,
	)
	if err != nil {
		return fmt.Errorf("failed to update rotation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return engineerr.New(engineerr.KindNotFound, "rotation not found", map[string]any{"id": rot.ID})
	}
	return nil
}

func (r *rotationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rotations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rotations: %w", err)
	}
	return count, nil
}

type blockRepository struct {
	db *sql.DB
}

const blockColumns = `id, date, session, sequence_number, weekend, holiday, holiday_name`

func scanBlock(scan func(...any) error) (*entity.Block, error) {
	b := &entity.Block{}
	var session string
	var holidayName sql.NullString
	err := scan(&b.ID, &b.Date, &session, &b.SequenceNumber, &b.Weekend, &b.Holiday, &holidayName)
	if err != nil {
		return nil, err
	}
	b.Session = entity.Session(session)
	b.HolidayName = holidayName.String
	return b, nil
}

func (r *blockRepository) GetByID(ctx context.Context, id entity.BlockID) (*entity.Block, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+blockColumns+` FROM blocks WHERE id = $1`, id)
	b, err := scanBlock(row.Scan)
	if err == sql.ErrNoRows {
		return nil, engineerr.New(engineerr.KindNotFound, "block not found", map[string]any{"id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	return b, nil
}

func (r *blockRepository) GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Block, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+blockColumns+` FROM blocks WHERE date >= $1 AND date <= $2 ORDER BY sequence_number`,
		start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query blocks: %w", err)
	}
	defer rows.Close()

	var out []*entity.Block
	for rows.Next() {
		b, err := scanBlock(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan block: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blocks: %w", err)
	}
	return out, nil
}

func (r *blockRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blocks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count blocks: %w", err)
	}
	return count, nil
}
