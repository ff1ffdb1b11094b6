// Package store defines the persistence contract for the residency
// scheduling engine: per-entity repositories plus the handful of
// batch/transactional operations (ApplyAssignments, Snapshot, Restore,
// InsertBlocksForRange, View) that the generator, swap engine, and
// resilience evaluator actually need. It generalizes the teacher's
// repository.Database/Transaction interfaces
// (lcgerke-schedCU/v2/internal/repository/repository.go) from a flat
// per-entity CRUD surface into one that also exposes the few
// multi-entity writes the constraint-evaluating callers require.
package store

import (
	"context"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

// PersonRepository mirrors the teacher's PersonRepository, trimmed to
// the fields this domain carries.
type PersonRepository interface {
	Create(ctx context.Context, p *entity.Person) error
	GetByID(ctx context.Context, id entity.PersonID) (*entity.Person, error)
	GetByEmail(ctx context.Context, email string) (*entity.Person, error)
	List(ctx context.Context) ([]*entity.Person, error)
	Update(ctx context.Context, p *entity.Person) error
	Delete(ctx context.Context, id entity.PersonID, deleterID entity.ActorID) error
	Count(ctx context.Context) (int64, error)
}

// RotationRepository is the teacher's repository shape applied to
// Rotation templates.
type RotationRepository interface {
	Create(ctx context.Context, r *entity.Rotation) error
	GetByID(ctx context.Context, id entity.RotationID) (*entity.Rotation, error)
	List(ctx context.Context) ([]*entity.Rotation, error)
	Update(ctx context.Context, r *entity.Rotation) error
	Count(ctx context.Context) (int64, error)
}

// BlockRepository serves half-day scheduling slots.
type BlockRepository interface {
	GetByID(ctx context.Context, id entity.BlockID) (*entity.Block, error)
	GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Block, error)
	Count(ctx context.Context) (int64, error)
}

// AssignmentRepository mirrors the teacher's AssignmentRepository,
// grounded on repository/postgres/assignment.go's method set (batch
// GetAllByShiftIDs generalized to GetByBlockIDs).
type AssignmentRepository interface {
	GetByID(ctx context.Context, id entity.AssignmentID) (*entity.Assignment, error)
	GetByPerson(ctx context.Context, personID entity.PersonID) ([]*entity.Assignment, error)
	GetByPersonAndDateRange(ctx context.Context, personID entity.PersonID, start, end entity.Date) ([]*entity.Assignment, error)
	GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Assignment, error)
	GetByBlockIDs(ctx context.Context, blockIDs []entity.BlockID) ([]*entity.Assignment, error)
	Count(ctx context.Context) (int64, error)
}

// CallAssignmentRepository serves overnight/weekend call rows.
type CallAssignmentRepository interface {
	GetByID(ctx context.Context, id entity.CallAssignmentID) (*entity.CallAssignment, error)
	GetByPerson(ctx context.Context, personID entity.PersonID) ([]*entity.CallAssignment, error)
	GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.CallAssignment, error)
	Count(ctx context.Context) (int64, error)
}

// AbsenceRepository serves approved unavailability windows.
type AbsenceRepository interface {
	Create(ctx context.Context, a *entity.Absence) error
	GetByPerson(ctx context.Context, personID entity.PersonID) ([]*entity.Absence, error)
	GetByDateRange(ctx context.Context, start, end entity.Date) ([]*entity.Absence, error)
	Count(ctx context.Context) (int64, error)
}

// SwapRecordRepository serves swap audit entities, generalizing the
// teacher's ScheduleVersionRepository's status-transition-plus-lookup
// shape onto SwapRecord.
type SwapRecordRepository interface {
	Create(ctx context.Context, s *entity.SwapRecord) error
	GetByID(ctx context.Context, id entity.SwapRecordID) (*entity.SwapRecord, error)
	GetByStatus(ctx context.Context, status entity.SwapStatus) ([]*entity.SwapRecord, error)
	Update(ctx context.Context, s *entity.SwapRecord) error
	Count(ctx context.Context) (int64, error)
}

// SnapshotRepository serves pre-execution rollback captures.
type SnapshotRepository interface {
	Create(ctx context.Context, s *entity.Snapshot) error
	GetBySwapRecord(ctx context.Context, swapID entity.SwapRecordID) (*entity.Snapshot, error)
}

// ScheduleRunRepository serves generation-run audit rows, keyed by
// idempotency key for replay detection (SPEC_FULL §5.C).
type ScheduleRunRepository interface {
	Create(ctx context.Context, r *entity.ScheduleRun) error
	GetByID(ctx context.Context, id entity.ScheduleRunID) (*entity.ScheduleRun, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.ScheduleRun, error)
	Update(ctx context.Context, r *entity.ScheduleRun) error
}

// AuditEventRepository serves the append-only event log, correlated by
// aggregate id and ordered by TransactionID.
type AuditEventRepository interface {
	Create(ctx context.Context, e *entity.AuditEvent) error
	GetByCorrelationID(ctx context.Context, correlationID string) ([]*entity.AuditEvent, error)
}

// MutationSet is the one payload ApplyAssignments accepts: a batch of
// Assignment/CallAssignment creates and removals applied atomically, in
// the spirit of the teacher's single-purpose repository methods but
// generalized from one-row-at-a-time to a batch, since the generator
// and swap engine both need to move many rows in one transaction.
type MutationSet struct {
	NewAssignments          []entity.Assignment
	RemoveAssignmentIDs     []entity.AssignmentID
	NewCallAssignments      []entity.CallAssignment
	RemoveCallAssignmentIDs []entity.CallAssignmentID
	ActorID                 entity.ActorID
}

// Empty reports whether the mutation set has nothing to apply.
func (m MutationSet) Empty() bool {
	return len(m.NewAssignments) == 0 && len(m.RemoveAssignmentIDs) == 0 &&
		len(m.NewCallAssignments) == 0 && len(m.RemoveCallAssignmentIDs) == 0
}

// ApplyResult reports what ApplyAssignments actually wrote, including
// the monotonic transaction id allocated for the write. Assignment and
// CallAssignment rows do not store it; callers copy it onto the
// SwapRecord or ScheduleRun they persist (mirroring the teacher's
// ScrapeBatch/ScheduleVersion audit fields).
type ApplyResult struct {
	TransactionID          int64
	AssignmentsWritten      int
	AssignmentsRemoved      int
	CallAssignmentsWritten  int
	CallAssignmentsRemoved  int
	PersonCountersUpdated   []entity.PersonID
}

// Store is the engine's sole persistence boundary, generalizing the
// teacher's repository.Database interface (BeginTx + one accessor per
// entity + Close/Health) onto this domain's ten entities, plus the
// handful of cross-entity operations SPEC_FULL §5.A names as the
// system's only write paths.
type Store interface {
	People() PersonRepository
	Rotations() RotationRepository
	Blocks() BlockRepository
	Assignments() AssignmentRepository
	CallAssignments() CallAssignmentRepository
	Absences() AbsenceRepository
	SwapRecords() SwapRecordRepository
	Snapshots() SnapshotRepository
	ScheduleRuns() ScheduleRunRepository
	AuditEvents() AuditEventRepository

	// ApplyAssignments is the sole write path for Assignment/
	// CallAssignment rows: every create/remove of a scheduling fact,
	// whether from the generator's commit phase or the swap engine's
	// commit phase, goes through here so Person counter projections
	// (SundayCallCount, WeekdayCallCount, FMITWeekCount) are always
	// recomputed in the same transaction as the write that could change
	// them. Runs at serializable isolation; returns a *engineerr.Error
	// with KindConflict if a concurrent writer touched the same rows,
	// KindInvariant if a removal targets a row that does not exist.
	ApplyAssignments(ctx context.Context, m MutationSet) (ApplyResult, error)

	// Snapshot captures the current occupant of every given Assignment/
	// CallAssignment row, tagged to swapID, for later Restore. Used by
	// the swap engine immediately before commit.
	Snapshot(ctx context.Context, swapID entity.SwapRecordID, assignmentIDs []entity.AssignmentID, callAssignmentIDs []entity.CallAssignmentID) (*entity.Snapshot, error)

	// Restore reverts every row captured in snap to its prior occupant,
	// inside one transaction. Used by the swap engine's rollback phase.
	Restore(ctx context.Context, snap *entity.Snapshot) error

	// InsertBlocksForRange creates exactly two Blocks (AM, PM) per
	// calendar day in [start, end], auto-deriving Weekend from
	// time.Weekday and assigning a strictly increasing SequenceNumber in
	// (Date, Session) order.
	InsertBlocksForRange(ctx context.Context, start, end entity.Date) ([]entity.Block, error)

	// View builds a constraint.ScheduleView over [start, end]: every
	// Person/Rotation/Block plus every Assignment/CallAssignment whose
	// Block falls in range. The constraint package never touches the
	// store directly; this is the one place a view is assembled.
	View(ctx context.Context, start, end entity.Date) (*constraint.ScheduleView, error)

	Close() error
	Health(ctx context.Context) error
}
