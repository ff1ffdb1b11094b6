// Package pgstore is the Postgres store.Store implementation, grounded
// on the teacher's repository/postgres package: a DB struct wrapping
// *sql.DB opened via database/sql + a blank-imported
// github.com/lib/pq driver, PingContext'd on construction
// (lcgerke-schedCU/v2/internal/repository/postgres/postgres.go), and
// per-entity repositories issuing hand-written SQL with
// ExecContext/QueryRowContext/QueryContext, mapping sql.ErrNoRows and
// zero-rows-affected to engineerr.NotFound
// (repository/postgres/assignment.go).
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/schedcu/residency-engine/internal/store"
)

// DB wraps a SQL database connection for every store operation.
type DB struct {
	*sql.DB
}

// New opens a Postgres connection, pinging it before returning so
// callers fail fast on a bad DSN rather than on the first query.
func New(connString string) (*DB, error) {
	sqldb, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqldb.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{sqldb}, nil
}

// EnsureSchema creates every table pgstore needs if it does not
// already exist. Safe to call on every process start.
func (db *DB) EnsureSchema(ctx context.Context) error {
	_, err := db.ExecContext(ctx, schemaDDL)
	if err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error { return db.DB.Close() }

// Health checks database connectivity.
func (db *DB) Health(ctx context.Context) error { return db.PingContext(ctx) }

// PostgresStore is the store.Store implementation backed by a single
// Postgres database, generalizing the teacher's postgresDatabase
// wrapper (repository/repository.go's Database interface, satisfied in
// the teacher by a struct holding one *XRepository per entity).
type PostgresStore struct {
	db *DB
}

// NewPostgresStore wraps an already-opened DB as a store.Store.
func NewPostgresStore(db *DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open opens a new connection, ensures the schema exists, and returns
// a ready-to-use PostgresStore.
func Open(ctx context.Context, connString string) (*PostgresStore, error) {
	db, err := New(connString)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostgresStore(db), nil
}

func (s *PostgresStore) Close() error               { return s.db.Close() }
func (s *PostgresStore) Health(ctx context.Context) error { return s.db.Health(ctx) }

func (s *PostgresStore) People() store.PersonRepository                     { return &personRepository{db: s.db.DB} }
func (s *PostgresStore) Rotations() store.RotationRepository                { return &rotationRepository{db: s.db.DB} }
func (s *PostgresStore) Blocks() store.BlockRepository                      { return &blockRepository{db: s.db.DB} }
func (s *PostgresStore) Assignments() store.AssignmentRepository           { return &assignmentRepository{db: s.db.DB} }
func (s *PostgresStore) CallAssignments() store.CallAssignmentRepository   { return &callAssignmentRepository{db: s.db.DB} }
func (s *PostgresStore) Absences() store.AbsenceRepository                 { return &absenceRepository{db: s.db.DB} }
func (s *PostgresStore) SwapRecords() store.SwapRecordRepository           { return &swapRecordRepository{db: s.db.DB} }
func (s *PostgresStore) Snapshots() store.SnapshotRepository               { return &snapshotRepository{db: s.db.DB} }
func (s *PostgresStore) ScheduleRuns() store.ScheduleRunRepository         { return &scheduleRunRepository{db: s.db.DB} }
func (s *PostgresStore) AuditEvents() store.AuditEventRepository           { return &auditEventRepository{db: s.db.DB} }

var _ store.Store = (*PostgresStore)(nil)
