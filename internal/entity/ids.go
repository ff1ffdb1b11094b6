// Package entity holds the residency scheduling domain model: persons,
// rotations, blocks, assignments, call assignments, absences and the
// audit entities the swap engine produces. Types here are plain structs
// with exported fields; invariant enforcement that requires cross-field
// knowledge lives next to the type it guards, not in the store.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Opaque 128-bit identifiers, generated at insertion time.
type (
	PersonID         = uuid.UUID
	RotationID       = uuid.UUID
	BlockID          = uuid.UUID
	AssignmentID     = uuid.UUID
	CallAssignmentID = uuid.UUID
	AbsenceID        = uuid.UUID
	SwapRecordID     = uuid.UUID
	SnapshotID       = uuid.UUID
	ScheduleRunID    = uuid.UUID
	AuditEventID     = uuid.UUID
	ActorID          = uuid.UUID
)

// Date is a civil date with no timezone; callers should truncate to
// midnight UTC before storing. Time is a UTC instant.
type (
	Date = time.Time
	Time = time.Time
)

// Now returns the current UTC instant.
func Now() time.Time {
	return time.Now().UTC()
}

// Today truncates Now to a civil date (midnight UTC).
func Today() time.Time {
	now := Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// CivilDate truncates t to midnight UTC, discarding time-of-day.
func CivilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
