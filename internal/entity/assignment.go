package entity

import "time"

// Assignment links a Person to a Block via a Rotation. Structural
// invariants (no two assignments share (person, block); the person must
// hold the rotation's qualifications; the person must not have a
// blocking absence covering the block's date) are enforced by the
// store at write time, not by this type.
type Assignment struct {
	ID         AssignmentID
	BlockID    BlockID
	PersonID   PersonID
	RotationID RotationID
	Notes      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CallType distinguishes overnight, weekend, and backup call.
type CallType string

const (
	CallOvernight CallType = "OVERNIGHT"
	CallWeekend   CallType = "WEEKEND"
	CallBackup    CallType = "BACKUP"
)

// CallAssignment is overnight/weekend call, tracked separately from
// regular block Assignments. Only Faculty may hold a CallAssignment;
// at most one person may hold a given (Date, CallType) pair.
type CallAssignment struct {
	ID        CallAssignmentID
	Date      Date
	PersonID  PersonID
	CallType  CallType
	Weekend   bool
	Holiday   bool
	CreatedAt time.Time
}

// NewCallAssignment constructs a CallAssignment with the weekend flag
// auto-derived from date.
func NewCallAssignment(id CallAssignmentID, date Date, personID PersonID, ct CallType) *CallAssignment {
	date = CivilDate(date)
	return &CallAssignment{
		ID:        id,
		Date:      date,
		PersonID:  personID,
		CallType:  ct,
		Weekend:   IsWeekend(date),
		CreatedAt: Now(),
	}
}
