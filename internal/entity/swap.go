package entity

import "time"

// SwapType distinguishes a one-to-one exchange from an absorb (give
// away with no replacement).
type SwapType string

const (
	SwapOneToOne SwapType = "ONE_TO_ONE"
	SwapAbsorb   SwapType = "ABSORB"
)

// SwapStatus is a node in the SwapRecord status DAG. Transitions are
// validated by (*SwapRecord).TransitionTo, following the same
// guarded-transition shape as the teacher's ScheduleVersion.Promote/
// Archive methods (entity.ScheduleVersion in the teacher repo).
type SwapStatus string

const (
	SwapPending    SwapStatus = "PENDING"
	SwapApproved   SwapStatus = "APPROVED"
	SwapRejected   SwapStatus = "REJECTED"
	SwapExecuted   SwapStatus = "EXECUTED"
	SwapRolledBack SwapStatus = "ROLLED_BACK"
	SwapCancelled  SwapStatus = "CANCELLED"
)

// validNextStatus encodes the strict DAG from spec.md §3: Pending ->
// {Approved, Rejected, Cancelled}; Approved -> Executed; Executed ->
// RolledBack (rollback-window gated by the caller, not here); all
// other states are terminal.
var validNextStatus = map[SwapStatus]map[SwapStatus]bool{
	SwapPending:  {SwapApproved: true, SwapRejected: true, SwapCancelled: true},
	SwapApproved: {SwapExecuted: true},
	SwapExecuted: {SwapRolledBack: true},
}

// SwapRecord is the audit entity for a swap request, from submission
// through execution and optional rollback.
type SwapRecord struct {
	ID     SwapRecordID
	Type   SwapType
	Status SwapStatus

	SourcePersonID  PersonID
	SourceWeekStart Date
	TargetPersonID  *PersonID
	TargetWeekStart *Date

	Reason string

	RequestedAt time.Time
	RequestedBy ActorID

	ApprovedAt *time.Time
	ApprovedBy *ActorID

	ExecutedAt *time.Time
	ExecutedBy *ActorID

	RolledBackAt     *time.Time
	RolledBackBy     *ActorID
	RollbackReason   string

	TransactionID int64
}

// TransitionTo validates and applies a status transition, rejecting any
// edge not present in the DAG (including any transition out of a
// terminal state).
func (s *SwapRecord) TransitionTo(next SwapStatus) error {
	allowed, ok := validNextStatus[s.Status]
	if !ok || !allowed[next] {
		return ErrInvalidSwapTransition
	}
	s.Status = next
	return nil
}

// RollbackEligible reports whether the swap can be rolled back as of
// now: status must be Executed and now must be within window of
// ExecutedAt, per spec.md §8 ("A swap can be rolled back iff status ==
// Executed AND now - executed_at <= 24h").
func (s *SwapRecord) RollbackEligible(now time.Time, window time.Duration) bool {
	if s.Status != SwapExecuted || s.ExecutedAt == nil {
		return false
	}
	return now.Sub(*s.ExecutedAt) <= window
}

// AssignmentSnapshotEntry captures the prior occupant of an Assignment
// row, plus the fields needed to recreate it outright if the row no
// longer exists at restore time (an Absorb swap deletes the row rather
// than reassigning it).
type AssignmentSnapshotEntry struct {
	AssignmentID  AssignmentID
	BlockID       BlockID
	RotationID    RotationID
	PriorPersonID PersonID
}

// CallSnapshotEntry captures the prior occupant of a CallAssignment
// row, plus the fields needed to recreate it if it was deleted.
type CallSnapshotEntry struct {
	CallAssignmentID CallAssignmentID
	Date             Date
	CallType         CallType
	PriorPersonID    PersonID
}

// Snapshot is the pre-execution state capture tied 1:1 to an executed
// SwapRecord, retained for at least the rollback window.
type Snapshot struct {
	ID             SnapshotID
	SwapRecordID   SwapRecordID
	Assignments    []AssignmentSnapshotEntry
	CallAssignments []CallSnapshotEntry
	CapturedAt     time.Time
}
