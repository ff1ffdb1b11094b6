package entity

import "time"

// RunStatus is the outcome of a schedule generation run.
type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunPartial RunStatus = "PARTIAL"
	RunFailed  RunStatus = "FAILED"
)

// Algorithm selects the solver strategy a generation run uses.
type Algorithm string

const (
	AlgorithmGreedy  Algorithm = "GREEDY"
	AlgorithmExactCP Algorithm = "EXACT_CP"
	AlgorithmMILP    Algorithm = "MILP"
	AlgorithmHybrid  Algorithm = "HYBRID"
)

// RunStatistics carries solver telemetry attached to a ScheduleRun.
type RunStatistics struct {
	AssignmentsCreated     int
	CallAssignmentsCreated int
	SolveDuration          time.Duration
	IncumbentFound         bool
	TotalPenalty           float64
}

// ScheduleRun records the outcome of one generation request, keyed by
// idempotency key for replay detection.
type ScheduleRun struct {
	ID             ScheduleRunID
	Status         RunStatus
	Algorithm      Algorithm
	StartDate      Date
	EndDate        Date
	IdempotencyKey string
	PayloadHash    string
	Statistics     RunStatistics
	OverrideCount  int
	CreatedAt      time.Time
	TransactionID  int64
}

// AuditEvent is an append-only event row correlated by a swap id (or
// other aggregate id) and totally ordered by TransactionID.
type AuditEvent struct {
	ID            AuditEventID
	CorrelationID string
	EventType     string
	Payload       map[string]any
	RecordedAt    time.Time
	TransactionID int64
}
