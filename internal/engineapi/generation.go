package engineapi

import (
	"time"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/generator"
)

// GenerationRequest is spec.md §6's generation request payload:
// `{start_date, end_date, algorithm, timeout_seconds ∈ [5,300],
// pgy_levels?, rotation_ids?, idempotency_key?}`.
type GenerationRequest struct {
	StartDate      entity.Date         `json:"start_date" validate:"required"`
	EndDate        entity.Date         `json:"end_date" validate:"required,gtefield=StartDate"`
	Algorithm      entity.Algorithm    `json:"algorithm" validate:"required,oneof=GREEDY EXACT_CP MILP HYBRID"`
	TimeoutSeconds int                 `json:"timeout_seconds" validate:"min=5,max=300"`
	PGYLevelFilter *int                `json:"pgy_levels,omitempty"`
	RotationIDs    []entity.RotationID `json:"rotation_ids,omitempty"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	ActorID        entity.ActorID      `json:"actor_id" validate:"required"`
}

// GenerationResponse is spec.md §6's generation response payload:
// `{run_id, status, stats, validation: {violations[], coverage_rate},
// nf_pc_audit, override_count}`.
type GenerationResponse struct {
	RunID         entity.ScheduleRunID `json:"run_id"`
	Status        ResultStatus         `json:"status"`
	RunStatus     entity.RunStatus     `json:"run_status"`
	Statistics    entity.RunStatistics `json:"stats"`
	Validation    ValidationSummary    `json:"validation"`
	OverrideCount int                  `json:"override_count"`
	Replayed      bool                 `json:"replayed"`
}

// ValidationSummary is the `{violations[], coverage_rate}` shape
// embedded in both the generation response and the standalone
// validation response (spec.md §6).
type ValidationSummary struct {
	Valid           bool               `json:"valid"`
	TotalViolations int                `json:"total_violations"`
	Violations      []ViolationPayload `json:"violations"`
	CoverageRate    float64            `json:"coverage_rate"`
}

// ViolationPayload is the wire shape of a constraint.Violation:
// `{type, severity, person_id?, block_id?, message, details}`.
type ViolationPayload struct {
	Type       string             `json:"type"`
	Tier       int                `json:"tier"`
	Severity   string             `json:"severity"`
	PersonID   *entity.PersonID   `json:"person_id,omitempty"`
	BlockID    *entity.BlockID    `json:"block_id,omitempty"`
	RotationID *entity.RotationID `json:"rotation_id,omitempty"`
	Message    string             `json:"message"`
	Details    map[string]any     `json:"details,omitempty"`
}

// ToGenerationRequest translates a validated GenerationRequest into
// generator.GenerationRequest.
func ToGenerationRequest(req GenerationRequest) generator.GenerationRequest {
	return generator.GenerationRequest{
		Start:          req.StartDate,
		End:            req.EndDate,
		PGYLevelFilter: req.PGYLevelFilter,
		RotationIDs:    req.RotationIDs,
		Algorithm:      req.Algorithm,
		Timeout:        time.Duration(req.TimeoutSeconds) * time.Second,
		IdempotencyKey: req.IdempotencyKey,
		ActorID:        req.ActorID,
	}
}

// FromGenerationResult builds a GenerationResponse from a
// generator.GenerationResult and the error Generate returned (nil on
// success), per spec.md §6's status mapping.
func FromGenerationResult(result *generator.GenerationResult, err error) GenerationResponse {
	resp := GenerationResponse{Status: StatusForError(err)}
	if result == nil {
		return resp
	}
	resp.Replayed = result.Replayed
	if result.Run != nil {
		resp.RunID = result.Run.ID
		resp.RunStatus = result.Run.Status
		resp.Statistics = result.Run.Statistics
		resp.OverrideCount = result.Run.OverrideCount
		if resp.RunStatus == entity.RunPartial && resp.Status == StatusOK {
			resp.Status = StatusPartialSuccess
		}
	}
	resp.Validation = summarizeViolations(result.Violation, nil)
	return resp
}

func summarizeViolations(result constraint.Result, view *constraint.ScheduleView) ValidationSummary {
	summary := ValidationSummary{
		Valid:           result.IsAcceptable(),
		TotalViolations: len(result.Violations),
		CoverageRate:    coverageRate(view),
	}
	for _, v := range result.Violations {
		summary.Violations = append(summary.Violations, ViolationPayload{
			Type: v.RuleID, Tier: int(v.Tier), Severity: string(v.Severity),
			PersonID: v.PersonID, BlockID: v.BlockID, RotationID: v.RotationID,
			Message: v.Message, Details: v.Context,
		})
	}
	return summary
}

// coverageRate is the fraction of blocks in view holding at least one
// assignment — a lightweight occupancy ratio distinct from
// resilience.ComputeUtilization's duty-hour-weighted rate, which needs
// the full rotation-category weight table this boundary package has no
// business owning. Returns 0 when view is nil or empty.
func coverageRate(view *constraint.ScheduleView) float64 {
	if view == nil || len(view.Blocks) == 0 {
		return 0
	}
	occupied := make(map[entity.BlockID]bool, len(view.Assignments))
	for _, a := range view.Assignments {
		occupied[a.BlockID] = true
	}
	return float64(len(occupied)) / float64(len(view.Blocks))
}
