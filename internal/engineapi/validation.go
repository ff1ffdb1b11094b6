package engineapi

import (
	"context"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/store"
)

// ValidationRequest is spec.md §6's validation request payload:
// `{start_date, end_date}`.
type ValidationRequest struct {
	StartDate entity.Date `json:"start_date" validate:"required"`
	EndDate   entity.Date `json:"end_date" validate:"required,gtefield=StartDate"`
}

// ValidationResponse is spec.md §6's validation response payload:
// `{valid, total_violations, violations[], coverage_rate, statistics}`.
type ValidationResponse struct {
	Status        ResultStatus      `json:"status"`
	Summary       ValidationSummary `json:"validation"`
	TierBreakdown map[int]TierStats `json:"statistics"`
}

// TierStats is the wire shape of constraint.TierBreakdown.
type TierStats struct {
	ViolationCount int     `json:"violation_count"`
	HardCount      int     `json:"hard_count"`
	SoftCount      int     `json:"soft_count"`
	Penalty        float64 `json:"penalty"`
}

// RunValidation loads st's view over the requested range and evaluates
// it against registry, with no mutation — the standalone "is this
// range currently valid" check spec.md §6 exposes independent of a
// generation or swap.
func RunValidation(ctx context.Context, st store.Store, registry *constraint.Registry, req ValidationRequest) (*ValidationResponse, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	view, err := st.View(ctx, req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	result := constraint.Evaluate(ctx, registry, view, constraint.AuxContext{Now: entity.Now()})

	resp := &ValidationResponse{
		Status:        StatusForError(nil),
		Summary:       summarizeViolations(result, view),
		TierBreakdown: make(map[int]TierStats, len(result.TierBreakdown)),
	}
	if !result.IsAcceptable() {
		resp.Status = StatusUnprocessable
	}
	for tier, b := range result.TierBreakdown {
		resp.TierBreakdown[int(tier)] = TierStats{
			ViolationCount: b.ViolationCount, HardCount: b.HardCount, SoftCount: b.SoftCount, Penalty: b.Penalty,
		}
	}
	return resp, nil
}
