package engineapi

import (
	"context"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/resilience"
	"github.com/schedcu/residency-engine/internal/store"
)

// ResilienceQuery is spec.md §6's resilience query payload:
// `{start_date, end_date, subset?}`.
type ResilienceQuery struct {
	StartDate entity.Date       `json:"start_date" validate:"required"`
	EndDate   entity.Date       `json:"end_date" validate:"required,gtefield=StartDate"`
	Subset    []entity.PersonID `json:"subset,omitempty"`
}

// ResilienceResponse is spec.md §6's resilience response payload:
// per-person classification, N-1/N-2 summary, utilization class,
// recommended actions.
type ResilienceResponse struct {
	Status              ResultStatus          `json:"status"`
	Utilization         UtilizationPayload    `json:"utilization"`
	NMinusOne           []PersonImpactPayload `json:"n_minus_1"`
	NMinusTwoFatalPairs [][2]entity.PersonID  `json:"n_minus_2_fatal_pairs"`
	RecommendedActions  []string              `json:"recommended_actions"`
}

// UtilizationPayload is the wire shape of resilience.UtilizationResult.
type UtilizationPayload struct {
	Rate               float64                     `json:"rate"`
	Class              resilience.UtilizationClass `json:"class"`
	WaitTimeMultiplier float64                     `json:"wait_time_multiplier"`
	DefenseLevel       resilience.DefenseLevel     `json:"defense_level"`
}

// PersonImpactPayload is the wire shape of resilience.PersonImpact.
type PersonImpactPayload struct {
	PersonID              entity.PersonID                 `json:"person_id"`
	Classification        resilience.ImpactClassification `json:"classification"`
	AffectedRotations     []entity.RotationID             `json:"affected_rotations,omitempty"`
	UnderstaffedSlotHours float64                         `json:"understaffed_slot_hours"`
	RequiresReassignment  []entity.PersonID               `json:"requires_reassignment,omitempty"`
	EstimatedRecoveryDays int                             `json:"estimated_recovery_days"`
}

// RunResilienceQuery loads st's view over the requested range and runs
// the full advisory suite via evaluator.
func RunResilienceQuery(ctx context.Context, st store.Store, registry *constraint.Registry, evaluator *resilience.Evaluator, cfg config.Config, q ResilienceQuery) (*ResilienceResponse, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}

	view, err := st.View(ctx, q.StartDate, q.EndDate)
	if err != nil {
		return nil, err
	}

	window := resilience.Window{Start: q.StartDate, End: q.EndDate}
	snap := evaluator.Evaluate(ctx, view, registry, constraint.AuxContext{Now: entity.Now()}, window, q.Subset)

	resp := &ResilienceResponse{
		Status: StatusOK,
		Utilization: UtilizationPayload{
			Rate: snap.Utilization.Rate, Class: snap.Utilization.Class,
			WaitTimeMultiplier: snap.Utilization.WaitTimeMultiplier, DefenseLevel: snap.Utilization.DefenseLevel,
		},
	}
	for _, impact := range snap.NMinusOne.ByPerson {
		resp.NMinusOne = append(resp.NMinusOne, PersonImpactPayload{
			PersonID: impact.PersonID, Classification: impact.Classification,
			AffectedRotations: impact.AffectedRotations, UnderstaffedSlotHours: impact.UnderstaffedSlotHours,
			RequiresReassignment: impact.RequiresReassignment, EstimatedRecoveryDays: impact.EstimatedRecoveryDays,
		})
	}
	for _, pair := range snap.NMinusTwo.FatalPairs {
		resp.NMinusTwoFatalPairs = append(resp.NMinusTwoFatalPairs, [2]entity.PersonID{pair.PersonA, pair.PersonB})
	}
	resp.RecommendedActions = recommendedActions(snap)

	if snap.Utilization.DefenseLevel == resilience.Containment || snap.Utilization.DefenseLevel == resilience.Emergency {
		resp.Status = StatusPartialSuccess
	}
	return resp, nil
}

// recommendedActions translates a resilience.Snapshot into short,
// transport-agnostic operator guidance; spec.md §6 asks for
// "recommended actions" but leaves their wording undefined.
func recommendedActions(snap resilience.Snapshot) []string {
	var actions []string
	switch snap.Utilization.DefenseLevel {
	case resilience.Containment:
		actions = append(actions, "utilization at containment level: Tier-2 relaxation is authorized for new generation runs")
	case resilience.Emergency:
		actions = append(actions, "utilization at emergency level: escalate to the program director before approving further swaps")
	}
	for _, impact := range snap.NMinusOne.ByPerson {
		if impact.Classification == resilience.Critical {
			actions = append(actions, "person "+impact.PersonID.String()+" is a single point of failure for the queried window")
		}
	}
	if len(snap.NMinusTwo.FatalPairs) > 0 {
		actions = append(actions, "one or more person pairs would leave a rotation uncovered if both became unavailable simultaneously")
	}
	return actions
}
