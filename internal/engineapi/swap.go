package engineapi

import (
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/swap"
)

// SwapRequest is spec.md §6's swap request payload: `{swap_type ∈
// {OneToOne, Absorb}, source_person_id, source_week,
// target_person_id?, target_week?, reason}`.
type SwapRequest struct {
	SwapType        entity.SwapType  `json:"swap_type" validate:"required,oneof=ONE_TO_ONE ABSORB"`
	SourcePersonID  entity.PersonID  `json:"source_person_id" validate:"required"`
	SourceWeekStart entity.Date      `json:"source_week" validate:"required"`
	TargetPersonID  *entity.PersonID `json:"target_person_id,omitempty"`
	TargetWeekStart *entity.Date     `json:"target_week,omitempty"`
	Reason          string           `json:"reason" validate:"required"`
	PreApproved     bool             `json:"pre_approved,omitempty"`
	RequestedBy     entity.ActorID   `json:"requested_by" validate:"required"`
}

// SwapResponse is spec.md §6's swap response payload: `{swap_id,
// decision ∈ {Reject, Flag, Proceed}, tier1, tier2, tier3, warnings[],
// escalation_level?}`.
type SwapResponse struct {
	Status          ResultStatus        `json:"status"`
	SwapID          entity.SwapRecordID `json:"swap_id"`
	Decision        swap.Decision       `json:"decision"`
	Tier1Reasons    []string            `json:"tier1"`
	Tier2Reasons    []string            `json:"tier2"`
	Tier3Reasons    []string            `json:"tier3"`
	Warnings        []string            `json:"warnings"`
	EscalationLevel swap.ApproverLevel  `json:"escalation_level,omitempty"`
}

// ToSwapRequest translates a validated SwapRequest into swap.Request.
func ToSwapRequest(req SwapRequest) swap.Request {
	return swap.Request{
		Type: req.SwapType, SourcePersonID: req.SourcePersonID, SourceWeekStart: req.SourceWeekStart,
		TargetPersonID: req.TargetPersonID, TargetWeekStart: req.TargetWeekStart,
		Reason: req.Reason, PreApproved: req.PreApproved, RequestedBy: req.RequestedBy,
	}
}

// FromSwapResult builds a SwapResponse from a swap.Result and the
// error Execute/Approve returned.
func FromSwapResult(result *swap.Result, err error) SwapResponse {
	resp := SwapResponse{Status: StatusForError(err)}
	if result == nil {
		return resp
	}
	if result.SwapRecord != nil {
		resp.SwapID = result.SwapRecord.ID
	}
	resp.Decision = result.Decision
	resp.EscalationLevel = result.ApproverLevel
	resp.Warnings = result.SuggestedAlternatives

	switch result.Decision {
	case swap.DecisionReject:
		resp.Tier1Reasons = result.RejectionReasons
		if resp.Status == StatusOK {
			resp.Status = StatusUnprocessable
		}
	case swap.DecisionFlag:
		resp.Tier2Reasons = result.FlagReasons
	}
	return resp
}
