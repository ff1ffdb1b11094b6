package engineapi

import (
	"time"

	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/swap"
)

// RollbackRequest is spec.md §6's rollback request payload:
// `{swap_id, reason}`.
type RollbackRequest struct {
	SwapID  entity.SwapRecordID `json:"swap_id" validate:"required"`
	ActorID entity.ActorID      `json:"actor_id" validate:"required"`
	Reason  string              `json:"reason" validate:"required"`
}

// RollbackResponse is spec.md §6's rollback response payload:
// `{success, rolled_back_at}` or `{success:false, reason}` once the
// window has elapsed.
type RollbackResponse struct {
	Status       ResultStatus `json:"status"`
	Success      bool         `json:"success"`
	RolledBackAt *time.Time   `json:"rolled_back_at,omitempty"`
	Reason       string       `json:"reason,omitempty"`
}

// FromRollbackResult builds a RollbackResponse from swap.Engine.Rollback's
// return values.
func FromRollbackResult(result *swap.Result, err error) RollbackResponse {
	if err != nil {
		return RollbackResponse{Status: StatusForError(err), Success: false, Reason: err.Error()}
	}
	return RollbackResponse{Status: StatusOK, Success: true, RolledBackAt: result.SwapRecord.RolledBackAt}
}
