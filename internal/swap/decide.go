package swap

import (
	"fmt"

	"github.com/schedcu/residency-engine/internal/entity"
)

// decide implements phase 3 of spec.md §4.D: Reject on any Tier-1 hard
// violation, else Flag when the Tier-2 critical subset or the Tier-3
// resilience delta tripped, routed to the escalation level spec.md
// §4.D names, else Proceed.
func decide(req Request, check safetyCheckResult) (Decision, ApproverLevel, []string) {
	if len(check.tier1Violations) > 0 {
		return DecisionReject, "", suggestAlternatives(check)
	}

	flagged := len(check.tier2Messages) > 0 || len(check.tier3Messages) > 0
	if !flagged {
		return DecisionProceed, "", nil
	}

	return DecisionFlag, routeApprover(req, check), nil
}

// routeApprover applies spec.md §4.D's escalation rules in priority
// order: Architect outranks Program Director, which outranks
// Coordinator.
func routeApprover(req Request, check safetyCheckResult) ApproverLevel {
	if check.utilizationDeltaPct > 10 || check.affectedAssignmentCount > 10 {
		return ApproverArchitect
	}
	sensitiveReason := req.Reason == "" || isSensitiveReason(req.Reason)
	noReplacementGap := len(check.tier2Critical) > 0 && req.Type == entity.SwapAbsorb
	if sensitiveReason || noReplacementGap {
		return ApproverProgramDirector
	}
	return ApproverCoordinator
}

func isSensitiveReason(reason string) bool {
	switch reason {
	case "MEDICAL", "FAMILY", "DISCIPLINARY":
		return true
	}
	return false
}

func suggestAlternatives(check safetyCheckResult) []string {
	var out []string
	for _, v := range check.tier1Violations {
		out = append(out, fmt.Sprintf("resolve %s before resubmitting, or choose a different week", v.RuleID))
	}
	return out
}
