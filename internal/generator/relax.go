package generator

import (
	"context"
	"time"

	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/generator/solver"
)

// relaxationAttempt is one step in the ordered retry sequence:
// progressively looser Tier-3 weights, then one additional Tier-2
// override token per step, matching constraint.Relaxer's fixed order
// (Tier-3 first, Tier-2 second, Tier 1 never touched).
type relaxationAttempt struct {
	weights      solver.TierWeights
	overrideRule string
}

// solveWithRelaxation runs strategy against problem, and on an
// unacceptable post-solve evaluation (or outright infeasibility) walks
// constraint.Relaxer's retry ladder, re-solving after each step until
// the result is acceptable or the ladder is exhausted (spec.md §4.C
// step 6: "retry with the next relaxation step; never relax Tier 1").
func (o *Orchestrator) solveWithRelaxation(ctx context.Context, strategy solver.Solver, problem solver.Problem, timeout time.Duration) (solver.Solution, constraint.Result, error) {
	relaxer := constraint.NewRelaxer(o.cfg.TierWeights)
	attempts := buildRelaxationLadder(relaxer)

	overridden := map[string]bool{}
	for k, v := range problem.Aux.OverriddenRuleIDs {
		overridden[k] = v
	}

	var sol solver.Solution
	var solveErr error
	var result constraint.Result

	for step := -1; step < len(attempts); step++ {
		if step >= 0 {
			problem.Weights = attempts[step].weights
			if attempts[step].overrideRule != "" {
				overridden[attempts[step].overrideRule] = true
			}
			problem.Aux.OverriddenRuleIDs = overridden
		}

		solveCtx, cancel := context.WithTimeout(ctx, timeout)
		sol, solveErr = strategy.Solve(solveCtx, problem)
		cancel()

		if solveErr != nil && !sol.IncumbentFound {
			continue
		}

		view := constraint.NewScheduleView(
			problem.Start, problem.End,
			problem.Existing.People, problem.Existing.Rotations, problem.Existing.Blocks,
			append(append([]entity.Assignment(nil), problem.Existing.Assignments...), sol.Assignments...),
			append(append([]entity.CallAssignment(nil), problem.Existing.CallAssignments...), sol.CallAssignments...),
		)
		result = constraint.Evaluate(ctx, problem.Registry, view, problem.Aux)
		if result.IsAcceptable() {
			return sol, result, nil
		}
	}
	return sol, result, solveErr
}

// buildRelaxationLadder flattens Relaxer's Tier-3 weight steps and
// Tier-2 override ids into one ordered sequence of attempts.
func buildRelaxationLadder(relaxer *constraint.Relaxer) []relaxationAttempt {
	var out []relaxationAttempt
	base := relaxer.RelaxTier3()
	for _, step := range base {
		out = append(out, relaxationAttempt{weights: toSolverWeights(step.TierWeights)})
	}
	lastWeights := toSolverWeights(base[len(base)-1].TierWeights)
	for _, ruleID := range relaxer.RelaxTier2() {
		out = append(out, relaxationAttempt{weights: lastWeights, overrideRule: ruleID})
	}
	return out
}
