// Package resilience implements the advisory evaluator of spec.md
// §4.E: utilization classification, N-1/N-2 disruption simulation, and
// recovery planning, all as pure functions over a constraint.ScheduleView
// plus a roster. It follows the teacher's coverage.ResolveCoverage
// convention (internal/service/coverage/algorithm.go): plain value in,
// plain value out, no database access, safe for concurrent use, with
// doc comments on the heaviest functions documenting edge cases,
// complexity, and thread safety the way that file does.
//
// The evaluator produces data, never side effects (spec.md §4.E:
// "Evaluator output is data, never side-effects"); internal/swap and
// internal/engineapi act on it synchronously, and internal/job's
// periodic snapshot handler acts on it on a schedule.
package resilience

import "github.com/schedcu/residency-engine/internal/entity"

// UtilizationClass is one of the five defense-in-depth staffing bands.
type UtilizationClass string

const (
	Green  UtilizationClass = "GREEN"
	Yellow UtilizationClass = "YELLOW"
	Orange UtilizationClass = "ORANGE"
	Red    UtilizationClass = "RED"
	Black  UtilizationClass = "BLACK"
)

// DefenseLevel maps a UtilizationClass onto the operator-facing ladder
// of spec.md §4.E. The level is only reported: the generator's
// relaxation ladder (internal/generator/relax.go) adds its Tier-2
// override steps without consulting it.
type DefenseLevel string

const (
	Prevention    DefenseLevel = "PREVENTION"
	Control       DefenseLevel = "CONTROL"
	SafetySystems DefenseLevel = "SAFETY_SYSTEMS"
	Containment   DefenseLevel = "CONTAINMENT"
	Emergency     DefenseLevel = "EMERGENCY"
)

// DefenseLevelFor maps a utilization class onto its defense-in-depth
// level. The two ladders are kept separate types because spec.md §4.E
// treats utilization as a continuous signal and defense level as the
// discrete operator-facing consequence of it.
func DefenseLevelFor(class UtilizationClass) DefenseLevel {
	switch class {
	case Green:
		return Prevention
	case Yellow:
		return Control
	case Orange:
		return SafetySystems
	case Red:
		return Containment
	case Black:
		return Emergency
	default:
		return Prevention
	}
}

// UtilizationResult is the {rate, class, wait_time_multiplier} triple
// spec.md §4.E requires as the utilization report shape.
type UtilizationResult struct {
	Rate               float64
	Class              UtilizationClass
	WaitTimeMultiplier float64
	DefenseLevel       DefenseLevel
}

// ImpactClassification ranks how disruptive a simulated absence is.
type ImpactClassification string

const (
	Critical   ImpactClassification = "CRITICAL"
	HighImpact ImpactClassification = "HIGH_IMPACT"
	LowImpact  ImpactClassification = "LOW_IMPACT"
)

// PersonImpact is the per-person result of an N-1 (or one half of an
// N-2) simulation.
type PersonImpact struct {
	PersonID               entity.PersonID
	Classification         ImpactClassification
	AffectedRotations      []entity.RotationID
	UnderstaffedSlotHours  float64
	RequiresReassignment   []entity.PersonID
	InducedViolationRuleIDs []string
	EstimatedRecoveryDays  int
}

// FatalPair is an N-2 result: an unordered pair of persons whose joint
// absence creates a coverage failure that neither person's individual
// (N-1) absence creates on its own.
type FatalPair struct {
	PersonA, PersonB entity.PersonID
	Combined         PersonImpact
}
