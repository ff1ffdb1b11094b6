package constraint

import "github.com/schedcu/residency-engine/internal/entity"

// Tier is the constraint's regulatory layer.
type Tier int

const (
	Tier1Absolute     Tier = 1
	Tier2Institutional Tier = 2
	Tier3Optimization Tier = 3
)

// Kind distinguishes hard constraints (a violation invalidates the
// schedule) from soft ones (a violation only accumulates penalty).
type Kind string

const (
	KindHard Kind = "HARD"
	KindSoft Kind = "SOFT"
)

// Scope is the granularity a Constraint is evaluated over.
type Scope string

const (
	ScopeGlobal   Scope = "GLOBAL"
	ScopePerson   Scope = "PERSON"
	ScopeRotation Scope = "ROTATION"
	ScopeBlock    Scope = "BLOCK"
	ScopeWeek     Scope = "WEEK"
)

// Severity is the human-facing urgency of a single Violation.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// Violation is the uniform record every Constraint evaluator emits. It
// replaces the teacher's string-typed validation.Message with a closed
// set of fields: a stable rule id, severity, the entities it concerns,
// quantitative context for debugging/reporting, and a soft-constraint
// penalty (zero for hard violations).
type Violation struct {
	RuleID    string
	Tier      Tier
	Kind      Kind
	Severity  Severity
	Message   string

	PersonID   *entity.PersonID
	BlockID    *entity.BlockID
	RotationID *entity.RotationID

	Context map[string]any
	Penalty float64
}

// IsHard reports whether the violation would invalidate the schedule.
func (v Violation) IsHard() bool { return v.Kind == KindHard }
