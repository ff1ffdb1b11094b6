package entity

// RotationCategory is the canonical type of clinical duty a Rotation
// represents.
type RotationCategory string

const (
	CategoryInpatient  RotationCategory = "INPATIENT"
	CategoryClinic     RotationCategory = "CLINIC"
	CategoryNightFloat RotationCategory = "NIGHT_FLOAT"
	CategoryCall       RotationCategory = "CALL"
	CategoryProcedures RotationCategory = "PROCEDURES"
	CategoryEmergency  RotationCategory = "EMERGENCY"
)

// Qualifications describes what a Person must carry to be assigned to
// a Rotation.
type Qualifications struct {
	RequiredPGYLevels   []int
	RequiredCertifications []string
	RequiredClearance   string
}

// Satisfies reports whether p meets q. PGY-level gating applies only to
// residents; an empty RequiredPGYLevels list means no PGY restriction.
func (q Qualifications) Satisfies(p *Person) bool {
	if len(q.RequiredPGYLevels) > 0 {
		if !p.IsResident() {
			return false
		}
		found := false
		for _, lvl := range q.RequiredPGYLevels {
			if lvl == p.PGYLevel() {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Rotation is the canonical template of clinical duty a Block's
// Assignment slots are drawn from.
type Rotation struct {
	ID                 RotationID
	Name               string
	Category           RotationCategory
	Qualifications     Qualifications
	MinCoveragePerBlock int
	MaxCoveragePerBlock int
}
