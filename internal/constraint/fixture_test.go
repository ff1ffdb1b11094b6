package constraint

import (
	"time"

	"github.com/google/uuid"
	"github.com/schedcu/residency-engine/internal/entity"
)

// fixture builds a small, self-consistent ScheduleView for catalog
// tests: one PGY-1, one PGY-2, one faculty, across one inpatient, one
// clinic and one night-float rotation, over a four-week range (long enough for a full
// rolling 28-day window to sit entirely inside it).
type fixture struct {
	start, end time.Time

	pgy1    entity.PersonID
	pgy2    entity.PersonID
	faculty entity.PersonID

	inpatient entity.RotationID
	clinic    entity.RotationID
	nightFloat entity.RotationID

	people     map[entity.PersonID]*entity.Person
	rotations  map[entity.RotationID]*entity.Rotation
	blocks     map[entity.BlockID]*entity.Block
	assignments []entity.Assignment
	calls      []entity.CallAssignment
}

func newFixture() *fixture {
	f := &fixture{
		start: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), // a Monday
	}
	f.end = f.start.AddDate(0, 0, 27)

	f.pgy1 = uuid.New()
	f.pgy2 = uuid.New()
	f.faculty = uuid.New()

	f.inpatient = uuid.New()
	f.clinic = uuid.New()
	f.nightFloat = uuid.New()

	r1, _ := entity.NewResident(f.pgy1, "PGY-1", "pgy1@hospital.org", 1)
	r2, _ := entity.NewResident(f.pgy2, "PGY-2", "pgy2@hospital.org", 2)
	fac := entity.NewFaculty(f.faculty, "Faculty", "fac@hospital.org", entity.FacultyRoleCore, nil)

	f.people = map[entity.PersonID]*entity.Person{
		f.pgy1:    r1,
		f.pgy2:    r2,
		f.faculty: fac,
	}

	f.rotations = map[entity.RotationID]*entity.Rotation{
		f.inpatient: {ID: f.inpatient, Name: "Inpatient", Category: entity.CategoryInpatient, MinCoveragePerBlock: 1, MaxCoveragePerBlock: 3},
		f.clinic:    {ID: f.clinic, Name: "Clinic", Category: entity.CategoryClinic, MinCoveragePerBlock: 1, MaxCoveragePerBlock: 3},
		f.nightFloat: {ID: f.nightFloat, Name: "Night Float", Category: entity.CategoryNightFloat, MinCoveragePerBlock: 0, MaxCoveragePerBlock: 1},
	}

	f.blocks = map[entity.BlockID]*entity.Block{}
	seq := 0
	for d := f.start; !d.After(f.end); d = d.AddDate(0, 0, 1) {
		for _, s := range []entity.Session{entity.SessionAM, entity.SessionPM} {
			b := entity.NewBlock(uuid.New(), d, s)
			b.SequenceNumber = seq
			seq++
			f.blocks[b.ID] = b
		}
	}

	return f
}

func (f *fixture) blockOn(date time.Time, session entity.Session) entity.BlockID {
	for id, b := range f.blocks {
		if b.Date.Equal(entity.CivilDate(date)) && b.Session == session {
			return id
		}
	}
	return entity.BlockID{}
}

func (f *fixture) assign(personID entity.PersonID, rotationID entity.RotationID, date time.Time, session entity.Session) {
	f.assignments = append(f.assignments, entity.Assignment{
		ID: uuid.New(), BlockID: f.blockOn(date, session), PersonID: personID, RotationID: rotationID,
	})
}

func (f *fixture) call(personID entity.PersonID, date time.Time, ct entity.CallType) {
	f.calls = append(f.calls, *entity.NewCallAssignment(uuid.New(), date, personID, ct))
}

func (f *fixture) view() *ScheduleView {
	return NewScheduleView(f.start, f.end, f.people, f.rotations, f.blocks, f.assignments, f.calls)
}

func (f *fixture) aux() AuxContext {
	return AuxContext{
		RotationHourWeight: map[entity.RotationCategory]float64{
			entity.CategoryInpatient:  12,
			entity.CategoryClinic:     8,
			entity.CategoryNightFloat: 12,
		},
		OverriddenRuleIDs: map[string]bool{},
		Now:               f.start,
	}
}

func hasRuleViolation(violations []Violation, ruleID string) bool {
	for _, v := range violations {
		if v.RuleID == ruleID {
			return true
		}
	}
	return false
}
