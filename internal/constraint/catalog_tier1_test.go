package constraint

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEightyHourRuleFlagsOverload exercises dutyHoursInWindow directly
// against an explicit 28-day window, since rollingWindows' anchoring
// (windows ending on 7-day steps from view.Start) makes it awkward to
// land an exact window boundary from a fixture's calendar dates alone.
func TestEightyHourRuleFlagsOverload(t *testing.T) {
	f := newFixture()
	for d := f.start; !d.After(f.start.AddDate(0, 0, 27)); d = d.AddDate(0, 0, 1) {
		f.assign(f.pgy1, f.inpatient, d, entity.SessionAM)
		f.assign(f.pgy1, f.inpatient, d, entity.SessionPM)
	}
	v := f.view()
	hours := dutyHoursInWindow(v, f.aux(), f.pgy1, f.start, f.start.AddDate(0, 0, 27))
	assert.Greater(t, hours/4, 80.0)
}

func TestEightyHourRuleClearForLightSchedule(t *testing.T) {
	f := newFixture()
	f.assign(f.pgy2, f.clinic, f.start, entity.SessionAM)
	v := f.view()
	hours := dutyHoursInWindow(v, f.aux(), f.pgy2, f.start, f.start.AddDate(0, 0, 27))
	assert.Less(t, hours/4, 75.0)
}

func TestOneInSevenRuleRequiresFourDaysOff(t *testing.T) {
	f := newFixture()
	for d := f.start; !d.After(f.start.AddDate(0, 0, 27)); d = d.AddDate(0, 0, 1) {
		f.assign(f.pgy1, f.inpatient, d, entity.SessionAM)
	}
	v := f.view()
	daysOff := fullDaysOff(v, f.pgy1, f.start, f.start.AddDate(0, 0, 27))
	assert.Less(t, daysOff, 4)
}

func TestOneInSevenRulePassesWithRestDays(t *testing.T) {
	f := newFixture()
	for d := f.start; !d.After(f.start.AddDate(0, 0, 20)); d = d.AddDate(0, 0, 1) {
		f.assign(f.pgy2, f.inpatient, d, entity.SessionAM)
	}
	v := f.view()
	daysOff := fullDaysOff(v, f.pgy2, f.start, f.start.AddDate(0, 0, 27))
	assert.GreaterOrEqual(t, daysOff, 4)
}

func TestSupervisionRatioFlagsUnsupervisedResidents(t *testing.T) {
	f := newFixture()
	f.assign(f.pgy1, f.inpatient, f.start, entity.SessionAM)
	v := f.view()
	violations := supervisionRatioRule{}.Evaluate(context.Background(), v, f.aux())
	assert.True(t, hasRuleViolation(violations, "PGY1_SUPERVISION"))
}

func TestSupervisionRatioPassesWithFaculty(t *testing.T) {
	f := newFixture()
	f.assign(f.pgy1, f.inpatient, f.start, entity.SessionAM)
	f.assign(f.faculty, f.inpatient, f.start, entity.SessionAM)
	v := f.view()
	violations := supervisionRatioRule{}.Evaluate(context.Background(), v, f.aux())
	assert.False(t, hasRuleViolation(violations, "PGY1_SUPERVISION"))
}

func TestNightFloatConsecutiveLimitFlagsSevenNights(t *testing.T) {
	f := newFixture()
	for i := 0; i < 7; i++ {
		f.assign(f.pgy2, f.nightFloat, f.start.AddDate(0, 0, i), entity.SessionPM)
	}
	v := f.view()
	violations := nightFloatConsecutiveRule{}.Evaluate(context.Background(), v, f.aux())
	assert.True(t, hasRuleViolation(violations, "NF_CONSECUTIVE_NIGHTS"))
}

func TestNightFloatConsecutiveLimitClearAtSixNights(t *testing.T) {
	f := newFixture()
	for i := 0; i < 6; i++ {
		f.assign(f.pgy2, f.nightFloat, f.start.AddDate(0, 0, i), entity.SessionPM)
	}
	v := f.view()
	violations := nightFloatConsecutiveRule{}.Evaluate(context.Background(), v, f.aux())
	assert.False(t, hasRuleViolation(violations, "NF_CONSECUTIVE_NIGHTS"))
}

func TestCallFrequencyFlagsTenNightsIn28Days(t *testing.T) {
	f := newFixture()
	for i := 0; i < 10; i++ {
		f.call(f.faculty, f.start.AddDate(0, 0, i), entity.CallOvernight)
	}
	v := f.view()
	violations := callFrequencyRule{}.Evaluate(context.Background(), v, f.aux())
	assert.True(t, hasRuleViolation(violations, "CALL_FREQUENCY"))
}

func TestDeploymentBlockingFlagsCoveredAssignment(t *testing.T) {
	f := newFixture()
	f.assign(f.pgy2, f.clinic, f.start, entity.SessionAM)
	v := f.view()
	aux := f.aux()
	absence, err := entity.NewAbsence(uuid.New(), f.pgy2, f.start, f.start.AddDate(0, 0, 5), entity.AbsenceDeployment)
	require.NoError(t, err)
	aux.Absences = []entity.Absence{*absence}
	violations := deploymentBlockingRule{}.Evaluate(context.Background(), v, aux)
	assert.True(t, hasRuleViolation(violations, "DEPLOYMENT_BLOCKING"))
}

func TestQualificationMatchFlagsMismatchedPGY(t *testing.T) {
	f := newFixture()
	restricted := f.inpatient
	rot := f.rotations[restricted]
	rot.Qualifications.RequiredPGYLevels = []int{2, 3}
	f.assign(f.pgy1, restricted, f.start, entity.SessionAM)
	v := f.view()
	violations := qualificationMatchRule{}.Evaluate(context.Background(), v, f.aux())
	assert.True(t, hasRuleViolation(violations, "QUALIFICATION_MATCH"))
}
