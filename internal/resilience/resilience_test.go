package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/entity"
)

func mustResident(t *testing.T, pgy int) *entity.Person {
	t.Helper()
	p, err := entity.NewResident(uuid.New(), "R", "r@example.org", pgy)
	require.NoError(t, err)
	return p
}

func TestComputeUtilizationEmptyRosterIsGreen(t *testing.T) {
	view := constraint.NewScheduleView(time.Now(), time.Now(), nil, nil, nil, nil, nil)
	result := ComputeUtilization(view, nil, config.DefaultUtilizationThresholds())
	assert.Equal(t, Green, result.Class)
	assert.Equal(t, 0.0, result.Rate)
}

func TestComputeUtilizationReportsScheduledLoad(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start
	p1 := mustResident(t, 1)
	rotation := &entity.Rotation{ID: uuid.New(), Category: entity.CategoryInpatient, MinCoveragePerBlock: 1, MaxCoveragePerBlock: 1}
	block := entity.NewBlock(uuid.New(), start, entity.SessionAM)

	people := map[entity.PersonID]*entity.Person{p1.ID: p1}
	rotations := map[entity.RotationID]*entity.Rotation{rotation.ID: rotation}
	blocks := map[entity.BlockID]*entity.Block{block.ID: block}
	assignments := []entity.Assignment{{ID: uuid.New(), BlockID: block.ID, PersonID: p1.ID, RotationID: rotation.ID}}

	view := constraint.NewScheduleView(start, end, people, rotations, blocks, assignments, nil)
	result := ComputeUtilization(view, nil, config.DefaultUtilizationThresholds())
	assert.Greater(t, result.Rate, 0.0)
}

func TestRunNMinusOneFlagsCriticalWhenSoleCoverageRemoved(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start
	p1 := mustResident(t, 1)
	rotation := &entity.Rotation{ID: uuid.New(), Category: entity.CategoryInpatient, MinCoveragePerBlock: 1, MaxCoveragePerBlock: 1}
	block := entity.NewBlock(uuid.New(), start, entity.SessionAM)

	people := map[entity.PersonID]*entity.Person{p1.ID: p1}
	rotations := map[entity.RotationID]*entity.Rotation{rotation.ID: rotation}
	blocks := map[entity.BlockID]*entity.Block{block.ID: block}
	assignments := []entity.Assignment{{ID: uuid.New(), BlockID: block.ID, PersonID: p1.ID, RotationID: rotation.ID}}

	view := constraint.NewScheduleView(start, end, people, rotations, blocks, assignments, nil)
	registry := constraint.NewRegistry()
	window := Window{Start: start, End: end}

	result := RunNMinusOne(context.Background(), view, registry, constraint.AuxContext{}, window, nil, 2)
	require.Len(t, result.ByPerson, 1)
	assert.Equal(t, Critical, result.ByPerson[0].Classification)
	assert.Greater(t, result.ByPerson[0].UnderstaffedSlotHours, 0.0)
}

func TestPlanRecoveryPicksFastestFeasibleStrategy(t *testing.T) {
	disruption := PersonImpact{UnderstaffedSlotHours: 8}
	inventory := []Mitigation{
		{Kind: MitigationSupplementalStaff, CapacityHours: 16},
		{Kind: MitigationCrossTrained, CapacityHours: 8},
		{Kind: MitigationOvertime, CapacityHours: 4},
	}

	plan := PlanRecovery(disruption, inventory)
	require.NotNil(t, plan.Chosen)
	assert.Equal(t, MitigationCrossTrained, plan.Chosen.Mitigation.Kind)
	assert.Equal(t, 0.0, plan.Chosen.DelayHours)
}

func TestPlanRecoveryNoFeasibleStrategyLeavesChosenNil(t *testing.T) {
	disruption := PersonImpact{UnderstaffedSlotHours: 100}
	inventory := []Mitigation{{Kind: MitigationOvertime, CapacityHours: 4}}

	plan := PlanRecovery(disruption, inventory)
	assert.Nil(t, plan.Chosen)
}

func TestDefenseLevelForMapsTopTwoLevels(t *testing.T) {
	assert.Equal(t, Containment, DefenseLevelFor(Red))
	assert.Equal(t, Emergency, DefenseLevelFor(Black))
	assert.Equal(t, Prevention, DefenseLevelFor(Green))
}
