package swap

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/store"
	"github.com/schedcu/residency-engine/internal/store/memorystore"
)

// nextMonday returns the first Monday at least minDaysOut days from
// today, so tests never trip the <7-day late-notice check by accident.
func nextMonday(minDaysOut int) entity.Date {
	d := entity.CivilDate(entity.Today()).AddDate(0, 0, minDaysOut)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func seedSwapRoster(t *testing.T, st *memorystore.MemoryStore) (entity.Person, entity.Person, entity.Rotation) {
	t.Helper()
	ctx := context.Background()

	a, err := entity.NewResident(uuid.New(), "Dr. Alvarez", "alvarez@example.org", 2)
	require.NoError(t, err)
	require.NoError(t, st.People().Create(ctx, a))

	b, err := entity.NewResident(uuid.New(), "Dr. Boyle", "boyle@example.org", 2)
	require.NoError(t, err)
	require.NoError(t, st.People().Create(ctx, b))

	// Procedures lies outside the Tier-1 supervision-ratio rule, so this
	// resident-only roster has no Tier-1 violation before or after a swap.
	rot := &entity.Rotation{
		ID: uuid.New(), Name: "Procedures", Category: entity.CategoryProcedures,
		MinCoveragePerBlock: 0, MaxCoveragePerBlock: 1,
	}
	require.NoError(t, st.Rotations().Create(ctx, rot))

	return *a, *b, *rot
}

// assignWeek creates one Assignment for person on the Monday AM block of
// the week starting weekStart, inserting blocks for that day first.
func assignWeek(t *testing.T, st *memorystore.MemoryStore, person entity.Person, rot entity.Rotation, weekStart entity.Date) entity.Assignment {
	t.Helper()
	ctx := context.Background()
	blocks, err := st.InsertBlocksForRange(ctx, weekStart, weekStart)
	require.NoError(t, err)
	var monday entity.Block
	for _, b := range blocks {
		if b.Session == entity.SessionAM {
			monday = b
		}
	}
	assignment := entity.Assignment{ID: uuid.New(), BlockID: monday.ID, PersonID: person.ID, RotationID: rot.ID}
	_, err = st.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{assignment}})
	require.NoError(t, err)
	return assignment
}

func TestExecuteRejectsWhenSourceHasNoAssignmentsInWeek(t *testing.T) {
	st := memorystore.New()
	a, b, _ := seedSwapRoster(t, st)

	engine := NewEngine(st, config.Default())
	sourceWeek := nextMonday(14)

	result, err := engine.Execute(context.Background(), Request{
		Type: entity.SwapAbsorb, SourcePersonID: a.ID, SourceWeekStart: sourceWeek, RequestedBy: a.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionReject, result.Decision)
	assert.NotEmpty(t, result.RejectionReasons)
	assert.Equal(t, entity.SwapRejected, result.SwapRecord.Status)
	_ = b
}

func TestExecuteProceedsAndCommitsOneToOneSwap(t *testing.T) {
	st := memorystore.New()
	a, b, rot := seedSwapRoster(t, st)

	sourceWeek := nextMonday(14)
	targetWeek := sourceWeek.AddDate(0, 0, 7)
	sourceAssignment := assignWeek(t, st, a, rot, sourceWeek)
	targetAssignment := assignWeek(t, st, b, rot, targetWeek)

	engine := NewEngine(st, config.Default())
	result, err := engine.Execute(context.Background(), Request{
		Type: entity.SwapOneToOne, SourcePersonID: a.ID, SourceWeekStart: sourceWeek,
		TargetPersonID: &b.ID, TargetWeekStart: &targetWeek,
		Reason: "VACATION", RequestedBy: a.ID,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionProceed, result.Decision)
	assert.Equal(t, entity.SwapExecuted, result.SwapRecord.Status)
	assert.NotZero(t, result.TransactionID)

	reverted, err := st.Assignments().GetByID(context.Background(), sourceAssignment.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, reverted.PersonID)

	swapped, err := st.Assignments().GetByID(context.Background(), targetAssignment.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, swapped.PersonID)
}

func TestExecuteFlagsLateNoticeWithoutPreApproval(t *testing.T) {
	st := memorystore.New()
	a, b, rot := seedSwapRoster(t, st)

	sourceWeek := nextMonday(0)
	targetWeek := sourceWeek.AddDate(0, 0, 7)
	assignWeek(t, st, a, rot, sourceWeek)
	assignWeek(t, st, b, rot, targetWeek)

	engine := NewEngine(st, config.Default())
	result, err := engine.Execute(context.Background(), Request{
		Type: entity.SwapOneToOne, SourcePersonID: a.ID, SourceWeekStart: sourceWeek,
		TargetPersonID: &b.ID, TargetWeekStart: &targetWeek,
		Reason: "SCHEDULING", RequestedBy: a.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, DecisionFlag, result.Decision)
	assert.NotEmpty(t, result.FlagReasons)
	assert.Equal(t, entity.SwapPending, result.SwapRecord.Status)
}

func TestExecuteFlaggedAbsorbWithSensitiveReasonRoutesToProgramDirector(t *testing.T) {
	st := memorystore.New()
	a, b, rot := seedSwapRoster(t, st)
	_ = b

	sourceWeek := nextMonday(0)
	assignWeek(t, st, a, rot, sourceWeek)

	engine := NewEngine(st, config.Default())
	result, err := engine.Execute(context.Background(), Request{
		Type: entity.SwapAbsorb, SourcePersonID: a.ID, SourceWeekStart: sourceWeek,
		Reason: "MEDICAL", RequestedBy: a.ID,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionFlag, result.Decision)
	assert.Equal(t, ApproverProgramDirector, result.ApproverLevel)
}

func TestRollbackRevertsExecutedSwapWithinWindow(t *testing.T) {
	st := memorystore.New()
	a, b, rot := seedSwapRoster(t, st)

	sourceWeek := nextMonday(14)
	targetWeek := sourceWeek.AddDate(0, 0, 7)
	sourceAssignment := assignWeek(t, st, a, rot, sourceWeek)
	assignWeek(t, st, b, rot, targetWeek)

	engine := NewEngine(st, config.Default())
	result, err := engine.Execute(context.Background(), Request{
		Type: entity.SwapOneToOne, SourcePersonID: a.ID, SourceWeekStart: sourceWeek,
		TargetPersonID: &b.ID, TargetWeekStart: &targetWeek,
		Reason: "VACATION", RequestedBy: a.ID,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionProceed, result.Decision)

	rolledBack, err := engine.Rollback(context.Background(), result.SwapRecord.ID, uuid.New(), "requester changed mind")
	require.NoError(t, err)
	assert.Equal(t, entity.SwapRolledBack, rolledBack.SwapRecord.Status)

	reverted, err := st.Assignments().GetByID(context.Background(), sourceAssignment.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, reverted.PersonID)
}

func TestRollbackRejectsOutsideWindow(t *testing.T) {
	st := memorystore.New()
	a, b, rot := seedSwapRoster(t, st)

	sourceWeek := nextMonday(14)
	targetWeek := sourceWeek.AddDate(0, 0, 7)
	assignWeek(t, st, a, rot, sourceWeek)
	assignWeek(t, st, b, rot, targetWeek)

	cfg := config.Default()
	cfg.RollbackWindow = 0
	engine := NewEngine(st, cfg)
	result, err := engine.Execute(context.Background(), Request{
		Type: entity.SwapOneToOne, SourcePersonID: a.ID, SourceWeekStart: sourceWeek,
		TargetPersonID: &b.ID, TargetWeekStart: &targetWeek,
		Reason: "VACATION", RequestedBy: a.ID,
	})
	require.NoError(t, err)
	require.Equal(t, DecisionProceed, result.Decision)

	_, err = engine.Rollback(context.Background(), result.SwapRecord.ID, uuid.New(), "too late")
	require.Error(t, err)
}

func TestExecuteRejectsOverlappingInFlightRequest(t *testing.T) {
	st := memorystore.New()
	a, b, rot := seedSwapRoster(t, st)
	sourceWeek := nextMonday(14)
	targetWeek := sourceWeek.AddDate(0, 0, 7)
	assignWeek(t, st, a, rot, sourceWeek)
	assignWeek(t, st, b, rot, targetWeek)

	engine := NewEngine(st, config.Default())
	claims := swapClaims(Request{SourcePersonID: a.ID, SourceWeekStart: sourceWeek})
	require.True(t, engine.inFlight.acquireAll(claims))
	defer engine.inFlight.releaseAll(claims)

	_, err := engine.Execute(context.Background(), Request{
		Type: entity.SwapOneToOne, SourcePersonID: a.ID, SourceWeekStart: sourceWeek,
		TargetPersonID: &b.ID, TargetWeekStart: &targetWeek,
		Reason: "VACATION", RequestedBy: a.ID,
	})
	require.Error(t, err)
}
