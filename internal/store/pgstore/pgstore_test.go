package pgstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/store"
)

// newTestStore starts a disposable Postgres container, ensures the
// schema, and returns a ready-to-use PostgresStore. Mirrors the
// teacher's PostgresTestHelper, generalized to the modules/postgres
// container helper that ships in this pack's go.mod.
func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("schedcu_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("warning: failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	s, err := Open(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPersonRotation(t *testing.T, ctx context.Context, s *PostgresStore) (*entity.Person, *entity.Rotation) {
	t.Helper()
	p, err := entity.NewResident(uuid.New(), "Dana Lee", "dana@example.org", 2)
	require.NoError(t, err)
	require.NoError(t, s.People().Create(ctx, p))

	rot := &entity.Rotation{ID: uuid.New(), Name: "Inpatient", Category: entity.CategoryInpatient, MinCoveragePerBlock: 1, MaxCoveragePerBlock: 3}
	require.NoError(t, s.Rotations().Create(ctx, rot))
	return p, rot
}

func TestPersonRepositoryCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := entity.NewResident(uuid.New(), "Dana Lee", "dana@example.org", 2)
	require.NoError(t, err)
	require.NoError(t, s.People().Create(ctx, p))

	retrieved, err := s.People().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, p.Email, retrieved.Email)

	byEmail, err := s.People().GetByEmail(ctx, p.Email)
	require.NoError(t, err)
	require.Equal(t, p.ID, byEmail.ID)

	p.Name = "Dana Lee-Okafor"
	require.NoError(t, s.People().Update(ctx, p))

	updated, err := s.People().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, "Dana Lee-Okafor", updated.Name)

	count, err := s.People().Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	require.NoError(t, s.People().Delete(ctx, p.ID, uuid.New()))
	_, err = s.People().GetByID(ctx, p.ID)
	require.Error(t, err)
}

func TestInsertBlocksForRangeAssignsSequence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := entity.CivilDate(entity.Today())
	end := start.AddDate(0, 0, 1)

	blocks, err := s.InsertBlocksForRange(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, blocks, 4)
	for i, b := range blocks {
		require.Equal(t, i+1, b.SequenceNumber)
	}
}

func TestApplyAssignmentsRejectsDoubleBookingOnSameBlock(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, rot := seedPersonRotation(t, ctx, s)

	blocks, err := s.InsertBlocksForRange(ctx, entity.Today(), entity.Today())
	require.NoError(t, err)
	block := blocks[0]

	first := entity.Assignment{ID: uuid.New(), BlockID: block.ID, PersonID: p.ID, RotationID: rot.ID}
	_, err = s.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{first}})
	require.NoError(t, err)

	second := entity.Assignment{ID: uuid.New(), BlockID: block.ID, PersonID: p.ID, RotationID: rot.ID}
	_, err = s.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{second}})
	require.Error(t, err)
}

func TestApplyAssignmentsRecomputesCallCounters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := entity.NewFaculty(uuid.New(), "Dr. Rivera", "rivera@example.org", entity.FacultyRoleCore, nil)
	require.NoError(t, s.People().Create(ctx, p))

	sunday := entity.CivilDate(entity.Today())
	for sunday.Weekday() != time.Sunday {
		sunday = sunday.AddDate(0, 0, 1)
	}
	call := entity.NewCallAssignment(uuid.New(), sunday, p.ID, entity.CallOvernight)
	result, err := s.ApplyAssignments(ctx, store.MutationSet{NewCallAssignments: []entity.CallAssignment{*call}})
	require.NoError(t, err)
	require.Contains(t, result.PersonCountersUpdated, p.ID)

	updated, err := s.People().GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.SundayCallCount)
}

func TestSnapshotAndRestoreRevertsPriorOccupant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	original, rot := seedPersonRotation(t, ctx, s)
	replacement, err := entity.NewResident(uuid.New(), "Sam Ortiz", "sam@example.org", 2)
	require.NoError(t, err)
	require.NoError(t, s.People().Create(ctx, replacement))

	blocks, err := s.InsertBlocksForRange(ctx, entity.Today(), entity.Today())
	require.NoError(t, err)
	block := blocks[0]

	assignment := entity.Assignment{ID: uuid.New(), BlockID: block.ID, PersonID: original.ID, RotationID: rot.ID}
	_, err = s.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{assignment}})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, uuid.New(), []entity.AssignmentID{assignment.ID}, nil)
	require.NoError(t, err)

	reassigned := entity.Assignment{ID: assignment.ID, BlockID: block.ID, PersonID: replacement.ID, RotationID: rot.ID}
	_, err = s.ApplyAssignments(ctx, store.MutationSet{
		RemoveAssignmentIDs: []entity.AssignmentID{assignment.ID},
		NewAssignments:      []entity.Assignment{reassigned},
	})
	require.NoError(t, err)

	require.NoError(t, s.Restore(ctx, snap))
	reverted, err := s.Assignments().GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, original.ID, reverted.PersonID)
}

func TestRestoreRecreatesRowDeletedSinceSnapshot(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, rot := seedPersonRotation(t, ctx, s)

	blocks, err := s.InsertBlocksForRange(ctx, entity.Today(), entity.Today())
	require.NoError(t, err)
	block := blocks[0]

	assignment := entity.Assignment{ID: uuid.New(), BlockID: block.ID, PersonID: p.ID, RotationID: rot.ID}
	_, err = s.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{assignment}})
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, uuid.New(), []entity.AssignmentID{assignment.ID}, nil)
	require.NoError(t, err)

	_, err = s.ApplyAssignments(ctx, store.MutationSet{RemoveAssignmentIDs: []entity.AssignmentID{assignment.ID}})
	require.NoError(t, err)

	require.NoError(t, s.Restore(ctx, snap))
	reverted, err := s.Assignments().GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	require.Equal(t, p.ID, reverted.PersonID)
	require.Equal(t, block.ID, reverted.BlockID)
	require.Equal(t, rot.ID, reverted.RotationID)
}

func TestViewOnlyIncludesBlocksInRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p, rot := seedPersonRotation(t, ctx, s)
	start := entity.CivilDate(entity.Today())

	blocks, err := s.InsertBlocksForRange(ctx, start, start.AddDate(0, 0, 10))
	require.NoError(t, err)

	inRange := blocks[0]
	outOfRange := blocks[len(blocks)-1]
	a1 := entity.Assignment{ID: uuid.New(), BlockID: inRange.ID, PersonID: p.ID, RotationID: rot.ID}
	a2 := entity.Assignment{ID: uuid.New(), BlockID: outOfRange.ID, PersonID: p.ID, RotationID: rot.ID}
	_, err = s.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{a1}})
	require.NoError(t, err)
	_, err = s.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{a2}})
	require.NoError(t, err)

	view, err := s.View(ctx, start, start.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, view.Assignments, 1)
	require.Equal(t, a1.ID, view.Assignments[0].ID)
}
