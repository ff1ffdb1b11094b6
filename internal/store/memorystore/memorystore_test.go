package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPersonRotation(t *testing.T, s *MemoryStore) (entity.Person, entity.Rotation) {
	t.Helper()
	ctx := context.Background()
	p, err := entity.NewResident(uuid.New(), "Dana Lee", "dana@example.org", 2)
	require.NoError(t, err)
	require.NoError(t, s.People().Create(ctx, p))
	rot := &entity.Rotation{ID: uuid.New(), Name: "Inpatient", Category: entity.CategoryInpatient, MinCoveragePerBlock: 1, MaxCoveragePerBlock: 3}
	require.NoError(t, s.Rotations().Create(ctx, rot))
	return *p, *rot
}

func TestInsertBlocksForRangeAssignsIncreasingSequence(t *testing.T) {
	s := New()
	ctx := context.Background()
	start := entity.CivilDate(entity.Today())
	end := start.AddDate(0, 0, 2)

	blocks, err := s.InsertBlocksForRange(ctx, start, end)
	require.NoError(t, err)
	require.Len(t, blocks, 6) // 3 days * AM/PM

	for i, b := range blocks {
		assert.Equal(t, i+1, b.SequenceNumber)
	}
	count, err := s.Blocks().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), count)
}

func TestApplyAssignmentsRejectsDoubleBookingOnSameBlock(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, rot := seedPersonRotation(t, s)
	blocks, err := s.InsertBlocksForRange(ctx, entity.Today(), entity.Today())
	require.NoError(t, err)
	block := blocks[0]

	first := entity.Assignment{ID: uuid.New(), BlockID: block.ID, PersonID: p.ID, RotationID: rot.ID}
	_, err = s.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{first}})
	require.NoError(t, err)

	second := entity.Assignment{ID: uuid.New(), BlockID: block.ID, PersonID: p.ID, RotationID: rot.ID}
	_, err = s.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{second}})
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.KindConflict))
}

func TestApplyAssignmentsRejectsRemovingMissingRow(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.ApplyAssignments(ctx, store.MutationSet{RemoveAssignmentIDs: []entity.AssignmentID{uuid.New()}})
	require.Error(t, err)
	assert.True(t, engineerr.Is(err, engineerr.KindInvariant))
}

func TestApplyAssignmentsRecomputesCallCounters(t *testing.T) {
	s := New()
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
	assert.Contains(t, result.PersonCountersUpdated, p.ID)

	updated, err := s.People().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.SundayCallCount)
}

func TestSnapshotAndRestoreRevertsPriorOccupant(t *testing.T) {
	s := New()
	ctx := context.Background()
	original, rot := seedPersonRotation(t, s)
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

	stored, err := s.Assignments().GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	stored.PersonID = replacement.ID

	require.NoError(t, s.Restore(ctx, snap))
	reverted, err := s.Assignments().GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, original.ID, reverted.PersonID)
}

func TestRestoreRecreatesRowDeletedSinceSnapshot(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, rot := seedPersonRotation(t, s)
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

	_, err = s.Assignments().GetByID(ctx, assignment.ID)
	require.Error(t, err)

	require.NoError(t, s.Restore(ctx, snap))
	reverted, err := s.Assignments().GetByID(ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, reverted.PersonID)
	assert.Equal(t, block.ID, reverted.BlockID)
	assert.Equal(t, rot.ID, reverted.RotationID)
}

func TestViewOnlyIncludesBlocksInRange(t *testing.T) {
	s := New()
	ctx := context.Background()
	p, rot := seedPersonRotation(t, s)
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
	assert.Len(t, view.Assignments, 1)
	assert.Equal(t, a1.ID, view.Assignments[0].ID)
}
