package generator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/store/memorystore"
)

func seedRoster(t *testing.T, st *memorystore.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	clinic, err := entity.NewResident(newID(), "Clinic Resident", "clinic@example.org", 1)
	require.NoError(t, err)
	require.NoError(t, st.People().Create(ctx, clinic))

	faculty := entity.NewFaculty(newID(), "Dr. Attending", "attending@example.org", entity.FacultyRoleCore, nil)
	require.NoError(t, st.People().Create(ctx, faculty))

	rotation := &entity.Rotation{
		ID: newID(), Name: "Clinic", Category: entity.CategoryClinic,
		MinCoveragePerBlock: 1, MaxCoveragePerBlock: 1,
	}
	require.NoError(t, st.Rotations().Create(ctx, rotation))
}

func TestGenerateProducesASuccessfulRun(t *testing.T) {
	st := memorystore.New()
	seedRoster(t, st)

	orch := NewOrchestrator(st, config.Default())
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	result, err := orch.Generate(context.Background(), GenerationRequest{
		Start: start, End: end, Algorithm: entity.AlgorithmGreedy, Timeout: time.Second,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Run)
	assert.NotEqual(t, entity.RunFailed, result.Run.Status)
	assert.Greater(t, result.Run.Statistics.AssignmentsCreated, 0)
}

func TestGenerateReplaysSameIdempotencyKey(t *testing.T) {
	st := memorystore.New()
	seedRoster(t, st)

	orch := NewOrchestrator(st, config.Default())
	req := GenerationRequest{
		Start: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Algorithm:      entity.AlgorithmGreedy,
		Timeout:        time.Second,
		IdempotencyKey: "weekly-run-2026-03-02",
	}

	first, err := orch.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	second, err := orch.Generate(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Run.ID, second.Run.ID)
}

func TestGenerateRejectsReusedIdempotencyKeyWithDifferentPayload(t *testing.T) {
	st := memorystore.New()
	seedRoster(t, st)

	orch := NewOrchestrator(st, config.Default())
	key := "weekly-run"
	_, err := orch.Generate(context.Background(), GenerationRequest{
		Start: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		Algorithm: entity.AlgorithmGreedy, Timeout: time.Second, IdempotencyKey: key,
	})
	require.NoError(t, err)

	_, err = orch.Generate(context.Background(), GenerationRequest{
		Start: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		Algorithm: entity.AlgorithmGreedy, Timeout: time.Second, IdempotencyKey: key,
	})
	require.Error(t, err)
	assert.Equal(t, engineerr.KindConflict, engineerr.KindOf(err))
}

func TestGenerateRejectsInvalidDateRange(t *testing.T) {
	st := memorystore.New()
	orch := NewOrchestrator(st, config.Default())

	_, err := orch.Generate(context.Background(), GenerationRequest{
		Start: time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Algorithm: entity.AlgorithmGreedy,
	})
	require.Error(t, err)
	assert.Equal(t, engineerr.KindInvariant, engineerr.KindOf(err))
}
