package job

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/generator"
	"github.com/schedcu/residency-engine/internal/resilience"
	"github.com/schedcu/residency-engine/internal/store/memorystore"
	"github.com/schedcu/residency-engine/internal/swap"
)

// These tests exercise Handlers directly against hand-built
// *asynq.Task values; none of them talk to Redis, since a Task's
// payload is just a byte slice and RegisterHandlers only needs an
// *asynq.ServeMux when wiring a live worker.

func newTestHandlers(t *testing.T, st *memorystore.MemoryStore) *Handlers {
	t.Helper()
	cfg := config.Default()
	return NewHandlers(
		generator.NewOrchestrator(st, cfg),
		swap.NewEngine(st, cfg),
		resilience.NewEvaluator(cfg),
		st, nil, cfg,
	)
}

func seedJobRoster(t *testing.T, st *memorystore.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	resident, err := entity.NewResident(uuid.New(), "Dr. Castillo", "castillo@example.org", 1)
	require.NoError(t, err)
	require.NoError(t, st.People().Create(ctx, resident))

	faculty := entity.NewFaculty(uuid.New(), "Dr. Nakamura", "nakamura@example.org", entity.FacultyRoleCore, nil)
	require.NoError(t, st.People().Create(ctx, faculty))

	rot := &entity.Rotation{
		ID: uuid.New(), Name: "Clinic", Category: entity.CategoryClinic,
		MinCoveragePerBlock: 1, MaxCoveragePerBlock: 1,
	}
	require.NoError(t, st.Rotations().Create(ctx, rot))
}

func mustTask(t *testing.T, taskType string, payload any) *asynq.Task {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return asynq.NewTask(taskType, body)
}

func TestHandleGenerateScheduleProducesASuccessfulRun(t *testing.T) {
	st := memorystore.New()
	seedJobRoster(t, st)
	h := newTestHandlers(t, st)

	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	task := mustTask(t, TypeGenerateSchedule, GenerateSchedulePayload{
		Start: start, End: start, Algorithm: entity.AlgorithmGreedy,
		IdempotencyKey: "job-test-run",
	})

	err := h.HandleGenerateSchedule(context.Background(), task)
	require.NoError(t, err)

	run, err := st.ScheduleRuns().GetByIdempotencyKey(context.Background(), "job-test-run")
	require.NoError(t, err)
	assert.NotEqual(t, entity.RunFailed, run.Status)
}

func TestHandleGenerateScheduleRejectsMalformedPayload(t *testing.T) {
	st := memorystore.New()
	h := newTestHandlers(t, st)

	task := asynq.NewTask(TypeGenerateSchedule, []byte("not json"))
	err := h.HandleGenerateSchedule(context.Background(), task)
	require.Error(t, err)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleSwapAutoDetectProceedsWhenNoViolation(t *testing.T) {
	st := memorystore.New()
	a, err := entity.NewResident(uuid.New(), "Dr. Alvarez", "alvarez@example.org", 2)
	require.NoError(t, err)
	require.NoError(t, st.People().Create(context.Background(), a))

	record := &entity.SwapRecord{
		ID: uuid.New(), Type: entity.SwapAbsorb, Status: entity.SwapExecuted,
		SourcePersonID: a.ID, SourceWeekStart: time.Now().UTC(),
		RequestedBy: a.ID,
	}
	now := entity.Now()
	record.ExecutedAt = &now
	require.NoError(t, st.SwapRecords().Create(context.Background(), record))

	h := newTestHandlers(t, st)
	task := mustTask(t, TypeSwapAutoDetect, SwapAutoDetectPayload{SwapRecordID: record.ID})

	err = h.HandleSwapAutoDetect(context.Background(), task)
	require.NoError(t, err)

	reloaded, err := st.SwapRecords().GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SwapExecuted, reloaded.Status)
}

func TestHandleSwapRollbackMonitorSkipsSwapsOutsideTheAutoDetectWindow(t *testing.T) {
	st := memorystore.New()
	a, err := entity.NewResident(uuid.New(), "Dr. Alvarez", "alvarez@example.org", 2)
	require.NoError(t, err)
	require.NoError(t, st.People().Create(context.Background(), a))

	stale := entity.Now().Add(-1 * time.Hour)
	record := &entity.SwapRecord{
		ID: uuid.New(), Type: entity.SwapAbsorb, Status: entity.SwapExecuted,
		SourcePersonID: a.ID, SourceWeekStart: time.Now().UTC(), RequestedBy: a.ID,
		ExecutedAt: &stale,
	}
	require.NoError(t, st.SwapRecords().Create(context.Background(), record))

	cfg := config.Default()
	cfg.AutoDetectDelay = time.Minute
	h := NewHandlers(generator.NewOrchestrator(st, cfg), swap.NewEngine(st, cfg), resilience.NewEvaluator(cfg), st, nil, cfg)

	task := mustTask(t, TypeSwapRollbackMonitor, SwapRollbackMonitorPayload{})
	require.NoError(t, h.HandleSwapRollbackMonitor(context.Background(), task))

	reloaded, err := st.SwapRecords().GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.SwapExecuted, reloaded.Status)
}

func TestHandleResilienceSnapshotCompletesOverAnEmptyRoster(t *testing.T) {
	st := memorystore.New()
	h := newTestHandlers(t, st)

	task := mustTask(t, TypeResilienceSnapshot, ResilienceSnapshotPayload{WindowStart: entity.Today()})
	err := h.HandleResilienceSnapshot(context.Background(), task)
	require.NoError(t, err)
}
