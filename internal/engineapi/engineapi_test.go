package engineapi

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/residency-engine/internal/config"
	"github.com/schedcu/residency-engine/internal/constraint"
	"github.com/schedcu/residency-engine/internal/engineerr"
	"github.com/schedcu/residency-engine/internal/entity"
	"github.com/schedcu/residency-engine/internal/resilience"
	"github.com/schedcu/residency-engine/internal/store"
	"github.com/schedcu/residency-engine/internal/store/memorystore"
)

func TestValidateRejectsMissingRequiredFields(t *testing.T) {
	err := Validate(GenerationRequest{})
	require.Error(t, err)
	assert.Equal(t, engineerr.KindInvariant, engineerr.KindOf(err))
}

func TestValidateAcceptsWellFormedGenerationRequest(t *testing.T) {
	req := GenerationRequest{
		StartDate: time.Now(), EndDate: time.Now().AddDate(0, 0, 7),
		Algorithm: entity.AlgorithmHybrid, TimeoutSeconds: 30, ActorID: uuid.New(),
	}
	assert.NoError(t, Validate(req))
}

func TestValidateRejectsEndDateBeforeStartDate(t *testing.T) {
	start := time.Now()
	req := GenerationRequest{
		StartDate: start, EndDate: start.AddDate(0, 0, -1),
		Algorithm: entity.AlgorithmGreedy, TimeoutSeconds: 30, ActorID: uuid.New(),
	}
	require.Error(t, Validate(req))
}

func TestStatusForErrorMapsEngineerrKinds(t *testing.T) {
	assert.Equal(t, StatusOK, StatusForError(nil))
	assert.Equal(t, StatusUnprocessable, StatusForError(engineerr.New(engineerr.KindInvariant, "x", nil)))
	assert.Equal(t, StatusUnprocessable, StatusForError(engineerr.New(engineerr.KindInfeasible, "x", nil)))
	assert.Equal(t, StatusConflict, StatusForError(engineerr.New(engineerr.KindConflict, "x", nil)))
	assert.Equal(t, StatusNotFound, StatusForError(engineerr.New(engineerr.KindNotFound, "x", nil)))
}

func seedValidationRoster(t *testing.T, st *memorystore.MemoryStore) {
	t.Helper()
	ctx := context.Background()

	resident, err := entity.NewResident(uuid.New(), "Dr. Ibarra", "ibarra@example.org", 1)
	require.NoError(t, err)
	require.NoError(t, st.People().Create(ctx, resident))

	rot := &entity.Rotation{
		ID: uuid.New(), Name: "Clinic", Category: entity.CategoryClinic,
		MinCoveragePerBlock: 1, MaxCoveragePerBlock: 1,
	}
	require.NoError(t, st.Rotations().Create(ctx, rot))

	blocks, err := st.InsertBlocksForRange(ctx, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	var block entity.Block
	for _, b := range blocks {
		if b.Session == entity.SessionAM {
			block = b
		}
	}
	assignment := entity.Assignment{ID: uuid.New(), BlockID: block.ID, PersonID: resident.ID, RotationID: rot.ID}
	_, err = st.ApplyAssignments(ctx, store.MutationSet{NewAssignments: []entity.Assignment{assignment}})
	require.NoError(t, err)
}

func TestRunValidationReportsNoViolationsOnFullyCoveredRange(t *testing.T) {
	st := memorystore.New()
	seedValidationRoster(t, st)
	registry := constraint.NewRegistry()

	resp, err := RunValidation(context.Background(), st, registry, ValidationRequest{
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, resp.Summary.Valid)
	assert.Equal(t, StatusOK, resp.Status)
}

func TestRunValidationRejectsMalformedRequest(t *testing.T) {
	st := memorystore.New()
	registry := constraint.NewRegistry()

	_, err := RunValidation(context.Background(), st, registry, ValidationRequest{})
	require.Error(t, err)
}

func TestRunResilienceQueryReportsGreenOnAnEmptyRoster(t *testing.T) {
	st := memorystore.New()
	registry := constraint.NewRegistry()
	cfg := config.Default()
	evaluator := resilience.NewEvaluator(cfg)

	resp, err := RunResilienceQuery(context.Background(), st, registry, evaluator, cfg, ResilienceQuery{
		StartDate: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, resilience.Green, resp.Utilization.Class)
	assert.Equal(t, StatusOK, resp.Status)
}
