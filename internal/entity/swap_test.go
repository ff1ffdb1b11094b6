package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwapRecordTransitionDAG(t *testing.T) {
	s := &SwapRecord{ID: uuid.New(), Status: SwapPending}

	require.NoError(t, s.TransitionTo(SwapApproved))
	assert.Equal(t, SwapApproved, s.Status)

	require.NoError(t, s.TransitionTo(SwapExecuted))
	assert.Equal(t, SwapExecuted, s.Status)

	require.NoError(t, s.TransitionTo(SwapRolledBack))
	assert.Equal(t, SwapRolledBack, s.Status)

	// Terminal state admits no further transitions.
	assert.ErrorIs(t, s.TransitionTo(SwapApproved), ErrInvalidSwapTransition)
}

func TestSwapRecordRejectsSkippedTransition(t *testing.T) {
	s := &SwapRecord{ID: uuid.New(), Status: SwapPending}
	assert.ErrorIs(t, s.TransitionTo(SwapExecuted), ErrInvalidSwapTransition)
}

func TestSwapRecordRollbackEligibility(t *testing.T) {
	executedAt := time.Date(2025, 2, 3, 12, 0, 0, 0, time.UTC)
	s := &SwapRecord{Status: SwapExecuted, ExecutedAt: &executedAt}

	window := 24 * time.Hour
	assert.True(t, s.RollbackEligible(executedAt.Add(window-time.Second), window))
	assert.False(t, s.RollbackEligible(executedAt.Add(window+time.Second), window))
}
