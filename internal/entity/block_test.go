package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewBlockDerivesWeekendFlag(t *testing.T) {
	saturday := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC) // a Saturday
	b := NewBlock(uuid.New(), saturday, SessionAM)
	assert.True(t, b.Weekend)

	monday := time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC)
	b = NewBlock(uuid.New(), monday, SessionPM)
	assert.False(t, b.Weekend)
}

func TestAbsenceCoversRange(t *testing.T) {
	a, err := NewAbsence(uuid.New(), uuid.New(),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		AbsenceVacation)
	assert.NoError(t, err)
	assert.True(t, a.Blocking)
	assert.True(t, a.Covers(time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC)))
	assert.False(t, a.Covers(time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)))
}

func TestNewAbsenceRejectsInvertedRange(t *testing.T) {
	_, err := NewAbsence(uuid.New(), uuid.New(),
		time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		AbsenceSick)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}
