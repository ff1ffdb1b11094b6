package engineerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesByKindOnly(t *testing.T) {
	err := New(KindInvariant, "80-hour rule violated", map[string]any{
		"hours_before": 78.0,
		"hours_after":  82.0,
		"limit":        80.0,
	})

	assert.True(t, errors.Is(err, Invariant))
	assert.False(t, errors.Is(err, Conflict))
}

func TestWrapPreservesCauseForUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindTransient, "store write failed", cause, nil)

	assert.True(t, errors.Is(err, Transient))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestKindOfOnPlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(fmt.Errorf("not an engine error")))
	assert.False(t, Is(fmt.Errorf("plain"), KindInvariant))
}
