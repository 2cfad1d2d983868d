package jobs

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobValidates(t *testing.T) {
	now := time.Now()

	_, err := NewJob("", "l.xlsx", "c.xlsx", decimal.Zero, now)
	assert.ErrorIs(t, err, ErrInvalidCarrier)

	_, err = NewJob("ONE", "", "c.xlsx", decimal.Zero, now)
	assert.ErrorIs(t, err, ErrInvalidInput)

	j, err := NewJob(" one ", "l.xlsx", "c.xlsx", decimal.RequireFromString("1.00"), now)
	require.NoError(t, err)
	assert.Equal(t, "ONE", j.Carrier)
	assert.Equal(t, StateQueued, j.State)
	assert.NotEmpty(t, j.ID)
}

func TestJobLifecycle(t *testing.T) {
	now := time.Now()
	j, err := NewJob("ONE", "l.xlsx", "c.xlsx", decimal.Zero, now)
	require.NoError(t, err)

	require.NoError(t, j.MarkRunning(now))
	assert.Equal(t, StateRunning, j.State)
	require.NotNil(t, j.StartedAt)

	require.NoError(t, j.MarkDone("out/report.xlsx", now))
	assert.Equal(t, StateDone, j.State)
	assert.True(t, j.Terminal())

	// Terminal jobs reject further transitions.
	assert.ErrorIs(t, j.MarkRunning(now), ErrBadStateChange)
	assert.ErrorIs(t, j.MarkFailed("x", now), ErrBadStateChange)
}

func TestJobFailsFromQueued(t *testing.T) {
	j, err := NewJob("ONE", "l.xlsx", "c.xlsx", decimal.Zero, time.Now())
	require.NoError(t, err)

	require.NoError(t, j.MarkFailed("unreadable upload", time.Now()))
	assert.Equal(t, StateFailed, j.State)
	assert.Equal(t, "unreadable upload", j.Error)
}
