package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStallGuard_StreakOverLimit(t *testing.T) {
	g := NewStallGuard(2)

	require.NoError(t, g.Observe(true))
	require.NoError(t, g.Observe(true))
	assert.Equal(t, 2, g.Current())

	err := g.Observe(true)
	require.Error(t, err)

	var se *StalledError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 3, se.Frames)
	assert.Equal(t, 2, se.Limit)
	assert.Contains(t, err.Error(), "3 consecutive frames > 2 limit")
}

func TestStallGuard_UncappedFrameResets(t *testing.T) {
	g := NewStallGuard(2)
	for i := 0; i < 10; i++ {
		require.NoError(t, g.Observe(true))
		require.NoError(t, g.Observe(true))
		require.NoError(t, g.Observe(false))
	}
	assert.Equal(t, 0, g.Current())
}

func TestStallGuard_ZeroIsUnlimited(t *testing.T) {
	g := NewStallGuard(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, g.Observe(true))
	}
	assert.Equal(t, 1000, g.Current())
}
