package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockNowUTC(t *testing.T) {
	t.Parallel()

	clk := New()
	require.NotNil(t, clk)

	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	assert.Equal(t, time.UTC, got.Location())
	assert.True(t, got.After(before) && got.Before(after))
}

func TestFixedClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))
	clk := NewFixed(start)
	assert.True(t, clk.Now().Equal(start))
	assert.Equal(t, time.UTC, clk.Now().Location())

	clk.Advance(90 * time.Second)
	assert.True(t, clk.Now().Equal(start.Add(90*time.Second)))
}
