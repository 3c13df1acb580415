package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_AdvanceAndTick(t *testing.T) {
	start := time.Unix(1000, 0)
	clk := NewManualClock(start)

	assert.Equal(t, start, clk.Now())

	clk.Advance(5 * time.Second)
	assert.Equal(t, start.Add(5*time.Second), clk.Now())

	next := clk.Tick(time.Second)
	assert.Equal(t, start.Add(6*time.Second), next)
	assert.Equal(t, next, clk.Now())
}
