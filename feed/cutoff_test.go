package feed

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolveCutoff(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now, ResolveCutoff(now, 0))
	assert.Equal(t, now.AddDate(0, 0, -14), ResolveCutoff(now, 1))
	assert.Equal(t, now.AddDate(0, 0, -42), ResolveCutoff(now, 3))
}

func TestResolveCutoffWideWindow(t *testing.T) {
	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)

	widest := ResolveCutoff(now, int(maxWeeksAgo))
	assert.True(t, widest.Before(now))
	assert.Equal(t, now.Add(-time.Duration(windowFactor*maxWeeksAgo)*week), widest)

	for _, weeksAgo := range []int{int(maxWeeksAgo) + 1, 8000, math.MaxInt32, math.MaxInt} {
		cutoff := ResolveCutoff(now, weeksAgo)
		assert.True(t, cutoff.IsZero(), "weeksAgo %d", weeksAgo)
		assert.True(t, cutoff.Before(widest), "weeksAgo %d", weeksAgo)
	}
}
