package feed

import (
	"math"
	"time"
)

const (
	week = 7 * 24 * time.Hour

	// windowFactor stretches the requested number of weeks; the window
	// always covers twice what the viewer asked for.
	windowFactor = 2

	// maxWeeksAgo is the largest window a time.Duration can express.
	maxWeeksAgo = math.MaxInt64 / int64(windowFactor*week)
)

// ResolveCutoff returns the timestamp at or before which items are too old to
// be delivered. weeksAgo must not be negative. A window too wide to measure
// has no cutoff: the zero time is returned and every item is in it.
func ResolveCutoff(now time.Time, weeksAgo int) time.Time {
	if int64(weeksAgo) > maxWeeksAgo {
		return time.Time{}
	}
	return now.Add(-time.Duration(windowFactor*weeksAgo) * week)
}
