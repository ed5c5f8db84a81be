package feed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dyng/subfeed/database"
	"github.com/dyng/subfeed/types"
	"github.com/stretchr/testify/require"
)

// nowFor returns a clock reading whose one-week window cuts off at the given
// unix second.
func nowFor(cutoff int64) time.Time {
	return time.Unix(cutoff, 0).Add(windowFactor * week)
}

// seedChannel publishes items with the given unix-second timestamps, listed
// newest first as the feed sees them, and returns their ids in that order.
// Ids are channel/position in the newest-first view at publish time.
func seedChannel(t *testing.T, store *database.MemoryStore, channelID string, newestFirst ...int64) []string {
	t.Helper()
	store.CreateChannel(channelID)

	ids := make([]string, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		ids[i] = fmt.Sprintf("%s/%d", channelID, newestFirst[i])
		err := store.PublishItem(context.Background(), channelID, types.Item{
			Id:        ids[i],
			CreatedAt: time.Unix(newestFirst[i], 0),
		})
		require.NoError(t, err)
	}
	return ids
}

func entryIDs(entries []types.FeedEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ItemID)
	}
	return ids
}

func ampleLimits() Limits {
	return Limits{MaxProbes: 1000, MaxReads: 100000, Parallelism: 1}
}
