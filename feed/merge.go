package feed

import (
	"sort"

	"github.com/dyng/subfeed/types"
)

// Merge concatenates the channel batches in order and sorts the result newest
// first. The sort is stable, so equal timestamps keep their batch order.
func Merge(results []ChannelResult) []types.FeedEntry {
	total := 0
	for _, r := range results {
		total += len(r.Entries)
	}

	entries := make([]types.FeedEntry, 0, total)
	for _, r := range results {
		entries = append(entries, r.Entries...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries
}
