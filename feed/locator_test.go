package feed

import (
	"context"
	"testing"
	"time"

	"github.com/dyng/subfeed/database"
	"github.com/dyng/subfeed/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newLocator(store types.ContentStore, cutoff int64, probes, reads int) *Locator {
	return NewLocator(store, time.Unix(cutoff, 0), NewBudget(probes), NewBudget(reads))
}

func TestLocateFindsWindowBoundary(t *testing.T) {
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 95, 90, 85, 40, 35, 30, 10)

	res, err := newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, ids[:4], entryIDs(res.Entries))
	assert.Equal(t, 4, res.Subscription.ResumeIndex)
	assert.False(t, res.Exhausted)
	assert.Equal(t, time.Unix(100, 0), res.Entries[0].CreatedAt)
	assert.Equal(t, "c1", res.Entries[0].ChannelID)

	// nothing new since the last call
	res, err = newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1", ResumeIndex: 4})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 4, res.Subscription.ResumeIndex)
}

func TestLocateReusesSearchReads(t *testing.T) {
	store := database.NewMemoryStore()
	seedChannel(t, store, "c1", 100, 95, 90, 85, 40, 35, 30, 10)

	_, err := newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)

	// three probes (positions 3, 5, 4) and three more to collect 0, 1, 2
	assert.Equal(t, 6, store.Reads())
}

func TestLocateWholeChannelInWindow(t *testing.T) {
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 90, 80)

	res, err := newLocator(store, 0, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, ids, entryIDs(res.Entries))
	assert.Equal(t, 3, res.Subscription.ResumeIndex)
}

func TestLocateNothingInWindow(t *testing.T) {
	store := database.NewMemoryStore()
	seedChannel(t, store, "c1", 40, 30, 20)

	res, err := newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1", ResumeIndex: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 1, res.Subscription.ResumeIndex)
}

func TestLocateEmptyChannel(t *testing.T) {
	store := database.NewMemoryStore()
	store.CreateChannel("empty")

	res, err := newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "empty"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 0, res.Subscription.ResumeIndex)
	assert.Equal(t, 0, store.Reads())
}

func TestLocateUnknownChannel(t *testing.T) {
	store := database.NewMemoryStore()

	res, err := newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "ghost", ResumeIndex: 7})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, types.Subscription{ChannelID: "ghost", ResumeIndex: 7}, res.Subscription)
}

func TestLocateClampsResumeIndex(t *testing.T) {
	store := database.NewMemoryStore()
	seedChannel(t, store, "c1", 100, 90)

	res, err := newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1", ResumeIndex: 9})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 2, res.Subscription.ResumeIndex)
}

func TestLocateSkipsDeletedItemInsideWindow(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 95, 90, 85, 40)
	require.NoError(t, store.DeleteItem(ctx, ids[1]))

	res, err := newLocator(store, 50, 30, 600).Locate(ctx, types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0], ids[2], ids[3]}, entryIDs(res.Entries))
	assert.Equal(t, 4, res.Subscription.ResumeIndex)
}

// A deleted item hit by a probe counts as outside the window. The search
// stops short of it, and the next call moves past it.
func TestLocateDeletedItemAtProbe(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 95, 90, 85, 40)
	require.NoError(t, store.DeleteItem(ctx, ids[2]))

	res, err := newLocator(store, 50, 30, 600).Locate(ctx, types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, ids[:2], entryIDs(res.Entries))
	assert.Equal(t, 2, res.Subscription.ResumeIndex)

	res, err = newLocator(store, 50, 30, 600).Locate(ctx, res.Subscription)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[3]}, entryIDs(res.Entries))
	assert.Equal(t, 4, res.Subscription.ResumeIndex)
}

// A deleted item at the resume position stops the search before anything is
// delivered. The cursor still moves past it so later calls reach the rest.
func TestLocateDeletedItemAtResumeIndex(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 90)
	require.NoError(t, store.DeleteItem(ctx, ids[0]))

	res, err := newLocator(store, 50, 30, 600).Locate(ctx, types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 1, res.Subscription.ResumeIndex)

	res, err = newLocator(store, 50, 30, 600).Locate(ctx, res.Subscription)
	require.NoError(t, err)
	assert.Equal(t, ids[1:], entryIDs(res.Entries))
	assert.Equal(t, 2, res.Subscription.ResumeIndex)
}

func TestLocateDeletedItemAfterDeliveredOnes(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 95, 90)
	require.NoError(t, store.DeleteItem(ctx, ids[1]))

	res, err := newLocator(store, 50, 30, 600).Locate(ctx, types.Subscription{ChannelID: "c1", ResumeIndex: 1})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 2, res.Subscription.ResumeIndex)

	res, err = newLocator(store, 50, 30, 600).Locate(ctx, res.Subscription)
	require.NoError(t, err)
	assert.Equal(t, []string{ids[2]}, entryIDs(res.Entries))
	assert.Equal(t, 3, res.Subscription.ResumeIndex)
}

func TestLocateSkipsRunOfDeletedItems(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 95, 90, 85)
	for _, id := range ids[:3] {
		require.NoError(t, store.DeleteItem(ctx, id))
	}

	sub := types.Subscription{ChannelID: "c1"}
	var delivered []string
	for i := 0; i < 4; i++ {
		res, err := newLocator(store, 50, 30, 600).Locate(ctx, sub)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Subscription.ResumeIndex, sub.ResumeIndex)
		delivered = append(delivered, entryIDs(res.Entries)...)
		sub = res.Subscription
	}
	assert.Equal(t, []string{ids[3]}, delivered)
	assert.Equal(t, 4, sub.ResumeIndex)
}

func TestLocateSkippingDeletedItemsHonoursReadBudget(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 95, 90, 85)
	for _, id := range ids[:3] {
		require.NoError(t, store.DeleteItem(ctx, id))
	}

	res, err := newLocator(store, 50, 30, 1).Locate(ctx, types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.True(t, res.Exhausted)
	assert.Greater(t, res.Subscription.ResumeIndex, 0)
	assert.Less(t, res.Subscription.ResumeIndex, 4)
}

func TestLocateProbeBudgetKeepsProvenPrefix(t *testing.T) {
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 99, 98, 97, 96, 95, 94, 93)

	res, err := newLocator(store, 50, 1, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)

	// one probe at position 3 proves [0, 4) is inside the window
	assert.True(t, res.Exhausted)
	assert.Equal(t, ids[:4], entryIDs(res.Entries))
	assert.Equal(t, 4, res.Subscription.ResumeIndex)
}

func TestLocateNoProbesLeft(t *testing.T) {
	store := database.NewMemoryStore()
	seedChannel(t, store, "c1", 100, 90)

	res, err := newLocator(store, 50, 0, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Empty(t, res.Entries)
	assert.Equal(t, 0, res.Subscription.ResumeIndex)
	assert.Equal(t, 0, store.Reads())
}

func TestLocateReadBudgetStopsCollection(t *testing.T) {
	store := database.NewMemoryStore()
	ids := seedChannel(t, store, "c1", 100, 95, 90, 85, 40, 35, 30, 10)

	// the search probes positions 3, 5 and 4, two reads cover 0 and 1
	res, err := newLocator(store, 50, 30, 2).Locate(context.Background(), types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)
	assert.True(t, res.Exhausted)
	assert.Equal(t, ids[:2], entryIDs(res.Entries))
	assert.Equal(t, 2, res.Subscription.ResumeIndex)
	assert.Equal(t, 5, store.Reads())
}

func TestLocateStoreUnavailable(t *testing.T) {
	mem := database.NewMemoryStore()
	seedChannel(t, mem, "c1", 100, 90)
	seq, err := mem.ChannelSequence(context.Background(), "c1")
	require.NoError(t, err)

	store := new(database.MockStore)
	store.On("ChannelSequence", mock.Anything, "c1").Return(seq, nil)
	store.On("ItemTimestamp", mock.Anything, mock.Anything).Return(time.Time{}, errors.Wrap(types.ErrStoreUnavailable, "connection reset"))

	_, err = newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1"})
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
}

func TestLocateChannelLookupUnavailable(t *testing.T) {
	store := new(database.MockStore)
	store.On("ChannelSequence", mock.Anything, "c1").Return(nil, types.ErrStoreUnavailable)

	_, err := newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1"})
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)
	store.AssertNotCalled(t, "ItemTimestamp", mock.Anything, mock.Anything)
}

func TestLocateItemErrorTreatedAsMissing(t *testing.T) {
	mem := database.NewMemoryStore()
	ids := seedChannel(t, mem, "c1", 100, 90, 80)
	seq, err := mem.ChannelSequence(context.Background(), "c1")
	require.NoError(t, err)

	store := new(database.MockStore)
	store.On("ChannelSequence", mock.Anything, "c1").Return(seq, nil)
	store.On("ItemTimestamp", mock.Anything, ids[0]).Return(time.Unix(100, 0), nil)
	store.On("ItemTimestamp", mock.Anything, ids[1]).Return(time.Unix(90, 0), nil)
	store.On("ItemTimestamp", mock.Anything, ids[2]).Return(time.Time{}, errors.New("corrupt document"))

	res, err := newLocator(store, 50, 30, 600).Locate(context.Background(), types.Subscription{ChannelID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, ids[:2], entryIDs(res.Entries))
	assert.Equal(t, 2, res.Subscription.ResumeIndex)
}

func TestLocateCanceledContext(t *testing.T) {
	store := database.NewMemoryStore()
	seedChannel(t, store, "c1", 100, 90)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newLocator(store, 50, 30, 600).Locate(ctx, types.Subscription{ChannelID: "c1"})
	assert.ErrorIs(t, err, context.Canceled)
}
