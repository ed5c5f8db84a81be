package feed

import (
	"context"
	"time"

	"github.com/dyng/subfeed/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var logger = log.New("module", "feed")

type Limits struct {
	MaxProbes   int
	MaxReads    int
	Parallelism int
}

func LimitsFromConfig(conf types.FeedConfig) Limits {
	return Limits{
		MaxProbes:   conf.MaxProbes,
		MaxReads:    conf.MaxReads,
		Parallelism: conf.Parallelism,
	}
}

// Aggregator builds subscription feed pages. It keeps no state between calls;
// the caller owns the subscriptions it passes in and gets back.
type Aggregator struct {
	store  types.ContentStore
	limits Limits
	now    func() time.Time
}

func NewAggregator(store types.ContentStore, limits Limits, now func() time.Time) *Aggregator {
	if limits.Parallelism < 1 {
		limits.Parallelism = 1
	}
	return &Aggregator{
		store:  store,
		limits: limits,
		now:    now,
	}
}

// Aggregate returns the items of every subscribed channel that are newer than
// the cutoff and past the channel's resume index, newest first, along with
// the advanced subscriptions in request order. weeksAgo must not be negative.
func (a *Aggregator) Aggregate(ctx context.Context, weeksAgo int, subs []types.Subscription) (*types.Feed, error) {
	cutoff := ResolveCutoff(a.now(), weeksAgo)
	locator := NewLocator(a.store, cutoff, NewBudget(a.limits.MaxProbes), NewBudget(a.limits.MaxReads))

	// A channel listed twice is searched once, from the furthest position.
	order := make([]string, 0, len(subs))
	starts := make(map[string]int, len(subs))
	for _, sub := range subs {
		cur, ok := starts[sub.ChannelID]
		if !ok {
			order = append(order, sub.ChannelID)
			starts[sub.ChannelID] = sub.ResumeIndex
		} else if sub.ResumeIndex > cur {
			starts[sub.ChannelID] = sub.ResumeIndex
		}
	}

	results := make([]ChannelResult, len(order))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limits.Parallelism)
	for i, channelID := range order {
		i, channelID := i, channelID
		g.Go(func() error {
			res, err := locator.Locate(gctx, types.Subscription{ChannelID: channelID, ResumeIndex: starts[channelID]})
			if err != nil {
				return errors.Wrapf(err, "locate channel %s", channelID)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	feed := &types.Feed{
		Entries:       Merge(results),
		Subscriptions: make([]types.Subscription, len(subs)),
	}
	advanced := make(map[string]int, len(results))
	for _, res := range results {
		advanced[res.Subscription.ChannelID] = res.Subscription.ResumeIndex
		if res.Exhausted {
			feed.Partial = true
		}
	}
	for i, sub := range subs {
		feed.Subscriptions[i] = types.Subscription{ChannelID: sub.ChannelID, ResumeIndex: advanced[sub.ChannelID]}
	}

	if feed.Partial {
		logger.Debug("fetch budget exhausted, returning partial page", "channels", len(order), "items", len(feed.Entries))
	}
	logger.Debug("aggregated feed", "cutoff", cutoff, "channels", len(order), "items", len(feed.Entries))
	return feed, nil
}
