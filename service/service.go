package service

import (
	"context"
	"time"

	"github.com/dyng/subfeed/feed"
	"github.com/dyng/subfeed/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"
)

var logger = log.New("module", "service")

type IService interface {
	GetFeed(ctx context.Context, weeksAgo int, subs []types.Subscription) (*types.Feed, error)
}

type Service struct {
	config     *types.Config
	aggregator *feed.Aggregator
}

func NewService(config *types.Config, store types.ContentStore) *Service {
	return &Service{
		config:     config,
		aggregator: feed.NewAggregator(store, feed.LimitsFromConfig(config.Feed), time.Now),
	}
}

// NewServiceWithAggregator is used where the clock or limits must be fixed.
func NewServiceWithAggregator(config *types.Config, aggregator *feed.Aggregator) *Service {
	return &Service{
		config:     config,
		aggregator: aggregator,
	}
}

// GetFeed validates the subscriptions and returns the next feed page for them.
// Invalid input is reported as types.ErrInvalidRequest before the store is
// touched.
func (s *Service) GetFeed(ctx context.Context, weeksAgo int, subs []types.Subscription) (*types.Feed, error) {
	if err := validate(weeksAgo, subs); err != nil {
		return nil, err
	}

	start := time.Now()
	page, err := s.aggregator.Aggregate(ctx, weeksAgo, subs)
	if err != nil {
		logger.Error("Failed to aggregate feed", "subscriptions", len(subs), "err", err)
		return nil, err
	}

	logger.Info("Get feed", "weeksAgo", weeksAgo, "subscriptions", len(subs), "items", len(page.Entries), "partial", page.Partial, "elapsed", time.Since(start))
	return page, nil
}

func validate(weeksAgo int, subs []types.Subscription) error {
	if weeksAgo < 0 {
		return errors.Wrapf(types.ErrInvalidRequest, "weeksAgo must not be negative, got %d", weeksAgo)
	}
	for i, sub := range subs {
		if sub.ChannelID == "" {
			return errors.Wrapf(types.ErrInvalidRequest, "subscription %d has an empty channel id", i)
		}
		if sub.ResumeIndex < 0 {
			return errors.Wrapf(types.ErrInvalidRequest, "subscription %d has a negative resume index", i)
		}
	}
	return nil
}
