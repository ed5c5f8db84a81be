package service

import (
	"context"

	"github.com/dyng/subfeed/types"
	"github.com/stretchr/testify/mock"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) GetFeed(ctx context.Context, weeksAgo int, subs []types.Subscription) (*types.Feed, error) {
	args := m.Called(ctx, weeksAgo, subs)
	feed, _ := args.Get(0).(*types.Feed)
	return feed, args.Error(1)
}
