package database

import (
	"context"
	"time"

	"github.com/dyng/subfeed/types"
	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ChannelSequence(ctx context.Context, channelID string) (types.Sequence, error) {
	args := m.Called(ctx, channelID)
	seq, _ := args.Get(0).(types.Sequence)
	return seq, args.Error(1)
}

func (m *MockStore) ItemTimestamp(ctx context.Context, itemID string) (time.Time, error) {
	args := m.Called(ctx, itemID)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
