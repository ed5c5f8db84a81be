package database

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dyng/subfeed/types"
	"github.com/pkg/errors"
)

// MemoryStore is an in-process content store. It behaves like Neo4jStore,
// including deleted items that stay referenced by their channel, and counts
// the reads it serves.
type MemoryStore struct {
	mu       sync.RWMutex
	channels map[string][]string
	items    map[string]time.Time
	reads    atomic.Int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		channels: make(map[string][]string),
		items:    make(map[string]time.Time),
	}
}

func (s *MemoryStore) ChannelSequence(ctx context.Context, channelID string) (types.Sequence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.channels[channelID]
	if !ok {
		return nil, types.ErrChannelNotFound
	}
	return &memorySequence{store: s, channelID: channelID, length: len(ids)}, nil
}

func (s *MemoryStore) ItemTimestamp(ctx context.Context, itemID string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	s.reads.Add(1)

	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.items[itemID]
	if !ok {
		return time.Time{}, types.ErrItemNotFound
	}
	return ts, nil
}

func (s *MemoryStore) PublishItem(ctx context.Context, channelID string, item types.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[item.Id]; ok {
		return errors.Errorf("item %s already exists", item.Id)
	}
	s.items[item.Id] = item.CreatedAt
	s.channels[channelID] = append(s.channels[channelID], item.Id)
	return nil
}

func (s *MemoryStore) DeleteItem(ctx context.Context, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return types.ErrItemNotFound
	}
	delete(s.items, itemID)
	return nil
}

// CreateChannel registers a channel with no items.
func (s *MemoryStore) CreateChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[channelID]; !ok {
		s.channels[channelID] = []string{}
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Reads returns the number of item timestamp reads served so far.
func (s *MemoryStore) Reads() int {
	return int(s.reads.Load())
}

type memorySequence struct {
	store     *MemoryStore
	channelID string
	length    int
}

func (q *memorySequence) Len() int {
	return q.length
}

func (q *memorySequence) ItemID(ctx context.Context, index int) (string, error) {
	if index < 0 || index >= q.length {
		return "", errors.Errorf("index %d out of range [0, %d)", index, q.length)
	}
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	return q.store.channels[q.channelID][index], nil
}
