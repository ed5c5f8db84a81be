package types

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrChannelNotFound  = errors.New("channel not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrStoreUnavailable = errors.New("content store unavailable")
	ErrInvalidRequest   = errors.New("invalid request")
)

// Sequence is a channel's item ids, oldest first, as of the moment it was
// opened. Items appended afterwards are not visible through it.
type Sequence interface {
	Len() int
	ItemID(ctx context.Context, index int) (string, error)
}

// ContentStore is the read side of the content store.
type ContentStore interface {
	ChannelSequence(ctx context.Context, channelID string) (Sequence, error)
	ItemTimestamp(ctx context.Context, itemID string) (time.Time, error)
}

// ContentWriter is the ingestion side, used by seeding and tests.
type ContentWriter interface {
	PublishItem(ctx context.Context, channelID string, item Item) error
	DeleteItem(ctx context.Context, itemID string) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}
