package database

import (
	"context"
	"time"

	"github.com/dyng/subfeed/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/pkg/errors"
)

var logger = log.New("module", "database")

// Neo4jStore keeps channels as (:Channel {id, video_ids}) nodes whose
// video_ids list is appended to on publish, and items as (:Video {id,
// created_at}) nodes with created_at in unix milliseconds. Deleting a video
// leaves its id in the channel list.
type Neo4jStore struct {
	db *Neo4jDb
}

func NewNeo4jStore(db *Neo4jDb) *Neo4jStore {
	return &Neo4jStore{db: db}
}

func (s *Neo4jStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		"CREATE CONSTRAINT channel_id IF NOT EXISTS FOR (c:Channel) REQUIRE c.id IS UNIQUE",
		"CREATE CONSTRAINT video_id IF NOT EXISTS FOR (v:Video) REQUIRE v.id IS UNIQUE",
	}
	for _, stmt := range statements {
		_, err := s.db.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return result.Consume(ctx)
		})
		if err != nil {
			return errors.Wrapf(classify(err), "ensure schema: %s", stmt)
		}
	}
	return nil
}

func (s *Neo4jStore) ChannelSequence(ctx context.Context, channelID string) (types.Sequence, error) {
	length, err := s.db.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, "MATCH (c:Channel {id: $id}) RETURN size(coalesce(c.video_ids, [])) AS length", map[string]any{
			"id": channelID,
		})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			if err := result.Err(); err != nil {
				return nil, err
			}
			return nil, types.ErrChannelNotFound
		}
		v, _ := result.Record().Get("length")
		n, ok := v.(int64)
		if !ok {
			return nil, errors.Errorf("unexpected length type %T", v)
		}
		return int(n), nil
	})
	if err != nil {
		return nil, classify(err)
	}

	return &neo4jSequence{
		db:        s.db,
		channelID: channelID,
		length:    length.(int),
	}, nil
}

func (s *Neo4jStore) ItemTimestamp(ctx context.Context, itemID string) (time.Time, error) {
	createdAt, err := s.db.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, "MATCH (v:Video {id: $id}) RETURN v.created_at AS created_at", map[string]any{
			"id": itemID,
		})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			if err := result.Err(); err != nil {
				return nil, err
			}
			return nil, types.ErrItemNotFound
		}
		v, _ := result.Record().Get("created_at")
		ms, ok := v.(int64)
		if !ok {
			return nil, types.ErrItemNotFound
		}
		return time.UnixMilli(ms), nil
	})
	if err != nil {
		return time.Time{}, classify(err)
	}
	return createdAt.(time.Time), nil
}

func (s *Neo4jStore) PublishItem(ctx context.Context, channelID string, item types.Item) error {
	logger.Debug("publish item", "channel", channelID, "id", item.Id, "created_at", item.CreatedAt)
	_, err := s.db.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, `
MERGE (c:Channel {id: $channel})
ON CREATE SET c.video_ids = []
WITH c
CREATE (v:Video {id: $id, created_at: $createdAt})
SET c.video_ids = c.video_ids + $id`,
			map[string]any{
				"channel":   channelID,
				"id":        item.Id,
				"createdAt": item.CreatedAt.UnixMilli(),
			})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	return errors.Wrapf(classify(err), "publish %s to %s", item.Id, channelID)
}

func (s *Neo4jStore) DeleteItem(ctx context.Context, itemID string) error {
	deleted, err := s.db.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, "MATCH (v:Video {id: $id}) DETACH DELETE v", map[string]any{
			"id": itemID,
		})
		if err != nil {
			return nil, err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().NodesDeleted(), nil
	})
	if err != nil {
		return errors.Wrapf(classify(err), "delete %s", itemID)
	}
	if deleted.(int) == 0 {
		return types.ErrItemNotFound
	}
	return nil
}

func (s *Neo4jStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

type neo4jSequence struct {
	db        *Neo4jDb
	channelID string
	length    int
}

func (s *neo4jSequence) Len() int {
	return s.length
}

func (s *neo4jSequence) ItemID(ctx context.Context, index int) (string, error) {
	if index < 0 || index >= s.length {
		return "", errors.Errorf("index %d out of range [0, %d)", index, s.length)
	}

	id, err := s.db.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, "MATCH (c:Channel {id: $id}) RETURN c.video_ids[$index] AS video_id", map[string]any{
			"id":    s.channelID,
			"index": int64(index),
		})
		if err != nil {
			return nil, err
		}
		if !result.Next(ctx) {
			if err := result.Err(); err != nil {
				return nil, err
			}
			return nil, types.ErrChannelNotFound
		}
		v, _ := result.Record().Get("video_id")
		videoID, ok := v.(string)
		if !ok {
			return nil, types.ErrItemNotFound
		}
		return videoID, nil
	})
	if err != nil {
		return "", classify(err)
	}
	return id.(string), nil
}
