package types

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Subscription is a viewer's resume position in one channel. ResumeIndex
// counts how many of the channel's newest items have already been delivered.
type Subscription struct {
	ChannelID   string
	ResumeIndex int
}

// MarshalJSON encodes the subscription as a [channel_id, resume_index] pair.
func (s Subscription) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.ChannelID, s.ResumeIndex})
}

// UnmarshalJSON accepts only a [string, non-negative integer] pair.
func (s *Subscription) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Wrap(err, "subscription must be a [channel_id, resume_index] pair")
	}
	if len(pair) != 2 {
		return errors.Errorf("subscription must have exactly 2 elements, got %d", len(pair))
	}

	var channelID string
	if err := json.Unmarshal(pair[0], &channelID); err != nil {
		return errors.Wrap(err, "channel id must be a string")
	}

	dec := json.NewDecoder(bytes.NewReader(pair[1]))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return errors.Wrap(err, "resume index must be an integer")
	}
	num, ok := raw.(json.Number)
	if !ok {
		return errors.Errorf("resume index must be an integer, got %s", pair[1])
	}
	index, err := num.Int64()
	if err != nil {
		return errors.Wrap(err, "resume index must be an integer")
	}
	if index < 0 {
		return errors.Errorf("resume index must not be negative, got %d", index)
	}

	s.ChannelID = channelID
	s.ResumeIndex = int(index)
	return nil
}

// FeedEntry is one item delivered by the aggregator.
type FeedEntry struct {
	ItemID    string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	CreatedAt time.Time `json:"created_at"`
}

type Feed struct {
	Entries       []FeedEntry
	Subscriptions []Subscription
	// Partial is set when a fetch budget ran out before every channel was
	// fully advanced. The page is still valid.
	Partial bool
}

// ItemIDs returns the entry ids in feed order.
func (f *Feed) ItemIDs() []string {
	ids := make([]string, 0, len(f.Entries))
	for _, e := range f.Entries {
		ids = append(ids, e.ItemID)
	}
	return ids
}

// Item is a content item as written by ingestion.
type Item struct {
	Id        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Channel is a channel with its items, oldest first.
type Channel struct {
	Id    string `json:"id" yaml:"id"`
	Items []Item `json:"items" yaml:"items"`
}
