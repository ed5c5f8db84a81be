package database

import (
	"context"
	"io"

	"github.com/dyng/subfeed/types"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Fixture is the YAML layout accepted by LoadFixture:
//
//	channels:
//	  - id: alice
//	    items:
//	      - id: v1
//	        created_at: 2024-05-01T10:00:00Z
type Fixture struct {
	Channels []types.Channel `yaml:"channels"`
}

func ReadFixture(r io.Reader) (*Fixture, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decode fixture")
	}
	return &f, nil
}

// LoadFixture publishes every channel's items, oldest first, and returns the
// number of items written.
func LoadFixture(ctx context.Context, w types.ContentWriter, f *Fixture) (int, error) {
	written := 0
	for _, ch := range f.Channels {
		for _, item := range ch.Items {
			if err := w.PublishItem(ctx, ch.Id, item); err != nil {
				return written, errors.Wrapf(err, "load channel %s", ch.Id)
			}
			written++
		}
	}
	logger.Info("loaded fixture", "channels", len(f.Channels), "items", written)
	return written, nil
}
