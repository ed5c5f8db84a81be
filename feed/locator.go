package feed

import (
	"context"
	"time"

	"github.com/dyng/subfeed/types"
	"github.com/pkg/errors"
)

var errBudgetExhausted = errors.New("fetch budget exhausted")

// ChannelResult is what one channel contributes to a page: its entries,
// newest first, and its advanced subscription.
type ChannelResult struct {
	Subscription types.Subscription
	Entries      []types.FeedEntry
	// Exhausted is set when a budget ran out before the channel was fully
	// searched or collected.
	Exhausted bool
}

// Locator finds, per channel, the run of undelivered items newer than the
// cutoff. One Locator serves a single aggregation request; its budgets are
// shared by every channel it is asked about and it is safe for concurrent use.
// Search probes are charged to probes and collection reads to reads, so a
// request never reads more items than the two budgets allow together.
type Locator struct {
	store  types.ContentStore
	cutoff time.Time
	probes *Budget
	reads  *Budget
}

func NewLocator(store types.ContentStore, cutoff time.Time, probes, reads *Budget) *Locator {
	return &Locator{
		store:  store,
		cutoff: cutoff,
		probes: probes,
		reads:  reads,
	}
}

// probe is a resolved position of the newest-first view. An item whose
// document is gone, or could not be read, is not present.
type probe struct {
	id      string
	ts      time.Time
	present bool
}

// window is the newest-first view over one channel's sequence. Positions
// resolved during the search are kept so collection does not read them twice.
type window struct {
	seq  types.Sequence
	n    int
	seen map[int]probe
}

func (l *Locator) Locate(ctx context.Context, sub types.Subscription) (ChannelResult, error) {
	res := ChannelResult{Subscription: sub}
	if l.probes.Remaining() == 0 {
		res.Exhausted = true
		return res, nil
	}

	seq, err := l.store.ChannelSequence(ctx, sub.ChannelID)
	if errors.Is(err, types.ErrChannelNotFound) {
		logger.Debug("channel not found, skipping", "channel", sub.ChannelID)
		return res, nil
	}
	if err != nil {
		return res, err
	}

	w := &window{seq: seq, n: seq.Len(), seen: make(map[int]probe)}
	start := sub.ResumeIndex
	if start > w.n {
		logger.Warn("resume index beyond channel length", "channel", sub.ChannelID, "index", start, "length", w.n)
		start = w.n
	}

	end, exhausted, err := l.search(ctx, w, start)
	if err != nil {
		return res, err
	}
	if p, ok := w.seen[start]; end == start && ok && !p.present {
		next, skipExhausted, err := l.skipMissing(ctx, w, sub.ChannelID, start)
		if err != nil {
			return res, err
		}
		res.Subscription.ResumeIndex = next
		res.Exhausted = exhausted || skipExhausted
		return res, nil
	}

	entries, next, collectExhausted, err := l.collect(ctx, w, sub.ChannelID, start, end)
	if err != nil {
		return res, err
	}

	res.Entries = entries
	res.Subscription.ResumeIndex = next
	res.Exhausted = exhausted || collectExhausted
	logger.Trace("located channel window", "channel", sub.ChannelID, "length", w.n, "from", start, "to", next, "items", len(entries))
	return res, nil
}

// search returns the first position at or after start whose item is not newer
// than the cutoff. Timestamps never increase along the view, so everything in
// [start, end) is inside the window. If the probe budget runs out the
// returned end is the furthest position proven so far.
func (l *Locator) search(ctx context.Context, w *window, start int) (int, bool, error) {
	lo, hi := start, w.n-1
	for lo <= hi {
		m := lo + (hi-lo)/2
		p, err := l.resolve(ctx, w, m, l.probes)
		if errors.Is(err, errBudgetExhausted) {
			return lo, true, nil
		}
		if err != nil {
			return 0, false, err
		}

		if p.present && p.ts.After(l.cutoff) {
			lo = m + 1
		} else {
			hi = m - 1
		}
	}
	return lo, false, nil
}

// collect resolves [start, end) newest first. The returned position is where
// the next call must resume: past every position resolved here, absent items
// included, but never past one the read budget did not cover.
func (l *Locator) collect(ctx context.Context, w *window, channelID string, start, end int) ([]types.FeedEntry, int, bool, error) {
	entries := make([]types.FeedEntry, 0, end-start)
	next := start
	for r := start; r < end; r++ {
		p, err := l.resolve(ctx, w, r, l.reads)
		if errors.Is(err, errBudgetExhausted) {
			return entries, next, true, nil
		}
		if err != nil {
			return nil, start, false, err
		}

		next = r + 1
		if !p.present {
			logger.Debug("skipping missing item", "channel", channelID, "id", p.id, "position", r)
			continue
		}
		entries = append(entries, types.FeedEntry{
			ItemID:    p.id,
			ChannelID: channelID,
			CreatedAt: p.ts,
		})
	}
	return entries, next, false, nil
}

// skipMissing steps over the run of missing items starting at start, which
// the search can never get past on its own. Nothing is delivered; the
// returned position is the first readable item, or where the read budget ran
// out.
func (l *Locator) skipMissing(ctx context.Context, w *window, channelID string, start int) (int, bool, error) {
	next := start
	for next < w.n {
		p, err := l.resolve(ctx, w, next, l.reads)
		if errors.Is(err, errBudgetExhausted) {
			return next, true, nil
		}
		if err != nil {
			return start, false, err
		}
		if p.present {
			break
		}
		logger.Debug("skipping missing item", "channel", channelID, "id", p.id, "position", next)
		next++
	}
	return next, false, nil
}

// resolve reads position r, charging budget unless the position was already
// read during this call.
func (l *Locator) resolve(ctx context.Context, w *window, r int, budget *Budget) (probe, error) {
	if p, ok := w.seen[r]; ok {
		return p, nil
	}
	if !budget.Take() {
		return probe{}, errBudgetExhausted
	}

	id, err := w.seq.ItemID(ctx, w.n-1-r)
	if err != nil {
		if isFatal(ctx, err) {
			return probe{}, err
		}
		logger.Warn("failed to read item id, treating as missing", "position", r, "err", err)
		w.seen[r] = probe{}
		return probe{}, nil
	}

	p := probe{id: id}
	ts, err := l.store.ItemTimestamp(ctx, id)
	switch {
	case err == nil:
		p.ts = ts
		p.present = true
	case errors.Is(err, types.ErrItemNotFound):
	case isFatal(ctx, err):
		return probe{}, err
	default:
		logger.Warn("failed to read item, treating as missing", "id", id, "err", err)
	}
	w.seen[r] = p
	return p, nil
}

// isFatal reports whether err must fail the whole request rather than a
// single item.
func isFatal(ctx context.Context, err error) bool {
	return errors.Is(err, types.ErrStoreUnavailable) || ctx.Err() != nil
}
