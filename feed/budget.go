package feed

import "sync/atomic"

// Budget is a request-wide allowance of store reads shared by all channel
// workers of one aggregation.
type Budget struct {
	remaining atomic.Int64
}

func NewBudget(n int) *Budget {
	b := &Budget{}
	b.remaining.Store(int64(n))
	return b
}

// Take consumes one unit and reports whether one was available.
func (b *Budget) Take() bool {
	for {
		cur := b.remaining.Load()
		if cur <= 0 {
			return false
		}
		if b.remaining.CompareAndSwap(cur, cur-1) {
			return true
		}
	}
}

func (b *Budget) Remaining() int {
	return int(b.remaining.Load())
}
