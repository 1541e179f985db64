package segment

import (
	"context"
	"math/rand"
	"time"
)

// Backoff implements the randomized exponential backoff used by segment
// lock acquisition (spec.md §5): the wait interval is drawn uniformly
// from [0, 2^min(attempt,saturate)) units, with attempt incrementing on
// every Wait call. A fixed saturation exponent bounds the worst case
// wait, matching the reference design's exponent of 12.
type Backoff struct {
	saturate uint32
	attempt  uint32
	unit     time.Duration
	rng      *rand.Rand
}

// NewBackoff creates a Backoff that saturates at 2^saturate time units.
func NewBackoff(saturate uint32) *Backoff {
	return &Backoff{
		saturate: saturate,
		unit:     100 * time.Microsecond,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Reset zeroes the attempt counter, e.g. before backing off on a new
// segment in FindAndLockRewriteRegion.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Wait sleeps for a randomized interval that grows exponentially with
// the number of prior Wait calls, then bumps the attempt counter. If ctx
// is cancelled first, Wait returns ctx.Err() immediately so backoff
// loops stay cooperatively cancellable (spec.md §5).
func (b *Backoff) Wait(ctx context.Context) error {
	exp := b.attempt
	if exp > b.saturate {
		exp = b.saturate
	}
	max := int64(1) << exp
	d := time.Duration(b.rng.Int63n(max)) * b.unit
	b.attempt++

	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
