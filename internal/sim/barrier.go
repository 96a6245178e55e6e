package sim

import (
	"context"
	"sync"
)

// Barrier is a one-shot countdown: it opens when Arrive has been called
// count times and stays open afterwards.  Waiters block on a channel that
// is closed exactly once.
type Barrier struct {
	mu      sync.Mutex
	pending int
	open    chan struct{}
}

// NewBarrier returns a barrier expecting count arrivals.  A barrier with
// count <= 0 is open from the start.
func NewBarrier(count int) *Barrier {
	b := &Barrier{pending: count, open: make(chan struct{})}
	if count <= 0 {
		b.pending = 0
		close(b.open)
	}
	return b
}

// Arrive counts down by one.  Arriving at an already open barrier is a
// programming error.
func (b *Barrier) Arrive() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == 0 {
		panic("sim: barrier arrival after it opened")
	}
	b.pending--
	if b.pending == 0 {
		close(b.open)
	}
}

// Pending returns how many arrivals are still missing.
func (b *Barrier) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending
}

// Done returns a channel closed once the barrier opens.
func (b *Barrier) Done() <-chan struct{} { return b.open }

// Wait blocks until the barrier opens or ctx is done.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
