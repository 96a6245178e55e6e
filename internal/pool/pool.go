// Package pool implements the shared ticket pool: one bounded FIFO queue
// of tickets per screen plus a global remaining counter, all guarded by a
// single pool-wide mutex.
//
// Waiting is done on a broadcast channel instead of sync.Cond so that
// every wait can also observe context cancellation.  The channel is
// closed and replaced on each state change; a woken waiter always
// re-checks its condition under the lock.
package pool

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/iliyamo/cinema-ticket-simulator/internal/model"
)

// TicketPool is safe for concurrent use by vendors, customers and the
// orchestrator.  The zero value is not usable; construct with New.
//
// Accounting: remaining is seeded by SetTotalTickets and decremented once
// per withdrawal.  Production never changes it, so
// remaining == total - withdrawn holds whenever no goroutine is inside a
// pool method, and remaining == 0 is the terminal exhaustion signal.
type TicketPool struct {
	mu          sync.Mutex
	queues      map[int][]*model.Ticket // screen -> FIFO queue, head at index 0
	maxCapacity int                     // per-screen queue bound
	total       int                     // configured total tickets
	remaining   int                     // total - withdrawn
	produced    map[int]int             // tickets ever enqueued per screen
	producedAll int                     // sum of produced
	withdrawn   map[int]int             // tickets ever withdrawn per screen
	highWater   map[int]int             // largest queue length observed per screen
	changed     chan struct{}           // closed and replaced on every state change
	logger      *log.Logger
}

// New returns an empty pool whose screens each hold at most maxCapacity
// tickets.  A nil logger falls back to the standard logger.
func New(maxCapacity int, logger *log.Logger) *TicketPool {
	if maxCapacity <= 0 {
		panic("pool: maxCapacity must be positive")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TicketPool{
		queues:      make(map[int][]*model.Ticket),
		maxCapacity: maxCapacity,
		produced:    make(map[int]int),
		withdrawn:   make(map[int]int),
		highWater:   make(map[int]int),
		changed:     make(chan struct{}),
		logger:      logger,
	}
}

// SetTotalTickets seeds the global remaining counter.  It must be called
// once, before any vendor or customer starts.
func (p *TicketPool) SetTotalTickets(n int) {
	if n < 0 {
		panic("pool: total tickets must not be negative")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = n
	p.remaining = n
	p.broadcastLocked()
}

// MaxCapacity returns the per-screen queue bound.
func (p *TicketPool) MaxCapacity() int { return p.maxCapacity }

// AddTicket appends t to the queue of screen, waiting while that queue is
// at capacity.  It returns ctx.Err() if the context is cancelled while
// waiting; in that case the ticket is not enqueued.
func (p *TicketPool) AddTicket(ctx context.Context, screen int, t *model.Ticket) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkInsertLocked(t)
	for len(p.queues[screen]) >= p.maxCapacity {
		if err := p.waitLocked(ctx); err != nil {
			return err
		}
	}
	p.enqueueLocked(screen, t)
	return nil
}

// TryAddTicket enqueues t only if the screen has free capacity right now.
// It reports whether the ticket was added.
func (p *TicketPool) TryAddTicket(screen int, t *model.Ticket) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkInsertLocked(t)
	if len(p.queues[screen]) >= p.maxCapacity {
		return false
	}
	p.enqueueLocked(screen, t)
	return true
}

// RemoveTicket withdraws the oldest ticket of screen and marks it Booked.
//
// When the queue is empty and the pool is exhausted it returns (nil, nil)
// without blocking.  When the queue is empty and tickets remain it waits
// until a ticket arrives for this screen or the pool becomes exhausted.
// A cancelled context unblocks the wait and returns (nil, ctx.Err()).
// Unknown screens behave as permanently empty queues.
func (p *TicketPool) RemoveTicket(ctx context.Context, screen int) (*model.Ticket, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queues[screen]) == 0 {
		if p.remaining == 0 {
			return nil, nil
		}
		if err := p.waitLocked(ctx); err != nil {
			return nil, err
		}
	}

	q := p.queues[screen]
	t := q[0]
	q[0] = nil
	p.queues[screen] = q[1:]

	if p.remaining <= 0 {
		panic("pool: remaining counter would go negative")
	}
	t.Status = model.StatusBooked
	p.remaining--
	p.withdrawn[screen]++
	if p.remaining == 0 {
		p.logger.Printf("pool: All tickets are sold out!")
	}
	p.broadcastLocked()
	return t, nil
}

// AreAllTicketsSold reports whether the global remaining counter is zero.
// Once true it stays true.
func (p *TicketPool) AreAllTicketsSold() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.remaining == 0
}

// GetRemainingTickets returns the current queue length of screen, or 0
// for a screen the pool has never seen.
func (p *TicketPool) GetRemainingTickets(screen int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queues[screen])
}

// Changed returns a channel that is closed at the next state change.
// Callers must fetch a fresh channel after each wake-up.
func (p *TicketPool) Changed() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.changed
}

// waitLocked releases the lock until the next state change or until ctx
// is done, then reacquires it.  Callers must re-validate their condition.
func (p *TicketPool) waitLocked(ctx context.Context) error {
	ch := p.changed
	p.mu.Unlock()
	defer p.mu.Lock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *TicketPool) broadcastLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *TicketPool) checkInsertLocked(t *model.Ticket) {
	if t == nil {
		panic("pool: nil ticket")
	}
	if t.Status == model.StatusBooked {
		panic("pool: booked ticket cannot re-enter the pool")
	}
}

func (p *TicketPool) enqueueLocked(screen int, t *model.Ticket) {
	if p.producedAll >= p.total {
		panic("pool: production exceeds total tickets")
	}
	q := append(p.queues[screen], t)
	if len(q) > p.maxCapacity {
		panic("pool: queue exceeds max capacity")
	}
	p.queues[screen] = q
	p.produced[screen]++
	p.producedAll++
	if len(q) > p.highWater[screen] {
		p.highWater[screen] = len(q)
	}
	p.broadcastLocked()
}

// ScreenStats is the per-screen part of a Stats snapshot.
type ScreenStats struct {
	Screen    int `json:"screen"`
	Queued    int `json:"queued"`
	Produced  int `json:"produced"`
	Withdrawn int `json:"withdrawn"`
	HighWater int `json:"high_water"`
}

// Stats is a consistent snapshot of the pool taken under its lock.
type Stats struct {
	MaxCapacity int           `json:"max_capacity"`
	Total       int           `json:"total_tickets"`
	Remaining   int           `json:"remaining"`
	Produced    int           `json:"produced"`
	Withdrawn   int           `json:"withdrawn"`
	SoldOut     bool          `json:"sold_out"`
	Screens     []ScreenStats `json:"screens"`
}

// Stats returns a snapshot of every screen the pool has seen, ordered by
// screen number.
func (p *TicketPool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	seen := make(map[int]struct{}, len(p.produced))
	for s := range p.queues {
		seen[s] = struct{}{}
	}
	for s := range p.produced {
		seen[s] = struct{}{}
	}
	screens := make([]int, 0, len(seen))
	for s := range seen {
		screens = append(screens, s)
	}
	sort.Ints(screens)

	st := Stats{
		MaxCapacity: p.maxCapacity,
		Total:       p.total,
		Remaining:   p.remaining,
		SoldOut:     p.remaining == 0,
		Screens:     make([]ScreenStats, 0, len(screens)),
	}
	for _, s := range screens {
		ss := ScreenStats{
			Screen:    s,
			Queued:    len(p.queues[s]),
			Produced:  p.produced[s],
			Withdrawn: p.withdrawn[s],
			HighWater: p.highWater[s],
		}
		st.Produced += ss.Produced
		st.Withdrawn += ss.Withdrawn
		st.Screens = append(st.Screens, ss)
	}
	return st
}

// Screen returns the stats of one screen; unknown screens are all zero.
func (p *TicketPool) Screen(screen int) ScreenStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ScreenStats{
		Screen:    screen,
		Queued:    len(p.queues[screen]),
		Produced:  p.produced[screen],
		Withdrawn: p.withdrawn[screen],
		HighWater: p.highWater[screen],
	}
}
