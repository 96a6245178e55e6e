package sim

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/cinema-ticket-simulator/internal/model"
	"github.com/iliyamo/cinema-ticket-simulator/internal/pool"
)

// Customer withdraws up to rate tickets per tick from one screen once the
// startup barrier has opened.
type Customer struct {
	name     string
	pool     *pool.TicketPool
	screen   int
	rate     int
	tick     time.Duration
	barrier  *Barrier
	logger   *log.Logger
	observer PurchaseObserver

	running   atomic.Bool
	mu        sync.Mutex
	purchased []*model.Ticket
}

// NewCustomer builds a customer buying from screen.
func NewCustomer(p *pool.TicketPool, screen, rate int, barrier *Barrier, opts Options) *Customer {
	opts = opts.withDefaults()
	c := &Customer{
		name:     fmt.Sprintf("Customer-Screen-%d", screen),
		pool:     p,
		screen:   screen,
		rate:     rate,
		tick:     opts.TickInterval,
		barrier:  barrier,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	c.running.Store(true)
	return c
}

// Name returns the task name, e.g. "Customer-Screen-1".
func (c *Customer) Name() string { return c.name }

// Screen returns the screen this customer buys from.
func (c *Customer) Screen() int { return c.screen }

// Stop asks the customer to exit at its next batch boundary.  Idempotent.
func (c *Customer) Stop() { c.running.Store(false) }

// Purchased returns the tickets bought so far, oldest first.
func (c *Customer) Purchased() []*model.Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.Ticket, len(c.purchased))
	copy(out, c.purchased)
	return out
}

// Run waits for the startup barrier and then buys until the pool is
// exhausted, Stop is called, or ctx is cancelled.
func (c *Customer) Run(ctx context.Context) {
	if err := c.barrier.Wait(ctx); err != nil {
		return
	}
	for c.active() {
		for i := 0; i < c.rate; i++ {
			if !c.active() {
				break
			}
			t, err := c.pool.RemoveTicket(ctx, c.screen)
			if err != nil {
				return
			}
			if t == nil {
				break
			}
			c.record(ctx, t)
		}
		if err := sleepCtx(ctx, c.tick); err != nil {
			return
		}
	}
}

func (c *Customer) active() bool {
	return c.running.Load() && !c.pool.AreAllTicketsSold()
}

func (c *Customer) record(ctx context.Context, t *model.Ticket) {
	c.mu.Lock()
	c.purchased = append(c.purchased, t)
	c.mu.Unlock()
	c.logger.Printf("%s: purchased %s", c.name, t)
	if c.observer != nil {
		c.observer.TicketPurchased(ctx, c.name, *t)
	}
}
