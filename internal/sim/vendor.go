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

// Vendor releases tickets for one screen in batches of rate tickets per
// tick until its quota is met, the pool is exhausted, or it is stopped.
//
// Whatever the exit path, a vendor arrives at the startup barrier exactly
// once: after its first batch, right before its first capacity wait, or
// when Run returns.
type Vendor struct {
	name     string
	pool     *pool.TicketPool
	screen   int
	quota    int
	rate     int
	showTime string
	tick     time.Duration
	barrier  *Barrier
	logger   *log.Logger

	running  atomic.Bool
	produced atomic.Int64
	arrived  sync.Once
}

// NewVendor builds a vendor for screen that will release quota tickets.
func NewVendor(p *pool.TicketPool, screen, quota, rate int, barrier *Barrier, opts Options) *Vendor {
	opts = opts.withDefaults()
	v := &Vendor{
		name:     fmt.Sprintf("Vendor-%d", screen),
		pool:     p,
		screen:   screen,
		quota:    quota,
		rate:     rate,
		showTime: opts.ShowTime,
		tick:     opts.TickInterval,
		barrier:  barrier,
		logger:   opts.Logger,
	}
	v.running.Store(true)
	return v
}

// Name returns the task name, e.g. "Vendor-1".
func (v *Vendor) Name() string { return v.name }

// Screen returns the screen this vendor feeds.
func (v *Vendor) Screen() int { return v.screen }

// Produced returns how many tickets this vendor has enqueued so far.
func (v *Vendor) Produced() int { return int(v.produced.Load()) }

// Stop asks the vendor to exit at its next batch boundary.  It is safe
// to call any number of times, also after Run returned.
func (v *Vendor) Stop() { v.running.Store(false) }

// Run is the vendor loop.  It returns when the quota is reached, the pool
// is exhausted, Stop was called, or ctx is cancelled.
func (v *Vendor) Run(ctx context.Context) {
	defer v.arrive()
	for v.active() && v.Produced() < v.quota {
		if err := v.releaseBatch(ctx); err != nil {
			v.logger.Printf("%s: interrupted after %d tickets: %v", v.name, v.Produced(), err)
			return
		}
		v.arrive()
		if v.Produced() >= v.quota {
			break
		}
		if err := sleepCtx(ctx, v.tick); err != nil {
			return
		}
	}
	v.logger.Printf("%s: done, released %d/%d tickets", v.name, v.Produced(), v.quota)
}

func (v *Vendor) active() bool {
	return v.running.Load() && !v.pool.AreAllTicketsSold()
}

// releaseBatch enqueues up to rate tickets.  A full screen ends the batch
// after one blocking insert.
func (v *Vendor) releaseBatch(ctx context.Context) error {
	for i := 0; i < v.rate && v.Produced() < v.quota; i++ {
		if !v.active() {
			return nil
		}
		t := model.NewTicket(v.screen, v.Produced()+1, v.showTime)
		if v.pool.TryAddTicket(v.screen, t) {
			v.produced.Add(1)
			v.logger.Printf("%s: Added %s to Screen %d", v.name, t, v.screen)
			continue
		}

		v.logger.Printf("%s: Screen %d has reached max capacity. Vendor waiting...", v.name, v.screen)
		v.arrive()
		if err := v.pool.AddTicket(ctx, v.screen, t); err != nil {
			return err
		}
		v.produced.Add(1)
		v.logger.Printf("%s: Added %s to Screen %d", v.name, t, v.screen)
		return nil
	}
	return nil
}

func (v *Vendor) arrive() {
	v.arrived.Do(v.barrier.Arrive)
}
