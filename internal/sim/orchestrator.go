// Package sim runs the ticket simulation: one vendor and one customer
// goroutine per screen around a shared pool.TicketPool, a startup barrier
// that holds customers back until every vendor has begun, and a
// cooperative shutdown that leaves the pool consistent for reporting.
package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-ticket-simulator/internal/pool"
)

// ErrAlreadyStarted is returned by Run on an orchestrator that already ran.
var ErrAlreadyStarted = errors.New("sim: orchestrator already started")

// Reason records why a run ended.
type Reason string

const (
	ReasonSoldOut         Reason = "sold-out"         // remaining reached zero
	ReasonProductionEnded Reason = "production-ended" // vendors finished, queues drained, tickets left unassigned
	ReasonStopped         Reason = "stopped"          // Stop was called
	ReasonCancelled       Reason = "cancelled"        // caller context ended
)

// ScreenReport is the final state of one screen.
type ScreenReport struct {
	Screen    int `json:"screen"`
	Remaining int `json:"remaining"` // tickets still queued
	Produced  int `json:"produced"`
	Sold      int `json:"sold"`
	HighWater int `json:"high_water"`
}

// Report is produced once, after every task goroutine has exited.
type Report struct {
	Reason       Reason         `json:"reason"`
	TotalTickets int            `json:"total_tickets"`
	Remaining    int            `json:"remaining"` // global counter: total minus sold
	Sold         int            `json:"sold"`
	Lost         int            `json:"lost"` // tickets no vendor was assigned
	Exhausted    bool           `json:"exhausted"`
	Screens      []ScreenReport `json:"screens"`
	StartedAt    time.Time      `json:"started_at"`
	FinishedAt   time.Time      `json:"finished_at"`
}

// Orchestrator wires the pool, vendors and customers of one run.
type Orchestrator struct {
	params    Params
	opts      Options
	pool      *pool.TicketPool
	barrier   *Barrier
	vendors   []*Vendor
	customers []*Customer

	stopOnce sync.Once
	stopCh   chan struct{}

	mu      sync.Mutex
	started bool
	report  *Report
}

// New builds the pool and one vendor/customer pair per screen.  Nothing
// runs until Run is called.
func New(params Params, opts Options) *Orchestrator {
	opts = opts.withDefaults()
	p := pool.New(params.MaxCapacity, opts.Logger)
	p.SetTotalTickets(params.TotalTickets)

	o := &Orchestrator{
		params:  params,
		opts:    opts,
		pool:    p,
		barrier: NewBarrier(params.Screens),
		stopCh:  make(chan struct{}),
	}
	quota := params.PerVendorQuota()
	for screen := 1; screen <= params.Screens; screen++ {
		o.vendors = append(o.vendors, NewVendor(p, screen, quota, params.ReleaseRate, o.barrier, opts))
		o.customers = append(o.customers, NewCustomer(p, screen, params.RetrievalRate, o.barrier, opts))
	}
	return o
}

// Pool exposes the shared pool for live inspection.
func (o *Orchestrator) Pool() *pool.TicketPool { return o.pool }

// Stats is a snapshot of the pool, safe to call while the run is live.
func (o *Orchestrator) Stats() pool.Stats { return o.pool.Stats() }

// Params returns the parameters the run was built with.
func (o *Orchestrator) Params() Params { return o.params }

// Vendors returns the vendor tasks, ordered by screen.
func (o *Orchestrator) Vendors() []*Vendor { return o.vendors }

// Customers returns the customer tasks, ordered by screen.
func (o *Orchestrator) Customers() []*Customer { return o.customers }

// Stop ends a running simulation early.  Safe to call at any time and more
// than once; a Stop before Run makes Run shut down immediately.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
}

// LastReport returns the report of a finished run.
func (o *Orchestrator) LastReport() (Report, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.report == nil {
		return Report{}, false
	}
	return *o.report, true
}

// Running reports whether Run has started and not yet produced a report.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.started && o.report == nil
}

// Run starts every task, waits for the run to end, shuts the tasks down
// and returns the final report.  It may only be called once.
func (o *Orchestrator) Run(ctx context.Context) (Report, error) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return Report{}, ErrAlreadyStarted
	}
	o.started = true
	o.mu.Unlock()

	startedAt := time.Now().UTC()
	logger := o.opts.Logger
	logger.Printf("orchestrator: starting %d screens, %d tickets per vendor", o.params.Screens, o.params.PerVendorQuota())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	var vendorWG sync.WaitGroup
	for _, v := range o.vendors {
		vendorWG.Add(1)
		g.Go(func() error {
			defer vendorWG.Done()
			v.Run(gctx)
			return nil
		})
	}
	for _, c := range o.customers {
		g.Go(func() error {
			c.Run(gctx)
			return nil
		})
	}
	vendorsDone := make(chan struct{})
	go func() {
		vendorWG.Wait()
		close(vendorsDone)
	}()

	reason := o.awaitCompletion(ctx, vendorsDone)
	logger.Printf("orchestrator: run ended (%s), shutting down", reason)

	for _, v := range o.vendors {
		v.Stop()
	}
	for _, c := range o.customers {
		c.Stop()
	}
	cancel()
	_ = g.Wait()

	report := o.buildReport(reason, startedAt)
	o.mu.Lock()
	o.report = &report
	o.mu.Unlock()
	return report, nil
}

// awaitCompletion blocks until the run is over.  The pool's change
// channel is the primary wake-up; the poll ticker only covers a missed
// notification.
func (o *Orchestrator) awaitCompletion(ctx context.Context, vendorsDone <-chan struct{}) Reason {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	vendorsFinished := false
	for {
		changed := o.pool.Changed()
		if o.pool.AreAllTicketsSold() {
			return ReasonSoldOut
		}
		if vendorsFinished && o.drained() {
			return ReasonProductionEnded
		}
		select {
		case <-changed:
		case <-vendorsDone:
			vendorsFinished = true
			vendorsDone = nil
		case <-ticker.C:
		case <-o.stopCh:
			return ReasonStopped
		case <-ctx.Done():
			return ReasonCancelled
		}
	}
}

// drained reports whether every produced ticket has been sold.
func (o *Orchestrator) drained() bool {
	st := o.pool.Stats()
	return st.Produced == st.Withdrawn
}

func (o *Orchestrator) buildReport(reason Reason, startedAt time.Time) Report {
	st := o.pool.Stats()
	r := Report{
		Reason:       reason,
		TotalTickets: st.Total,
		Remaining:    st.Remaining,
		Sold:         st.Withdrawn,
		Lost:         o.params.TotalTickets - o.params.PerVendorQuota()*o.params.Screens,
		Exhausted:    st.SoldOut,
		Screens:      make([]ScreenReport, 0, o.params.Screens),
		StartedAt:    startedAt,
		FinishedAt:   time.Now().UTC(),
	}
	for screen := 1; screen <= o.params.Screens; screen++ {
		s := o.pool.Screen(screen)
		r.Screens = append(r.Screens, ScreenReport{
			Screen:    screen,
			Remaining: o.pool.GetRemainingTickets(screen),
			Produced:  s.Produced,
			Sold:      s.Withdrawn,
			HighWater: s.HighWater,
		})
	}
	return r
}
