package sim

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/cinema-ticket-simulator/internal/model"
	"github.com/iliyamo/cinema-ticket-simulator/internal/pool"
)

func testOptions() Options {
	return Options{
		TickInterval: time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Logger:       log.New(io.Discard, "", 0),
	}
}

func runWithTimeout(t *testing.T, o *Orchestrator, d time.Duration) Report {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	r, err := o.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if r.Reason == ReasonCancelled {
		t.Fatalf("run did not finish within %s: %+v", d, r)
	}
	return r
}

// barrierProbe records whether any purchase happened before the barrier opened.
type barrierProbe struct {
	mu      sync.Mutex
	barrier *Barrier
	early   int
	seen    int
}

func (b *barrierProbe) TicketPurchased(_ context.Context, _ string, t model.Ticket) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen++
	if b.barrier.Pending() != 0 {
		b.early++
	}
	if t.Status != model.StatusBooked {
		b.early++
	}
}

func assertFIFO(t *testing.T, o *Orchestrator) {
	t.Helper()
	for _, c := range o.Customers() {
		for i, tk := range c.Purchased() {
			if tk.Screen != c.Screen() {
				t.Fatalf("%s bought ticket of screen %d", c.Name(), tk.Screen)
			}
			if want := model.SeatLabel(i + 1); tk.Seat != want {
				t.Fatalf("%s purchase %d: got %s, want %s", c.Name(), i, tk.Seat, want)
			}
		}
	}
}

func TestSingleScreenBlocksAtCapacity(t *testing.T) {
	o := New(Params{TotalTickets: 10, ReleaseRate: 2, RetrievalRate: 1, MaxCapacity: 5, Screens: 1}, testOptions())
	r := runWithTimeout(t, o, 10*time.Second)

	if r.Reason != ReasonSoldOut || !r.Exhausted || r.Remaining != 0 {
		t.Fatalf("unexpected report: %+v", r)
	}
	if got := o.Pool().GetRemainingTickets(1); got != 0 {
		t.Fatalf("screen 1 remaining %d, want 0", got)
	}
	if r.Screens[0].HighWater > 5 {
		t.Fatalf("high water %d exceeds capacity", r.Screens[0].HighWater)
	}
	assertFIFO(t, o)
}

func TestTwoScreensSplitEvenly(t *testing.T) {
	o := New(Params{TotalTickets: 6, ReleaseRate: 3, RetrievalRate: 3, MaxCapacity: 10, Screens: 2}, testOptions())
	r := runWithTimeout(t, o, 10*time.Second)

	if r.Reason != ReasonSoldOut {
		t.Fatalf("reason %s, want %s", r.Reason, ReasonSoldOut)
	}
	for _, s := range r.Screens {
		if s.Remaining != 0 || s.Produced != 3 || s.Sold != 3 {
			t.Fatalf("screen %d: %+v", s.Screen, s)
		}
	}
}

func TestUnevenSplitLeavesRemainder(t *testing.T) {
	o := New(Params{TotalTickets: 7, ReleaseRate: 3, RetrievalRate: 3, MaxCapacity: 10, Screens: 2}, testOptions())
	r := runWithTimeout(t, o, 10*time.Second)

	if r.Reason != ReasonProductionEnded {
		t.Fatalf("reason %s, want %s", r.Reason, ReasonProductionEnded)
	}
	if r.Remaining != 1 || r.Lost != 1 || r.Sold != 6 || r.Exhausted {
		t.Fatalf("unexpected report: %+v", r)
	}
	for _, s := range r.Screens {
		if s.Remaining != 0 {
			t.Fatalf("screen %d still has %d queued", s.Screen, s.Remaining)
		}
	}
}

func TestStressCapacityOne(t *testing.T) {
	opts := testOptions()
	probe := &barrierProbe{}
	opts.Observer = probe
	o := New(Params{TotalTickets: 400, ReleaseRate: 50, RetrievalRate: 50, MaxCapacity: 1, Screens: 4}, opts)
	probe.barrier = o.barrier

	r := runWithTimeout(t, o, 20*time.Second)
	if r.Reason != ReasonSoldOut {
		t.Fatalf("reason %s, want %s", r.Reason, ReasonSoldOut)
	}
	for _, s := range r.Screens {
		if s.HighWater > 1 {
			t.Fatalf("screen %d reached %d tickets with capacity 1", s.Screen, s.HighWater)
		}
		if s.Sold != 100 {
			t.Fatalf("screen %d sold %d, want 100", s.Screen, s.Sold)
		}
	}
	if probe.seen != 400 || probe.early != 0 {
		t.Fatalf("observer saw %d purchases, %d before barrier", probe.seen, probe.early)
	}
	assertFIFO(t, o)
}

func TestStopMidRunTerminates(t *testing.T) {
	opts := testOptions()
	opts.TickInterval = 20 * time.Millisecond
	// Capacity 1 and a slow tick keep vendors and customers parked in pool waits.
	o := New(Params{TotalTickets: 1000, ReleaseRate: 5, RetrievalRate: 1, MaxCapacity: 1, Screens: 3}, opts)

	done := make(chan Report, 1)
	go func() {
		r, _ := o.Run(context.Background())
		done <- r
	}()
	time.Sleep(60 * time.Millisecond)
	o.Stop()
	o.Stop()

	select {
	case r := <-done:
		if r.Reason != ReasonStopped {
			t.Fatalf("reason %s, want %s", r.Reason, ReasonStopped)
		}
		if r.Remaining == 0 {
			t.Fatalf("run should have been stopped before selling out: %+v", r)
		}
		if r.Remaining+r.Sold != r.TotalTickets {
			t.Fatalf("conservation broken: %+v", r)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tasks did not terminate after Stop")
	}
	if o.Running() {
		t.Fatal("orchestrator still reports running")
	}
	if _, ok := o.LastReport(); !ok {
		t.Fatal("missing last report")
	}
}

func TestContextCancelTerminates(t *testing.T) {
	o := New(Params{TotalTickets: 1000, ReleaseRate: 1, RetrievalRate: 1, MaxCapacity: 2, Screens: 2}, testOptions())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	r, err := o.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r.Reason != ReasonCancelled {
		t.Fatalf("reason %s, want %s", r.Reason, ReasonCancelled)
	}
	if _, err := o.Run(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second Run: got %v, want ErrAlreadyStarted", err)
	}
}

func TestStopBeforeRun(t *testing.T) {
	o := New(Params{TotalTickets: 10, ReleaseRate: 1, RetrievalRate: 1, MaxCapacity: 1, Screens: 1}, testOptions())
	o.Stop()
	r := runWithTimeout(t, o, 5*time.Second)
	if r.Reason != ReasonStopped {
		t.Fatalf("reason %s, want %s", r.Reason, ReasonStopped)
	}
}

func TestFewerTicketsThanScreens(t *testing.T) {
	o := New(Params{TotalTickets: 1, ReleaseRate: 1, RetrievalRate: 1, MaxCapacity: 1, Screens: 3}, testOptions())
	r := runWithTimeout(t, o, 5*time.Second)
	if r.Reason != ReasonProductionEnded || r.Lost != 1 || r.Sold != 0 {
		t.Fatalf("unexpected report: %+v", r)
	}
}

func TestVendorArrivesOnceWhenCancelledWhileBlocked(t *testing.T) {
	p := pool.New(1, log.New(io.Discard, "", 0))
	p.SetTotalTickets(10)
	b := NewBarrier(1)
	v := NewVendor(p, 1, 10, 5, b, testOptions())

	ctx, cancel := context.WithCancel(context.Background())
	exited := make(chan struct{})
	go func() {
		v.Run(ctx)
		close(exited)
	}()

	// Vendor fills the single slot, arrives, then parks in AddTicket.
	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("vendor did not arrive before blocking on capacity")
	}
	cancel()
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("vendor stayed parked after cancellation")
	}
	if v.Produced() != 1 {
		t.Fatalf("produced %d, want 1", v.Produced())
	}
	v.Stop()
	v.Stop()
}

func TestVendorArrivesWhenQuotaIsZero(t *testing.T) {
	p := pool.New(1, log.New(io.Discard, "", 0))
	p.SetTotalTickets(0)
	b := NewBarrier(2)
	for screen := 1; screen <= 2; screen++ {
		NewVendor(p, screen, 0, 1, b, testOptions()).Run(context.Background())
	}
	if b.Pending() != 0 {
		t.Fatalf("barrier pending %d, want 0", b.Pending())
	}
}

func TestCustomerWaitsForBarrier(t *testing.T) {
	p := pool.New(5, log.New(io.Discard, "", 0))
	p.SetTotalTickets(1)
	p.TryAddTicket(1, model.NewTicket(1, 1, DefaultShowTime))
	b := NewBarrier(1)
	c := NewCustomer(p, 1, 1, b, testOptions())

	done := make(chan struct{})
	go func() {
		c.Run(context.Background())
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	if len(c.Purchased()) != 0 {
		t.Fatal("customer bought before the barrier opened")
	}
	b.Arrive()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("customer did not finish after barrier opened")
	}
	if got := c.Purchased(); len(got) != 1 || got[0].Status != model.StatusBooked {
		t.Fatalf("unexpected purchases: %v", got)
	}
}

func TestBarrier(t *testing.T) {
	b := NewBarrier(2)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := b.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("closed barrier wait: got %v", err)
	}
	b.Arrive()
	b.Arrive()
	if err := b.Wait(context.Background()); err != nil {
		t.Fatalf("open barrier wait: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("extra arrival should panic")
		}
	}()
	b.Arrive()
}

func TestZeroBarrierIsOpen(t *testing.T) {
	select {
	case <-NewBarrier(0).Done():
	default:
		t.Fatal("zero-count barrier should start open")
	}
}
