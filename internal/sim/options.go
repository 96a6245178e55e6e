package sim

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/cinema-ticket-simulator/internal/model"
)

const (
	DefaultTickInterval = time.Second
	DefaultPollInterval = 500 * time.Millisecond
	DefaultShowTime     = "10:00 AM"
)

// Params are the five scalars supplied by the configuration collaborator.
// The core does not validate them.
type Params struct {
	TotalTickets  int
	ReleaseRate   int
	RetrievalRate int
	MaxCapacity   int
	Screens       int
}

// PerVendorQuota is TotalTickets / Screens; the remainder is never
// produced.
func (p Params) PerVendorQuota() int {
	if p.Screens <= 0 {
		return 0
	}
	return p.TotalTickets / p.Screens
}

// PurchaseObserver is told about every successful withdrawal.  It is
// called synchronously from the customer goroutine and must not block for
// long.  The ticket is passed by value; the customer keeps ownership.
type PurchaseObserver interface {
	TicketPurchased(ctx context.Context, customer string, t model.Ticket)
}

// Options tune timing and side channels of a run.  Zero values take the
// defaults above.
type Options struct {
	TickInterval time.Duration    // pause between vendor/customer batches
	PollInterval time.Duration    // completion re-check when no change is signalled
	ShowTime     string           // show time stamped on every ticket
	Logger       *log.Logger      // narration; nil means log.Default()
	Observer     PurchaseObserver // optional
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = DefaultTickInterval
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ShowTime == "" {
		o.ShowTime = DefaultShowTime
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
