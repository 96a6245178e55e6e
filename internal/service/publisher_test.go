package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-ticket-simulator/internal/model"
	"github.com/iliyamo/cinema-ticket-simulator/internal/queue"
	"github.com/iliyamo/cinema-ticket-simulator/internal/sim"
)

type fakeChannel struct {
	mu        sync.Mutex
	declared  []string
	published map[string][][]byte
	block     chan struct{} // when non-nil, publishes wait on it
	failWith  error
	closed    bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{published: map[string][][]byte{}}
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declared = append(f.declared, name)
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.published[key] = append(f.published[key], msg.Body)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.published[key])
}

func TestPublisherFlushesPurchasesOnClose(t *testing.T) {
	ch := newFakeChannel()
	p, err := newPublisher(ch, nil, "run-1", 16)
	if err != nil {
		t.Fatal(err)
	}
	if len(ch.declared) != 2 {
		t.Fatalf("declared %v", ch.declared)
	}
	tk := model.NewTicket(2, 5, "10:00 AM")
	tk.Status = model.StatusBooked
	for i := 0; i < 5; i++ {
		p.TicketPurchased(context.Background(), "Customer-Screen-2", *tk)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if n := ch.count(queue.TicketPurchasedQueue); n != 5 {
		t.Fatalf("published %d purchase events, want 5", n)
	}
	var ev queue.TicketPurchasedEvent
	if err := json.Unmarshal(ch.published[queue.TicketPurchasedQueue][0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.RunKey != "run-1" || ev.Seat != "Seat-5" || ev.Screen != 2 || ev.Status != "Booked" {
		t.Fatalf("unexpected event %+v", ev)
	}
	if !ch.closed {
		t.Fatal("channel not closed")
	}

	p.TicketPurchased(context.Background(), "late", *tk)
	if p.Dropped() != 1 {
		t.Fatalf("dropped %d, want 1 after close", p.Dropped())
	}
	if err := p.PublishRunCompleted(context.Background(), queue.RunCompletedEvent{}); !errors.Is(err, ErrPublisherClosed) {
		t.Fatalf("got %v, want ErrPublisherClosed", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestPublisherDropsWhenBufferFull(t *testing.T) {
	ch := newFakeChannel()
	ch.block = make(chan struct{})
	p, err := newPublisher(ch, nil, "run-2", 1)
	if err != nil {
		t.Fatal(err)
	}
	tk := *model.NewTicket(1, 1, "")
	// The loop takes the first event and blocks publishing it, the second
	// fills the buffer, so the rest must be dropped.
	deadline := time.Now().Add(time.Second)
	for p.Dropped() == 0 && time.Now().Before(deadline) {
		p.TicketPurchased(context.Background(), "c", tk)
	}
	if p.Dropped() == 0 {
		t.Fatal("expected dropped events with a full buffer")
	}
	close(ch.block)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestPublishRunCompletedStampsKey(t *testing.T) {
	ch := newFakeChannel()
	p, err := newPublisher(ch, nil, "run-3", 4)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	if err := p.PublishRunCompleted(context.Background(), queue.RunCompletedEvent{Reason: "sold-out"}); err != nil {
		t.Fatal(err)
	}
	var ev queue.RunCompletedEvent
	if err := json.Unmarshal(ch.published[queue.RunCompletedQueue][0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.RunKey != "run-3" || ev.Reason != "sold-out" {
		t.Fatalf("unexpected event %+v", ev)
	}

	ch.failWith = errors.New("broker gone")
	if err := p.PublishRunCompleted(context.Background(), queue.RunCompletedEvent{}); err == nil {
		t.Fatal("expected publish error")
	}
	if p.Failed() != 1 {
		t.Fatalf("failed %d, want 1", p.Failed())
	}
}

func TestReportConversions(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := sim.Report{
		Reason: sim.ReasonProductionEnded, TotalTickets: 7, Remaining: 1, Sold: 6, Lost: 1,
		Screens: []sim.ScreenReport{
			{Screen: 1, Produced: 3, Sold: 3, HighWater: 3},
			{Screen: 2, Produced: 3, Sold: 3, HighWater: 2},
		},
		StartedAt: now, FinishedAt: now.Add(time.Minute),
	}
	p := sim.Params{TotalTickets: 7, ReleaseRate: 3, RetrievalRate: 3, MaxCapacity: 10, Screens: 2}

	run := RunFromReport("k", p, r)
	if run.RunKey != "k" || run.Reason != "production-ended" || run.Lost != 1 || run.MaxCapacity != 10 || len(run.ScreenResults) != 2 {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.ScreenResults[1].HighWater != 2 {
		t.Fatalf("screen 2: %+v", run.ScreenResults[1])
	}

	ev := RunCompletedFromReport("k", r)
	if ev.FinishedAt != "2026-01-02T03:05:05Z" || len(ev.Screens) != 2 || ev.Screens[0].Sold != 3 {
		t.Fatalf("unexpected event %+v", ev)
	}
}
