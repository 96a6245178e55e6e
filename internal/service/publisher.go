// Package service connects the simulation to the outside world: it
// publishes purchase and run events to RabbitMQ and converts final
// reports into stored runs.  Broker errors are logged and returned but
// never interrupt a running simulation.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cinema-ticket-simulator/internal/model"
	"github.com/iliyamo/cinema-ticket-simulator/internal/queue"
)

// DefaultBuffer is how many purchase events may wait for the broker
// before new ones are dropped.
const DefaultBuffer = 1024

// ErrPublisherClosed is returned when publishing after Close.
var ErrPublisherClosed = errors.New("publisher closed")

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher keeps one broker connection for the whole run.  Purchase
// events are handed to a background goroutine through a bounded buffer so
// customers never wait on the network; when the buffer is full the event
// is dropped and counted.
type Publisher struct {
	runKey string
	ch     amqpChannel
	conn   io.Closer

	pubMu sync.Mutex // *amqp.Channel is not safe for concurrent publishes

	mu     sync.RWMutex
	closed bool
	events chan queue.TicketPurchasedEvent
	done   chan struct{}

	dropped atomic.Int64
	failed  atomic.Int64
}

// Dial connects to url and declares the event queues.  runKey is stamped
// on every event.
func Dial(url, runKey string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		_ = conn.Close()
		return nil, err
	}
	p, err := newPublisher(ch, conn, runKey, DefaultBuffer)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func newPublisher(ch amqpChannel, conn io.Closer, runKey string, buffer int) (*Publisher, error) {
	// Ensure the queues exist (idempotent). Durable so messages survive broker restarts.
	for _, name := range []string{queue.TicketPurchasedQueue, queue.RunCompletedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			log.Printf("rabbitmq: queue declare %s failed: %v", name, err)
			return nil, err
		}
	}
	p := &Publisher{
		runKey: runKey,
		ch:     ch,
		conn:   conn,
		events: make(chan queue.TicketPurchasedEvent, buffer),
		done:   make(chan struct{}),
	}
	go p.loop()
	return p, nil
}

// TicketPurchased queues a ticket.purchased event without blocking.
func (p *Publisher) TicketPurchased(_ context.Context, customer string, t model.Ticket) {
	ev := queue.TicketPurchasedEvent{
		RunKey:      p.runKey,
		Customer:    customer,
		Screen:      t.Screen,
		Seat:        t.Seat,
		ShowTime:    t.ShowTime,
		Status:      string(t.Status),
		PurchasedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
	}
}

// PublishRunCompleted sends the final report synchronously.
func (p *Publisher) PublishRunCompleted(ctx context.Context, ev queue.RunCompletedEvent) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return ErrPublisherClosed
	}
	ev.RunKey = p.runKey
	return p.publish(ctx, queue.RunCompletedQueue, ev)
}

// Dropped returns how many purchase events were not queued.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Failed returns how many publishes the broker rejected.
func (p *Publisher) Failed() int64 { return p.failed.Load() }

// Close flushes queued purchase events and closes the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.done
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (p *Publisher) loop() {
	defer close(p.done)
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = p.publish(ctx, queue.TicketPurchasedQueue, ev)
		cancel()
	}
}

func (p *Publisher) publish(ctx context.Context, routingKey string, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	p.pubMu.Lock()
	defer p.pubMu.Unlock()
	if err := p.ch.PublishWithContext(ctx,
		"",         // default exchange
		routingKey, // routing key = queue name
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		p.failed.Add(1)
		log.Printf("rabbitmq: publish to %s failed: %v", routingKey, err)
		return err
	}
	return nil
}
