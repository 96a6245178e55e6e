package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// PurchaseLogFile is the file name written inside the log directory.
const PurchaseLogFile = "purchases.log"

// StartPurchaseConsumer connects to RabbitMQ, declares the ticket.purchased
// queue (durable), and appends each message to <dir>/purchases.log in a
// single-line, human-friendly format.  It runs a reconnect loop with
// exponential backoff and only returns when ctx is cancelled; processing
// errors are logged and the offending message is rejected so the
// consumer keeps going.
func StartPurchaseConsumer(ctx context.Context, url, dir string) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(url)
        if err != nil {
            log.Printf("purchase-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = consumeLoop(ctx, conn, dir)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("purchase-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-t.C:
        return true
    case <-ctx.Done():
        return false
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, dir string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("purchase-consumer: set QoS failed: %v", err)
    }

    if _, err := ch.QueueDeclare(TicketPurchasedQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }

    msgs, err := ch.ConsumeWithContext(ctx, TicketPurchasedQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := HandlePurchase(dir, d.Body); err != nil {
            log.Printf("purchase-consumer: handle message failed: %v", err)
            _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

// HandlePurchase decodes one ticket.purchased body and appends it to the
// purchase log in dir.
func HandlePurchase(dir string, body []byte) error {
    var ev TicketPurchasedEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Seat == "" || ev.Screen <= 0 {
        return fmt.Errorf("incomplete event: screen=%d seat=%q", ev.Screen, ev.Seat)
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, PurchaseLogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(FormatPurchase(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatPurchase renders one log line, newline included.
func FormatPurchase(ev TicketPurchasedEvent) string {
    return fmt.Sprintf("[%s] Ticket purchased | run=%s | customer=%s | screen=%d | seat=%s | show=\"%s\" | status=%s\n",
        ev.PurchasedAt, ev.RunKey, ev.Customer, ev.Screen, ev.Seat, ev.ShowTime, ev.Status)
}
