package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "go.uber.org/zap"
)

// LogFile is the file, under Consumer.LogDir, that consumed events are
// appended to.
const LogFile = "booking.log"

const maxBackoff = 30 * time.Second

// Consumer listens to the booking queues and writes one line per event to
// LogDir/booking.log.
type Consumer struct {
    URL    string
    LogDir string
    Log    *zap.Logger

    mu sync.Mutex // serialises appends to the log file
}

// NewConsumer returns a consumer writing to logDir ("logs" when empty).
func NewConsumer(url, logDir string, log *zap.Logger) *Consumer {
    if logDir == "" {
        logDir = "logs"
    }
    if log == nil {
        log = zap.NewNop()
    }
    return &Consumer{URL: url, LogDir: logDir, Log: log}
}

// Run connects to the broker, declares both queues and consumes until ctx is
// cancelled.  Broker failures are retried with exponential backoff; Run only
// returns once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(c.URL)
        if err != nil {
            c.Log.Warn("booking-consumer: failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            backoff = min(backoff*2, maxBackoff)
            continue
        }
        backoff = time.Second // reset after successful connect

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.Log.Warn("booking-consumer: consume loop ended; reconnecting", zap.Error(err))
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.Log.Warn("booking-consumer: set QoS failed", zap.Error(err))
    }

    confirmed, err := subscribe(ch, BookingConfirmedQueue)
    if err != nil {
        return err
    }
    reconcile, err := subscribe(ch, BookingReconcileQueue)
    if err != nil {
        return err
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-confirmed:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.settle(d, BookingConfirmedQueue)
        case d, ok := <-reconcile:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            c.settle(d, BookingReconcileQueue)
        }
    }
}

func subscribe(ch *amqp.Channel, queue string) (<-chan amqp.Delivery, error) {
    if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
        return nil, fmt.Errorf("queue declare %s: %w", queue, err)
    }
    msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
    if err != nil {
        return nil, fmt.Errorf("queue consume %s: %w", queue, err)
    }
    return msgs, nil
}

func (c *Consumer) settle(d amqp.Delivery, queue string) {
    if err := c.handleMessage(queue, d.Body); err != nil {
        c.Log.Error("booking-consumer: handle message failed",
            zap.String("queue", queue), zap.String("message_id", d.MessageId), zap.Error(err))
        _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
        return
    }
    _ = d.Ack(false)
}

func (c *Consumer) handleMessage(queue string, body []byte) error {
    var line string
    switch queue {
    case BookingConfirmedQueue:
        var ev BookingConfirmedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        line = formatConfirmed(ev)
    case BookingReconcileQueue:
        var ev ReconcileEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        line = formatReconcile(ev)
    default:
        return fmt.Errorf("unknown queue %q", queue)
    }
    return c.appendLine(line)
}

func (c *Consumer) appendLine(line string) error {
    c.mu.Lock()
    defer c.mu.Unlock()

    if err := os.MkdirAll(c.LogDir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(c.LogDir, LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatConfirmed(ev BookingConfirmedEvent) string {
    return fmt.Sprintf("[%s] Booking confirmed | booking_id=%d | show_id=%d | user=%q | movie=%q | location=%q | show_time=%q | hall=%s | tickets=%d %s | popcorn=%d | total=%s %s\n",
        ev.ConfirmedAt, ev.BookingID, ev.ShowID, ev.UserEmail, ev.MovieName, ev.Location, ev.ShowTime,
        ev.HallType, ev.TicketQuantity, ev.TicketType, ev.PopcornQuantity, ev.Total, ev.Currency)
}

func formatReconcile(ev ReconcileEvent) string {
    return fmt.Sprintf("[%s] Booking needs reconcile | show_id=%d | user=%q | quantity=%d | total=%s | compensated=%t | reason=%q\n",
        ev.OccurredAt, ev.ShowID, ev.UserEmail, ev.Quantity, ev.Total, ev.Compensated, ev.Reason)
}

// sleep waits for d or until ctx is done; it reports whether d elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
