package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "strconv"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// StartRentalConsumer consumes the rental.events queue and appends one line
// per event to logPath.  It reconnects with exponential backoff and only
// returns once ctx is cancelled.  Messages that cannot be handled are
// rejected without requeue so a bad payload does not loop.
func StartRentalConsumer(ctx context.Context, url, logPath string) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            slog.Warn("rental-consumer: dial failed", "err", err, "retry_in", backoff.String())
            if !sleepCtx(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, logPath)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        slog.Warn("rental-consumer: consume loop ended, reconnecting", "err", err)
        if !sleepCtx(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        slog.Warn("rental-consumer: set QoS failed", "err", err)
    }
    if _, err := ch.QueueDeclare(RentalEventsQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(RentalEventsQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(d.Body, logPath); err != nil {
                slog.Error("rental-consumer: handle message failed", "err", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(body []byte, logPath string) error {
    var ev RentalEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir: %w", err)
    }
    f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(FormatEventLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

// FormatEventLine renders ev as a single newline terminated log line.
func FormatEventLine(ev RentalEvent) string {
    ids := make([]string, 0, len(ev.MovieIDs))
    for _, id := range ev.MovieIDs {
        ids = append(ids, strconv.FormatUint(id, 10))
    }
    line := fmt.Sprintf("[%s] %s | rental_id=%d | user_id=%d | movies=[%s] | end_date=%s",
        ev.OccurredAt, ev.Type, ev.RentalID, ev.UserID, strings.Join(ids, ","), ev.EndDate)
    if ev.ClosingDate != "" {
        line += " | closed=" + ev.ClosingDate
    }
    if ev.Type != EventRentalCreated {
        line += fmt.Sprintf(" | fee=%d cents", ev.FeeCents)
    }
    return line + "\n"
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
