package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends rental events to the rental.events queue.  The connection
// is opened lazily and reopened after a failure; it is safe for concurrent
// use.
type Publisher struct {
    url   string
    queue string

    // dialTimeout bounds the TCP connect and AMQP handshake; Publish holds
    // mu while dialing.
    dialTimeout time.Duration

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

const defaultDialTimeout = 2 * time.Second

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher {
    return &Publisher{url: url, queue: RentalEventsQueue, dialTimeout: defaultDialTimeout}
}

// Publish marshals ev and publishes it as a persistent message.
func (p *Publisher) Publish(ctx context.Context, ev RentalEvent) error {
    body, err := json.Marshal(ev)
    if err != nil {
        return fmt.Errorf("marshal event: %w", err)
    }

    p.mu.Lock()
    defer p.mu.Unlock()

    ch, err := p.channel()
    if err != nil {
        return err
    }
    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         ev.Type,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        p.reset()
        return fmt.Errorf("publish: %w", err)
    }
    return nil
}

// channel returns an open channel, dialing and declaring the queue when
// needed.  Callers hold p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    p.reset()
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
        Dial:      amqp.DefaultDial(p.dialTimeout),
    })
    if err != nil {
        return nil, fmt.Errorf("dial broker: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, fmt.Errorf("channel open: %w", err)
    }
    // durable so events survive broker restarts
    if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return nil, fmt.Errorf("queue declare: %w", err)
    }
    p.conn, p.ch = conn, ch
    return ch, nil
}

func (p *Publisher) reset() {
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        _ = p.conn.Close()
        p.conn = nil
    }
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.reset()
    return nil
}
