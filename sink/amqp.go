package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hxri-nxrxyxn/eyetap/domain"
)

type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQP publishes events as JSON to a queue through the default exchange.
type AMQP struct {
	channel amqpPublisher
	queue   string
	mu      sync.Mutex
}

func NewAMQP(ch amqpPublisher, queue string) *AMQP {
	return &AMQP{channel: ch, queue: queue}
}

func (a *AMQP) Publish(ctx context.Context, ev domain.GazeEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing.
	a.mu.Lock()
	defer a.mu.Unlock()

	err = a.channel.PublishWithContext(ctx,
		"",
		a.queue,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Timestamp:   time.UnixMilli(ev.ReceivedAt),
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp publish to %s: %w", a.queue, err)
	}
	return nil
}

// DialAMQP connects with retries, opens a channel and declares a durable
// queue.
func DialAMQP(ctx context.Context, url, queue string, attempts int, backoff time.Duration) (*amqp.Connection, *amqp.Channel, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 0; i < attempts; i++ {
		if conn, err = amqp.Dial(url); err == nil {
			break
		}
		slog.Warn("failed to connect to rabbitmq, retrying", "attempt", i+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if conn == nil {
		return nil, nil, fmt.Errorf("could not connect to rabbitmq after %d attempts: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return conn, ch, nil
}
