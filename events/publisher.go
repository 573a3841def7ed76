package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Routing keys on the task exchange.
const (
	TaskCreated   = "task.created"
	TaskAssigned  = "task.assigned"
	TaskResponded = "task.responded"
	TaskCanceled  = "task.canceled"
)

// TaskEvent is the JSON body published for every task lifecycle change.
type TaskEvent struct {
	Type       string    `json:"type"`
	TaskID     uint      `json:"taskId"`
	OrderID    string    `json:"orderId"`
	Status     string    `json:"status"`
	WorkerID   string    `json:"workerId,omitempty"`
	Action     string    `json:"action,omitempty"`
	WorkerIDs  []string  `json:"workerIds,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event TaskEvent) error
	Close() error
}

// AMQPPublisher publishes task events to a durable topic exchange.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	log      *zap.Logger
}

func NewAMQPPublisher(url, exchange string, log *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, log: log}, nil
}

// Publish is safe for concurrent use; amqp channels are not.
func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, event TaskEvent) error {
	if event.Type == "" {
		event.Type = routingKey
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		ContentType:  "application/json",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	p.log.Debug("task event published", zap.String("key", routingKey), zap.Uint("task_id", event.TaskID))
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher drops events; used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, TaskEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
