package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"dinepos/m/domain"
)

// ExchangeName is the fanout exchange order events are published to.
const ExchangeName = "dinepos_orders_fanout"

// StatusEvent is emitted whenever an order changes status.
type StatusEvent struct {
	OrderID     int64              `json:"order_id"`
	OrderNumber string             `json:"order_number"`
	OrderType   domain.OrderType   `json:"order_type"`
	From        domain.OrderStatus `json:"old_status"`
	To          domain.OrderStatus `json:"new_status"`
	ChangedBy   *int64             `json:"changed_by,omitempty"`
	ChangedAt   time.Time          `json:"timestamp"`
}

type Publisher interface {
	PublishStatus(ctx context.Context, evt StatusEvent) error
	Close() error
}

// Nop discards events. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishStatus(context.Context, StatusEvent) error { return nil }
func (Nop) Close() error                                     { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []StatusEvent
}

func (r *Recorder) PublishStatus(_ context.Context, evt StatusEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []StatusEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StatusEvent(nil), r.events...)
}

// AMQP publishes events to a RabbitMQ fanout exchange.
type AMQP struct {
	conn   *amqp.Connection
	mu     sync.Mutex
	ch     *amqp.Channel
	logger zerolog.Logger
}

func DialAMQP(url string, logger zerolog.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		ExchangeName,
		"fanout",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQP{conn: conn, ch: ch, logger: logger}, nil
}

func (p *AMQP) PublishStatus(ctx context.Context, evt StatusEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		ExchangeName,
		"",
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    evt.ChangedAt,
		})
	if err != nil {
		return fmt.Errorf("publish status event: %w", err)
	}
	p.logger.Debug().Int64("order_id", evt.OrderID).Str("status", string(evt.To)).Msg("status event published")
	return nil
}

func (p *AMQP) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
