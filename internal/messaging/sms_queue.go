// Package messaging publishes outbound patient messages to RabbitMQ, where a
// separate gateway worker delivers them.
package messaging

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// SMSMessage is the queue payload consumed by the SMS gateway.
type SMSMessage struct {
	To             string `json:"to"`
	Body           string `json:"body"`
	AppointmentKey string `json:"appointmentKey"`
	// IdempotencyKey lets the gateway drop redeliveries of the same message.
	IdempotencyKey string `json:"idempotencyKey"`
}

type SMSQueue struct {
	mu      sync.Mutex
	channel *amqp091.Channel
	queue   string
	log     *zap.Logger
}

func NewSMSQueue(conn *amqp091.Connection, queue string, log *zap.Logger) (*SMSQueue, error) {
	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &SMSQueue{channel: channel, queue: queue, log: log}, nil
}

func (q *SMSQueue) Publish(ctx context.Context, msg SMSMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		MessageId:    msg.IdempotencyKey,
		Headers: amqp091.Table{
			"message_type": "JSON",
		},
	}

	// amqp091 channels are not safe for concurrent publishing.
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.channel.PublishWithContext(ctx, "", q.queue, false, false, publishing); err != nil {
		return fmt.Errorf("publish to %s: %w", q.queue, err)
	}
	q.log.Debug("SMS queued", zap.String("queue", q.queue), zap.String("appointmentKey", msg.AppointmentKey))
	return nil
}

func (q *SMSQueue) Close() error {
	return q.channel.Close()
}
