package drivers

import (
	"fmt"

	"github.com/harentsoaR/clinic-reception-api/internal/config"
	"github.com/rabbitmq/amqp091-go"
)

// NewRabbitMQConnection dials RabbitMQ. It returns a nil connection when
// RABBITMQ_URL is unset, which disables patient SMS.
func NewRabbitMQConnection(cfg *config.Config) (*amqp091.Connection, error) {
	if cfg.RabbitMQ.URL == "" {
		return nil, nil
	}
	conn, err := amqp091.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		return nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}
	return conn, nil
}
