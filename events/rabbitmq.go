// Package events publishes order notifications to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"canteen/logger"
	"canteen/models"
)

const (
	DefaultExchange       = "canteen_orders"
	DefaultPublishTimeout = 5 * time.Second
)

type Config struct {
	URL            string        `yaml:"url"`
	Exchange       string        `yaml:"exchange"`
	PublishTimeout time.Duration `yaml:"publish_timeout"`
}

// Channel is the part of *amqp.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitMQ struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	timeout  time.Duration
	logger   *logger.Logger
}

// Connect dials the broker and declares the durable topic exchange orders are
// published on.
func Connect(cfg Config, log *logger.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	exchange := cfg.Exchange
	if exchange == "" {
		exchange = DefaultExchange
	}
	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %q: %w", exchange, err)
	}

	r := NewWithChannel(channel, cfg, log)
	r.conn = conn
	r.logger.Info("Connected to RabbitMQ", "exchange", exchange)
	return r, nil
}

// NewWithChannel publishes on an already open channel.
func NewWithChannel(channel Channel, cfg Config, log *logger.Logger) *RabbitMQ {
	if cfg.Exchange == "" {
		cfg.Exchange = DefaultExchange
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if log == nil {
		log = logger.Discard()
	}
	return &RabbitMQ{
		channel:  channel,
		exchange: cfg.Exchange,
		timeout:  cfg.PublishTimeout,
		logger:   log.WithComponent("order_events"),
	}
}

func (r *RabbitMQ) PublishOrderPlaced(ctx context.Context, order models.Order) error {
	body, err := json.Marshal(NewOrderPlaced(order))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = r.channel.PublishWithContext(ctx,
		r.exchange,            // exchange
		RoutingKeyOrderPlaced, // routing key
		false,                 // mandatory
		false,                 // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    fmt.Sprintf("order-%d", order.ID),
			Timestamp:    order.CreatedAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish order %d: %w", order.ID, err)
	}

	r.logger.Debug("Order event published", "order_id", order.ID, "routing_key", RoutingKeyOrderPlaced)
	return nil
}

func (r *RabbitMQ) Close() error {
	var err error
	if r.channel != nil {
		err = r.channel.Close()
	}
	if r.conn != nil {
		if cerr := r.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Noop drops every event. It stands in when no broker is configured.
type Noop struct{}

func (Noop) PublishOrderPlaced(context.Context, models.Order) error { return nil }

func (Noop) Close() error { return nil }
