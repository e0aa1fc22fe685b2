package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"feed_syncer/internal/domain"
)

const (
	ActionEntryCreated   = "entry.created"
	ActionFeedRegistered = "feed.registered"
)

type RabbitMQ struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareTopology(ch, cfg); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &RabbitMQ{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger.With("component", "publisher"),
	}, nil
}

func declareTopology(ch *amqp.Channel, cfg Config) error {
	if err := ch.ExchangeDeclare(cfg.Exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(cfg.QueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

type EntryMessage struct {
	Action    string       `json:"action"`
	Entry     domain.Entry `json:"entry"`
	Timestamp time.Time    `json:"timestamp"`
}

type FeedMessage struct {
	Action    string            `json:"action"`
	Feed      domain.FeedSource `json:"feed"`
	Timestamp time.Time         `json:"timestamp"`
}

// PublishEntries sends one entry.created message per entry. It stops at the
// first failure.
func (r *RabbitMQ) PublishEntries(ctx context.Context, entries []domain.Entry) error {
	for _, entry := range entries {
		msg := EntryMessage{
			Action:    ActionEntryCreated,
			Entry:     entry,
			Timestamp: time.Now().UTC(),
		}
		if err := r.publish(ctx, msg); err != nil {
			return fmt.Errorf("entry %d: %w", entry.ID, err)
		}
	}

	r.logger.Debug("published entries", "count", len(entries))
	return nil
}

func (r *RabbitMQ) PublishFeed(ctx context.Context, feed *domain.FeedSource) error {
	msg := FeedMessage{
		Action:    ActionFeedRegistered,
		Feed:      *feed,
		Timestamp: time.Now().UTC(),
	}
	if err := r.publish(ctx, msg); err != nil {
		return fmt.Errorf("feed %d: %w", feed.ID, err)
	}

	r.logger.Debug("published feed", "feed_id", feed.ID)
	return nil
}

func (r *RabbitMQ) publish(ctx context.Context, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.exchange,
		r.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
