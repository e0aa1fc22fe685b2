//go:build integration

package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/lo"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"feed_syncer/internal/domain"
)

type RabbitMQIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	container *rabbitmq.RabbitMQContainer
	amqpURL   string
	logger    *slog.Logger
}

func (s *RabbitMQIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	container, err := rabbitmq.Run(s.ctx,
		"rabbitmq:3.13-management-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second),
		),
	)
	s.Require().NoError(err)
	s.container = container

	amqpURL, err := container.AmqpURL(s.ctx)
	s.Require().NoError(err)
	s.amqpURL = amqpURL
}

func (s *RabbitMQIntegrationSuite) TearDownSuite() {
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

func TestRabbitMQIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RabbitMQIntegrationSuite))
}

func (s *RabbitMQIntegrationSuite) TestPublisher_Connection() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange",
		RoutingKey: "test-routing-key",
		QueueName:  "test-queue",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.NoError(err)
	s.NotNil(pub)

	err = pub.Close()
	s.NoError(err)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishEntries() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-entries",
		RoutingKey: "test-routing-key-entries",
		QueueName:  "test-queue-entries",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	now := time.Now().UTC().Truncate(time.Millisecond)
	entries := []domain.Entry{
		{ID: 1, FeedID: 10, Title: "First", Link: "https://example.com/1", PublishedAt: lo.ToPtr(now), Content: "one"},
		{ID: 2, FeedID: 10, Title: "Second", Link: "https://example.com/2"},
	}

	err = pub.PublishEntries(s.ctx, entries)
	s.NoError(err)

	for _, want := range entries {
		msg := s.consumeMessage(cfg)
		s.Require().NotNil(msg)

		var received EntryMessage
		s.Require().NoError(json.Unmarshal(msg.Body, &received))
		s.Equal(ActionEntryCreated, received.Action)
		s.Equal(want.ID, received.Entry.ID)
		s.Equal(want.Link, received.Entry.Link)
		s.Equal(want.FeedID, received.Entry.FeedID)
		s.False(received.Timestamp.IsZero())
	}
}

func (s *RabbitMQIntegrationSuite) TestPublisher_PublishFeed() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-feed",
		RoutingKey: "test-routing-key-feed",
		QueueName:  "test-queue-feed",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	feed := &domain.FeedSource{
		ID:         5,
		URL:        "https://example.com/feed.xml",
		Title:      "Example",
		CategoryID: lo.ToPtr(int64(2)),
	}

	err = pub.PublishFeed(s.ctx, feed)
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)
	s.Equal("application/json", msg.ContentType)

	var received FeedMessage
	s.Require().NoError(json.Unmarshal(msg.Body, &received))
	s.Equal(ActionFeedRegistered, received.Action)
	s.Equal(int64(5), received.Feed.ID)
	s.Equal("https://example.com/feed.xml", received.Feed.URL)
	s.Require().NotNil(received.Feed.CategoryID)
	s.Equal(int64(2), *received.Feed.CategoryID)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_MessagePersistence() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-persist",
		RoutingKey: "test-routing-key-persist",
		QueueName:  "test-queue-persist",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	defer pub.Close()

	err = pub.PublishEntries(s.ctx, []domain.Entry{{ID: 9, FeedID: 1, Link: "https://example.com/persist"}})
	s.NoError(err)

	msg := s.consumeMessage(cfg)
	s.Require().NotNil(msg)

	s.Equal(uint8(amqp.Persistent), msg.DeliveryMode)
}

func (s *RabbitMQIntegrationSuite) TestPublisher_ClosedChannel() {
	cfg := Config{
		URL:        s.amqpURL,
		Exchange:   "test-exchange-closed",
		RoutingKey: "test-routing-key-closed",
		QueueName:  "test-queue-closed",
	}

	pub, err := NewRabbitMQ(cfg, s.logger)
	s.Require().NoError(err)
	s.Require().NoError(pub.Close())

	err = pub.PublishEntries(s.ctx, []domain.Entry{{ID: 1, Link: "https://example.com/x"}})
	s.Error(err)
}

func (s *RabbitMQIntegrationSuite) consumeMessage(cfg Config) *amqp.Delivery {
	conn, err := amqp.Dial(s.amqpURL)
	s.Require().NoError(err)
	defer conn.Close()

	ch, err := conn.Channel()
	s.Require().NoError(err)
	defer ch.Close()

	msgs, err := ch.Consume(cfg.QueueName, "", true, false, false, false, nil)
	s.Require().NoError(err)

	select {
	case msg := <-msgs:
		return &msg
	case <-time.After(5 * time.Second):
		s.Fail("Timeout waiting for message")
		return nil
	}
}