package main

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"feed_syncer/internal/config"
	"feed_syncer/internal/publisher"
	"feed_syncer/internal/service"
	"feed_syncer/internal/source/rss"
	"feed_syncer/internal/storage/postgres"
)

// runtime is the wired object graph shared by every command.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *sqlx.DB
	rabbit *publisher.RabbitMQ

	sync       *service.SyncService
	registrar  *service.RegistrationService
	categories *service.CategoryService
	catalog    *service.CatalogService
}

func loadConfig(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, setupLogger(cfg.LogLevel), nil
}

func newRuntime(c *cli.Context) (*runtime, error) {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	db, err := postgres.Connect(c.Context, cfg.Database)
	if err != nil {
		return nil, err
	}
	logger.Debug("connected to database", "host", cfg.Database.Host, "dbname", cfg.Database.DBName)

	rt := &runtime{cfg: cfg, logger: logger, db: db}

	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rt.rabbit, err = publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			db.Close()
			return nil, err
		}
		pub = rt.rabbit
	}

	feedStore := postgres.NewFeedStore(db)
	entryStore := postgres.NewEntryStore(db)
	categoryStore := postgres.NewCategoryStore(db)
	txManager := postgres.NewTransactionManager(db)

	parser := rss.New(rss.Config{
		Timeout:        cfg.Fetch.Timeout,
		UserAgent:      cfg.Fetch.UserAgent,
		MaxBodyBytes:   cfg.Fetch.MaxBodyBytes,
		MaxAttempts:    cfg.Fetch.Retry.MaxAttempts,
		InitialBackoff: cfg.Fetch.Retry.InitialBackoff,
		MaxBackoff:     cfg.Fetch.Retry.MaxBackoff,
		FallbackHosts:  cfg.Fallback.Hosts,
		FallbackTitle:  cfg.Fallback.Title,
	}, logger)

	rt.sync = service.NewSyncService(parser, feedStore, entryStore, txManager, pub, logger, cfg.Sync)
	rt.registrar = service.NewRegistrationService(
		parser, feedStore, entryStore, categoryStore, txManager, pub, cfg.Sync.SeedLimit, logger,
	)
	rt.categories = service.NewCategoryService(categoryStore, feedStore, txManager, logger)
	rt.catalog = service.NewCatalogService(feedStore, entryStore, logger)

	return rt, nil
}

func (rt *runtime) Close() {
	if rt.rabbit != nil {
		if err := rt.rabbit.Close(); err != nil {
			rt.logger.Warn("close rabbitmq", "error", err)
		}
	}
	if err := rt.db.Close(); err != nil {
		rt.logger.Warn("close database", "error", err)
	}
}

// withRuntime wraps a command action with runtime setup and teardown.
func withRuntime(action func(c *cli.Context, rt *runtime) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		rt, err := newRuntime(c)
		if err != nil {
			return err
		}
		defer rt.Close()
		return action(c, rt)
	}
}

func idArg(c *cli.Context, pos int, name string) (int64, error) {
	raw := c.Args().Get(pos)
	if raw == "" {
		return 0, fmt.Errorf("missing %s argument", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}
