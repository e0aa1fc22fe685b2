package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"feed_syncer/internal/metrics"
	"feed_syncer/internal/scheduler"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Poll every registered feed on the configured interval",
		Description: `Runs a sync pass over every feed immediately and then once per
		sync.interval. When metrics.enabled is set, /metrics and /healthz are
		served on metrics.addr. Stops on SIGINT or SIGTERM; feeds whose sync
		was interrupted are rolled back and retried on the next start.`,
		Action: withRuntime(func(c *cli.Context, rt *runtime) error {
			sched := scheduler.NewScheduler(rt.sync, rt.cfg.Sync.Interval, rt.cfg.Sync.TickTimeout, rt.logger)

			g, ctx := errgroup.WithContext(c.Context)

			g.Go(func() error {
				return sched.Start(ctx)
			})

			if rt.cfg.Metrics.Enabled {
				app := metrics.NewApp(rt.db)
				g.Go(func() error {
					return metrics.Serve(ctx, app, rt.cfg.Metrics.Addr, rt.logger)
				})
			}

			rt.logger.Info("starting feed syncer",
				"interval", rt.cfg.Sync.Interval,
				"workers", rt.cfg.Sync.Workers,
				"rabbitmq", rt.cfg.RabbitMQ.Enabled,
				"metrics", rt.cfg.Metrics.Enabled,
			)

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			rt.logger.Info("feed syncer stopped")
			return nil
		}),
	}
}
