package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"feed_syncer/internal/domain"
)

func feedCmd() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Manage registered feeds",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register a feed and store its first entries",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "category",
						Usage: "file the feed under this category, creating it if needed",
					},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					url := c.Args().First()
					if url == "" {
						return errors.New("missing url argument")
					}

					feed, err := rt.registrar.Register(c.Context, url, c.String("category"))
					if err != nil {
						var regErr *domain.RegistrationError
						if errors.As(err, &regErr) {
							return fmt.Errorf("%s: %s", regErr.URL, regErr.Cause())
						}
						return err
					}

					fmt.Printf("Registered feed %d: %s\n", feed.ID, feed.Title)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "List registered feeds",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					feeds, err := rt.catalog.ListFeeds(c.Context)
					if err != nil {
						return err
					}
					if len(feeds) == 0 {
						fmt.Println("No feeds registered")
						return nil
					}

					categories, err := rt.categories.List(c.Context)
					if err != nil {
						return err
					}
					names := lo.Associate(categories, func(cat domain.Category) (int64, string) {
						return cat.ID, cat.Name
					})

					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tLAST SYNCED\tURL")
					for _, f := range feeds {
						category := "-"
						if f.CategoryID != nil {
							category = names[*f.CategoryID]
						}
						fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
							f.ID, f.Title, category, f.LastSyncedAt.Format("2006-01-02 15:04"), f.URL)
					}
					return w.Flush()
				}),
			},
			{
				Name:      "sync",
				Usage:     "Synchronize one feed now, or every feed with --all",
				ArgsUsage: "[feed-id]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "synchronize every registered feed"},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					if c.Bool("all") {
						stats, err := rt.sync.SyncAll(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Synced %d feeds: %d ok, %d skipped, %d failed, %d new entries\n",
							stats.Feeds, stats.Synced, stats.Skipped, stats.Failed, stats.New)
						return nil
					}

					id, err := idArg(c, 0, "feed id")
					if err != nil {
						return err
					}
					feed, err := rt.catalog.GetFeed(c.Context, id)
					if err != nil {
						return err
					}

					result := rt.sync.Sync(c.Context, *feed)
					if result.Err != nil {
						fmt.Printf("Feed %d %s: %v\n", feed.ID, result.Status, result.Err)
						return nil
					}
					fmt.Printf("Feed %d synced: %d new, %d already known\n", feed.ID, result.New, result.Skipped)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a feed and all of its entries",
				ArgsUsage: "<feed-id>",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					id, err := idArg(c, 0, "feed id")
					if err != nil {
						return err
					}
					if err := rt.catalog.DeleteFeed(c.Context, id); err != nil {
						return err
					}
					fmt.Printf("Deleted feed %d\n", id)
					return nil
				}),
			},
			{
				Name:      "move",
				Usage:     "File a feed under a category, or uncategorize it when no category is given",
				ArgsUsage: "<feed-id> [category-id]",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					feedID, err := idArg(c, 0, "feed id")
					if err != nil {
						return err
					}

					var categoryID *int64
					if c.NArg() > 1 {
						id, err := idArg(c, 1, "category id")
						if err != nil {
							return err
						}
						categoryID = lo.ToPtr(id)
					}

					if err := rt.categories.MoveFeed(c.Context, feedID, categoryID); err != nil {
						return err
					}
					fmt.Printf("Moved feed %d\n", feedID)
					return nil
				}),
			},
		},
	}
}
