package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"feed_syncer/internal/domain"
)

func entryCmd() *cli.Command {
	return &cli.Command{
		Name:  "entry",
		Usage: "Read catalog entries",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List entries, newest first",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "feed", Usage: "only entries of this feed id"},
					&cli.Int64Flag{Name: "category", Usage: "only entries of feeds in this category id"},
					&cli.BoolFlag{Name: "unread", Usage: "only unread entries"},
					&cli.IntFlag{Name: "limit", Usage: "maximum number of entries", Value: 50},
				},
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					filter := domain.EntryFilter{
						UnreadOnly: c.Bool("unread"),
						Limit:      c.Int("limit"),
					}
					if c.IsSet("feed") {
						filter.FeedID = lo.ToPtr(c.Int64("feed"))
					}
					if c.IsSet("category") {
						filter.CategoryID = lo.ToPtr(c.Int64("category"))
					}

					entries, err := rt.catalog.ListEntries(c.Context, filter)
					if err != nil {
						return err
					}
					if len(entries) == 0 {
						fmt.Println("No entries")
						return nil
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tFEED\tREAD\tPUBLISHED\tTITLE\tLINK")
					for _, e := range entries {
						published := "-"
						if e.PublishedAt != nil {
							published = e.PublishedAt.Format("2006-01-02 15:04")
						}
						fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
							e.ID, e.FeedID, lo.Ternary(e.IsRead, "yes", "no"), published, e.Title, e.Link)
					}
					return w.Flush()
				}),
			},
			{
				Name:      "toggle",
				Usage:     "Flip the read state of an entry",
				ArgsUsage: "<entry-id>",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					id, err := idArg(c, 0, "entry id")
					if err != nil {
						return err
					}
					isRead, err := rt.catalog.ToggleRead(c.Context, id)
					if err != nil {
						return err
					}
					fmt.Printf("Entry %d marked %s\n", id, lo.Ternary(isRead, "read", "unread"))
					return nil
				}),
			},
			{
				Name:  "unread",
				Usage: "Print the number of unread entries",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					n, err := rt.catalog.UnreadCount(c.Context)
					if err != nil {
						return err
					}
					fmt.Println(n)
					return nil
				}),
			},
		},
	}
}
