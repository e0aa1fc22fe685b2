package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

func categoryCmd() *cli.Command {
	return &cli.Command{
		Name:  "category",
		Usage: "Manage feed categories",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a category",
				ArgsUsage: "<name>",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					category, err := rt.categories.Create(c.Context, c.Args().First())
					if err != nil {
						return err
					}
					fmt.Printf("Created category %d: %s\n", category.ID, category.Name)
					return nil
				}),
			},
			{
				Name:      "rename",
				Usage:     "Rename a category",
				ArgsUsage: "<category-id> <name>",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					id, err := idArg(c, 0, "category id")
					if err != nil {
						return err
					}
					name := c.Args().Get(1)
					if name == "" {
						return errors.New("missing name argument")
					}
					if err := rt.categories.Rename(c.Context, id, name); err != nil {
						return err
					}
					fmt.Printf("Renamed category %d to %s\n", id, name)
					return nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete a category; its feeds become uncategorized",
				ArgsUsage: "<category-id>",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					id, err := idArg(c, 0, "category id")
					if err != nil {
						return err
					}
					if err := rt.categories.Delete(c.Context, id); err != nil {
						return err
					}
					fmt.Printf("Deleted category %d\n", id)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "List categories",
				Action: withRuntime(func(c *cli.Context, rt *runtime) error {
					categories, err := rt.categories.List(c.Context)
					if err != nil {
						return err
					}
					if len(categories) == 0 {
						fmt.Println("No categories")
						return nil
					}

					w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
					fmt.Fprintln(w, "ID\tNAME")
					for _, cat := range categories {
						fmt.Fprintf(w, "%d\t%s\n", cat.ID, cat.Name)
					}
					return w.Flush()
				}),
			},
		},
	}
}
